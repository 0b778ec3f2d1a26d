package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"povertyline/internal/config"
	"povertyline/internal/domain"
	"povertyline/internal/repository"
	"povertyline/pkg/database"
)

// Development fixtures: an admin, a provider, a handful of users with
// profiles, a region tree with statistics, resources across categories and
// statuses, and applications in mixed states.
func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	usersRepo := repository.NewPostgresUsersRepository(db)
	profilesRepo := repository.NewPostgresProfilesRepository(db)
	resourcesRepo := repository.NewPostgresResourcesRepository(db)
	applicationsRepo := repository.NewPostgresApplicationsRepository(db)
	regionsRepo := repository.NewPostgresRegionsRepository(db)

	now := time.Now().UTC()

	admin := seedUser(ctx, usersRepo, "admin", "admin@povertyline.org", "Admin123!", domain.RoleAdmin, now)
	provider := seedUser(ctx, usersRepo, "community_center", "provider@povertyline.org", "Provider123!", domain.RoleProvider, now)
	alice := seedUser(ctx, usersRepo, "alice", "alice@example.com", "Alice123!", domain.RoleUser, now)
	bob := seedUser(ctx, usersRepo, "bob", "bob@example.com", "Bob1234!", domain.RoleUser, now)

	seedProfile(ctx, profilesRepo, alice.ID, "Alice", "Nguyen", "+15551230001", now)
	seedProfile(ctx, profilesRepo, bob.ID, "Bob", "Rivera", "+15551230002", now)

	country := seedRegion(ctx, regionsRepo, "United States", "US", domain.RegionCountry, "", now)
	state := seedRegion(ctx, regionsRepo, "Illinois", "US-IL", domain.RegionState, country.ID, now)
	city := seedRegion(ctx, regionsRepo, "Chicago", "US-IL-CHI", domain.RegionCity, state.ID, now)
	_ = seedRegion(ctx, regionsRepo, "South Side", "US-IL-CHI-SS", domain.RegionDistrict, city.ID, now)

	stats := repository.RegionStatistics{
		Population:   ptrInt64(2746388),
		PovertyRate:  ptrFloat64(17.2),
		MedianIncome: ptrFloat64(65781),
		Raw:          `{"population": 2746388, "poverty_rate": 17.2, "median_income": 65781}`,
	}
	if err := regionsRepo.UpdateStatistics(ctx, city.ID, stats, now); err != nil {
		log.Printf("seed region statistics: %v", err)
	}

	food := seedResource(ctx, resourcesRepo, admin.ID, provider, domain.CategoryFood,
		"Weekly Food Pantry", "Free groceries every Saturday morning.", domain.ResourceActive, now)
	housing := seedResource(ctx, resourcesRepo, admin.ID, provider, domain.CategoryHousing,
		"Emergency Shelter Beds", "Overnight shelter with intake support.", domain.ResourceActive, now)
	seedResource(ctx, resourcesRepo, "", provider, domain.CategoryEducation,
		"Adult GED Classes", "Evening GED preparation courses.", domain.ResourcePending, now)
	seedResource(ctx, resourcesRepo, admin.ID, provider, domain.CategoryHealthcare,
		"Free Health Screenings", "Monthly blood pressure and diabetes checks.", domain.ResourceInactive, now)

	seedApplication(ctx, applicationsRepo, alice.ID, food.ID, domain.ApplicationSubmitted, "", now)
	seedApplication(ctx, applicationsRepo, bob.ID, food.ID, domain.ApplicationApproved, admin.ID, now)
	seedApplication(ctx, applicationsRepo, bob.ID, housing.ID, domain.ApplicationSubmitted, "", now)

	fmt.Println("Seed completed")
}

func seedUser(ctx context.Context, repo repository.UsersRepository, username, email, password string, role domain.UserRole, now time.Time) *domain.User {
	if existing, err := repo.GetByUsername(ctx, username); err == nil {
		return existing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password for %s: %v", username, err)
	}
	user := &domain.User{
		ID:                 uuid.NewString(),
		Username:           username,
		Email:              email,
		PasswordHash:       string(hash),
		Role:               role,
		VerificationStatus: domain.VerificationVerified,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("seed user %s: %v", username, err)
	}
	fmt.Printf("Seeded user %s (%s)\n", username, role)
	return user
}

func seedProfile(ctx context.Context, repo repository.ProfilesRepository, userID, first, last, phone string, now time.Time) {
	if _, err := repo.GetByUserID(ctx, userID); err == nil {
		return
	}

	profile := &domain.Profile{
		ID:          uuid.NewString(),
		UserID:      userID,
		FirstName:   sql.NullString{String: first, Valid: true},
		LastName:    sql.NullString{String: last, Valid: true},
		PhoneNumber: sql.NullString{String: phone, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	profile.CompletionPercentage = profile.CalculateCompletionPercentage()
	if err := repo.Create(ctx, profile); err != nil {
		log.Printf("seed profile for %s: %v", userID, err)
	}
}

func seedRegion(ctx context.Context, repo repository.RegionsRepository, name, code string, regionType domain.RegionType, parentID string, now time.Time) *domain.Region {
	if existing, err := repo.GetByCode(ctx, code); err == nil {
		return existing
	}

	region := &domain.Region{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      sql.NullString{String: code, Valid: true},
		Type:      regionType,
		ParentID:  sql.NullString{String: parentID, Valid: parentID != ""},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, region); err != nil {
		log.Fatalf("seed region %s: %v", name, err)
	}
	fmt.Printf("Seeded region %s\n", name)
	return region
}

func seedResource(ctx context.Context, repo repository.ResourcesRepository, verifiedBy string, provider *domain.User, category domain.ResourceCategory, title, description string, status domain.ResourceStatus, now time.Time) *domain.Resource {
	resource := &domain.Resource{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  description,
		Category:     category,
		ProviderID:   sql.NullString{String: provider.ID, Valid: true},
		ProviderName: provider.Username,
		Capacity:     sql.NullInt64{Int64: 50, Valid: true},
		StartDate:    sql.NullTime{Time: now.AddDate(0, -1, 0), Valid: true},
		EndDate:      sql.NullTime{Time: now.AddDate(0, 6, 0), Valid: true},
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == domain.ResourceActive || status == domain.ResourceInactive {
		if verifiedBy != "" {
			resource.VerificationDate = sql.NullTime{Time: now, Valid: true}
			resource.VerifiedBy = sql.NullString{String: verifiedBy, Valid: true}
		}
	}
	if err := repo.Create(ctx, resource); err != nil {
		log.Fatalf("seed resource %s: %v", title, err)
	}
	fmt.Printf("Seeded resource %s (%s)\n", title, status)
	return resource
}

func seedApplication(ctx context.Context, repo repository.ApplicationsRepository, userID, resourceID string, status domain.ApplicationStatus, reviewedBy string, now time.Time) {
	app := &domain.ResourceApplication{
		ID:          uuid.NewString(),
		UserID:      userID,
		ResourceID:  resourceID,
		Status:      domain.ApplicationSubmitted,
		NeedLevel:   sql.NullString{String: string(domain.NeedMedium), Valid: true},
		Reason:      sql.NullString{String: "Seed fixture", Valid: true},
		SubmittedAt: sql.NullTime{Time: now, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateForActiveResource(ctx, app, now); err != nil {
		log.Printf("seed application for %s: %v", userID, err)
		return
	}
	if status != domain.ApplicationSubmitted {
		moved, err := repo.Review(ctx, app.ID, []domain.ApplicationStatus{domain.ApplicationSubmitted}, status, reviewedBy, "Seed decision", "")
		if err != nil || !moved {
			log.Printf("seed application review for %s: %v", userID, err)
		}
	}
	fmt.Printf("Seeded application %s -> %s\n", userID, status)
}

func ptrInt64(v int64) *int64       { return &v }
func ptrFloat64(v float64) *float64 { return &v }
