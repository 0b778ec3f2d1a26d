package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
)

// PostgresProfilesRepository implements ProfilesRepository over lib/pq.
type PostgresProfilesRepository struct {
	db *sql.DB
}

func NewPostgresProfilesRepository(db *sql.DB) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

const profileColumns = `
	id::text,
	user_id::text,
	first_name,
	last_name,
	date_of_birth,
	gender,
	phone_number,
	address::text,
	location_coordinates::text,
	education_level,
	education_history::text,
	employment_status,
	employment_history::text,
	skills::text,
	health_information::text,
	income_level,
	household_size,
	dependents,
	needs::text,
	completion_percentage,
	privacy_settings::text,
	created_at,
	updated_at
`

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.DateOfBirth,
		&p.Gender,
		&p.PhoneNumber,
		&p.Address,
		&p.LocationCoordinates,
		&p.EducationLevel,
		&p.EducationHistory,
		&p.EmploymentStatus,
		&p.EmploymentHistory,
		&p.Skills,
		&p.HealthInformation,
		&p.IncomeLevel,
		&p.HouseholdSize,
		&p.Dependents,
		&p.Needs,
		&p.CompletionPercentage,
		&p.PrivacySettings,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresProfilesRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO profiles (
			id, user_id, first_name, last_name, date_of_birth, gender, phone_number,
			address, location_coordinates, education_level, education_history,
			employment_status, employment_history, skills, health_information,
			income_level, household_size, dependents, needs,
			completion_percentage, privacy_settings, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.PhoneNumber,
		p.Address, p.LocationCoordinates, p.EducationLevel, p.EducationHistory,
		p.EmploymentStatus, p.EmploymentHistory, p.Skills, p.HealthInformation,
		p.IncomeLevel, p.HouseholdSize, p.Dependents, p.Needs,
		p.CompletionPercentage, p.PrivacySettings, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperr.New(apperr.CodeConflict, "Profile already exists for this user")
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("insert profile: %v", err))
	}
	return nil
}

func (r *PostgresProfilesRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateNotFound(err, "Profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, translateNotFound(err, "Profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) List(ctx context.Context, f ProfileFilters, page models.PageParams) ([]*domain.Profile, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	idx := 1

	if f.MinCompletion > 0 {
		conds = append(conds, fmt.Sprintf("completion_percentage >= $%d", idx))
		args = append(args, f.MinCompletion)
		idx++
	}
	if f.EducationLevel != "" {
		conds = append(conds, fmt.Sprintf("education_level = $%d", idx))
		args = append(args, f.EducationLevel)
		idx++
	}
	if f.EmploymentStatus != "" {
		conds = append(conds, fmt.Sprintf("employment_status = $%d", idx))
		args = append(args, f.EmploymentStatus)
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("count profiles: %v", err))
	}

	query := `SELECT ` + profileColumns + ` FROM profiles` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list profiles: %v", err))
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan profile: %v", err))
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list profiles: %v", err))
	}
	return profiles, total, nil
}

func (r *PostgresProfilesRepository) Update(ctx context.Context, p *domain.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE profiles
		SET first_name = $2,
			last_name = $3,
			date_of_birth = $4,
			gender = $5,
			phone_number = $6,
			address = $7,
			location_coordinates = $8,
			education_level = $9,
			education_history = $10,
			employment_status = $11,
			employment_history = $12,
			skills = $13,
			health_information = $14,
			income_level = $15,
			household_size = $16,
			dependents = $17,
			needs = $18,
			completion_percentage = $19,
			privacy_settings = $20,
			updated_at = $21
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.PhoneNumber,
		p.Address, p.LocationCoordinates, p.EducationLevel, p.EducationHistory,
		p.EmploymentStatus, p.EmploymentHistory, p.Skills, p.HealthInformation,
		p.IncomeLevel, p.HouseholdSize, p.Dependents, p.Needs,
		p.CompletionPercentage, p.PrivacySettings, p.UpdatedAt,
	)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("update profile: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Profile not found")
	}
	return nil
}
