package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
	"povertyline/internal/policy"
	"povertyline/internal/repository"
)

// ProfileService handles the 1:1 user profiles.
type ProfileService interface {
	CreateProfile(ctx context.Context, actor policy.Actor, req ProfileInput) (*domain.Profile, error)
	GetMyProfile(ctx context.Context, actor policy.Actor) (*domain.Profile, error)
	UpdateMyProfile(ctx context.Context, actor policy.Actor, req ProfileInput) (*domain.Profile, error)
	GetProfile(ctx context.Context, actor policy.Actor, profileID string) (*domain.Profile, error)
	ListProfiles(ctx context.Context, actor policy.Actor, f repository.ProfileFilters, page models.PageParams) ([]*domain.Profile, models.PageMeta, error)
}

type profileService struct {
	profilesRepo repository.ProfilesRepository
	logger       *zap.Logger
}

func NewProfileService(profilesRepo repository.ProfilesRepository, logger *zap.Logger) ProfileService {
	return &profileService{profilesRepo: profilesRepo, logger: logger}
}

// ProfileInput is a partial profile write. Nil fields are untouched; JSON
// blobs arrive as raw text already validated by the handler.
type ProfileInput struct {
	FirstName           *string
	LastName            *string
	DateOfBirth         *string // YYYY-MM-DD
	Gender              *string
	PhoneNumber         *string
	Address             *string
	LocationCoordinates *string
	EducationLevel      *string
	EducationHistory    *string
	EmploymentStatus    *string
	EmploymentHistory   *string
	Skills              *string
	HealthInformation   *string
	IncomeLevel         *float64
	HouseholdSize       *int
	Dependents          *int
	Needs               *string
	PrivacySettings     *string
}

// apply writes the submitted fields onto the profile and recomputes the
// completion percentage.
func (in ProfileInput) apply(p *domain.Profile) error {
	if in.PhoneNumber != nil && !validatePhoneNumber(*in.PhoneNumber) {
		return apperr.Invalid("Invalid phone number format")
	}
	if in.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *in.DateOfBirth)
		if err != nil {
			return apperr.Invalid("Invalid date of birth format, expected YYYY-MM-DD")
		}
		p.DateOfBirth = sql.NullTime{Time: dob, Valid: true}
	}
	if in.EducationLevel != nil {
		if _, ok := domain.ParseEducationLevel(*in.EducationLevel); !ok {
			return apperr.Invalid("Invalid education level")
		}
		p.EducationLevel = sql.NullString{String: *in.EducationLevel, Valid: true}
	}
	if in.EmploymentStatus != nil {
		if _, ok := domain.ParseEmploymentStatus(*in.EmploymentStatus); !ok {
			return apperr.Invalid("Invalid employment status")
		}
		p.EmploymentStatus = sql.NullString{String: *in.EmploymentStatus, Valid: true}
	}

	setString := func(dst *sql.NullString, src *string) {
		if src != nil {
			*dst = sql.NullString{String: *src, Valid: true}
		}
	}
	setString(&p.FirstName, in.FirstName)
	setString(&p.LastName, in.LastName)
	setString(&p.Gender, in.Gender)
	setString(&p.PhoneNumber, in.PhoneNumber)
	setString(&p.Address, in.Address)
	setString(&p.LocationCoordinates, in.LocationCoordinates)
	setString(&p.EducationHistory, in.EducationHistory)
	setString(&p.EmploymentHistory, in.EmploymentHistory)
	setString(&p.Skills, in.Skills)
	setString(&p.HealthInformation, in.HealthInformation)
	setString(&p.Needs, in.Needs)
	setString(&p.PrivacySettings, in.PrivacySettings)

	if in.IncomeLevel != nil {
		p.IncomeLevel = *in.IncomeLevel
	}
	if in.HouseholdSize != nil {
		p.HouseholdSize = *in.HouseholdSize
	}
	if in.Dependents != nil {
		p.Dependents = *in.Dependents
	}

	p.CalculateCompletionPercentage()
	return nil
}

func (s *profileService) CreateProfile(ctx context.Context, actor policy.Actor, req ProfileInput) (*domain.Profile, error) {
	if existing, err := s.profilesRepo.GetByUserID(ctx, actor.ID); err == nil && existing != nil {
		return nil, apperr.New(apperr.CodeConflict, "User already has a profile")
	}

	profile := &domain.Profile{
		UserID:        actor.ID,
		HouseholdSize: 1,
	}
	if err := req.apply(profile); err != nil {
		return nil, err
	}
	if err := s.profilesRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("Profile created",
		zap.String("user_id", actor.ID),
		zap.Int("completion", profile.CompletionPercentage))
	return profile, nil
}

func (s *profileService) GetMyProfile(ctx context.Context, actor policy.Actor) (*domain.Profile, error) {
	return s.profilesRepo.GetByUserID(ctx, actor.ID)
}

func (s *profileService) UpdateMyProfile(ctx context.Context, actor policy.Actor, req ProfileInput) (*domain.Profile, error) {
	profile, err := s.profilesRepo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, apperr.NotFound("Profile not found, create one first")
	}
	if err := req.apply(profile); err != nil {
		return nil, err
	}
	if err := s.profilesRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, actor policy.Actor, profileID string) (*domain.Profile, error) {
	profile, err := s.profilesRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewProfile(actor, profile.UserID); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	return profile, nil
}

func (s *profileService) ListProfiles(ctx context.Context, actor policy.Actor, f repository.ProfileFilters, page models.PageParams) ([]*domain.Profile, models.PageMeta, error) {
	if d := policy.CanManageUsers(actor); !d.Allow {
		return nil, models.PageMeta{}, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	page = page.Normalize()
	profiles, total, err := s.profilesRepo.List(ctx, f, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return profiles, models.NewPageMeta(page, total), nil
}
