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

// ApplicationService handles the application workflow.
type ApplicationService interface {
	Apply(ctx context.Context, actor policy.Actor, req ApplyRequest) (*domain.ResourceApplication, error)
	GetApplication(ctx context.Context, actor policy.Actor, applicationID string) (*domain.ResourceApplication, error)
	ListMyApplications(ctx context.Context, actor policy.Actor, page models.PageParams) ([]*domain.ResourceApplication, models.PageMeta, error)
	ReviewApplication(ctx context.Context, actor policy.Actor, req ReviewRequest) (*domain.ResourceApplication, error)
	ListPendingApplications(ctx context.Context, actor policy.Actor, page models.PageParams) ([]*domain.ResourceApplication, models.PageMeta, error)
}

type applicationService struct {
	applicationsRepo repository.ApplicationsRepository
	resourcesRepo    repository.ResourcesRepository
	logger           *zap.Logger
}

func NewApplicationService(applicationsRepo repository.ApplicationsRepository, resourcesRepo repository.ResourcesRepository, logger *zap.Logger) ApplicationService {
	return &applicationService{
		applicationsRepo: applicationsRepo,
		resourcesRepo:    resourcesRepo,
		logger:           logger,
	}
}

// ApplyRequest carries an application submission. JSON blobs arrive as raw
// text already validated by the handler.
type ApplyRequest struct {
	ResourceID      string
	NeedLevel       string
	Reason          string
	ApplicationData string
	Documents       string
	Notes           string
}

// ReviewRequest carries a review decision.
type ReviewRequest struct {
	ApplicationID string
	Status        string
	Reason        string
	AdminNotes    string
}

// Apply creates the application directly in submitted state. The repository
// enforces both the resource-is-active check and the one-live-application
// invariant atomically.
func (s *applicationService) Apply(ctx context.Context, actor policy.Actor, req ApplyRequest) (*domain.ResourceApplication, error) {
	if d := policy.CanApply(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	var needLevel sql.NullString
	if req.NeedLevel != "" {
		if _, ok := domain.ParseNeedLevel(req.NeedLevel); !ok {
			return nil, apperr.Invalid("Invalid need level")
		}
		needLevel = sql.NullString{String: req.NeedLevel, Valid: true}
	}

	now := time.Now().UTC()
	app := &domain.ResourceApplication{
		UserID:      actor.ID,
		ResourceID:  req.ResourceID,
		Status:      domain.ApplicationSubmitted,
		NeedLevel:   needLevel,
		SubmittedAt: sql.NullTime{Time: now, Valid: true},
	}
	setString := func(dst *sql.NullString, src string) {
		if src != "" {
			*dst = sql.NullString{String: src, Valid: true}
		}
	}
	setString(&app.Reason, req.Reason)
	setString(&app.ApplicationData, req.ApplicationData)
	setString(&app.Documents, req.Documents)
	setString(&app.Notes, req.Notes)

	if err := s.applicationsRepo.CreateForActiveResource(ctx, app, now); err != nil {
		return nil, err
	}

	s.logger.Info("Application submitted",
		zap.String("application_id", app.ID),
		zap.String("user_id", actor.ID),
		zap.String("resource_id", req.ResourceID))
	return app, nil
}

func (s *applicationService) GetApplication(ctx context.Context, actor policy.Actor, applicationID string) (*domain.ResourceApplication, error) {
	app, err := s.applicationsRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	// The resource may be gone for admins viewing orphans; access via
	// provider ownership needs it.
	resource, _ := s.resourcesRepo.GetByID(ctx, app.ResourceID)
	if d := policy.CanViewApplication(actor, app, resource); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	return app, nil
}

func (s *applicationService) ListMyApplications(ctx context.Context, actor policy.Actor, page models.PageParams) ([]*domain.ResourceApplication, models.PageMeta, error) {
	page = page.Normalize()
	apps, total, err := s.applicationsRepo.List(ctx, repository.ApplicationFilters{UserID: actor.ID}, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return apps, models.NewPageMeta(page, total), nil
}

// ReviewApplication moves a submitted application to a review outcome. Only
// submitted applications are reviewable; under_review itself is one of the
// outcomes and needs a fresh submission cycle to change again.
func (s *applicationService) ReviewApplication(ctx context.Context, actor policy.Actor, req ReviewRequest) (*domain.ResourceApplication, error) {
	if d := policy.CanReviewApplication(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	target, ok := domain.ParseApplicationStatus(req.Status)
	if !ok {
		return nil, apperr.Invalid("Invalid status")
	}
	if !domain.IsReviewTargetStatus(target) {
		return nil, apperr.Invalid("Invalid status for review")
	}

	moved, err := s.applicationsRepo.Review(ctx, req.ApplicationID,
		[]domain.ApplicationStatus{domain.ApplicationSubmitted},
		target, actor.ID, req.Reason, req.AdminNotes)
	if err != nil {
		return nil, err
	}
	if !moved {
		if _, err := s.applicationsRepo.GetByID(ctx, req.ApplicationID); err != nil {
			return nil, err
		}
		return nil, apperr.New(apperr.CodeInvalidState, "Application is not pending review")
	}

	s.logger.Info("Application reviewed",
		zap.String("application_id", req.ApplicationID),
		zap.String("status", req.Status),
		zap.String("reviewed_by", actor.ID))
	return s.applicationsRepo.GetByID(ctx, req.ApplicationID)
}

func (s *applicationService) ListPendingApplications(ctx context.Context, actor policy.Actor, page models.PageParams) ([]*domain.ResourceApplication, models.PageMeta, error) {
	if d := policy.CanReviewApplication(actor); !d.Allow {
		return nil, models.PageMeta{}, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	page = page.Normalize()
	apps, total, err := s.applicationsRepo.List(ctx, repository.ApplicationFilters{
		Status:               string(domain.ApplicationSubmitted),
		OldestSubmittedFirst: true,
	}, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return apps, models.NewPageMeta(page, total), nil
}
