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

// ResourceService handles the catalog and its lifecycle.
type ResourceService interface {
	ListResources(ctx context.Context, req ListResourcesRequest) (*ListResourcesResponse, error)
	GetResource(ctx context.Context, actor *policy.Actor, resourceID string) (*domain.Resource, error)
	CreateResource(ctx context.Context, actor policy.Actor, req ResourceInput) (*domain.Resource, error)
	UpdateResource(ctx context.Context, actor policy.Actor, resourceID string, req ResourceInput) (*domain.Resource, error)
	DeleteResource(ctx context.Context, actor policy.Actor, resourceID string) error
	ApproveResource(ctx context.Context, actor policy.Actor, resourceID, status string) (*domain.Resource, error)
	ListPendingResources(ctx context.Context, actor policy.Actor, page models.PageParams) ([]*domain.Resource, models.PageMeta, error)
}

type resourceService struct {
	resourcesRepo repository.ResourcesRepository
	logger        *zap.Logger
}

func NewResourceService(resourcesRepo repository.ResourcesRepository, logger *zap.Logger) ResourceService {
	return &resourceService{resourcesRepo: resourcesRepo, logger: logger}
}

// ListResourcesRequest filters the public catalog listing.
type ListResourcesRequest struct {
	Category string
	Search   string
	Page     models.PageParams
}

// ListResourcesResponse carries one page of resources.
type ListResourcesResponse struct {
	Resources []*domain.Resource
	Meta      models.PageMeta
}

// ResourceInput is a partial resource write. Nil fields are untouched. Status
// only applies when the actor is admin.
type ResourceInput struct {
	Title               *string
	Description         *string
	Category            *string
	ProviderName        *string
	ProviderContact     *string
	Location            *string
	EligibilityCriteria *string
	ApplicationProcess  *string
	RequiredDocuments   *string
	Capacity            *int64
	Availability        *string
	StartDate           *string // YYYY-MM-DD
	EndDate             *string // YYYY-MM-DD
	Status              *string
}

func (in ResourceInput) apply(r *domain.Resource) error {
	if in.Category != nil {
		cat, ok := domain.ParseResourceCategory(*in.Category)
		if !ok {
			return apperr.Invalid("Invalid category")
		}
		r.Category = cat
	}
	if in.StartDate != nil {
		d, err := time.Parse("2006-01-02", *in.StartDate)
		if err != nil {
			return apperr.Invalid("Invalid start_date format, expected YYYY-MM-DD")
		}
		r.StartDate = sql.NullTime{Time: d, Valid: true}
	}
	if in.EndDate != nil {
		d, err := time.Parse("2006-01-02", *in.EndDate)
		if err != nil {
			return apperr.Invalid("Invalid end_date format, expected YYYY-MM-DD")
		}
		r.EndDate = sql.NullTime{Time: d, Valid: true}
	}

	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.ProviderName != nil {
		r.ProviderName = *in.ProviderName
	}

	setString := func(dst *sql.NullString, src *string) {
		if src != nil {
			*dst = sql.NullString{String: *src, Valid: true}
		}
	}
	setString(&r.ProviderContact, in.ProviderContact)
	setString(&r.Location, in.Location)
	setString(&r.EligibilityCriteria, in.EligibilityCriteria)
	setString(&r.ApplicationProcess, in.ApplicationProcess)
	setString(&r.RequiredDocuments, in.RequiredDocuments)
	setString(&r.Availability, in.Availability)

	if in.Capacity != nil {
		r.Capacity = sql.NullInt64{Int64: *in.Capacity, Valid: true}
	}
	return nil
}

// ListResources is the public catalog view: active resources whose date
// window covers today.
func (s *resourceService) ListResources(ctx context.Context, req ListResourcesRequest) (*ListResourcesResponse, error) {
	filters := repository.ResourceFilters{
		Search:   req.Search,
		ActiveOn: time.Now().UTC(),
	}
	if _, ok := domain.ParseResourceCategory(req.Category); ok {
		filters.Category = req.Category
	}

	page := req.Page.Normalize()
	resources, total, err := s.resourcesRepo.List(ctx, filters, page)
	if err != nil {
		return nil, err
	}
	return &ListResourcesResponse{
		Resources: resources,
		Meta:      models.NewPageMeta(page, total),
	}, nil
}

// GetResource serves a single resource. Active resources are public;
// everything else is restricted to the owning provider and admins, so actor
// may be nil for anonymous callers.
func (s *resourceService) GetResource(ctx context.Context, actor *policy.Actor, resourceID string) (*domain.Resource, error) {
	resource, err := s.resourcesRepo.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if resource.Status == domain.ResourceActive {
		return resource, nil
	}
	if actor == nil {
		return nil, apperr.New(apperr.CodeForbidden, "Unauthorized access")
	}
	if d := policy.CanViewResource(*actor, resource); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	return resource, nil
}

func (s *resourceService) CreateResource(ctx context.Context, actor policy.Actor, req ResourceInput) (*domain.Resource, error) {
	if d := policy.CanCreateResource(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	if req.Title == nil || req.Description == nil || req.Category == nil || req.ProviderName == nil {
		return nil, apperr.Invalid("Missing required fields")
	}

	resource := &domain.Resource{
		ProviderID: sql.NullString{String: actor.ID, Valid: true},
		Status:     domain.ResourceDraft,
	}
	if err := req.apply(resource); err != nil {
		return nil, err
	}

	// Providers always land in the approval queue. Admins may create in any
	// state; whatever they set counts as verified.
	if d := policy.CanSetResourceStatus(actor); d.Allow {
		if req.Status != nil {
			status, ok := domain.ParseResourceStatus(*req.Status)
			if !ok {
				return nil, apperr.Invalid("Invalid status")
			}
			resource.Status = status
			now := time.Now().UTC()
			resource.VerificationDate = sql.NullTime{Time: now, Valid: true}
			resource.VerifiedBy = sql.NullString{String: actor.ID, Valid: true}
		}
	} else {
		resource.Status = domain.ResourcePending
	}

	if err := s.resourcesRepo.Create(ctx, resource); err != nil {
		return nil, err
	}

	s.logger.Info("Resource created",
		zap.String("resource_id", resource.ID),
		zap.String("provider_id", actor.ID),
		zap.String("status", string(resource.Status)))
	return resource, nil
}

func (s *resourceService) UpdateResource(ctx context.Context, actor policy.Actor, resourceID string, req ResourceInput) (*domain.Resource, error) {
	resource, err := s.resourcesRepo.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanUpdateResource(actor, resource); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	if err := req.apply(resource); err != nil {
		return nil, err
	}

	if d := policy.CanSetResourceStatus(actor); d.Allow {
		if req.Status != nil {
			status, ok := domain.ParseResourceStatus(*req.Status)
			if !ok {
				return nil, apperr.Invalid("Invalid status")
			}
			resource.Status = status
			if status == domain.ResourceActive {
				now := time.Now().UTC()
				resource.VerificationDate = sql.NullTime{Time: now, Valid: true}
				resource.VerifiedBy = sql.NullString{String: actor.ID, Valid: true}
			}
		}
	} else if resource.Status == domain.ResourceActive {
		// Provider edits invalidate the earlier approval.
		resource.Status = domain.ResourcePending
	}

	if err := s.resourcesRepo.Update(ctx, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (s *resourceService) DeleteResource(ctx context.Context, actor policy.Actor, resourceID string) error {
	resource, err := s.resourcesRepo.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if d := policy.CanDeleteResource(actor, resource); !d.Allow {
		return apperr.New(apperr.CodeForbidden, d.Reason)
	}
	if err := s.resourcesRepo.Delete(ctx, resourceID); err != nil {
		return err
	}
	s.logger.Info("Resource deleted",
		zap.String("resource_id", resourceID),
		zap.String("deleted_by", actor.ID))
	return nil
}

// ApproveResource moves a pending resource to active or inactive. The state
// check and the write happen in one conditional update.
func (s *resourceService) ApproveResource(ctx context.Context, actor policy.Actor, resourceID, status string) (*domain.Resource, error) {
	if d := policy.CanApproveResource(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	target, ok := domain.ParseResourceStatus(status)
	if !ok {
		return nil, apperr.Invalid("Invalid status")
	}
	if target != domain.ResourceActive && target != domain.ResourceInactive {
		return nil, apperr.Invalid("Invalid status for approval")
	}

	moved, err := s.resourcesRepo.TransitionStatus(ctx, resourceID,
		[]domain.ResourceStatus{domain.ResourcePending}, target, actor.ID)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Distinguish a missing resource from a wrong-state one.
		if _, err := s.resourcesRepo.GetByID(ctx, resourceID); err != nil {
			return nil, err
		}
		return nil, apperr.New(apperr.CodeInvalidState, "Resource is not pending approval")
	}

	s.logger.Info("Resource approved",
		zap.String("resource_id", resourceID),
		zap.String("status", status),
		zap.String("approved_by", actor.ID))
	return s.resourcesRepo.GetByID(ctx, resourceID)
}

func (s *resourceService) ListPendingResources(ctx context.Context, actor policy.Actor, page models.PageParams) ([]*domain.Resource, models.PageMeta, error) {
	if d := policy.CanApproveResource(actor); !d.Allow {
		return nil, models.PageMeta{}, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	page = page.Normalize()
	resources, total, err := s.resourcesRepo.List(ctx, repository.ResourceFilters{
		Status:      string(domain.ResourcePending),
		OldestFirst: true,
	}, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return resources, models.NewPageMeta(page, total), nil
}
