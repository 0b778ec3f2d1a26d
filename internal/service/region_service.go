package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
	"povertyline/internal/policy"
	"povertyline/internal/repository"
)

// StatisticsFetcher pulls region statistics from the external provider.
type StatisticsFetcher interface {
	FetchStatistics(ctx context.Context, regionCode string) (*repository.RegionStatistics, error)
}

// RegionService manages the region hierarchy reference data. Reads are
// public; writes and statistics sync are admin only.
type RegionService interface {
	ListRegions(ctx context.Context, req ListRegionsRequest) ([]*domain.Region, models.PageMeta, error)
	GetRegion(ctx context.Context, regionID string) (*domain.Region, error)
	// GetHierarchy returns the region's ancestor chain, root first, ending
	// with the region itself.
	GetHierarchy(ctx context.Context, regionID string) ([]*domain.Region, error)
	ListChildren(ctx context.Context, regionID string) ([]*domain.Region, error)
	CreateRegion(ctx context.Context, actor policy.Actor, req RegionInput) (*domain.Region, error)
	UpdateRegion(ctx context.Context, actor policy.Actor, regionID string, req RegionInput) (*domain.Region, error)
	// SyncStatistics refreshes the region's cached statistics from the
	// external provider.
	SyncStatistics(ctx context.Context, actor policy.Actor, regionID string) (*domain.Region, error)
}

type regionService struct {
	regionsRepo repository.RegionsRepository
	stats       StatisticsFetcher
	logger      *zap.Logger
}

func NewRegionService(regionsRepo repository.RegionsRepository, stats StatisticsFetcher, logger *zap.Logger) RegionService {
	return &regionService{regionsRepo: regionsRepo, stats: stats, logger: logger}
}

// ListRegionsRequest filters the region listing.
type ListRegionsRequest struct {
	Type     string
	ParentID string
	Search   string
	Page     models.PageParams
}

// RegionInput is a partial region write. Nil fields are untouched.
type RegionInput struct {
	Name        *string
	Code        *string
	Type        *string
	ParentID    *string
	GeoBoundary *string // JSON text
	IsActive    *bool
}

func (in RegionInput) apply(r *domain.Region) error {
	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Code != nil {
		r.Code = sql.NullString{String: *in.Code, Valid: *in.Code != ""}
	}
	if in.Type != nil {
		rt, ok := domain.ParseRegionType(*in.Type)
		if !ok {
			return apperr.Invalid("Invalid region type")
		}
		r.Type = rt
	}
	if in.ParentID != nil {
		r.ParentID = sql.NullString{String: *in.ParentID, Valid: *in.ParentID != ""}
	}
	if in.GeoBoundary != nil {
		r.GeoBoundary = sql.NullString{String: *in.GeoBoundary, Valid: *in.GeoBoundary != ""}
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	return nil
}

func (s *regionService) ListRegions(ctx context.Context, req ListRegionsRequest) ([]*domain.Region, models.PageMeta, error) {
	page := req.Page.Normalize()
	if req.Type != "" {
		if _, ok := domain.ParseRegionType(req.Type); !ok {
			return nil, models.PageMeta{}, apperr.Invalid("Invalid region type")
		}
	}
	regions, total, err := s.regionsRepo.List(ctx, repository.RegionFilters{
		Type:     req.Type,
		ParentID: req.ParentID,
		Search:   req.Search,
	}, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return regions, models.NewPageMeta(page, total), nil
}

func (s *regionService) GetRegion(ctx context.Context, regionID string) (*domain.Region, error) {
	return s.regionsRepo.GetByID(ctx, regionID)
}

func (s *regionService) GetHierarchy(ctx context.Context, regionID string) ([]*domain.Region, error) {
	region, err := s.regionsRepo.GetByID(ctx, regionID)
	if err != nil {
		return nil, err
	}

	chain := []*domain.Region{region}
	seen := map[string]bool{region.ID: true}
	for region.ParentID.Valid {
		parent, err := s.regionsRepo.GetByID(ctx, region.ParentID.String)
		if err != nil {
			break
		}
		if seen[parent.ID] {
			s.logger.Warn("Region hierarchy contains a cycle",
				zap.String("region_id", parent.ID))
			break
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		region = parent
	}

	// Reverse so the root comes first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *regionService) ListChildren(ctx context.Context, regionID string) ([]*domain.Region, error) {
	if _, err := s.regionsRepo.GetByID(ctx, regionID); err != nil {
		return nil, err
	}
	return s.regionsRepo.ListChildren(ctx, regionID)
}

func (s *regionService) CreateRegion(ctx context.Context, actor policy.Actor, req RegionInput) (*domain.Region, error) {
	if d := policy.CanManageRegions(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	if req.Name == nil || *req.Name == "" || req.Type == nil {
		return nil, apperr.Invalid("Missing required fields")
	}

	now := time.Now().UTC()
	region := &domain.Region{
		ID:        uuid.NewString(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := req.apply(region); err != nil {
		return nil, err
	}
	if region.ParentID.Valid {
		if _, err := s.regionsRepo.GetByID(ctx, region.ParentID.String); err != nil {
			return nil, apperr.Invalid("Parent region not found")
		}
	}

	if err := s.regionsRepo.Create(ctx, region); err != nil {
		return nil, err
	}
	s.logger.Info("Region created",
		zap.String("region_id", region.ID),
		zap.String("name", region.Name),
		zap.String("type", string(region.Type)),
	)
	return region, nil
}

func (s *regionService) UpdateRegion(ctx context.Context, actor policy.Actor, regionID string, req RegionInput) (*domain.Region, error) {
	if d := policy.CanManageRegions(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	region, err := s.regionsRepo.GetByID(ctx, regionID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(region); err != nil {
		return nil, err
	}
	if req.ParentID != nil && region.ParentID.Valid {
		if region.ParentID.String == region.ID {
			return nil, apperr.Invalid("Region cannot be its own parent")
		}
		if _, err := s.regionsRepo.GetByID(ctx, region.ParentID.String); err != nil {
			return nil, apperr.Invalid("Parent region not found")
		}
	}
	region.UpdatedAt = time.Now().UTC()

	if err := s.regionsRepo.Update(ctx, region); err != nil {
		return nil, err
	}
	return region, nil
}

func (s *regionService) SyncStatistics(ctx context.Context, actor policy.Actor, regionID string) (*domain.Region, error) {
	if d := policy.CanManageRegions(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	region, err := s.regionsRepo.GetByID(ctx, regionID)
	if err != nil {
		return nil, err
	}
	if !region.Code.Valid || region.Code.String == "" {
		return nil, apperr.New(apperr.CodeInvalidState, "Region has no code to sync statistics for")
	}

	stats, err := s.stats.FetchStatistics(ctx, region.Code.String)
	if err != nil {
		s.logger.Error("Statistics sync failed",
			zap.String("region_id", regionID),
			zap.Error(err),
		)
		return nil, apperr.New(apperr.CodeInternal, "Failed to fetch region statistics")
	}

	now := time.Now().UTC()
	if err := s.regionsRepo.UpdateStatistics(ctx, regionID, *stats, now); err != nil {
		return nil, err
	}
	s.logger.Info("Region statistics synced",
		zap.String("region_id", regionID),
		zap.String("region_code", region.Code.String),
	)
	return s.regionsRepo.GetByID(ctx, regionID)
}
