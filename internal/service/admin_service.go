package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/models"
	"povertyline/internal/repository"
	"povertyline/internal/store"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardCacheTTL = 60 * time.Second
)

// AdminService computes the dashboard and analytics aggregates. Results are
// read-only rollups, so the dashboard tolerates up to a minute of staleness
// from the cache.
type AdminService interface {
	Dashboard(ctx context.Context) (map[string]any, error)
	InvalidateDashboard(ctx context.Context)
	UserAnalytics(ctx context.Context, period string) (map[string]any, error)
	ResourceAnalytics(ctx context.Context, period string) (map[string]any, error)
}

type adminService struct {
	analyticsRepo    repository.AnalyticsRepository
	usersRepo        repository.UsersRepository
	resourcesRepo    repository.ResourcesRepository
	applicationsRepo repository.ApplicationsRepository
	cache            store.KV
	logger           *zap.Logger
}

func NewAdminService(
	analyticsRepo repository.AnalyticsRepository,
	usersRepo repository.UsersRepository,
	resourcesRepo repository.ResourcesRepository,
	applicationsRepo repository.ApplicationsRepository,
	cache store.KV,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		analyticsRepo:    analyticsRepo,
		usersRepo:        usersRepo,
		resourcesRepo:    resourcesRepo,
		applicationsRepo: applicationsRepo,
		cache:            cache,
		logger:           logger,
	}
}

// distributionEntry is one row of a count-descending distribution list.
type distributionEntry struct {
	Key   string
	Count int
}

// sortedDistribution renders a count map as a list ordered by count
// descending (key ascending on ties, to keep output stable).
func sortedDistribution(counts map[string]int, keyName string) []map[string]any {
	entries := make([]distributionEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, distributionEntry{Key: k, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{keyName: e.Key, "count": e.Count})
	}
	return out
}

func trendList(points []repository.TrendPoint) []map[string]any {
	out := make([]map[string]any, 0, len(points))
	for _, p := range points {
		out = append(out, map[string]any{"date": p.Bucket, "count": p.Count})
	}
	return out
}

func (s *adminService) Dashboard(ctx context.Context) (map[string]any, error) {
	if cached, err := s.cache.Get(ctx, dashboardCacheKey); err == nil {
		var payload map[string]any
		if err := json.Unmarshal([]byte(cached), &payload); err == nil {
			return payload, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		s.logger.Warn("Dashboard cache read failed", zap.Error(err))
	}

	counts, err := s.analyticsRepo.DashboardCounts(ctx)
	if err != nil {
		return nil, err
	}

	sevenDaysAgo := time.Now().UTC().AddDate(0, 0, -7)
	userTrend, err := s.analyticsRepo.UserRegistrationTrend(ctx, sevenDaysAgo, "day")
	if err != nil {
		return nil, err
	}

	categories, err := s.analyticsRepo.ResourcesByCategory(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.analyticsRepo.UsersByRole(ctx)
	if err != nil {
		return nil, err
	}

	recent := models.PageParams{Page: 1, PerPage: 5}
	recentUsers, _, err := s.usersRepo.List(ctx, repository.UserFilters{}, recent)
	if err != nil {
		return nil, err
	}
	recentResources, _, err := s.resourcesRepo.List(ctx, repository.ResourceFilters{}, recent)
	if err != nil {
		return nil, err
	}
	recentApplications, _, err := s.applicationsRepo.List(ctx, repository.ApplicationFilters{}, recent)
	if err != nil {
		return nil, err
	}

	userList := make([]map[string]any, 0, len(recentUsers))
	for _, u := range recentUsers {
		userList = append(userList, u.ToJSON())
	}
	resourceList := make([]map[string]any, 0, len(recentResources))
	for _, r := range recentResources {
		resourceList = append(resourceList, r.ToJSON())
	}
	applicationList := make([]map[string]any, 0, len(recentApplications))
	for _, a := range recentApplications {
		applicationList = append(applicationList, a.ToJSON())
	}

	payload := map[string]any{
		"summary": map[string]any{
			"users":                counts.TotalUsers,
			"profiles":             counts.TotalProfiles,
			"resources":            counts.TotalResources,
			"applications":         counts.TotalApplications,
			"pending_resources":    counts.PendingResources,
			"pending_applications": counts.SubmittedApplications,
		},
		"trends": map[string]any{
			"user_registrations": trendList(userTrend),
		},
		"distributions": map[string]any{
			"resource_categories": sortedDistribution(categories, "category"),
			"user_roles":          sortedDistribution(roles, "role"),
		},
		"recent_activity": map[string]any{
			"users":        userList,
			"resources":    resourceList,
			"applications": applicationList,
		},
	}

	if data, err := json.Marshal(payload); err == nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, string(data), dashboardCacheTTL); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.Error(err))
		}
	}
	return payload, nil
}

// InvalidateDashboard drops the cached dashboard so the next read recomputes
// it. Called after admin mutations that change the numbers; a failed delete
// only extends staleness to the TTL, so it is logged and not surfaced.
func (s *adminService) InvalidateDashboard(ctx context.Context) {
	if err := s.cache.Del(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("Dashboard cache invalidation failed", zap.Error(err))
	}
}

// periodRange maps the analytics period to its window and bucket size.
func periodRange(period string) (since time.Time, bucket string, err error) {
	now := time.Now().UTC()
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), "day", nil
	case "month":
		return now.AddDate(0, 0, -30), "day", nil
	case "year":
		return now.AddDate(0, 0, -365), "month", nil
	default:
		return time.Time{}, "", apperr.Invalid("Invalid period")
	}
}

func (s *adminService) UserAnalytics(ctx context.Context, period string) (map[string]any, error) {
	since, bucket, err := periodRange(period)
	if err != nil {
		return nil, err
	}

	trend, err := s.analyticsRepo.UserRegistrationTrend(ctx, since, bucket)
	if err != nil {
		return nil, err
	}
	roles, err := s.analyticsRepo.UsersByRole(ctx)
	if err != nil {
		return nil, err
	}
	verification, err := s.analyticsRepo.UsersByVerificationStatus(ctx)
	if err != nil {
		return nil, err
	}
	completion, err := s.analyticsRepo.ProfileCompletionDistribution(ctx)
	if err != nil {
		return nil, err
	}

	// Decile buckets render as "0-9%", "10-19%", ..., "90-99%", "100%"
	// ascending. Fully complete profiles get their own bucket rather than a
	// range past 100.
	deciles := make([]int, 0, len(completion))
	for d := range completion {
		deciles = append(deciles, d)
	}
	sort.Ints(deciles)
	completionList := make([]map[string]any, 0, len(deciles))
	for _, d := range deciles {
		label := fmt.Sprintf("%d-%d%%", d, d+9)
		if d >= 100 {
			label = "100%"
		}
		completionList = append(completionList, map[string]any{
			"range": label,
			"count": completion[d],
		})
	}

	return map[string]any{
		"trends": map[string]any{
			"registrations": trendList(trend),
		},
		"distributions": map[string]any{
			"roles":               sortedDistribution(roles, "role"),
			"verification_status": sortedDistribution(verification, "status"),
			"profile_completion":  completionList,
		},
	}, nil
}

func (s *adminService) ResourceAnalytics(ctx context.Context, period string) (map[string]any, error) {
	since, bucket, err := periodRange(period)
	if err != nil {
		return nil, err
	}

	applicationTrend, err := s.analyticsRepo.ApplicationTrend(ctx, since, bucket)
	if err != nil {
		return nil, err
	}
	creationTrend, err := s.analyticsRepo.ResourceCreationTrend(ctx, since, bucket)
	if err != nil {
		return nil, err
	}
	categories, err := s.analyticsRepo.ResourcesByCategory(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := s.analyticsRepo.ResourcesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	applicationStatuses, err := s.analyticsRepo.ApplicationsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"trends": map[string]any{
			"creations":    trendList(creationTrend),
			"applications": trendList(applicationTrend),
		},
		"distributions": map[string]any{
			"categories":           sortedDistribution(categories, "category"),
			"statuses":             sortedDistribution(statuses, "status"),
			"application_statuses": sortedDistribution(applicationStatuses, "status"),
		},
	}, nil
}
