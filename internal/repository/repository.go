// Package repository defines the storage interfaces and their Postgres and
// in-memory implementations. Implementations translate driver errors into
// apperr codes at this boundary; services never see sql.ErrNoRows or pq codes.
package repository

import (
	"context"
	"time"

	"povertyline/internal/domain"
	"povertyline/internal/models"
)

// UsersRepository stores accounts.
type UsersRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, f UserFilters, page models.PageParams) ([]*domain.User, int, error)
	Update(ctx context.Context, u *domain.User) error
	// Delete removes the user; profiles and applications go with it.
	Delete(ctx context.Context, id string) error
}

// UserFilters narrows a user listing.
type UserFilters struct {
	Role               string
	VerificationStatus string
	IsActive           *bool
	Search             string // matches username or email
}

// ProfilesRepository stores the 1:1 user profiles.
type ProfilesRepository interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	List(ctx context.Context, f ProfileFilters, page models.PageParams) ([]*domain.Profile, int, error)
	Update(ctx context.Context, p *domain.Profile) error
}

// ProfileFilters narrows a profile listing.
type ProfileFilters struct {
	MinCompletion    int
	EducationLevel   string
	EmploymentStatus string
}

// ResourcesRepository stores the catalog.
type ResourcesRepository interface {
	Create(ctx context.Context, r *domain.Resource) error
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context, f ResourceFilters, page models.PageParams) ([]*domain.Resource, int, error)
	Update(ctx context.Context, r *domain.Resource) error
	// Delete removes the resource and cascades to its applications.
	Delete(ctx context.Context, id string) error
	// TransitionStatus moves the resource from one of the given states into
	// the target state, optionally stamping verification. It reports false
	// when the resource was not in an allowed state (no rows updated).
	TransitionStatus(ctx context.Context, id string, from []domain.ResourceStatus, to domain.ResourceStatus, verifiedBy string) (bool, error)
}

// ResourceFilters narrows a resource listing.
type ResourceFilters struct {
	Category   string
	Status     string
	ProviderID string
	Search     string // matches title, description or provider name
	// ActiveOn restricts to resources whose date window covers the day and
	// whose status is active. Zero means no date filtering.
	ActiveOn time.Time
	// OldestFirst flips the default newest-first ordering (approval queues).
	OldestFirst bool
}

// ApplicationsRepository stores applications and enforces the one-live-
// application-per-(user,resource) invariant.
type ApplicationsRepository interface {
	// CreateForActiveResource inserts the application inside a transaction
	// that re-checks the resource is active on the given day. A concurrent
	// duplicate surfaces as a conflict carrying the blocking application's
	// id and status.
	CreateForActiveResource(ctx context.Context, app *domain.ResourceApplication, day time.Time) error
	GetByID(ctx context.Context, id string) (*domain.ResourceApplication, error)
	List(ctx context.Context, f ApplicationFilters, page models.PageParams) ([]*domain.ResourceApplication, int, error)
	Update(ctx context.Context, app *domain.ResourceApplication) error
	// Review moves the application from one of the given states into the
	// target state, stamping the reviewer. It reports false when the
	// application was not in an allowed state.
	Review(ctx context.Context, id string, from []domain.ApplicationStatus, to domain.ApplicationStatus, reviewerID string, decisionReason, adminNotes string) (bool, error)
	// FindActive returns the blocking application for the pair, if any.
	FindActive(ctx context.Context, userID, resourceID string) (*domain.ResourceApplication, error)
}

// ApplicationFilters narrows an application listing.
type ApplicationFilters struct {
	UserID     string
	ResourceID string
	Status     string
	// ProviderID restricts to applications against the provider's resources.
	ProviderID string
	// OldestSubmittedFirst orders by submitted_at ascending (review queue).
	OldestSubmittedFirst bool
}

// RegionsRepository stores the region hierarchy and cached statistics.
type RegionsRepository interface {
	Create(ctx context.Context, r *domain.Region) error
	GetByID(ctx context.Context, id string) (*domain.Region, error)
	GetByCode(ctx context.Context, code string) (*domain.Region, error)
	List(ctx context.Context, f RegionFilters, page models.PageParams) ([]*domain.Region, int, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Region, error)
	Update(ctx context.Context, r *domain.Region) error
	// UpdateStatistics writes the synced statistics columns and stamps
	// stats_updated_at.
	UpdateStatistics(ctx context.Context, id string, stats RegionStatistics, at time.Time) error
}

// RegionFilters narrows a region listing.
type RegionFilters struct {
	Type     string
	ParentID string
	Search   string // matches name or code
}

// RegionStatistics is the synced payload for a region.
type RegionStatistics struct {
	Population   *int64
	PovertyRate  *float64
	MedianIncome *float64
	Raw          string // JSONB text of the provider response
}

// DashboardCounts are the headline numbers on the admin dashboard.
type DashboardCounts struct {
	TotalUsers              int `json:"total_users"`
	ActiveUsers             int `json:"active_users"`
	TotalProfiles           int `json:"total_profiles"`
	TotalResources          int `json:"total_resources"`
	ActiveResources         int `json:"active_resources"`
	PendingResources        int `json:"pending_resources"`
	TotalApplications       int `json:"total_applications"`
	SubmittedApplications   int `json:"submitted_applications"`
	UnderReviewApplications int `json:"under_review_applications"`
}

// TrendPoint is one bucket of a time-series aggregate.
type TrendPoint struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// AnalyticsRepository computes the admin aggregates.
type AnalyticsRepository interface {
	DashboardCounts(ctx context.Context) (*DashboardCounts, error)
	UsersByRole(ctx context.Context) (map[string]int, error)
	UsersByVerificationStatus(ctx context.Context) (map[string]int, error)
	UserRegistrationTrend(ctx context.Context, since time.Time, bucket string) ([]TrendPoint, error)
	ResourcesByCategory(ctx context.Context) (map[string]int, error)
	ResourcesByStatus(ctx context.Context) (map[string]int, error)
	ResourceCreationTrend(ctx context.Context, since time.Time, bucket string) ([]TrendPoint, error)
	ApplicationsByStatus(ctx context.Context) (map[string]int, error)
	ApplicationTrend(ctx context.Context, since time.Time, bucket string) ([]TrendPoint, error)
	// ProfileCompletionDistribution buckets completion into deciles
	// (0, 10, ..., 100) and counts profiles per bucket.
	ProfileCompletionDistribution(ctx context.Context) (map[int]int, error)
}
