package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
)

// Memory bundles in-memory implementations of every repository over one
// shared state, including the cross-table cascades the schema enforces.
// Used by service tests and the seed tool's dry-run mode.
type Memory struct {
	Users        *MemoryUsersRepository
	Profiles     *MemoryProfilesRepository
	Resources    *MemoryResourcesRepository
	Applications *MemoryApplicationsRepository
	Regions      *MemoryRegionsRepository
	Analytics    *MemoryAnalyticsRepository
}

func NewMemory() *Memory {
	state := &memoryState{
		users:        make(map[string]*domain.User),
		profiles:     make(map[string]*domain.Profile),
		resources:    make(map[string]*domain.Resource),
		applications: make(map[string]*domain.ResourceApplication),
		regions:      make(map[string]*domain.Region),
	}
	return &Memory{
		Users:        &MemoryUsersRepository{state: state},
		Profiles:     &MemoryProfilesRepository{state: state},
		Resources:    &MemoryResourcesRepository{state: state},
		Applications: &MemoryApplicationsRepository{state: state},
		Regions:      &MemoryRegionsRepository{state: state},
		Analytics:    &MemoryAnalyticsRepository{state: state},
	}
}

type memoryState struct {
	mu           sync.RWMutex
	seq          int64
	users        map[string]*domain.User
	profiles     map[string]*domain.Profile
	resources    map[string]*domain.Resource
	applications map[string]*domain.ResourceApplication
	regions      map[string]*domain.Region
	order        map[string]int64 // id -> insertion sequence, for stable listing
}

func (s *memoryState) nextSeq(id string) {
	if s.order == nil {
		s.order = make(map[string]int64)
	}
	s.seq++
	s.order[id] = s.seq
}

// sortNewestFirst orders ids by insertion sequence descending.
func (s *memoryState) sortNewestFirst(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return s.order[ids[i]] > s.order[ids[j]]
	})
}

func paginate[T any](items []T, page models.PageParams) ([]T, int) {
	page = page.Normalize()
	total := len(items)
	start := page.Offset()
	if start >= total {
		return nil, total
	}
	end := start + page.PerPage
	if end > total {
		end = total
	}
	return items[start:end], total
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// MemoryUsersRepository implements UsersRepository in memory.
type MemoryUsersRepository struct {
	state *memoryState
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func (r *MemoryUsersRepository) Create(_ context.Context, u *domain.User) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	for _, existing := range r.state.users {
		if existing.Username == u.Username {
			return apperr.New(apperr.CodeConflict, "Username already exists")
		}
		if existing.Email == u.Email {
			return apperr.New(apperr.CodeConflict, "Email already exists")
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	cp := *u
	r.state.users[u.ID] = &cp
	r.state.nextSeq(u.ID)
	return nil
}

func (r *MemoryUsersRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	u, ok := r.state.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUsersRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	for _, u := range r.state.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (r *MemoryUsersRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	for _, u := range r.state.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (r *MemoryUsersRepository) List(_ context.Context, f UserFilters, page models.PageParams) ([]*domain.User, int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var ids []string
	for id, u := range r.state.users {
		if f.Role != "" && string(u.Role) != f.Role {
			continue
		}
		if f.VerificationStatus != "" && string(u.VerificationStatus) != f.VerificationStatus {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !containsFold(u.Username, f.Search) && !containsFold(u.Email, f.Search) {
			continue
		}
		ids = append(ids, id)
	}
	r.state.sortNewestFirst(ids)

	pageIDs, total := paginate(ids, page)
	users := make([]*domain.User, 0, len(pageIDs))
	for _, id := range pageIDs {
		cp := *r.state.users[id]
		users = append(users, &cp)
	}
	return users, total, nil
}

func (r *MemoryUsersRepository) Update(_ context.Context, u *domain.User) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.users[u.ID]; !ok {
		return apperr.NotFound("User not found")
	}
	for id, existing := range r.state.users {
		if id == u.ID {
			continue
		}
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperr.New(apperr.CodeConflict, "Username or email already exists")
		}
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	r.state.users[u.ID] = &cp
	return nil
}

func (r *MemoryUsersRepository) Delete(_ context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.users[id]; !ok {
		return apperr.NotFound("User not found")
	}
	delete(r.state.users, id)
	for pid, p := range r.state.profiles {
		if p.UserID == id {
			delete(r.state.profiles, pid)
		}
	}
	for aid, a := range r.state.applications {
		if a.UserID == id {
			delete(r.state.applications, aid)
		}
	}
	return nil
}

// MemoryProfilesRepository implements ProfilesRepository in memory.
type MemoryProfilesRepository struct {
	state *memoryState
}

var _ ProfilesRepository = (*MemoryProfilesRepository)(nil)

func (r *MemoryProfilesRepository) Create(_ context.Context, p *domain.Profile) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	for _, existing := range r.state.profiles {
		if existing.UserID == p.UserID {
			return apperr.New(apperr.CodeConflict, "Profile already exists for this user")
		}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	cp := *p
	r.state.profiles[p.ID] = &cp
	r.state.nextSeq(p.ID)
	return nil
}

func (r *MemoryProfilesRepository) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	p, ok := r.state.profiles[id]
	if !ok {
		return nil, apperr.NotFound("Profile not found")
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProfilesRepository) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	for _, p := range r.state.profiles {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Profile not found")
}

func (r *MemoryProfilesRepository) List(_ context.Context, f ProfileFilters, page models.PageParams) ([]*domain.Profile, int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var ids []string
	for id, p := range r.state.profiles {
		if f.MinCompletion > 0 && p.CompletionPercentage < f.MinCompletion {
			continue
		}
		if f.EducationLevel != "" && (!p.EducationLevel.Valid || p.EducationLevel.String != f.EducationLevel) {
			continue
		}
		if f.EmploymentStatus != "" && (!p.EmploymentStatus.Valid || p.EmploymentStatus.String != f.EmploymentStatus) {
			continue
		}
		ids = append(ids, id)
	}
	r.state.sortNewestFirst(ids)

	pageIDs, total := paginate(ids, page)
	profiles := make([]*domain.Profile, 0, len(pageIDs))
	for _, id := range pageIDs {
		cp := *r.state.profiles[id]
		profiles = append(profiles, &cp)
	}
	return profiles, total, nil
}

func (r *MemoryProfilesRepository) Update(_ context.Context, p *domain.Profile) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.profiles[p.ID]; !ok {
		return apperr.NotFound("Profile not found")
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.state.profiles[p.ID] = &cp
	return nil
}

// MemoryResourcesRepository implements ResourcesRepository in memory.
type MemoryResourcesRepository struct {
	state *memoryState
}

var _ ResourcesRepository = (*MemoryResourcesRepository)(nil)

func (r *MemoryResourcesRepository) Create(_ context.Context, res *domain.Resource) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	cp := *res
	r.state.resources[res.ID] = &cp
	r.state.nextSeq(res.ID)
	return nil
}

func (r *MemoryResourcesRepository) GetByID(_ context.Context, id string) (*domain.Resource, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	res, ok := r.state.resources[id]
	if !ok {
		return nil, apperr.NotFound("Resource not found")
	}
	cp := *res
	return &cp, nil
}

func (r *MemoryResourcesRepository) List(_ context.Context, f ResourceFilters, page models.PageParams) ([]*domain.Resource, int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var ids []string
	for id, res := range r.state.resources {
		if f.Category != "" && string(res.Category) != f.Category {
			continue
		}
		if f.Status != "" && string(res.Status) != f.Status {
			continue
		}
		if f.ProviderID != "" && (!res.ProviderID.Valid || res.ProviderID.String != f.ProviderID) {
			continue
		}
		if f.Search != "" && !containsFold(res.Title, f.Search) && !containsFold(res.Description, f.Search) &&
			!containsFold(res.ProviderName, f.Search) {
			continue
		}
		if !f.ActiveOn.IsZero() && !res.IsActiveAt(f.ActiveOn) {
			continue
		}
		ids = append(ids, id)
	}
	r.state.sortNewestFirst(ids)
	if f.OldestFirst {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	pageIDs, total := paginate(ids, page)
	resources := make([]*domain.Resource, 0, len(pageIDs))
	for _, id := range pageIDs {
		cp := *r.state.resources[id]
		resources = append(resources, &cp)
	}
	return resources, total, nil
}

func (r *MemoryResourcesRepository) Update(_ context.Context, res *domain.Resource) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.resources[res.ID]; !ok {
		return apperr.NotFound("Resource not found")
	}
	res.UpdatedAt = time.Now().UTC()
	cp := *res
	r.state.resources[res.ID] = &cp
	return nil
}

func (r *MemoryResourcesRepository) Delete(_ context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.resources[id]; !ok {
		return apperr.NotFound("Resource not found")
	}
	delete(r.state.resources, id)
	for aid, a := range r.state.applications {
		if a.ResourceID == id {
			delete(r.state.applications, aid)
		}
	}
	return nil
}

func (r *MemoryResourcesRepository) TransitionStatus(_ context.Context, id string, from []domain.ResourceStatus, to domain.ResourceStatus, verifiedBy string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	res, ok := r.state.resources[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if res.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	now := time.Now().UTC()
	res.Status = to
	res.UpdatedAt = now
	if verifiedBy != "" {
		res.VerificationDate.Time = now
		res.VerificationDate.Valid = true
		res.VerifiedBy.String = verifiedBy
		res.VerifiedBy.Valid = true
	}
	return true, nil
}

// MemoryApplicationsRepository implements ApplicationsRepository in memory.
type MemoryApplicationsRepository struct {
	state *memoryState
}

var _ ApplicationsRepository = (*MemoryApplicationsRepository)(nil)

func (r *MemoryApplicationsRepository) CreateForActiveResource(_ context.Context, app *domain.ResourceApplication, day time.Time) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	res, ok := r.state.resources[app.ResourceID]
	if !ok {
		return apperr.NotFound("Resource not found")
	}
	if !res.IsActiveAt(day) {
		return apperr.New(apperr.CodeInvalidState, "Cannot apply for inactive resource")
	}

	for _, existing := range r.state.applications {
		if existing.UserID == app.UserID && existing.ResourceID == app.ResourceID &&
			domain.IsActiveApplicationStatus(existing.Status) {
			return apperr.New(apperr.CodeConflict, "You already have an active application for this resource").
				WithDetails(map[string]any{
					"application_id": existing.ID,
					"status":         string(existing.Status),
				})
		}
	}

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	cp := *app
	r.state.applications[app.ID] = &cp
	r.state.nextSeq(app.ID)
	return nil
}

func (r *MemoryApplicationsRepository) GetByID(_ context.Context, id string) (*domain.ResourceApplication, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	a, ok := r.state.applications[id]
	if !ok {
		return nil, apperr.NotFound("Application not found")
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryApplicationsRepository) FindActive(_ context.Context, userID, resourceID string) (*domain.ResourceApplication, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	for _, a := range r.state.applications {
		if a.UserID == userID && a.ResourceID == resourceID && domain.IsActiveApplicationStatus(a.Status) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryApplicationsRepository) List(_ context.Context, f ApplicationFilters, page models.PageParams) ([]*domain.ResourceApplication, int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var ids []string
	for id, a := range r.state.applications {
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.ResourceID != "" && a.ResourceID != f.ResourceID {
			continue
		}
		if f.Status != "" && string(a.Status) != f.Status {
			continue
		}
		if f.ProviderID != "" {
			res, ok := r.state.resources[a.ResourceID]
			if !ok || !res.ProviderID.Valid || res.ProviderID.String != f.ProviderID {
				continue
			}
		}
		ids = append(ids, id)
	}
	if f.OldestSubmittedFirst {
		sort.Slice(ids, func(i, j int) bool {
			a, b := r.state.applications[ids[i]], r.state.applications[ids[j]]
			if a.SubmittedAt.Valid != b.SubmittedAt.Valid {
				return a.SubmittedAt.Valid
			}
			return a.SubmittedAt.Time.Before(b.SubmittedAt.Time)
		})
	} else {
		r.state.sortNewestFirst(ids)
	}

	pageIDs, total := paginate(ids, page)
	apps := make([]*domain.ResourceApplication, 0, len(pageIDs))
	for _, id := range pageIDs {
		cp := *r.state.applications[id]
		apps = append(apps, &cp)
	}
	return apps, total, nil
}

func (r *MemoryApplicationsRepository) Update(_ context.Context, app *domain.ResourceApplication) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.applications[app.ID]; !ok {
		return apperr.NotFound("Application not found")
	}
	app.UpdatedAt = time.Now().UTC()
	cp := *app
	r.state.applications[app.ID] = &cp
	return nil
}

func (r *MemoryApplicationsRepository) Review(_ context.Context, id string, from []domain.ApplicationStatus, to domain.ApplicationStatus, reviewerID string, decisionReason, adminNotes string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	a, ok := r.state.applications[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if a.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	now := time.Now().UTC()
	a.Status = to
	a.ReviewedAt = toNullTime(now)
	a.ReviewedBy = toNullString(reviewerID)
	if decisionReason != "" {
		a.DecisionReason = toNullString(decisionReason)
	} else {
		a.DecisionReason.Valid = false
	}
	if adminNotes != "" {
		a.AdminNotes = toNullString(adminNotes)
	}
	a.UpdatedAt = now
	return true, nil
}

// MemoryRegionsRepository implements RegionsRepository in memory.
type MemoryRegionsRepository struct {
	state *memoryState
}

var _ RegionsRepository = (*MemoryRegionsRepository)(nil)

func (r *MemoryRegionsRepository) Create(_ context.Context, reg *domain.Region) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if reg.Code.Valid {
		for _, existing := range r.state.regions {
			if existing.Code.Valid && existing.Code.String == reg.Code.String {
				return apperr.New(apperr.CodeConflict, "Region code already exists")
			}
		}
	}

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	cp := *reg
	r.state.regions[reg.ID] = &cp
	r.state.nextSeq(reg.ID)
	return nil
}

func (r *MemoryRegionsRepository) GetByID(_ context.Context, id string) (*domain.Region, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	reg, ok := r.state.regions[id]
	if !ok {
		return nil, apperr.NotFound("Region not found")
	}
	cp := *reg
	return &cp, nil
}

func (r *MemoryRegionsRepository) GetByCode(_ context.Context, code string) (*domain.Region, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	for _, reg := range r.state.regions {
		if reg.Code.Valid && reg.Code.String == code {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Region not found")
}

func (r *MemoryRegionsRepository) List(_ context.Context, f RegionFilters, page models.PageParams) ([]*domain.Region, int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var ids []string
	for id, reg := range r.state.regions {
		if f.Type != "" && string(reg.Type) != f.Type {
			continue
		}
		if f.ParentID != "" && (!reg.ParentID.Valid || reg.ParentID.String != f.ParentID) {
			continue
		}
		if f.Search != "" {
			code := ""
			if reg.Code.Valid {
				code = reg.Code.String
			}
			if !containsFold(reg.Name, f.Search) && !containsFold(code, f.Search) {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.state.regions[ids[i]].Name < r.state.regions[ids[j]].Name
	})

	pageIDs, total := paginate(ids, page)
	regions := make([]*domain.Region, 0, len(pageIDs))
	for _, id := range pageIDs {
		cp := *r.state.regions[id]
		regions = append(regions, &cp)
	}
	return regions, total, nil
}

func (r *MemoryRegionsRepository) ListChildren(_ context.Context, parentID string) ([]*domain.Region, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var regions []*domain.Region
	for _, reg := range r.state.regions {
		if reg.ParentID.Valid && reg.ParentID.String == parentID {
			cp := *reg
			regions = append(regions, &cp)
		}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	return regions, nil
}

func (r *MemoryRegionsRepository) Update(_ context.Context, reg *domain.Region) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.regions[reg.ID]; !ok {
		return apperr.NotFound("Region not found")
	}
	reg.UpdatedAt = time.Now().UTC()
	cp := *reg
	r.state.regions[reg.ID] = &cp
	return nil
}

func (r *MemoryRegionsRepository) UpdateStatistics(_ context.Context, id string, stats RegionStatistics, at time.Time) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	reg, ok := r.state.regions[id]
	if !ok {
		return apperr.NotFound("Region not found")
	}
	if stats.Population != nil {
		reg.Population.Int64 = *stats.Population
		reg.Population.Valid = true
	}
	if stats.PovertyRate != nil {
		reg.PovertyRate.Float64 = *stats.PovertyRate
		reg.PovertyRate.Valid = true
	}
	if stats.MedianIncome != nil {
		reg.MedianIncome.Float64 = *stats.MedianIncome
		reg.MedianIncome.Valid = true
	}
	if stats.Raw != "" {
		reg.Statistics = toNullString(stats.Raw)
	}
	reg.StatsUpdatedAt = toNullTime(at)
	reg.UpdatedAt = at
	return nil
}

// MemoryAnalyticsRepository computes the aggregates over the shared state.
type MemoryAnalyticsRepository struct {
	state *memoryState
}

var _ AnalyticsRepository = (*MemoryAnalyticsRepository)(nil)

func (r *MemoryAnalyticsRepository) DashboardCounts(_ context.Context) (*DashboardCounts, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var c DashboardCounts
	c.TotalUsers = len(r.state.users)
	for _, u := range r.state.users {
		if u.IsActive {
			c.ActiveUsers++
		}
	}
	c.TotalProfiles = len(r.state.profiles)
	c.TotalResources = len(r.state.resources)
	for _, res := range r.state.resources {
		switch res.Status {
		case domain.ResourceActive:
			c.ActiveResources++
		case domain.ResourcePending:
			c.PendingResources++
		}
	}
	c.TotalApplications = len(r.state.applications)
	for _, a := range r.state.applications {
		switch a.Status {
		case domain.ApplicationSubmitted:
			c.SubmittedApplications++
		case domain.ApplicationUnderReview:
			c.UnderReviewApplications++
		}
	}
	return &c, nil
}

func (r *MemoryAnalyticsRepository) UsersByRole(_ context.Context) (map[string]int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	out := make(map[string]int)
	for _, u := range r.state.users {
		out[string(u.Role)]++
	}
	return out, nil
}

func (r *MemoryAnalyticsRepository) UsersByVerificationStatus(_ context.Context) (map[string]int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	out := make(map[string]int)
	for _, u := range r.state.users {
		out[string(u.VerificationStatus)]++
	}
	return out, nil
}

func (r *MemoryAnalyticsRepository) ResourcesByCategory(_ context.Context) (map[string]int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	out := make(map[string]int)
	for _, res := range r.state.resources {
		out[string(res.Category)]++
	}
	return out, nil
}

func (r *MemoryAnalyticsRepository) ResourcesByStatus(_ context.Context) (map[string]int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	out := make(map[string]int)
	for _, res := range r.state.resources {
		out[string(res.Status)]++
	}
	return out, nil
}

func (r *MemoryAnalyticsRepository) ApplicationsByStatus(_ context.Context) (map[string]int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	out := make(map[string]int)
	for _, a := range r.state.applications {
		out[string(a.Status)]++
	}
	return out, nil
}

func memoryTrend(created []time.Time, since time.Time, bucket string) []TrendPoint {
	counts := make(map[string]int)
	for _, ts := range created {
		if ts.Before(since) {
			continue
		}
		ts = ts.UTC()
		if bucket == "month" {
			ts = time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
		counts[ts.Format("2006-01-02")]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, TrendPoint{Bucket: k, Count: counts[k]})
	}
	return points
}

func (r *MemoryAnalyticsRepository) UserRegistrationTrend(_ context.Context, since time.Time, bucket string) ([]TrendPoint, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	created := make([]time.Time, 0, len(r.state.users))
	for _, u := range r.state.users {
		created = append(created, u.CreatedAt)
	}
	return memoryTrend(created, since, bucket), nil
}

func (r *MemoryAnalyticsRepository) ResourceCreationTrend(_ context.Context, since time.Time, bucket string) ([]TrendPoint, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	created := make([]time.Time, 0, len(r.state.resources))
	for _, res := range r.state.resources {
		created = append(created, res.CreatedAt)
	}
	return memoryTrend(created, since, bucket), nil
}

func (r *MemoryAnalyticsRepository) ApplicationTrend(_ context.Context, since time.Time, bucket string) ([]TrendPoint, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	created := make([]time.Time, 0, len(r.state.applications))
	for _, a := range r.state.applications {
		created = append(created, a.CreatedAt)
	}
	return memoryTrend(created, since, bucket), nil
}

func (r *MemoryAnalyticsRepository) ProfileCompletionDistribution(_ context.Context) (map[int]int, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	out := make(map[int]int)
	for _, p := range r.state.profiles {
		out[(p.CompletionPercentage/10)*10]++
	}
	return out, nil
}
