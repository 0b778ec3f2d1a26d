package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"povertyline/internal/domain"
	"povertyline/internal/repository"
	"povertyline/internal/store"
)

func newAdminFixture(t *testing.T) (AdminService, *repository.Memory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	kv := store.NewRedisKV(client)

	mem := repository.NewMemory()
	svc := NewAdminService(mem.Analytics, mem.Users, mem.Resources, mem.Applications, kv, zap.NewNop())
	return svc, mem, mr
}

func seedAdminUser(t *testing.T, mem *repository.Memory, username string, role domain.UserRole) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{
		ID:                 uuid.NewString(),
		Username:           username,
		Email:              username + "@example.com",
		PasswordHash:       "x",
		Role:               role,
		VerificationStatus: domain.VerificationUnverified,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, mem.Users.Create(context.Background(), user))
	return user
}

func TestDashboardPayload(t *testing.T) {
	svc, mem, _ := newAdminFixture(t)
	ctx := context.Background()

	seedAdminUser(t, mem, "alice", domain.RoleUser)
	provider := seedAdminUser(t, mem, "prov", domain.RoleProvider)

	resource := &domain.Resource{
		ID:           uuid.NewString(),
		Title:        "Food Pantry",
		Description:  "Weekly groceries",
		Category:     domain.CategoryFood,
		ProviderID:   sql.NullString{String: provider.ID, Valid: true},
		ProviderName: "prov",
		Status:       domain.ResourcePending,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, mem.Resources.Create(ctx, resource))

	payload, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	summary, ok := payload["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, summary["users"])
	assert.Equal(t, 1, summary["resources"])
	assert.Equal(t, 1, summary["pending_resources"])
	assert.Equal(t, 0, summary["pending_applications"])

	trends, ok := payload["trends"].(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, trends["user_registrations"])

	recent, ok := payload["recent_activity"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, recent["users"], 2)
	assert.Len(t, recent["resources"], 1)
}

func TestDashboardServedFromCache(t *testing.T) {
	svc, mem, mr := newAdminFixture(t)
	ctx := context.Background()

	seedAdminUser(t, mem, "alice", domain.RoleUser)

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	// new data does not show until the cache entry expires
	seedAdminUser(t, mem, "bob", domain.RoleUser)

	cached, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	firstSummary := first["summary"].(map[string]any)
	cachedSummary := cached["summary"].(map[string]any)
	assert.EqualValues(t, firstSummary["users"], cachedSummary["users"])

	mr.FastForward(61 * time.Second)

	fresh, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	freshSummary := fresh["summary"].(map[string]any)
	assert.EqualValues(t, 2, freshSummary["users"])
}

func TestInvalidateDashboardDropsCache(t *testing.T) {
	svc, mem, _ := newAdminFixture(t)
	ctx := context.Background()

	seedAdminUser(t, mem, "alice", domain.RoleUser)

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	seedAdminUser(t, mem, "bob", domain.RoleUser)
	svc.InvalidateDashboard(ctx)

	// no TTL wait needed after an explicit invalidation
	fresh, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	freshSummary := fresh["summary"].(map[string]any)
	assert.EqualValues(t, 2, freshSummary["users"])
}

func TestUserAnalyticsEmpty(t *testing.T) {
	svc, _, _ := newAdminFixture(t)

	payload, err := svc.UserAnalytics(context.Background(), "week")
	require.NoError(t, err)

	trends := payload["trends"].(map[string]any)
	assert.Empty(t, trends["registrations"])

	distributions := payload["distributions"].(map[string]any)
	assert.Empty(t, distributions["roles"])
	assert.Empty(t, distributions["profile_completion"])
}

func TestUserAnalyticsDistributions(t *testing.T) {
	svc, mem, _ := newAdminFixture(t)

	seedAdminUser(t, mem, "a", domain.RoleUser)
	seedAdminUser(t, mem, "b", domain.RoleUser)
	seedAdminUser(t, mem, "c", domain.RoleProvider)

	payload, err := svc.UserAnalytics(context.Background(), "month")
	require.NoError(t, err)

	distributions := payload["distributions"].(map[string]any)
	roles := distributions["roles"].([]map[string]any)
	require.Len(t, roles, 2)
	// desc by count
	assert.Equal(t, "user", roles[0]["role"])
	assert.Equal(t, 2, roles[0]["count"])
	assert.Equal(t, "provider", roles[1]["role"])
}

func TestUserAnalyticsCompletionBuckets(t *testing.T) {
	svc, mem, _ := newAdminFixture(t)
	ctx := context.Background()

	half := seedAdminUser(t, mem, "half", domain.RoleUser)
	full := seedAdminUser(t, mem, "full", domain.RoleUser)
	require.NoError(t, mem.Profiles.Create(ctx, &domain.Profile{UserID: half.ID, CompletionPercentage: 50}))
	require.NoError(t, mem.Profiles.Create(ctx, &domain.Profile{UserID: full.ID, CompletionPercentage: 100}))

	payload, err := svc.UserAnalytics(ctx, "month")
	require.NoError(t, err)

	distributions := payload["distributions"].(map[string]any)
	completion := distributions["profile_completion"].([]map[string]any)
	require.Len(t, completion, 2)
	assert.Equal(t, "50-59%", completion[0]["range"])
	// a fully complete profile gets its own bucket, not a range past 100
	assert.Equal(t, "100%", completion[1]["range"])
	assert.Equal(t, 1, completion[1]["count"])
}

func TestAnalyticsInvalidPeriod(t *testing.T) {
	svc, _, _ := newAdminFixture(t)

	_, err := svc.UserAnalytics(context.Background(), "decade")
	require.Error(t, err)
	assert.Equal(t, "Invalid period", err.Error())

	_, err = svc.ResourceAnalytics(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "Invalid period", err.Error())
}

func TestResourceAnalyticsPayload(t *testing.T) {
	svc, mem, _ := newAdminFixture(t)
	ctx := context.Background()

	provider := seedAdminUser(t, mem, "prov", domain.RoleProvider)
	for _, category := range []domain.ResourceCategory{domain.CategoryFood, domain.CategoryFood, domain.CategoryHousing} {
		resource := &domain.Resource{
			ID:           uuid.NewString(),
			Title:        "r",
			Description:  "d",
			Category:     category,
			ProviderID:   sql.NullString{String: provider.ID, Valid: true},
			ProviderName: "prov",
			Status:       domain.ResourceActive,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		require.NoError(t, mem.Resources.Create(ctx, resource))
	}

	payload, err := svc.ResourceAnalytics(ctx, "year")
	require.NoError(t, err)

	distributions := payload["distributions"].(map[string]any)
	categories := distributions["categories"].([]map[string]any)
	require.Len(t, categories, 2)
	assert.Equal(t, "food", categories[0]["category"])
	assert.Equal(t, 2, categories[0]["count"])

	trends := payload["trends"].(map[string]any)
	creations := trends["creations"].([]map[string]any)
	require.Len(t, creations, 1)
	// year period buckets by month
	date := creations[0]["date"].(string)
	assert.Regexp(t, `^\d{4}-\d{2}-01$`, date)
}
