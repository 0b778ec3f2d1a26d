package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/repository"
)

type stubStatsFetcher struct {
	stats *repository.RegionStatistics
	err   error
	calls []string
}

func (f *stubStatsFetcher) FetchStatistics(_ context.Context, regionCode string) (*repository.RegionStatistics, error) {
	f.calls = append(f.calls, regionCode)
	return f.stats, f.err
}

func newRegionFixture(t *testing.T, fetcher StatisticsFetcher) (RegionService, *repository.Memory) {
	t.Helper()
	mem := repository.NewMemory()
	return NewRegionService(mem.Regions, fetcher, zap.NewNop()), mem
}

func TestRegionCreateRequiresAdmin(t *testing.T) {
	svc, _ := newRegionFixture(t, &stubStatsFetcher{})

	_, err := svc.CreateRegion(context.Background(), userActor, RegionInput{
		Name: strptr("Illinois"),
		Type: strptr("state"),
	})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
}

func TestRegionHierarchy(t *testing.T) {
	svc, _ := newRegionFixture(t, &stubStatsFetcher{})
	ctx := context.Background()

	country, err := svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("United States"), Code: strptr("US"), Type: strptr("country"),
	})
	require.NoError(t, err)
	state, err := svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Illinois"), Code: strptr("US-IL"), Type: strptr("state"), ParentID: strptr(country.ID),
	})
	require.NoError(t, err)
	city, err := svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Chicago"), Code: strptr("US-IL-CHI"), Type: strptr("city"), ParentID: strptr(state.ID),
	})
	require.NoError(t, err)

	chain, err := svc.GetHierarchy(ctx, city.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, country.ID, chain[0].ID)
	assert.Equal(t, state.ID, chain[1].ID)
	assert.Equal(t, city.ID, chain[2].ID)

	children, err := svc.ListChildren(ctx, country.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, state.ID, children[0].ID)
}

func TestRegionCreateValidation(t *testing.T) {
	svc, _ := newRegionFixture(t, &stubStatsFetcher{})
	ctx := context.Background()

	_, err := svc.CreateRegion(ctx, adminActor, RegionInput{Type: strptr("state")})
	require.Error(t, err)
	assert.Equal(t, "Missing required fields", err.Error())

	_, err = svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Nowhere"), Type: strptr("galaxy"),
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid region type", err.Error())

	_, err = svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Orphan"), Type: strptr("city"), ParentID: strptr("missing"),
	})
	require.Error(t, err)
	assert.Equal(t, "Parent region not found", err.Error())
}

func TestSyncStatistics(t *testing.T) {
	population := int64(2746388)
	povertyRate := 17.2
	fetcher := &stubStatsFetcher{stats: &repository.RegionStatistics{
		Population:  &population,
		PovertyRate: &povertyRate,
		Raw:         `{"population": 2746388, "poverty_rate": 17.2}`,
	}}
	svc, _ := newRegionFixture(t, fetcher)
	ctx := context.Background()

	city, err := svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Chicago"), Code: strptr("US-IL-CHI"), Type: strptr("city"),
	})
	require.NoError(t, err)

	synced, err := svc.SyncStatistics(ctx, adminActor, city.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"US-IL-CHI"}, fetcher.calls)
	assert.Equal(t, population, synced.Population.Int64)
	assert.InDelta(t, povertyRate, synced.PovertyRate.Float64, 0.001)
	assert.True(t, synced.StatsUpdatedAt.Valid)

	// only admins may trigger a sync
	_, err = svc.SyncStatistics(ctx, providerActor, city.ID)
	require.Error(t, err)
}

func TestSyncStatisticsRequiresCode(t *testing.T) {
	svc, _ := newRegionFixture(t, &stubStatsFetcher{})
	ctx := context.Background()

	region, err := svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Unnamed Area"), Type: strptr("district"),
	})
	require.NoError(t, err)

	_, err = svc.SyncStatistics(ctx, adminActor, region.ID)
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)
}

func TestListRegionsFilters(t *testing.T) {
	svc, _ := newRegionFixture(t, &stubStatsFetcher{})
	ctx := context.Background()

	_, err := svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("United States"), Code: strptr("US"), Type: strptr("country"),
	})
	require.NoError(t, err)
	_, err = svc.CreateRegion(ctx, adminActor, RegionInput{
		Name: strptr("Illinois"), Code: strptr("US-IL"), Type: strptr("state"),
	})
	require.NoError(t, err)

	regions, meta, err := svc.ListRegions(ctx, ListRegionsRequest{Type: "state"})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, domain.RegionState, regions[0].Type)
	assert.Equal(t, 1, meta.Total)

	_, _, err = svc.ListRegions(ctx, ListRegionsRequest{Type: "continent"})
	require.Error(t, err)
	assert.Equal(t, "Invalid region type", err.Error())
}
