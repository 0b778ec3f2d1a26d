package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
	"povertyline/internal/policy"
	"povertyline/internal/repository"
)

var (
	adminActor    = policy.Actor{ID: "admin-1", Role: domain.RoleAdmin, IsActive: true}
	providerActor = policy.Actor{ID: "provider-1", Role: domain.RoleProvider, IsActive: true}
	userActor     = policy.Actor{ID: "user-1", Role: domain.RoleUser, IsActive: true}
)

func strptr(s string) *string { return &s }

func newResourceFixture(t *testing.T) (ResourceService, *repository.Memory) {
	t.Helper()
	mem := repository.NewMemory()
	return NewResourceService(mem.Resources, zap.NewNop()), mem
}

func createInput() ResourceInput {
	return ResourceInput{
		Title:        strptr("Food Pantry"),
		Description:  strptr("Weekly groceries"),
		Category:     strptr("food"),
		ProviderName: strptr("Community Center"),
	}
}

func TestProviderCreateLandsInPending(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	in := createInput()
	in.Status = strptr("active") // ignored for providers
	resource, err := svc.CreateResource(ctx, providerActor, in)
	require.NoError(t, err)
	assert.Equal(t, domain.ResourcePending, resource.Status)
	assert.False(t, resource.VerificationDate.Valid)
}

func TestAdminCreateWithStatusStampsVerification(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	in := createInput()
	in.Status = strptr("active")
	resource, err := svc.CreateResource(ctx, adminActor, in)
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceActive, resource.Status)
	assert.True(t, resource.VerificationDate.Valid)
	assert.Equal(t, adminActor.ID, resource.VerifiedBy.String)
}

func TestCreateResourceRequiresRole(t *testing.T) {
	svc, _ := newResourceFixture(t)

	_, err := svc.CreateResource(context.Background(), userActor, createInput())
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
}

func TestCreateResourceMissingFields(t *testing.T) {
	svc, _ := newResourceFixture(t)

	in := createInput()
	in.Description = nil
	_, err := svc.CreateResource(context.Background(), providerActor, in)
	require.Error(t, err)
	assert.Equal(t, "Missing required fields", err.Error())
}

func TestProviderEditOfActiveResourceFlipsToPending(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	resource, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	approved, err := svc.ApproveResource(ctx, adminActor, resource.ID, "active")
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceActive, approved.Status)

	updated, err := svc.UpdateResource(ctx, providerActor, resource.ID, ResourceInput{
		Title: strptr("Food Pantry (new hours)"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourcePending, updated.Status)
}

func TestAdminUpdateStatusToActiveStampsVerification(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	resource, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	updated, err := svc.UpdateResource(ctx, adminActor, resource.ID, ResourceInput{
		Status: strptr("active"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceActive, updated.Status)
	assert.True(t, updated.VerificationDate.Valid)
	assert.Equal(t, adminActor.ID, updated.VerifiedBy.String)
}

func TestApproveResourceOnlyFromPending(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	resource, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	_, err = svc.ApproveResource(ctx, adminActor, resource.ID, "active")
	require.NoError(t, err)

	// second approval fails: no longer pending
	_, err = svc.ApproveResource(ctx, adminActor, resource.ID, "inactive")
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)
	assert.Equal(t, "Resource is not pending approval", appErr.Message)
}

func TestApproveResourceTargetRestricted(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	resource, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	_, err = svc.ApproveResource(ctx, adminActor, resource.ID, "bogus")
	require.Error(t, err)
	assert.Equal(t, "Invalid status", err.Error())

	_, err = svc.ApproveResource(ctx, adminActor, resource.ID, "draft")
	require.Error(t, err)
	assert.Equal(t, "Invalid status for approval", err.Error())
}

func TestApproveResourceNotFound(t *testing.T) {
	svc, _ := newResourceFixture(t)

	_, err := svc.ApproveResource(context.Background(), adminActor, "missing", "active")
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestGetResourceVisibility(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	pending, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	// anonymous callers cannot see non-active resources
	_, err = svc.GetResource(ctx, nil, pending.ID)
	require.Error(t, err)
	assert.Equal(t, "Unauthorized access", err.Error())

	// neither can unrelated users
	_, err = svc.GetResource(ctx, &userActor, pending.ID)
	require.Error(t, err)

	// the owner and admins can
	_, err = svc.GetResource(ctx, &providerActor, pending.ID)
	require.NoError(t, err)
	_, err = svc.GetResource(ctx, &adminActor, pending.ID)
	require.NoError(t, err)

	// once active it is public
	_, err = svc.ApproveResource(ctx, adminActor, pending.ID, "active")
	require.NoError(t, err)
	_, err = svc.GetResource(ctx, nil, pending.ID)
	require.NoError(t, err)
}

func TestPublicListOnlyShowsActive(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	pending, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	resp, err := svc.ListResources(ctx, ListResourcesRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Resources)

	_, err = svc.ApproveResource(ctx, adminActor, pending.ID, "active")
	require.NoError(t, err)

	resp, err = svc.ListResources(ctx, ListResourcesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Resources, 1)
	assert.Equal(t, pending.ID, resp.Resources[0].ID)
}

func TestPendingQueueOldestFirst(t *testing.T) {
	svc, _ := newResourceFixture(t)
	ctx := context.Background()

	first, err := svc.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)
	in := createInput()
	in.Title = strptr("Shelter Beds")
	second, err := svc.CreateResource(ctx, providerActor, in)
	require.NoError(t, err)

	resources, meta, err := svc.ListPendingResources(ctx, adminActor, models.PageParams{})
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, first.ID, resources[0].ID)
	assert.Equal(t, second.ID, resources[1].ID)
	assert.Equal(t, 2, meta.Total)

	_, _, err = svc.ListPendingResources(ctx, providerActor, models.PageParams{})
	require.Error(t, err)
}
