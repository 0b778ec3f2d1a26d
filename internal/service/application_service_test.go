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
	"povertyline/internal/repository"
)

func newApplicationFixture(t *testing.T) (ApplicationService, ResourceService, *repository.Memory) {
	t.Helper()
	mem := repository.NewMemory()
	return NewApplicationService(mem.Applications, mem.Resources, zap.NewNop()),
		NewResourceService(mem.Resources, zap.NewNop()), mem
}

// seedActiveResource creates an approved resource owned by providerActor.
func seedActiveResource(t *testing.T, resources ResourceService) *domain.Resource {
	t.Helper()
	ctx := context.Background()
	resource, err := resources.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)
	resource, err = resources.ApproveResource(ctx, adminActor, resource.ID, "active")
	require.NoError(t, err)
	return resource
}

func TestApplyCreatesSubmittedApplication(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)

	app, err := apps.Apply(context.Background(), userActor, ApplyRequest{
		ResourceID: resource.ID,
		NeedLevel:  "high",
		Reason:     "Lost income this month",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationSubmitted, app.Status)
	assert.True(t, app.SubmittedAt.Valid)
	assert.Equal(t, userActor.ID, app.UserID)
}

func TestApplyOpenToAllRoles(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	// no role gate on applying; providers and admins go through the same
	// activeness and uniqueness checks as everyone else
	fromProvider, err := apps.Apply(ctx, providerActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationSubmitted, fromProvider.Status)

	fromAdmin, err := apps.Apply(ctx, adminActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)
	assert.Equal(t, adminActor.ID, fromAdmin.UserID)
}

func TestApplyRejectsInactiveResource(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	ctx := context.Background()

	pending, err := resources.CreateResource(ctx, providerActor, createInput())
	require.NoError(t, err)

	_, err = apps.Apply(ctx, userActor, ApplyRequest{ResourceID: pending.ID})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)
	assert.Equal(t, "Cannot apply for inactive resource", appErr.Message)
}

func TestApplyDuplicateConflictCarriesExisting(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	first, err := apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)

	_, err = apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)
	assert.Equal(t, "You already have an active application for this resource", appErr.Message)
	assert.Equal(t, first.ID, appErr.Details["application_id"])
	assert.Equal(t, string(domain.ApplicationSubmitted), appErr.Details["status"])
}

func TestApplyAllowedAfterRejection(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	first, err := apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)

	_, err = apps.ReviewApplication(ctx, adminActor, ReviewRequest{
		ApplicationID: first.ID,
		Status:        "rejected",
		Reason:        "Out of service area",
	})
	require.NoError(t, err)

	// rejection frees the slot
	_, err = apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)
}

func TestReviewOnlyFromSubmitted(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	app, err := apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)

	reviewed, err := apps.ReviewApplication(ctx, adminActor, ReviewRequest{
		ApplicationID: app.ID,
		Status:        "approved",
		Reason:        "Meets criteria",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, reviewed.Status)
	assert.True(t, reviewed.ReviewedAt.Valid)
	assert.Equal(t, adminActor.ID, reviewed.ReviewedBy.String)

	// a decided application cannot be reviewed again
	_, err = apps.ReviewApplication(ctx, adminActor, ReviewRequest{
		ApplicationID: app.ID,
		Status:        "rejected",
	})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)
	assert.Equal(t, "Application is not pending review", appErr.Message)
}

func TestReviewTargetRestricted(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	app, err := apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)

	_, err = apps.ReviewApplication(ctx, adminActor, ReviewRequest{ApplicationID: app.ID, Status: "bogus"})
	require.Error(t, err)
	assert.Equal(t, "Invalid status", err.Error())

	// withdrawn is a valid status but not a review outcome
	_, err = apps.ReviewApplication(ctx, adminActor, ReviewRequest{ApplicationID: app.ID, Status: "withdrawn"})
	require.Error(t, err)
	assert.Equal(t, "Invalid status for review", err.Error())

	// non-admins cannot review
	_, err = apps.ReviewApplication(ctx, providerActor, ReviewRequest{ApplicationID: app.ID, Status: "approved"})
	require.Error(t, err)
}

func TestGetApplicationAccess(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	app, err := apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)

	// applicant, owning provider and admin can view
	_, err = apps.GetApplication(ctx, userActor, app.ID)
	require.NoError(t, err)
	_, err = apps.GetApplication(ctx, providerActor, app.ID)
	require.NoError(t, err)
	_, err = apps.GetApplication(ctx, adminActor, app.ID)
	require.NoError(t, err)

	// strangers cannot
	stranger := userActor
	stranger.ID = "user-2"
	_, err = apps.GetApplication(ctx, stranger, app.ID)
	require.Error(t, err)
}

func TestPendingApplicationsQueue(t *testing.T) {
	apps, resources, _ := newApplicationFixture(t)
	resource := seedActiveResource(t, resources)
	ctx := context.Background()

	first, err := apps.Apply(ctx, userActor, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)
	second := userActor
	second.ID = "user-2"
	secondApp, err := apps.Apply(ctx, second, ApplyRequest{ResourceID: resource.ID})
	require.NoError(t, err)

	queue, meta, err := apps.ListPendingApplications(ctx, adminActor, models.PageParams{})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].ID)
	assert.Equal(t, secondApp.ID, queue[1].ID)
	assert.Equal(t, 2, meta.Total)

	// deciding one drains it from the queue
	_, err = apps.ReviewApplication(ctx, adminActor, ReviewRequest{ApplicationID: first.ID, Status: "approved"})
	require.NoError(t, err)

	queue, _, err = apps.ListPendingApplications(ctx, adminActor, models.PageParams{})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, secondApp.ID, queue[0].ID)
}
