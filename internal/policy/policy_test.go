package policy

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"povertyline/internal/domain"
)

func actor(id string, role domain.UserRole) Actor {
	return Actor{ID: id, Role: role, IsActive: true}
}

func resourceOwnedBy(providerID string, status domain.ResourceStatus) *domain.Resource {
	return &domain.Resource{
		ID:         "res-1",
		Status:     status,
		ProviderID: sql.NullString{String: providerID, Valid: providerID != ""},
	}
}

func TestCanCreateResource(t *testing.T) {
	assert.True(t, CanCreateResource(actor("p1", domain.RoleProvider)).Allow)
	assert.True(t, CanCreateResource(actor("a1", domain.RoleAdmin)).Allow)

	d := CanCreateResource(actor("u1", domain.RoleUser))
	assert.False(t, d.Allow)
	assert.NotEmpty(t, d.Reason)
}

func TestCanUpdateResourceOwnership(t *testing.T) {
	r := resourceOwnedBy("p1", domain.ResourceActive)

	assert.True(t, CanUpdateResource(actor("p1", domain.RoleProvider), r).Allow)
	assert.True(t, CanUpdateResource(actor("a1", domain.RoleAdmin), r).Allow)
	assert.False(t, CanUpdateResource(actor("p2", domain.RoleProvider), r).Allow)
	assert.False(t, CanUpdateResource(actor("u1", domain.RoleUser), r).Allow)
}

func TestCanViewResourceByStatus(t *testing.T) {
	active := resourceOwnedBy("p1", domain.ResourceActive)
	draft := resourceOwnedBy("p1", domain.ResourceDraft)

	// active resources are public
	assert.True(t, CanViewResource(actor("u1", domain.RoleUser), active).Allow)

	// drafts are owner/admin only
	assert.True(t, CanViewResource(actor("p1", domain.RoleProvider), draft).Allow)
	assert.True(t, CanViewResource(actor("a1", domain.RoleAdmin), draft).Allow)
	assert.False(t, CanViewResource(actor("u1", domain.RoleUser), draft).Allow)
	assert.False(t, CanViewResource(actor("p2", domain.RoleProvider), draft).Allow)
}

func TestCanApplyAnyAuthenticatedCaller(t *testing.T) {
	assert.True(t, CanApply(actor("u1", domain.RoleUser)).Allow)
	assert.True(t, CanApply(actor("p1", domain.RoleProvider)).Allow)
	assert.True(t, CanApply(actor("a1", domain.RoleAdmin)).Allow)
	assert.False(t, CanApply(Actor{}).Allow)
}

func TestCanViewApplication(t *testing.T) {
	app := &domain.ResourceApplication{ID: "app-1", UserID: "u1", ResourceID: "res-1"}
	r := resourceOwnedBy("p1", domain.ResourceActive)

	assert.True(t, CanViewApplication(actor("u1", domain.RoleUser), app, r).Allow)
	assert.True(t, CanViewApplication(actor("p1", domain.RoleProvider), app, r).Allow)
	assert.True(t, CanViewApplication(actor("a1", domain.RoleAdmin), app, nil).Allow)
	assert.False(t, CanViewApplication(actor("u2", domain.RoleUser), app, r).Allow)
}

func TestAdminOnlyChecks(t *testing.T) {
	admin := actor("a1", domain.RoleAdmin)
	provider := actor("p1", domain.RoleProvider)
	user := actor("u1", domain.RoleUser)

	for name, check := range map[string]func(Actor) Decision{
		"approve_resource":    CanApproveResource,
		"review_application":  CanReviewApplication,
		"manage_users":        CanManageUsers,
		"set_resource_status": CanSetResourceStatus,
		"manage_regions":      CanManageRegions,
		"admin_user_fields":   CanSetAdminUserFields,
	} {
		assert.True(t, check(admin).Allow, name)
		assert.False(t, check(provider).Allow, name)
		assert.False(t, check(user).Allow, name)
	}
}

func TestSelfOrAdminChecks(t *testing.T) {
	assert.True(t, CanViewUser(actor("u1", domain.RoleUser), "u1").Allow)
	assert.True(t, CanViewUser(actor("a1", domain.RoleAdmin), "u1").Allow)
	assert.False(t, CanViewUser(actor("u2", domain.RoleUser), "u1").Allow)

	assert.True(t, CanViewProfile(actor("u1", domain.RoleUser), "u1").Allow)
	assert.False(t, CanViewProfile(actor("u2", domain.RoleUser), "u1").Allow)
}
