// Package policy centralizes authorization decisions. Services ask a named
// question about an actor and get back an allow/deny decision with a reason,
// instead of branching on the role inline.
package policy

import "povertyline/internal/domain"

// Actor is the authenticated principal a decision is made about.
type Actor struct {
	ID       string
	Role     domain.UserRole
	IsActive bool
}

// Decision is the outcome of a policy check. Reason is only set on deny and
// is suitable for the HTTP error body.
type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision { return Decision{Allow: true} }

func deny(reason string) Decision { return Decision{Allow: false, Reason: reason} }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// IsProvider reports whether the actor holds the provider role.
func (a Actor) IsProvider() bool { return a.Role == domain.RoleProvider }

// CanCreateResource allows providers and admins to publish catalog entries.
func CanCreateResource(a Actor) Decision {
	if a.IsAdmin() || a.IsProvider() {
		return allow()
	}
	return deny("Only providers and admins can create resources")
}

// CanUpdateResource allows the owning provider and any admin.
func CanUpdateResource(a Actor, r *domain.Resource) Decision {
	if a.IsAdmin() {
		return allow()
	}
	if r.ProviderID.Valid && r.ProviderID.String == a.ID {
		return allow()
	}
	return deny("You can only update your own resources")
}

// CanDeleteResource mirrors CanUpdateResource.
func CanDeleteResource(a Actor, r *domain.Resource) Decision {
	if a.IsAdmin() {
		return allow()
	}
	if r.ProviderID.Valid && r.ProviderID.String == a.ID {
		return allow()
	}
	return deny("You can only delete your own resources")
}

// CanSetResourceStatus restricts direct status writes to admins. Providers
// move resources through the lifecycle implicitly (create and edit drop the
// resource back to pending).
func CanSetResourceStatus(a Actor) Decision {
	if a.IsAdmin() {
		return allow()
	}
	return deny("Only admins can set resource status directly")
}

// CanViewResource allows anyone to see active resources; drafts and other
// non-active states are visible to the owner and admins only.
func CanViewResource(a Actor, r *domain.Resource) Decision {
	if r.Status == domain.ResourceActive {
		return allow()
	}
	if a.IsAdmin() {
		return allow()
	}
	if r.ProviderID.Valid && r.ProviderID.String == a.ID {
		return allow()
	}
	return deny("Resource not available")
}

// CanApproveResource gates the pending -> active/inactive transition.
func CanApproveResource(a Actor) Decision {
	if a.IsAdmin() {
		return allow()
	}
	return deny("Only admins can approve resources")
}

// CanApply allows any authenticated caller to apply for a resource,
// regardless of role. Resource activeness and the one-live-application rule
// are enforced at the storage layer.
func CanApply(a Actor) Decision {
	if a.ID == "" {
		return deny("Authentication required")
	}
	return allow()
}

// CanViewApplication allows the applicant, the resource's provider and admins.
func CanViewApplication(a Actor, app *domain.ResourceApplication, r *domain.Resource) Decision {
	if a.IsAdmin() {
		return allow()
	}
	if app.UserID == a.ID {
		return allow()
	}
	if r != nil && r.ProviderID.Valid && r.ProviderID.String == a.ID {
		return allow()
	}
	return deny("You do not have access to this application")
}

// CanReviewApplication gates the submitted -> review-outcome transition.
func CanReviewApplication(a Actor) Decision {
	if a.IsAdmin() {
		return allow()
	}
	return deny("Only admins can review applications")
}

// CanViewUser allows self and admins.
func CanViewUser(a Actor, userID string) Decision {
	if a.IsAdmin() || a.ID == userID {
		return allow()
	}
	return deny("You do not have access to this user")
}

// CanManageUsers gates user updates, deletion and verification.
func CanManageUsers(a Actor) Decision {
	if a.IsAdmin() {
		return allow()
	}
	return deny("Admin privileges required")
}

// CanSetAdminUserFields gates role/is_active/verification_status writes on a
// user record.
func CanSetAdminUserFields(a Actor) Decision {
	if a.IsAdmin() {
		return allow()
	}
	return deny("Only admins can change role or account status")
}

// CanViewProfile allows the profile owner and admins.
func CanViewProfile(a Actor, ownerID string) Decision {
	if a.IsAdmin() || a.ID == ownerID {
		return allow()
	}
	return deny("You do not have access to this profile")
}

// CanManageRegions gates region writes and statistics sync.
func CanManageRegions(a Actor) Decision {
	if a.IsAdmin() {
		return allow()
	}
	return deny("Admin privileges required")
}
