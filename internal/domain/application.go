package domain

import (
	"database/sql"
	"time"
)

// ApplicationStatus is the closed set of application states.
// Workflow: submitted -> under_review -> {approved, rejected, waitlisted}.
// "pending" is accepted when parsing legacy rows but is never produced and is
// not reviewable; "withdrawn"/"expired" are terminal administrative states.
type ApplicationStatus string

const (
	ApplicationDraft       ApplicationStatus = "draft"
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWaitlisted  ApplicationStatus = "waitlisted"
	ApplicationExpired     ApplicationStatus = "expired"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

// ParseApplicationStatus rejects unknown values.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch ApplicationStatus(s) {
	case ApplicationDraft, ApplicationSubmitted, ApplicationPending,
		ApplicationUnderReview, ApplicationApproved, ApplicationRejected,
		ApplicationWaitlisted, ApplicationExpired, ApplicationWithdrawn:
		return ApplicationStatus(s), true
	}
	return "", false
}

// ActiveApplicationStatuses are the states that block a new application for
// the same (user, resource) pair. The storage layer enforces the same set via
// a partial unique index.
var ActiveApplicationStatuses = []ApplicationStatus{
	ApplicationDraft,
	ApplicationSubmitted,
	ApplicationUnderReview,
	ApplicationApproved,
	ApplicationWaitlisted,
}

// IsActiveApplicationStatus reports whether s blocks a new application.
func IsActiveApplicationStatus(s ApplicationStatus) bool {
	for _, a := range ActiveApplicationStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// ReviewTargetStatuses are the states a reviewer may move a submitted
// application into.
var ReviewTargetStatuses = []ApplicationStatus{
	ApplicationUnderReview,
	ApplicationApproved,
	ApplicationRejected,
	ApplicationWaitlisted,
}

// IsReviewTargetStatus reports whether s is a legal review outcome.
func IsReviewTargetStatus(s ApplicationStatus) bool {
	for _, t := range ReviewTargetStatuses {
		if t == s {
			return true
		}
	}
	return false
}

// NeedLevel is the applicant's self-reported level of need.
type NeedLevel string

const (
	NeedLow      NeedLevel = "low"
	NeedMedium   NeedLevel = "medium"
	NeedHigh     NeedLevel = "high"
	NeedCritical NeedLevel = "critical"
)

// ParseNeedLevel rejects unknown values.
func ParseNeedLevel(s string) (NeedLevel, bool) {
	switch NeedLevel(s) {
	case NeedLow, NeedMedium, NeedHigh, NeedCritical:
		return NeedLevel(s), true
	}
	return "", false
}

// ResourceApplication domain model (resource_applications table).
// AdminNotes is reviewer-only and excluded from ToJSON.
type ResourceApplication struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	ResourceID string `db:"resource_id"`

	Status          ApplicationStatus `db:"status"`
	NeedLevel       sql.NullString    `db:"need_level"`
	Reason          sql.NullString    `db:"reason"`
	Documents       sql.NullString    `db:"documents"`        // JSONB
	ApplicationData sql.NullString    `db:"application_data"` // JSONB
	Notes           sql.NullString    `db:"notes"`
	AdminNotes      sql.NullString    `db:"admin_notes"`

	SubmittedAt    sql.NullTime   `db:"submitted_at"`
	ReviewedAt     sql.NullTime   `db:"reviewed_at"`
	ReviewedBy     sql.NullString `db:"reviewed_by"`
	DecisionReason sql.NullString `db:"decision_reason"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToJSON renders the application for API responses.
func (a *ResourceApplication) ToJSON() map[string]any {
	return map[string]any{
		"id":               a.ID,
		"user_id":          a.UserID,
		"resource_id":      a.ResourceID,
		"status":           string(a.Status),
		"need_level":       nullString(a.NeedLevel),
		"reason":           nullString(a.Reason),
		"documents":        nullJSON(a.Documents),
		"application_data": nullJSON(a.ApplicationData),
		"notes":            nullString(a.Notes),
		"submitted_at":     nullTimestamp(a.SubmittedAt),
		"reviewed_at":      nullTimestamp(a.ReviewedAt),
		"reviewed_by":      nullString(a.ReviewedBy),
		"decision_reason":  nullString(a.DecisionReason),
		"created_at":       a.CreatedAt.Format(time.RFC3339),
		"updated_at":       a.UpdatedAt.Format(time.RFC3339),
	}
}
