package domain

import (
	"database/sql"
	"time"
)

// ResourceCategory is the closed set of service categories.
type ResourceCategory string

const (
	CategoryFood           ResourceCategory = "food"
	CategoryHousing        ResourceCategory = "housing"
	CategoryHealthcare     ResourceCategory = "healthcare"
	CategoryEducation      ResourceCategory = "education"
	CategoryEmployment     ResourceCategory = "employment"
	CategoryFinancial      ResourceCategory = "financial"
	CategoryLegal          ResourceCategory = "legal"
	CategoryChildcare      ResourceCategory = "childcare"
	CategoryTransportation ResourceCategory = "transportation"
	CategoryClothing       ResourceCategory = "clothing"
	CategoryMentalHealth   ResourceCategory = "mental_health"
	CategoryOther          ResourceCategory = "other"
)

// ParseResourceCategory rejects unknown values.
func ParseResourceCategory(s string) (ResourceCategory, bool) {
	switch ResourceCategory(s) {
	case CategoryFood, CategoryHousing, CategoryHealthcare, CategoryEducation,
		CategoryEmployment, CategoryFinancial, CategoryLegal, CategoryChildcare,
		CategoryTransportation, CategoryClothing, CategoryMentalHealth, CategoryOther:
		return ResourceCategory(s), true
	}
	return "", false
}

// ResourceStatus is the closed set of lifecycle states.
// Transitions: draft -> pending -> {active, inactive}; active <-> pending.
// "expired" is derived from the date window, never written by a transition.
type ResourceStatus string

const (
	ResourceDraft    ResourceStatus = "draft"
	ResourcePending  ResourceStatus = "pending"
	ResourceActive   ResourceStatus = "active"
	ResourceExpired  ResourceStatus = "expired"
	ResourceInactive ResourceStatus = "inactive"
)

// ParseResourceStatus rejects unknown values.
func ParseResourceStatus(s string) (ResourceStatus, bool) {
	switch ResourceStatus(s) {
	case ResourceDraft, ResourcePending, ResourceActive, ResourceExpired, ResourceInactive:
		return ResourceStatus(s), true
	}
	return "", false
}

// Resource domain model (resources table).
type Resource struct {
	ID          string           `db:"id"`
	Title       string           `db:"title"`
	Description string           `db:"description"`
	Category    ResourceCategory `db:"category"`

	// Provider
	ProviderID      sql.NullString `db:"provider_id"`
	ProviderName    string         `db:"provider_name"`
	ProviderContact sql.NullString `db:"provider_contact"` // JSONB

	// Location and availability
	Location            sql.NullString `db:"location"`             // JSONB
	EligibilityCriteria sql.NullString `db:"eligibility_criteria"` // JSONB
	ApplicationProcess  sql.NullString `db:"application_process"`
	RequiredDocuments   sql.NullString `db:"required_documents"` // JSONB
	Capacity            sql.NullInt64  `db:"capacity"`
	Availability        sql.NullString `db:"availability"` // JSONB
	StartDate           sql.NullTime   `db:"start_date"`
	EndDate             sql.NullTime   `db:"end_date"`

	// Status and verification
	Status           ResourceStatus `db:"status"`
	VerificationDate sql.NullTime   `db:"verification_date"`
	VerifiedBy       sql.NullString `db:"verified_by"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsActiveAt reports whether the resource is active status-wise and the given
// day falls inside its date window. Missing bounds are open-ended.
func (r *Resource) IsActiveAt(day time.Time) bool {
	if r.Status != ResourceActive {
		return false
	}
	day = day.Truncate(24 * time.Hour)
	if r.StartDate.Valid && r.StartDate.Time.After(day) {
		return false
	}
	if r.EndDate.Valid && r.EndDate.Time.Before(day) {
		return false
	}
	return true
}

// IsActive evaluates IsActiveAt against today (UTC).
func (r *Resource) IsActive() bool {
	return r.IsActiveAt(time.Now().UTC())
}

// ToJSON renders the resource for API responses.
func (r *Resource) ToJSON() map[string]any {
	m := map[string]any{
		"id":                   r.ID,
		"title":                r.Title,
		"description":          r.Description,
		"category":             string(r.Category),
		"provider_id":          nullString(r.ProviderID),
		"provider_name":        r.ProviderName,
		"provider_contact":     nullJSON(r.ProviderContact),
		"location":             nullJSON(r.Location),
		"eligibility_criteria": nullJSON(r.EligibilityCriteria),
		"application_process":  nullString(r.ApplicationProcess),
		"required_documents":   nullJSON(r.RequiredDocuments),
		"availability":         nullJSON(r.Availability),
		"start_date":           nullDate(r.StartDate),
		"end_date":             nullDate(r.EndDate),
		"status":               string(r.Status),
		"verification_date":    nullTimestamp(r.VerificationDate),
		"created_at":           r.CreatedAt.Format(time.RFC3339),
		"updated_at":           r.UpdatedAt.Format(time.RFC3339),
		"is_active":            r.IsActive(),
	}
	if r.Capacity.Valid {
		m["capacity"] = r.Capacity.Int64
	} else {
		m["capacity"] = nil
	}
	return m
}
