package domain

import (
	"database/sql"
	"time"
)

// EducationLevel is the closed set of education levels.
type EducationLevel string

const (
	EducationNone       EducationLevel = "none"
	EducationPrimary    EducationLevel = "primary"
	EducationSecondary  EducationLevel = "secondary"
	EducationTertiary   EducationLevel = "tertiary"
	EducationVocational EducationLevel = "vocational"
	EducationGraduate   EducationLevel = "graduate"
)

// ParseEducationLevel rejects unknown values.
func ParseEducationLevel(s string) (EducationLevel, bool) {
	switch EducationLevel(s) {
	case EducationNone, EducationPrimary, EducationSecondary,
		EducationTertiary, EducationVocational, EducationGraduate:
		return EducationLevel(s), true
	}
	return "", false
}

// EmploymentStatus is the closed set of employment states.
type EmploymentStatus string

const (
	EmploymentUnemployed   EmploymentStatus = "unemployed"
	EmploymentFullTime     EmploymentStatus = "employed_full_time"
	EmploymentPartTime     EmploymentStatus = "employed_part_time"
	EmploymentSelfEmployed EmploymentStatus = "self_employed"
	EmploymentStudent      EmploymentStatus = "student"
	EmploymentRetired      EmploymentStatus = "retired"
	EmploymentUnableToWork EmploymentStatus = "unable_to_work"
)

// ParseEmploymentStatus rejects unknown values.
func ParseEmploymentStatus(s string) (EmploymentStatus, bool) {
	switch EmploymentStatus(s) {
	case EmploymentUnemployed, EmploymentFullTime, EmploymentPartTime,
		EmploymentSelfEmployed, EmploymentStudent, EmploymentRetired,
		EmploymentUnableToWork:
		return EmploymentStatus(s), true
	}
	return "", false
}

// Profile domain model (profiles table), 1:1 with a user.
// JSONB columns are carried as their raw text form.
type Profile struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`

	// Personal information
	FirstName   sql.NullString `db:"first_name"`
	LastName    sql.NullString `db:"last_name"`
	DateOfBirth sql.NullTime   `db:"date_of_birth"`
	Gender      sql.NullString `db:"gender"`
	PhoneNumber sql.NullString `db:"phone_number"`

	// Location
	Address             sql.NullString `db:"address"`              // JSONB
	LocationCoordinates sql.NullString `db:"location_coordinates"` // JSONB

	// Education
	EducationLevel   sql.NullString `db:"education_level"`
	EducationHistory sql.NullString `db:"education_history"` // JSONB

	// Employment
	EmploymentStatus  sql.NullString `db:"employment_status"`
	EmploymentHistory sql.NullString `db:"employment_history"` // JSONB
	Skills            sql.NullString `db:"skills"`             // JSONB

	// Health
	HealthInformation sql.NullString `db:"health_information"` // JSONB

	// Financial
	IncomeLevel   float64 `db:"income_level"`
	HouseholdSize int     `db:"household_size"`
	Dependents    int     `db:"dependents"`

	// Needs
	Needs sql.NullString `db:"needs"` // JSONB

	// Metadata
	CompletionPercentage int            `db:"completion_percentage"`
	PrivacySettings      sql.NullString `db:"privacy_settings"` // JSONB
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// CalculateCompletionPercentage recomputes the derived completion score from
// the 8 tracked fields and stores it on the profile. Integer division rounds
// down (3 of 8 fields = 37, not 37.5).
func (p *Profile) CalculateCompletionPercentage() int {
	tracked := []bool{
		p.FirstName.Valid,
		p.LastName.Valid,
		p.DateOfBirth.Valid,
		p.Gender.Valid,
		p.PhoneNumber.Valid,
		p.Address.Valid,
		p.EducationLevel.Valid,
		p.EmploymentStatus.Valid,
	}

	filled := 0
	for _, ok := range tracked {
		if ok {
			filled++
		}
	}

	p.CompletionPercentage = filled * 100 / len(tracked)
	return p.CompletionPercentage
}

// ToJSON renders the profile for API responses.
func (p *Profile) ToJSON() map[string]any {
	return map[string]any{
		"id":                    p.ID,
		"user_id":               p.UserID,
		"first_name":            nullString(p.FirstName),
		"last_name":             nullString(p.LastName),
		"date_of_birth":         nullDate(p.DateOfBirth),
		"gender":                nullString(p.Gender),
		"phone_number":          nullString(p.PhoneNumber),
		"address":               nullJSON(p.Address),
		"location_coordinates":  nullJSON(p.LocationCoordinates),
		"education_level":       nullString(p.EducationLevel),
		"education_history":     nullJSON(p.EducationHistory),
		"employment_status":     nullString(p.EmploymentStatus),
		"employment_history":    nullJSON(p.EmploymentHistory),
		"skills":                nullJSON(p.Skills),
		"health_information":    nullJSON(p.HealthInformation),
		"income_level":          p.IncomeLevel,
		"household_size":        p.HouseholdSize,
		"dependents":            p.Dependents,
		"needs":                 nullJSON(p.Needs),
		"completion_percentage": p.CompletionPercentage,
		"created_at":            p.CreatedAt.Format(time.RFC3339),
		"updated_at":            p.UpdatedAt.Format(time.RFC3339),
	}
}
