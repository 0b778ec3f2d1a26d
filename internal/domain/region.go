package domain

import (
	"database/sql"
	"time"
)

// RegionType is the closed set of administrative levels.
type RegionType string

const (
	RegionCountry      RegionType = "country"
	RegionState        RegionType = "state"
	RegionCounty       RegionType = "county"
	RegionCity         RegionType = "city"
	RegionDistrict     RegionType = "district"
	RegionNeighborhood RegionType = "neighborhood"
)

// ParseRegionType rejects unknown values.
func ParseRegionType(s string) (RegionType, bool) {
	switch RegionType(s) {
	case RegionCountry, RegionState, RegionCounty, RegionCity,
		RegionDistrict, RegionNeighborhood:
		return RegionType(s), true
	}
	return "", false
}

// Region is reference data for the region hierarchy plus cached statistics
// pulled from the external statistics API.
type Region struct {
	ID       string         `db:"id"`
	Name     string         `db:"name"`
	Code     sql.NullString `db:"code"`
	Type     RegionType     `db:"region_type"`
	ParentID sql.NullString `db:"parent_id"`

	Population     sql.NullInt64   `db:"population"`
	PovertyRate    sql.NullFloat64 `db:"poverty_rate"`
	MedianIncome   sql.NullFloat64 `db:"median_income"`
	Statistics     sql.NullString  `db:"statistics"`      // JSONB
	GeoBoundary    sql.NullString  `db:"geo_boundary"`    // JSONB
	StatsUpdatedAt sql.NullTime    `db:"stats_updated_at"`

	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToJSON renders the region for API responses.
func (r *Region) ToJSON() map[string]any {
	var povertyRate, medianIncome any
	if r.PovertyRate.Valid {
		povertyRate = r.PovertyRate.Float64
	}
	if r.MedianIncome.Valid {
		medianIncome = r.MedianIncome.Float64
	}
	var population any
	if r.Population.Valid {
		population = r.Population.Int64
	}
	return map[string]any{
		"id":               r.ID,
		"name":             r.Name,
		"code":             nullString(r.Code),
		"region_type":      string(r.Type),
		"parent_id":        nullString(r.ParentID),
		"population":       population,
		"poverty_rate":     povertyRate,
		"median_income":    medianIncome,
		"statistics":       nullJSON(r.Statistics),
		"geo_boundary":     nullJSON(r.GeoBoundary),
		"stats_updated_at": nullTimestamp(r.StatsUpdatedAt),
		"is_active":        r.IsActive,
		"created_at":       r.CreatedAt.Format(time.RFC3339),
		"updated_at":       r.UpdatedAt.Format(time.RFC3339),
	}
}
