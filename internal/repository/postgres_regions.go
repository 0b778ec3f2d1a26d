package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
)

// PostgresRegionsRepository implements RegionsRepository over lib/pq.
type PostgresRegionsRepository struct {
	db *sql.DB
}

func NewPostgresRegionsRepository(db *sql.DB) *PostgresRegionsRepository {
	return &PostgresRegionsRepository{db: db}
}

var _ RegionsRepository = (*PostgresRegionsRepository)(nil)

const regionColumns = `
	id::text,
	name,
	code,
	region_type,
	parent_id::text,
	population,
	poverty_rate,
	median_income,
	statistics::text,
	geo_boundary::text,
	stats_updated_at,
	is_active,
	created_at,
	updated_at
`

func scanRegion(row interface{ Scan(...any) error }) (*domain.Region, error) {
	var reg domain.Region
	err := row.Scan(
		&reg.ID,
		&reg.Name,
		&reg.Code,
		&reg.Type,
		&reg.ParentID,
		&reg.Population,
		&reg.PovertyRate,
		&reg.MedianIncome,
		&reg.Statistics,
		&reg.GeoBoundary,
		&reg.StatsUpdatedAt,
		&reg.IsActive,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *PostgresRegionsRepository) Create(ctx context.Context, reg *domain.Region) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	query := `
		INSERT INTO regions (
			id, name, code, region_type, parent_id, population, poverty_rate,
			median_income, statistics, geo_boundary, stats_updated_at,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		reg.ID, reg.Name, reg.Code, string(reg.Type), reg.ParentID,
		reg.Population, reg.PovertyRate, reg.MedianIncome,
		reg.Statistics, reg.GeoBoundary, reg.StatsUpdatedAt,
		reg.IsActive, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperr.New(apperr.CodeConflict, "Region code already exists")
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("insert region: %v", err))
	}
	return nil
}

func (r *PostgresRegionsRepository) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions WHERE id = $1`
	reg, err := scanRegion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateNotFound(err, "Region")
	}
	return reg, nil
}

func (r *PostgresRegionsRepository) GetByCode(ctx context.Context, code string) (*domain.Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions WHERE code = $1`
	reg, err := scanRegion(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, translateNotFound(err, "Region")
	}
	return reg, nil
}

func (r *PostgresRegionsRepository) List(ctx context.Context, f RegionFilters, page models.PageParams) ([]*domain.Region, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	idx := 1

	if f.Type != "" {
		conds = append(conds, fmt.Sprintf("region_type = $%d", idx))
		args = append(args, f.Type)
		idx++
	}
	if f.ParentID != "" {
		conds = append(conds, fmt.Sprintf("parent_id = $%d", idx))
		args = append(args, f.ParentID)
		idx++
	}
	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM regions`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("count regions: %v", err))
	}

	query := `SELECT ` + regionColumns + ` FROM regions` + where +
		fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list regions: %v", err))
	}
	defer rows.Close()

	var regions []*domain.Region
	for rows.Next() {
		reg, err := scanRegion(rows)
		if err != nil {
			return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan region: %v", err))
		}
		regions = append(regions, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list regions: %v", err))
	}
	return regions, total, nil
}

func (r *PostgresRegionsRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions WHERE parent_id = $1 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("list child regions: %v", err))
	}
	defer rows.Close()

	var regions []*domain.Region
	for rows.Next() {
		reg, err := scanRegion(rows)
		if err != nil {
			return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan region: %v", err))
		}
		regions = append(regions, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("list child regions: %v", err))
	}
	return regions, nil
}

func (r *PostgresRegionsRepository) Update(ctx context.Context, reg *domain.Region) error {
	reg.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE regions
		SET name = $2,
			code = $3,
			region_type = $4,
			parent_id = $5,
			population = $6,
			poverty_rate = $7,
			median_income = $8,
			statistics = $9,
			geo_boundary = $10,
			stats_updated_at = $11,
			is_active = $12,
			updated_at = $13
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		reg.ID, reg.Name, reg.Code, string(reg.Type), reg.ParentID,
		reg.Population, reg.PovertyRate, reg.MedianIncome,
		reg.Statistics, reg.GeoBoundary, reg.StatsUpdatedAt,
		reg.IsActive, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperr.New(apperr.CodeConflict, "Region code already exists")
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("update region: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Region not found")
	}
	return nil
}

func (r *PostgresRegionsRepository) UpdateStatistics(ctx context.Context, id string, stats RegionStatistics, at time.Time) error {
	var raw sql.NullString
	if stats.Raw != "" {
		raw = sql.NullString{String: stats.Raw, Valid: true}
	}
	var population sql.NullInt64
	if stats.Population != nil {
		population = sql.NullInt64{Int64: *stats.Population, Valid: true}
	}
	var povertyRate, medianIncome sql.NullFloat64
	if stats.PovertyRate != nil {
		povertyRate = sql.NullFloat64{Float64: *stats.PovertyRate, Valid: true}
	}
	if stats.MedianIncome != nil {
		medianIncome = sql.NullFloat64{Float64: *stats.MedianIncome, Valid: true}
	}

	query := `
		UPDATE regions
		SET population = COALESCE($2, population),
			poverty_rate = COALESCE($3, poverty_rate),
			median_income = COALESCE($4, median_income),
			statistics = COALESCE($5, statistics),
			stats_updated_at = $6,
			updated_at = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, population, povertyRate, medianIncome, raw, at)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("update region statistics: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Region not found")
	}
	return nil
}
