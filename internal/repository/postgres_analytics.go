package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"povertyline/internal/apperr"
)

// PostgresAnalyticsRepository computes the admin aggregates with SQL.
type PostgresAnalyticsRepository struct {
	db *sql.DB
}

func NewPostgresAnalyticsRepository(db *sql.DB) *PostgresAnalyticsRepository {
	return &PostgresAnalyticsRepository{db: db}
}

var _ AnalyticsRepository = (*PostgresAnalyticsRepository)(nil)

func (r *PostgresAnalyticsRepository) DashboardCounts(ctx context.Context) (*DashboardCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE is_active) AS active_users,
			(SELECT COUNT(*) FROM profiles) AS total_profiles,
			(SELECT COUNT(*) FROM resources) AS total_resources,
			(SELECT COUNT(*) FROM resources WHERE status = 'active') AS active_resources,
			(SELECT COUNT(*) FROM resources WHERE status = 'pending') AS pending_resources,
			(SELECT COUNT(*) FROM resource_applications) AS total_applications,
			(SELECT COUNT(*) FROM resource_applications WHERE status = 'submitted') AS submitted_applications,
			(SELECT COUNT(*) FROM resource_applications WHERE status = 'under_review') AS under_review_applications
	`
	var c DashboardCounts
	err := r.db.QueryRowContext(ctx, query).Scan(
		&c.TotalUsers,
		&c.ActiveUsers,
		&c.TotalProfiles,
		&c.TotalResources,
		&c.ActiveResources,
		&c.PendingResources,
		&c.TotalApplications,
		&c.SubmittedApplications,
		&c.UnderReviewApplications,
	)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("dashboard counts: %v", err))
	}
	return &c, nil
}

// groupCount runs a one-column GROUP BY count query.
func (r *PostgresAnalyticsRepository) groupCount(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("group count: %v", err))
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan group count: %v", err))
		}
		out[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("group count: %v", err))
	}
	return out, nil
}

func (r *PostgresAnalyticsRepository) UsersByRole(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
}

func (r *PostgresAnalyticsRepository) UsersByVerificationStatus(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT verification_status, COUNT(*) FROM users GROUP BY verification_status`)
}

func (r *PostgresAnalyticsRepository) ResourcesByCategory(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT category, COUNT(*) FROM resources GROUP BY category`)
}

func (r *PostgresAnalyticsRepository) ResourcesByStatus(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT status, COUNT(*) FROM resources GROUP BY status`)
}

func (r *PostgresAnalyticsRepository) ApplicationsByStatus(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT status, COUNT(*) FROM resource_applications GROUP BY status`)
}

// trend runs a date_trunc time-series query. bucket is "day" or "month" and
// is validated by the caller before it reaches SQL.
func (r *PostgresAnalyticsRepository) trend(ctx context.Context, table string, since time.Time, bucket string) ([]TrendPoint, error) {
	// Month buckets land on the first of the month, so one layout serves both.
	layout := "2006-01-02"

	query := fmt.Sprintf(`
		SELECT date_trunc('%s', created_at) AS bucket, COUNT(*)
		FROM %s
		WHERE created_at >= $1
		GROUP BY bucket
		ORDER BY bucket ASC
	`, bucket, table)

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("trend query: %v", err))
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var ts time.Time
		var count int
		if err := rows.Scan(&ts, &count); err != nil {
			return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan trend point: %v", err))
		}
		points = append(points, TrendPoint{Bucket: ts.Format(layout), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("trend query: %v", err))
	}
	return points, nil
}

func (r *PostgresAnalyticsRepository) UserRegistrationTrend(ctx context.Context, since time.Time, bucket string) ([]TrendPoint, error) {
	return r.trend(ctx, "users", since, bucket)
}

func (r *PostgresAnalyticsRepository) ResourceCreationTrend(ctx context.Context, since time.Time, bucket string) ([]TrendPoint, error) {
	return r.trend(ctx, "resources", since, bucket)
}

func (r *PostgresAnalyticsRepository) ApplicationTrend(ctx context.Context, since time.Time, bucket string) ([]TrendPoint, error) {
	return r.trend(ctx, "resource_applications", since, bucket)
}

func (r *PostgresAnalyticsRepository) ProfileCompletionDistribution(ctx context.Context) (map[int]int, error) {
	query := `
		SELECT (completion_percentage / 10) * 10 AS decile, COUNT(*)
		FROM profiles
		GROUP BY decile
		ORDER BY decile ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("completion distribution: %v", err))
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var decile, count int
		if err := rows.Scan(&decile, &count); err != nil {
			return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan completion bucket: %v", err))
		}
		out[decile] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("completion distribution: %v", err))
	}
	return out, nil
}
