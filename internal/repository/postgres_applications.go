package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
)

// PostgresApplicationsRepository implements ApplicationsRepository over lib/pq.
type PostgresApplicationsRepository struct {
	db *sql.DB
}

func NewPostgresApplicationsRepository(db *sql.DB) *PostgresApplicationsRepository {
	return &PostgresApplicationsRepository{db: db}
}

var _ ApplicationsRepository = (*PostgresApplicationsRepository)(nil)

const applicationColumns = `
	id::text,
	user_id::text,
	resource_id::text,
	status,
	need_level,
	reason,
	documents::text,
	application_data::text,
	notes,
	admin_notes,
	submitted_at,
	reviewed_at,
	reviewed_by::text,
	decision_reason,
	created_at,
	updated_at
`

const applicationColumnsAliased = `
	a.id::text,
	a.user_id::text,
	a.resource_id::text,
	a.status,
	a.need_level,
	a.reason,
	a.documents::text,
	a.application_data::text,
	a.notes,
	a.admin_notes,
	a.submitted_at,
	a.reviewed_at,
	a.reviewed_by::text,
	a.decision_reason,
	a.created_at,
	a.updated_at
`

func scanApplication(row interface{ Scan(...any) error }) (*domain.ResourceApplication, error) {
	var a domain.ResourceApplication
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ResourceID,
		&a.Status,
		&a.NeedLevel,
		&a.Reason,
		&a.Documents,
		&a.ApplicationData,
		&a.Notes,
		&a.AdminNotes,
		&a.SubmittedAt,
		&a.ReviewedAt,
		&a.ReviewedBy,
		&a.DecisionReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// activeStatusList is the SQL literal matching the partial unique index.
func activeStatusList() string {
	vals := make([]string, 0, len(domain.ActiveApplicationStatuses))
	for _, s := range domain.ActiveApplicationStatuses {
		vals = append(vals, "'"+string(s)+"'")
	}
	return strings.Join(vals, ", ")
}

// CreateForActiveResource re-checks the resource inside a transaction, then
// inserts. The partial unique index catches the race where two requests for
// the same (user, resource) pair pass the check concurrently.
func (r *PostgresApplicationsRepository) CreateForActiveResource(ctx context.Context, app *domain.ResourceApplication, day time.Time) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("begin apply tx: %v", err))
	}
	defer tx.Rollback()

	var status string
	var startDate, endDate sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT status, start_date, end_date FROM resources WHERE id = $1 FOR SHARE`,
		app.ResourceID,
	).Scan(&status, &startDate, &endDate)
	if err != nil {
		return translateNotFound(err, "Resource")
	}

	check := domain.Resource{
		Status:    domain.ResourceStatus(status),
		StartDate: startDate,
		EndDate:   endDate,
	}
	if !check.IsActiveAt(day) {
		return apperr.New(apperr.CodeInvalidState, "Cannot apply for inactive resource")
	}

	query := `
		INSERT INTO resource_applications (
			id, user_id, resource_id, status, need_level, reason,
			documents, application_data, notes, admin_notes,
			submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, query,
		app.ID, app.UserID, app.ResourceID, string(app.Status), app.NeedLevel, app.Reason,
		app.Documents, app.ApplicationData, app.Notes, app.AdminNotes,
		app.SubmittedAt, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "ux_applications_one_active") {
			return r.conflictWithExisting(ctx, app.UserID, app.ResourceID)
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("insert application: %v", err))
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, "ux_applications_one_active") {
			return r.conflictWithExisting(ctx, app.UserID, app.ResourceID)
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("commit apply tx: %v", err))
	}
	return nil
}

// conflictWithExisting builds the 409 payload naming the blocking application.
func (r *PostgresApplicationsRepository) conflictWithExisting(ctx context.Context, userID, resourceID string) error {
	conflict := apperr.New(apperr.CodeConflict, "You already have an active application for this resource")
	existing, err := r.FindActive(ctx, userID, resourceID)
	if err == nil && existing != nil {
		conflict.WithDetails(map[string]any{
			"application_id": existing.ID,
			"status":         string(existing.Status),
		})
	}
	return conflict
}

func (r *PostgresApplicationsRepository) GetByID(ctx context.Context, id string) (*domain.ResourceApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM resource_applications WHERE id = $1`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateNotFound(err, "Application")
	}
	return a, nil
}

func (r *PostgresApplicationsRepository) FindActive(ctx context.Context, userID, resourceID string) (*domain.ResourceApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM resource_applications
		WHERE user_id = $1 AND resource_id = $2 AND status IN (` + activeStatusList() + `)`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, userID, resourceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("find active application: %v", err))
	}
	return a, nil
}

func (r *PostgresApplicationsRepository) List(ctx context.Context, f ApplicationFilters, page models.PageParams) ([]*domain.ResourceApplication, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	idx := 1

	if f.UserID != "" {
		conds = append(conds, fmt.Sprintf("a.user_id = $%d", idx))
		args = append(args, f.UserID)
		idx++
	}
	if f.ResourceID != "" {
		conds = append(conds, fmt.Sprintf("a.resource_id = $%d", idx))
		args = append(args, f.ResourceID)
		idx++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("a.status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	join := ""
	if f.ProviderID != "" {
		join = " JOIN resources r ON r.id = a.resource_id"
		conds = append(conds, fmt.Sprintf("r.provider_id = $%d", idx))
		args = append(args, f.ProviderID)
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM resource_applications a` + join + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("count applications: %v", err))
	}

	orderBy := "a.created_at DESC"
	if f.OldestSubmittedFirst {
		orderBy = "a.submitted_at ASC NULLS LAST"
	}
	query := `SELECT ` + applicationColumnsAliased + ` FROM resource_applications a` + join + where +
		fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, orderBy, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list applications: %v", err))
	}
	defer rows.Close()

	var apps []*domain.ResourceApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan application: %v", err))
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list applications: %v", err))
	}
	return apps, total, nil
}

func (r *PostgresApplicationsRepository) Update(ctx context.Context, app *domain.ResourceApplication) error {
	app.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE resource_applications
		SET status = $2,
			need_level = $3,
			reason = $4,
			documents = $5,
			application_data = $6,
			notes = $7,
			admin_notes = $8,
			submitted_at = $9,
			reviewed_at = $10,
			reviewed_by = $11,
			decision_reason = $12,
			updated_at = $13
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		app.ID, string(app.Status), app.NeedLevel, app.Reason,
		app.Documents, app.ApplicationData, app.Notes, app.AdminNotes,
		app.SubmittedAt, app.ReviewedAt, app.ReviewedBy, app.DecisionReason, app.UpdatedAt,
	)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("update application: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Application not found")
	}
	return nil
}

// Review performs the status change as a single conditional UPDATE so two
// concurrent reviews cannot both succeed.
func (r *PostgresApplicationsRepository) Review(ctx context.Context, id string, from []domain.ApplicationStatus, to domain.ApplicationStatus, reviewerID string, decisionReason, adminNotes string) (bool, error) {
	if len(from) == 0 {
		return false, apperr.Invalid("No source statuses given")
	}

	placeholders := make([]string, 0, len(from))
	args := []any{id, string(to), reviewerID}
	idx := 4
	for _, s := range from {
		placeholders = append(placeholders, fmt.Sprintf("$%d", idx))
		args = append(args, string(s))
		idx++
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE resource_applications
		SET status = $2,
			reviewed_by = $3,
			reviewed_at = $%d,
			decision_reason = NULLIF($%d, ''),
			admin_notes = COALESCE(NULLIF($%d, ''), admin_notes),
			updated_at = $%d
		WHERE id = $1 AND status IN (%s)
	`, idx, idx+1, idx+2, idx+3, strings.Join(placeholders, ", "))
	args = append(args, now, decisionReason, adminNotes, now)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperr.New(apperr.CodeInternal, fmt.Sprintf("review application: %v", err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
