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

// PostgresResourcesRepository implements ResourcesRepository over lib/pq.
type PostgresResourcesRepository struct {
	db *sql.DB
}

func NewPostgresResourcesRepository(db *sql.DB) *PostgresResourcesRepository {
	return &PostgresResourcesRepository{db: db}
}

var _ ResourcesRepository = (*PostgresResourcesRepository)(nil)

const resourceColumns = `
	id::text,
	title,
	description,
	category,
	provider_id::text,
	provider_name,
	provider_contact::text,
	location::text,
	eligibility_criteria::text,
	application_process,
	required_documents::text,
	capacity,
	availability::text,
	start_date,
	end_date,
	status,
	verification_date,
	verified_by::text,
	created_at,
	updated_at
`

func scanResource(row interface{ Scan(...any) error }) (*domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(
		&res.ID,
		&res.Title,
		&res.Description,
		&res.Category,
		&res.ProviderID,
		&res.ProviderName,
		&res.ProviderContact,
		&res.Location,
		&res.EligibilityCriteria,
		&res.ApplicationProcess,
		&res.RequiredDocuments,
		&res.Capacity,
		&res.Availability,
		&res.StartDate,
		&res.EndDate,
		&res.Status,
		&res.VerificationDate,
		&res.VerifiedBy,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PostgresResourcesRepository) Create(ctx context.Context, res *domain.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	query := `
		INSERT INTO resources (
			id, title, description, category, provider_id, provider_name,
			provider_contact, location, eligibility_criteria, application_process,
			required_documents, capacity, availability, start_date, end_date,
			status, verification_date, verified_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.Title, res.Description, string(res.Category),
		res.ProviderID, res.ProviderName,
		res.ProviderContact, res.Location, res.EligibilityCriteria, res.ApplicationProcess,
		res.RequiredDocuments, res.Capacity, res.Availability, res.StartDate, res.EndDate,
		string(res.Status), res.VerificationDate, res.VerifiedBy, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("insert resource: %v", err))
	}
	return nil
}

func (r *PostgresResourcesRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	res, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateNotFound(err, "Resource")
	}
	return res, nil
}

func (r *PostgresResourcesRepository) List(ctx context.Context, f ResourceFilters, page models.PageParams) ([]*domain.Resource, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	idx := 1

	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", idx))
		args = append(args, f.Category)
		idx++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.ProviderID != "" {
		conds = append(conds, fmt.Sprintf("provider_id = $%d", idx))
		args = append(args, f.ProviderID)
		idx++
	}
	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR provider_name ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if !f.ActiveOn.IsZero() {
		conds = append(conds, "status = 'active'")
		conds = append(conds, fmt.Sprintf("(start_date IS NULL OR start_date <= $%d)", idx))
		args = append(args, f.ActiveOn)
		idx++
		conds = append(conds, fmt.Sprintf("(end_date IS NULL OR end_date >= $%d)", idx))
		args = append(args, f.ActiveOn)
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("count resources: %v", err))
	}

	order := "DESC"
	if f.OldestFirst {
		order = "ASC"
	}
	query := `SELECT ` + resourceColumns + ` FROM resources` + where +
		fmt.Sprintf(` ORDER BY created_at %s LIMIT $%d OFFSET $%d`, order, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list resources: %v", err))
	}
	defer rows.Close()

	var resources []*domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan resource: %v", err))
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list resources: %v", err))
	}
	return resources, total, nil
}

func (r *PostgresResourcesRepository) Update(ctx context.Context, res *domain.Resource) error {
	res.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE resources
		SET title = $2,
			description = $3,
			category = $4,
			provider_id = $5,
			provider_name = $6,
			provider_contact = $7,
			location = $8,
			eligibility_criteria = $9,
			application_process = $10,
			required_documents = $11,
			capacity = $12,
			availability = $13,
			start_date = $14,
			end_date = $15,
			status = $16,
			verification_date = $17,
			verified_by = $18,
			updated_at = $19
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		res.ID, res.Title, res.Description, string(res.Category),
		res.ProviderID, res.ProviderName,
		res.ProviderContact, res.Location, res.EligibilityCriteria, res.ApplicationProcess,
		res.RequiredDocuments, res.Capacity, res.Availability, res.StartDate, res.EndDate,
		string(res.Status), res.VerificationDate, res.VerifiedBy, res.UpdatedAt,
	)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("update resource: %v", err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("Resource not found")
	}
	return nil
}

func (r *PostgresResourcesRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("delete resource: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Resource not found")
	}
	return nil
}

// TransitionStatus performs the status change as a single conditional UPDATE
// so concurrent transitions cannot both succeed.
func (r *PostgresResourcesRepository) TransitionStatus(ctx context.Context, id string, from []domain.ResourceStatus, to domain.ResourceStatus, verifiedBy string) (bool, error) {
	if len(from) == 0 {
		return false, apperr.Invalid("No source statuses given")
	}

	placeholders := make([]string, 0, len(from))
	args := []any{id, string(to)}
	idx := 3
	for _, s := range from {
		placeholders = append(placeholders, fmt.Sprintf("$%d", idx))
		args = append(args, string(s))
		idx++
	}

	now := time.Now().UTC()
	var query string
	if verifiedBy != "" {
		query = fmt.Sprintf(`
			UPDATE resources
			SET status = $2,
				updated_at = $%d,
				verification_date = $%d,
				verified_by = $%d
			WHERE id = $1 AND status IN (%s)
		`, idx, idx+1, idx+2, strings.Join(placeholders, ", "))
		args = append(args, now, now, verifiedBy)
	} else {
		query = fmt.Sprintf(`
			UPDATE resources
			SET status = $2,
				updated_at = $%d
			WHERE id = $1 AND status IN (%s)
		`, idx, strings.Join(placeholders, ", "))
		args = append(args, now)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperr.New(apperr.CodeInternal, fmt.Sprintf("transition resource status: %v", err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
