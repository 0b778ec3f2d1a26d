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

// PostgresUsersRepository implements UsersRepository over lib/pq.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	id::text,
	username,
	email,
	password_hash,
	role,
	verification_status,
	is_active,
	created_at,
	updated_at
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.VerificationStatus,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, password_hash, role, verification_status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash,
		string(u.Role), string(u.VerificationStatus), u.IsActive,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return apperr.New(apperr.CodeConflict, "Username already exists")
		}
		if isUniqueViolation(err, "users_email_key") {
			return apperr.New(apperr.CodeConflict, "Email already exists")
		}
		if isUniqueViolation(err, "") {
			return apperr.New(apperr.CodeConflict, "Username or email already exists")
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("insert user: %v", err))
	}
	return nil
}

func (r *PostgresUsersRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateNotFound(err, "User")
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, translateNotFound(err, "User")
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, translateNotFound(err, "User")
	}
	return u, nil
}

func (r *PostgresUsersRepository) List(ctx context.Context, f UserFilters, page models.PageParams) ([]*domain.User, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	idx := 1

	if f.Role != "" {
		conds = append(conds, fmt.Sprintf("role = $%d", idx))
		args = append(args, f.Role)
		idx++
	}
	if f.VerificationStatus != "" {
		conds = append(conds, fmt.Sprintf("verification_status = $%d", idx))
		args = append(args, f.VerificationStatus)
		idx++
	}
	if f.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *f.IsActive)
		idx++
	}
	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("count users: %v", err))
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list users: %v", err))
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("scan user: %v", err))
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.CodeInternal, fmt.Sprintf("list users: %v", err))
	}
	return users, total, nil
}

func (r *PostgresUsersRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $2,
			email = $3,
			password_hash = $4,
			role = $5,
			verification_status = $6,
			is_active = $7,
			updated_at = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash,
		string(u.Role), string(u.VerificationStatus), u.IsActive, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperr.New(apperr.CodeConflict, "Username or email already exists")
		}
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("update user: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (r *PostgresUsersRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("delete user: %v", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}
