package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role",
		"verification_status", "is_active", "created_at", "updated_at",
	})
}

func TestUsersGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(userRows().AddRow(
			"u-1", "maria", "maria@example.org", "$2a$10$hash", "user",
			"unverified", true, now, now,
		))

	repo := NewPostgresUsersRepository(db)
	u, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "maria", u.Username)
	assert.Equal(t, domain.RoleUser, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(userRows())

	repo := NewPostgresUsersRepository(db)
	_, err = repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestUsersCreateDuplicateUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	repo := NewPostgresUsersRepository(db)
	err = repo.Create(context.Background(), &domain.User{
		Username: "maria", Email: "maria@example.org",
		PasswordHash: "$2a$10$hash", Role: domain.RoleUser,
		VerificationStatus: domain.VerificationUnverified, IsActive: true,
	})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)
	assert.Equal(t, "Username already exists", appErr.Message)
}

func TestResourceTransitionStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE resources`).
		WithArgs("r-1", "active", "pending", sqlmock.AnyArg(), sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresResourcesRepository(db)
	ok, err := repo.TransitionStatus(context.Background(), "r-1",
		[]domain.ResourceStatus{domain.ResourcePending}, domain.ResourceActive, "admin-1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceTransitionStatusNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE resources`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresResourcesRepository(db)
	ok, err := repo.TransitionStatus(context.Background(), "r-1",
		[]domain.ResourceStatus{domain.ResourcePending}, domain.ResourceActive, "admin-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplicationReviewConditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE resource_applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresApplicationsRepository(db)
	ok, err := repo.Review(context.Background(), "a-1",
		[]domain.ApplicationStatus{domain.ApplicationSubmitted},
		domain.ApplicationApproved, "admin-1", "meets criteria", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApplyRejectsInactiveResource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, start_date, end_date FROM resources`).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "start_date", "end_date"}).
			AddRow("pending", nil, nil))
	mock.ExpectRollback()

	repo := NewPostgresApplicationsRepository(db)
	err = repo.CreateForActiveResource(context.Background(), &domain.ResourceApplication{
		UserID:     "u-1",
		ResourceID: "r-1",
		Status:     domain.ApplicationSubmitted,
	}, time.Now().UTC())
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)
	assert.Equal(t, "Cannot apply for inactive resource", appErr.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyInsertsInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, start_date, end_date FROM resources`).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "start_date", "end_date"}).
			AddRow("active", nil, nil))
	mock.ExpectExec(`INSERT INTO resource_applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresApplicationsRepository(db)
	err = repo.CreateForActiveResource(context.Background(), &domain.ResourceApplication{
		UserID:     "u-1",
		ResourceID: "r-1",
		Status:     domain.ApplicationSubmitted,
	}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{
			"total_users", "active_users", "total_profiles", "total_resources",
			"active_resources", "pending_resources", "total_applications",
			"submitted_applications", "under_review_applications",
		}).AddRow(10, 8, 9, 5, 3, 1, 7, 2, 1))

	repo := NewPostgresAnalyticsRepository(db)
	counts, err := repo.DashboardCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, counts.TotalUsers)
	assert.Equal(t, 3, counts.ActiveResources)
	assert.Equal(t, 2, counts.SubmittedApplications)
}
