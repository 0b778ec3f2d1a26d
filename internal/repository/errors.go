package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"povertyline/internal/apperr"
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// translateNotFound maps sql.ErrNoRows to a not_found error and wraps
// everything else as internal.
func translateNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(fmt.Sprintf("%s not found", what))
	}
	return apperr.New(apperr.CodeInternal, fmt.Sprintf("query %s: %v", what, err))
}
