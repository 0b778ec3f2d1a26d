package domain

import (
	"time"
)

// UserRole is the closed set of roles.
type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

// ParseUserRole rejects unknown role values instead of defaulting.
func ParseUserRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleUser, RoleProvider, RoleAdmin:
		return UserRole(s), true
	}
	return "", false
}

// VerificationStatus is the closed set of account verification states.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// ParseVerificationStatus rejects unknown values.
func ParseVerificationStatus(s string) (VerificationStatus, bool) {
	switch VerificationStatus(s) {
	case VerificationUnverified, VerificationPending, VerificationVerified, VerificationRejected:
		return VerificationStatus(s), true
	}
	return "", false
}

// User domain model (users table).
// PasswordHash is write-only: it is never included in ToJSON.
type User struct {
	ID                 string             `db:"id"`
	Username           string             `db:"username"`
	Email              string             `db:"email"`
	PasswordHash       string             `db:"password_hash"`
	Role               UserRole           `db:"role"`
	VerificationStatus VerificationStatus `db:"verification_status"`
	IsActive           bool               `db:"is_active"`
	CreatedAt          time.Time          `db:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at"`
}

// ToJSON renders the user for API responses without credential material.
func (u *User) ToJSON() map[string]any {
	return map[string]any{
		"id":                  u.ID,
		"username":            u.Username,
		"email":               u.Email,
		"role":                string(u.Role),
		"verification_status": string(u.VerificationStatus),
		"is_active":           u.IsActive,
		"created_at":          u.CreatedAt.Format(time.RFC3339),
		"updated_at":          u.UpdatedAt.Format(time.RFC3339),
	}
}
