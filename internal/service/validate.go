package service

import (
	"regexp"
	"unicode"

	"povertyline/internal/apperr"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^(\+\d{1,3})?[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}$`)
	specialChars = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

func validateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validatePhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

// validatePassword enforces the account password rules: at least 8 characters
// with an uppercase letter, a lowercase letter, a digit and a special
// character.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apperr.Invalid("Password must be at least 8 characters long")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper {
		return apperr.Invalid("Password must contain at least one uppercase letter")
	}
	if !hasLower {
		return apperr.Invalid("Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return apperr.Invalid("Password must contain at least one digit")
	}
	if !specialChars.MatchString(password) {
		return apperr.Invalid("Password must contain at least one special character")
	}
	return nil
}
