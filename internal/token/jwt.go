package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"povertyline/internal/apperr"
)

// Token types carried in the claims. Refresh tokens are only accepted by the
// refresh endpoint; access tokens everywhere else.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the JWT payload for both token types.
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager signs and validates HMAC tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) generate(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// GenerateAccessToken issues a short-lived access token for the user.
func (m *Manager) GenerateAccessToken(userID string) (string, error) {
	return m.generate(userID, TypeAccess, m.accessTTL)
}

// GenerateRefreshToken issues a long-lived refresh token for the user.
func (m *Manager) GenerateRefreshToken(userID string) (string, error) {
	return m.generate(userID, TypeRefresh, m.refreshTTL)
}

// Validate parses the token, checks the signature and expiry, and requires
// the claims to carry the expected token type.
func (m *Manager) Validate(tokenString, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid or expired token")
	}
	if claims.TokenType != wantType {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid token type")
	}
	if claims.UserID == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid token claims")
	}
	return claims, nil
}
