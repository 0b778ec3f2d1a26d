package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/repository"
	"povertyline/internal/token"
)

func newAuthFixture(t *testing.T) (AuthService, *repository.Memory, *token.Manager) {
	t.Helper()
	mem := repository.NewMemory()
	tokens := token.NewManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(mem.Users, tokens, zap.NewNop()), mem, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Str0ng!pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, domain.RoleUser, resp.User.Role)

	// login by username
	login, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	// login by email
	login, err = svc.Login(ctx, LoginRequest{Username: "alice@example.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestRegisterRoleFallback(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Username: "prov", Email: "prov@example.com", Password: "Str0ng!pass", Role: "provider",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleProvider, resp.User.Role)

	// admin cannot be self-assigned, unknown falls back to user
	for _, role := range []string{"admin", "superuser"} {
		resp, err := svc.Register(ctx, RegisterRequest{
			Username: "u_" + role, Email: role + "@example.com", Password: "Str0ng!pass", Role: role,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, resp.User.Role)
	}
}

func TestRegisterPasswordRules(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := map[string]string{
		"Sh0r!":        "Password must be at least 8 characters long",
		"alllower1!":   "Password must contain at least one uppercase letter",
		"ALLUPPER1!":   "Password must contain at least one lowercase letter",
		"NoDigits!!Ab": "Password must contain at least one digit",
		"NoSpecial1Ab": "Password must contain at least one special character",
	}
	for password, want := range cases {
		_, err := svc.Register(ctx, RegisterRequest{
			Username: "x", Email: "x@example.com", Password: password,
		})
		require.Error(t, err, password)
		assert.Equal(t, want, err.Error())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Str0ng!pass",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "Str0ng!pass",
	})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)
	assert.Equal(t, "Username or email already exists", appErr.Message)
}

func TestLoginFailures(t *testing.T) {
	svc, mem, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Str0ng!pass",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
	assert.Equal(t, "Invalid username or password", appErr.Message)

	_, err = svc.Login(ctx, LoginRequest{Username: "nobody", Password: "Str0ng!pass"})
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password", err.Error())

	// disabled account gets a distinct 403
	user, err := mem.Users.GetByID(ctx, resp.User.ID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, mem.Users.Update(ctx, user))

	_, err = svc.Login(ctx, LoginRequest{Username: "alice", Password: "Str0ng!pass"})
	require.Error(t, err)
	appErr, ok = apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
	assert.Equal(t, "Account is disabled", appErr.Message)
}

func TestRefresh(t *testing.T) {
	svc, mem, tokens := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Str0ng!pass",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	claims, err := tokens.Validate(refreshed.AccessToken, token.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	// an access token is not accepted as a refresh token
	_, err = svc.Refresh(ctx, resp.AccessToken)
	require.Error(t, err)

	// a deactivated account cannot refresh
	user, err := mem.Users.GetByID(ctx, resp.User.ID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, mem.Users.Update(ctx, user))

	_, err = svc.Refresh(ctx, resp.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "User not found or inactive", err.Error())
}
