package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/policy"
	"povertyline/internal/repository"
	"povertyline/internal/token"
)

type ctxKey string

const ctxActor ctxKey = "actor"

// actorFrom returns the authenticated actor, if any.
func actorFrom(ctx context.Context) (policy.Actor, bool) {
	a, ok := ctx.Value(ctxActor).(policy.Actor)
	return a, ok
}

// Middleware bundles the request middleware. Authentication resolves the
// bearer token to a live account so disabled users lose access immediately,
// not at token expiry.
type Middleware struct {
	tokens    *token.Manager
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewMiddleware(tokens *token.Manager, usersRepo repository.UsersRepository, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, usersRepo: usersRepo, logger: logger}
}

func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		m.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered",
					zap.Any("err", err),
					zap.String("path", r.URL.Path),
				)
				writeError(w, apperr.New(apperr.CodeInternal, "Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// resolveActor validates the bearer token and loads the account. It returns
// false when there is no usable credential.
func (m *Middleware) resolveActor(r *http.Request) (policy.Actor, *http.Request, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return policy.Actor{}, r, false
	}
	claims, err := m.tokens.Validate(strings.TrimPrefix(header, "Bearer "), token.TypeAccess)
	if err != nil {
		return policy.Actor{}, r, false
	}
	user, err := m.usersRepo.GetByID(r.Context(), claims.UserID)
	if err != nil || !user.IsActive {
		return policy.Actor{}, r, false
	}
	actor := policy.Actor{ID: user.ID, Role: user.Role, IsActive: user.IsActive}
	return actor, r.WithContext(context.WithValue(r.Context(), ctxActor, actor)), true
}

// RequireAuth rejects requests without a valid access token for a live
// account.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, r, ok := m.resolveActor(r)
		if !ok {
			writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth attaches the actor when a valid token is present but lets
// anonymous requests through.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, r, _ = m.resolveActor(r)
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates the admin subtree: 401 without a credential, 403 for
// non-admins.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, r, ok := m.resolveActor(r)
		if !ok {
			writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
			return
		}
		if !actor.IsAdmin() {
			writeError(w, apperr.New(apperr.CodeForbidden, "Admin privileges required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
