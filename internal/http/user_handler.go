package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/service"
)

type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	q := r.URL.Query()
	resp, err := h.users.ListUsers(r.Context(), actor, service.ListUsersRequest{
		Role:               q.Get("role"),
		VerificationStatus: q.Get("verification_status"),
		Search:             q.Get("search"),
		Page:               pageParams(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	list := make([]map[string]any, 0, len(resp.Users))
	for _, u := range resp.Users {
		list = append(list, u.ToJSON())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":    list,
		"total":    resp.Meta.Total,
		"pages":    resp.Meta.Pages,
		"page":     resp.Meta.Page,
		"per_page": resp.Meta.PerPage,
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	user, err := h.users.GetUser(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user.ToJSON()})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body struct {
		Username           *string `json:"username"`
		Email              *string `json:"email"`
		Role               *string `json:"role"`
		IsActive           *bool   `json:"is_active"`
		VerificationStatus *string `json:"verification_status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), actor, service.UpdateUserRequest{
		UserID:             mux.Vars(r)["id"],
		Username:           body.Username,
		Email:              body.Email,
		Role:               body.Role,
		IsActive:           body.IsActive,
		VerificationStatus: body.VerificationStatus,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    user.ToJSON(),
	})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	if err := h.users.DeleteUser(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted successfully"})
}
