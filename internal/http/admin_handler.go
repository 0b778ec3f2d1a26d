package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/policy"
	"povertyline/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler serves the /api/admin subtree. The router gates every route
// here behind the admin middleware; handlers still pass the actor down so
// services make their own policy checks.
type AdminHandler struct {
	admin        service.AdminService
	users        service.UserService
	resources    service.ResourceService
	applications service.ApplicationService
	regions      service.RegionService
	exports      service.ExportService
	logger       *zap.Logger
}

func NewAdminHandler(
	admin service.AdminService,
	users service.UserService,
	resources service.ResourceService,
	applications service.ApplicationService,
	regions service.RegionService,
	exports service.ExportService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		admin:        admin,
		users:        users,
		resources:    resources,
		applications: applications,
		regions:      regions,
		exports:      exports,
		logger:       logger,
	}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	payload, err := h.admin.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *AdminHandler) UserAnalytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	payload, err := h.admin.UserAnalytics(r.Context(), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *AdminHandler) ResourceAnalytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	payload, err := h.admin.ResourceAnalytics(r.Context(), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *AdminHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.VerifyUser(r.Context(), actor, mux.Vars(r)["id"], body.VerificationStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	h.admin.InvalidateDashboard(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User verification status updated",
		"user":    user.ToJSON(),
	})
}

func (h *AdminHandler) PendingResources(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	resources, meta, err := h.resources.ListPendingResources(r.Context(), actor, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}

	list := make([]map[string]any, 0, len(resources))
	for _, res := range resources {
		list = append(list, res.ToJSON())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": list,
		"total":     meta.Total,
		"pages":     meta.Pages,
		"page":      meta.Page,
		"per_page":  meta.PerPage,
	})
}

func (h *AdminHandler) ApproveResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	resource, err := h.resources.ApproveResource(r.Context(), actor, mux.Vars(r)["id"], body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	h.admin.InvalidateDashboard(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Resource %s", resource.Status),
		"resource": resource.ToJSON(),
	})
}

func (h *AdminHandler) PendingApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	apps, meta, err := h.applications.ListPendingApplications(r.Context(), actor, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}

	list := make([]map[string]any, 0, len(apps))
	for _, a := range apps {
		list = append(list, a.ToJSON())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applications": list,
		"total":        meta.Total,
		"pages":        meta.Pages,
		"page":         meta.Page,
		"per_page":     meta.PerPage,
	})
}

func (h *AdminHandler) ReviewApplication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body struct {
		Status     string `json:"status"`
		Reason     string `json:"reason"`
		AdminNotes string `json:"admin_notes"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	app, err := h.applications.ReviewApplication(r.Context(), actor, service.ReviewRequest{
		ApplicationID: mux.Vars(r)["id"],
		Status:        body.Status,
		Reason:        body.Reason,
		AdminNotes:    body.AdminNotes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.admin.InvalidateDashboard(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     fmt.Sprintf("Application %s", app.Status),
		"application": app.ToJSON(),
	})
}

func (h *AdminHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, h.exports.ExportUsers)
}

func (h *AdminHandler) ExportResources(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, h.exports.ExportResources)
}

type exportFunc func(ctx context.Context, actor policy.Actor, format string) (*service.ExportResult, error)

func (h *AdminHandler) export(w http.ResponseWriter, r *http.Request, run exportFunc) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	result, err := run(r.Context(), actor, r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Workbook != nil {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Workbook)
		return
	}
	writeJSON(w, http.StatusOK, result.JSON)
}

func (h *AdminHandler) SyncRegionStatistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	region, err := h.regions.SyncStatistics(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Region statistics updated",
		"region":  region.ToJSON(),
	})
}
