package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Profiles *ProfileHandler
	Resource *ResourceHandler
	Admin    *AdminHandler
	Regions  *RegionHandler
}

// NewRouter assembles the API. Public reads stay open, authenticated routes
// require a live account, and the whole /api/admin subtree sits behind the
// admin gate.
func NewRouter(m *Middleware, h Handlers) *mux.Router {
	r := mux.NewRouter()

	r.Use(m.Logging)
	r.Use(m.CORS)
	r.Use(m.Recovery)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Auth.Refresh).Methods(http.MethodPost)
	auth.Handle("/me", m.RequireAuth(http.HandlerFunc(h.Auth.Me))).Methods(http.MethodGet)
	auth.Handle("/logout", m.RequireAuth(http.HandlerFunc(h.Auth.Logout))).Methods(http.MethodPost)

	// Users
	users := api.PathPrefix("/users").Subrouter()
	users.Use(m.RequireAuth)
	users.HandleFunc("", h.Users.List).Methods(http.MethodGet)
	users.HandleFunc("/{id}", h.Users.Get).Methods(http.MethodGet)
	users.HandleFunc("/{id}", h.Users.Update).Methods(http.MethodPut)
	users.HandleFunc("/{id}", h.Users.Delete).Methods(http.MethodDelete)

	// Profiles
	profiles := api.PathPrefix("/profiles").Subrouter()
	profiles.Use(m.RequireAuth)
	profiles.HandleFunc("", h.Profiles.Create).Methods(http.MethodPost)
	profiles.HandleFunc("/me", h.Profiles.GetMine).Methods(http.MethodGet)
	profiles.HandleFunc("/me", h.Profiles.UpdateMine).Methods(http.MethodPut)
	profiles.HandleFunc("/{id}", h.Profiles.Get).Methods(http.MethodGet)

	// Resources. The public list and single-resource read take an optional
	// token; everything else requires one.
	resources := api.PathPrefix("/resources").Subrouter()
	resources.Handle("", m.OptionalAuth(http.HandlerFunc(h.Resource.List))).Methods(http.MethodGet)
	resources.Handle("", m.RequireAuth(http.HandlerFunc(h.Resource.Create))).Methods(http.MethodPost)
	resources.Handle("/applications", m.RequireAuth(http.HandlerFunc(h.Resource.ListMyApplications))).Methods(http.MethodGet)
	resources.Handle("/applications/{id}", m.RequireAuth(http.HandlerFunc(h.Resource.GetApplication))).Methods(http.MethodGet)
	resources.Handle("/{id}", m.OptionalAuth(http.HandlerFunc(h.Resource.Get))).Methods(http.MethodGet)
	resources.Handle("/{id}", m.RequireAuth(http.HandlerFunc(h.Resource.Update))).Methods(http.MethodPut)
	resources.Handle("/{id}", m.RequireAuth(http.HandlerFunc(h.Resource.Delete))).Methods(http.MethodDelete)
	resources.Handle("/{id}/apply", m.RequireAuth(http.HandlerFunc(h.Resource.Apply))).Methods(http.MethodPost)

	// Regions. Reads are public reference data; writes are admin only and
	// gated inside the service.
	regions := api.PathPrefix("/regions").Subrouter()
	regions.HandleFunc("", h.Regions.List).Methods(http.MethodGet)
	regions.Handle("", m.RequireAuth(http.HandlerFunc(h.Regions.Create))).Methods(http.MethodPost)
	regions.HandleFunc("/{id}", h.Regions.Get).Methods(http.MethodGet)
	regions.Handle("/{id}", m.RequireAuth(http.HandlerFunc(h.Regions.Update))).Methods(http.MethodPut)
	regions.HandleFunc("/{id}/hierarchy", h.Regions.Hierarchy).Methods(http.MethodGet)
	regions.HandleFunc("/{id}/children", h.Regions.Children).Methods(http.MethodGet)

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(m.RequireAdmin)
	admin.HandleFunc("/dashboard", h.Admin.Dashboard).Methods(http.MethodGet)
	admin.HandleFunc("/analytics/users", h.Admin.UserAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/analytics/resources", h.Admin.ResourceAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/verify", h.Admin.VerifyUser).Methods(http.MethodPut)
	admin.HandleFunc("/resources/pending", h.Admin.PendingResources).Methods(http.MethodGet)
	admin.HandleFunc("/resources/{id}/approve", h.Admin.ApproveResource).Methods(http.MethodPut)
	admin.HandleFunc("/applications/pending", h.Admin.PendingApplications).Methods(http.MethodGet)
	admin.HandleFunc("/applications/{id}/review", h.Admin.ReviewApplication).Methods(http.MethodPut)
	admin.HandleFunc("/export/users", h.Admin.ExportUsers).Methods(http.MethodGet)
	admin.HandleFunc("/export/resources", h.Admin.ExportResources).Methods(http.MethodGet)
	admin.HandleFunc("/regions/{id}/sync-statistics", h.Admin.SyncRegionStatistics).Methods(http.MethodPost)

	return r
}
