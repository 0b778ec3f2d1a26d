package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"povertyline/internal/repository"
	"povertyline/internal/service"
	"povertyline/internal/store"
	"povertyline/internal/token"
)

type apiFixture struct {
	router http.Handler
	mem    *repository.Memory
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	kv := store.NewRedisKV(client)

	mem := repository.NewMemory()
	logger := zap.NewNop()
	tokens := token.NewManager("test-secret", time.Hour, 24*time.Hour)

	authSvc := service.NewAuthService(mem.Users, tokens, logger)
	userSvc := service.NewUserService(mem.Users, logger)
	profileSvc := service.NewProfileService(mem.Profiles, logger)
	resourceSvc := service.NewResourceService(mem.Resources, logger)
	applicationSvc := service.NewApplicationService(mem.Applications, mem.Resources, logger)
	adminSvc := service.NewAdminService(mem.Analytics, mem.Users, mem.Resources, mem.Applications, kv, logger)
	regionSvc := service.NewRegionService(mem.Regions, failingStatsFetcher{}, logger)
	exportSvc := service.NewExportService(mem.Users, mem.Resources, logger)

	mw := NewMiddleware(tokens, mem.Users, logger)
	router := NewRouter(mw, Handlers{
		Auth:     NewAuthHandler(authSvc, logger),
		Users:    NewUserHandler(userSvc, logger),
		Profiles: NewProfileHandler(profileSvc, logger),
		Resource: NewResourceHandler(resourceSvc, applicationSvc, logger),
		Admin:    NewAdminHandler(adminSvc, userSvc, resourceSvc, applicationSvc, regionSvc, exportSvc, logger),
		Regions:  NewRegionHandler(regionSvc, logger),
	})
	return &apiFixture{router: router, mem: mem}
}

type failingStatsFetcher struct{}

func (failingStatsFetcher) FetchStatistics(context.Context, string) (*repository.RegionStatistics, error) {
	return nil, assert.AnError
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// register creates an account through the API and returns the access token
// and user id.
func (f *apiFixture) register(t *testing.T, username, role string) (accessToken, userID string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "Str0ng!pass",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	return body["access_token"].(string), user["id"].(string)
}

// promoteToAdmin flips the role directly in storage; self-service
// registration never grants admin.
func (f *apiFixture) promoteToAdmin(t *testing.T, userID string) {
	t.Helper()
	user, err := f.mem.Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	user.Role = "admin"
	require.NoError(t, f.mem.Users.Update(context.Background(), user))
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Str0ng!pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decodeBody(t, rec)
	assert.Equal(t, "User registered successfully", registered["message"])
	refreshToken := registered["refresh_token"].(string)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "Str0ng!pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody(t, rec)
	assert.Equal(t, "Login successful", login["message"])
	access := login["access_token"].(string)

	rec = f.do(t, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "alice", me["user"].(map[string]any)["username"])

	rec = f.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["access_token"])

	// wrong password
	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decodeBody(t, rec)["error"])

	// me without a token
	rec = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, rec)["error"])
}

func TestResourceLifecycleOverAPI(t *testing.T) {
	f := newAPIFixture(t)

	providerToken, _ := f.register(t, "prov", "provider")
	adminToken, adminID := f.register(t, "boss", "")
	f.promoteToAdmin(t, adminID)
	userToken, _ := f.register(t, "alice", "")

	// provider submits a resource; it lands in pending
	rec := f.do(t, http.MethodPost, "/api/resources", providerToken, map[string]any{
		"title":         "Food Pantry",
		"description":   "Weekly groceries",
		"category":      "food",
		"provider_name": "Community Center",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	resource := created["resource"].(map[string]any)
	resourceID := resource["id"].(string)
	assert.Equal(t, "pending", resource["status"])

	// pending resources are hidden from the public list
	rec = f.do(t, http.MethodGet, "/api/resources", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["resources"])

	// plain users cannot create resources
	rec = f.do(t, http.MethodPost, "/api/resources", userToken, map[string]any{
		"title": "x", "description": "y", "category": "food", "provider_name": "z",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// admin approves
	rec = f.do(t, http.MethodPut, "/api/admin/resources/"+resourceID+"/approve", adminToken, map[string]any{
		"status": "active",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeBody(t, rec)
	assert.Equal(t, "Resource active", approved["message"])

	// now public
	rec = f.do(t, http.MethodGet, "/api/resources", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody(t, rec)
	assert.Len(t, listed["resources"], 1)
	assert.EqualValues(t, 1, listed["total"])
}

func TestApplyOverAPI(t *testing.T) {
	f := newAPIFixture(t)

	providerToken, _ := f.register(t, "prov", "provider")
	adminToken, adminID := f.register(t, "boss", "")
	f.promoteToAdmin(t, adminID)
	userToken, _ := f.register(t, "alice", "")

	rec := f.do(t, http.MethodPost, "/api/resources", providerToken, map[string]any{
		"title":         "Food Pantry",
		"description":   "Weekly groceries",
		"category":      "food",
		"provider_name": "Community Center",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	resourceID := decodeBody(t, rec)["resource"].(map[string]any)["id"].(string)

	rec = f.do(t, http.MethodPut, "/api/admin/resources/"+resourceID+"/approve", adminToken, map[string]any{
		"status": "active",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/resources/"+resourceID+"/apply", userToken, map[string]any{
		"need_level": "high",
		"reason":     "Lost income",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	applied := decodeBody(t, rec)
	assert.Equal(t, "Application submitted successfully", applied["message"])
	applicationID := applied["application"].(map[string]any)["id"].(string)

	// duplicate application conflicts and names the blocker
	rec = f.do(t, http.MethodPost, "/api/resources/"+resourceID+"/apply", userToken, map[string]any{
		"need_level": "high",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decodeBody(t, rec)
	assert.Equal(t, "You already have an active application for this resource", conflict["error"])
	assert.Equal(t, applicationID, conflict["application_id"])
	assert.Equal(t, "submitted", conflict["status"])

	// applicant and provider can read it, admin reviews it
	rec = f.do(t, http.MethodGet, "/api/resources/applications/"+applicationID, userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/resources/applications/"+applicationID, providerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/admin/applications/"+applicationID+"/review", adminToken, map[string]any{
		"status": "approved",
		"reason": "Meets criteria",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reviewed := decodeBody(t, rec)
	assert.Equal(t, "Application approved", reviewed["message"])
}

func TestAdminGate(t *testing.T) {
	f := newAPIFixture(t)

	userToken, _ := f.register(t, "alice", "")

	// no token
	rec := f.do(t, http.MethodGet, "/api/admin/dashboard", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, rec)["error"])

	// non-admin token
	rec = f.do(t, http.MethodGet, "/api/admin/dashboard", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin privileges required", decodeBody(t, rec)["error"])
}

func TestDashboardOverAPI(t *testing.T) {
	f := newAPIFixture(t)

	adminToken, adminID := f.register(t, "boss", "")
	f.promoteToAdmin(t, adminID)

	rec := f.do(t, http.MethodGet, "/api/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dashboard := decodeBody(t, rec)
	summary := dashboard["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["users"])

	rec = f.do(t, http.MethodGet, "/api/admin/analytics/users?period=week", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/analytics/users?period=decade", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid period", decodeBody(t, rec)["error"])
}

func TestProfileOverAPI(t *testing.T) {
	f := newAPIFixture(t)

	userToken, _ := f.register(t, "alice", "")

	rec := f.do(t, http.MethodPost, "/api/profiles", userToken, map[string]any{
		"first_name":   "Alice",
		"last_name":    "Nguyen",
		"phone_number": "+15551234567",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.Equal(t, "Profile created successfully", created["message"])

	// second create conflicts
	rec = f.do(t, http.MethodPost, "/api/profiles", userToken, map[string]any{
		"first_name": "Alice",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already has a profile", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/api/profiles/me", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody(t, rec)["profile"].(map[string]any)
	assert.Equal(t, "Alice", profile["first_name"])
}

func TestRegionsOverAPI(t *testing.T) {
	f := newAPIFixture(t)

	adminToken, adminID := f.register(t, "boss", "")
	f.promoteToAdmin(t, adminID)
	userToken, _ := f.register(t, "alice", "")

	rec := f.do(t, http.MethodPost, "/api/regions", adminToken, map[string]any{
		"name":        "United States",
		"code":        "US",
		"region_type": "country",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	regionID := decodeBody(t, rec)["region"].(map[string]any)["id"].(string)

	// writes are admin only
	rec = f.do(t, http.MethodPost, "/api/regions", userToken, map[string]any{
		"name": "Elsewhere", "region_type": "country",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// reads are public
	rec = f.do(t, http.MethodGet, "/api/regions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["regions"], 1)

	rec = f.do(t, http.MethodGet, "/api/regions/"+regionID+"/hierarchy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["hierarchy"], 1)
}
