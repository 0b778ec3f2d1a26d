package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/service"
)

type ProfileHandler struct {
	profiles service.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// profileBody is the wire shape for profile writes. JSON blob fields stay raw
// and are stored as JSONB text.
type profileBody struct {
	FirstName           *string         `json:"first_name"`
	LastName            *string         `json:"last_name"`
	DateOfBirth         *string         `json:"date_of_birth"`
	Gender              *string         `json:"gender"`
	PhoneNumber         *string         `json:"phone_number"`
	Address             *string         `json:"address"`
	LocationCoordinates json.RawMessage `json:"location_coordinates"`
	EducationLevel      *string         `json:"education_level"`
	EducationHistory    json.RawMessage `json:"education_history"`
	EmploymentStatus    *string         `json:"employment_status"`
	EmploymentHistory   json.RawMessage `json:"employment_history"`
	Skills              json.RawMessage `json:"skills"`
	HealthInformation   json.RawMessage `json:"health_information"`
	IncomeLevel         *float64        `json:"income_level"`
	HouseholdSize       *int            `json:"household_size"`
	Dependents          *int            `json:"dependents"`
	Needs               json.RawMessage `json:"needs"`
	PrivacySettings     json.RawMessage `json:"privacy_settings"`
}

func (b profileBody) toInput() service.ProfileInput {
	in := service.ProfileInput{
		FirstName:        b.FirstName,
		LastName:         b.LastName,
		DateOfBirth:      b.DateOfBirth,
		Gender:           b.Gender,
		PhoneNumber:      b.PhoneNumber,
		Address:          b.Address,
		EducationLevel:   b.EducationLevel,
		EmploymentStatus: b.EmploymentStatus,
		IncomeLevel:      b.IncomeLevel,
		HouseholdSize:    b.HouseholdSize,
		Dependents:       b.Dependents,
	}
	setRaw := func(dst **string, raw json.RawMessage) {
		if len(raw) > 0 {
			s := string(raw)
			*dst = &s
		}
	}
	setRaw(&in.LocationCoordinates, b.LocationCoordinates)
	setRaw(&in.EducationHistory, b.EducationHistory)
	setRaw(&in.EmploymentHistory, b.EmploymentHistory)
	setRaw(&in.Skills, b.Skills)
	setRaw(&in.HealthInformation, b.HealthInformation)
	setRaw(&in.Needs, b.Needs)
	setRaw(&in.PrivacySettings, b.PrivacySettings)
	return in
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body profileBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.CreateProfile(r.Context(), actor, body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Profile created successfully",
		"profile": profile.ToJSON(),
	})
}

func (h *ProfileHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	profile, err := h.profiles.GetMyProfile(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile.ToJSON()})
}

func (h *ProfileHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body profileBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdateMyProfile(r.Context(), actor, body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"profile": profile.ToJSON(),
	})
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile.ToJSON()})
}
