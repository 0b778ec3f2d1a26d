package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/policy"
	"povertyline/internal/service"
)

type ResourceHandler struct {
	resources    service.ResourceService
	applications service.ApplicationService
	logger       *zap.Logger
}

func NewResourceHandler(resources service.ResourceService, applications service.ApplicationService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, applications: applications, logger: logger}
}

// resourceBody is the wire shape for resource writes.
type resourceBody struct {
	Title               *string         `json:"title"`
	Description         *string         `json:"description"`
	Category            *string         `json:"category"`
	ProviderName        *string         `json:"provider_name"`
	ProviderContact     json.RawMessage `json:"provider_contact"`
	Location            json.RawMessage `json:"location"`
	EligibilityCriteria json.RawMessage `json:"eligibility_criteria"`
	ApplicationProcess  *string         `json:"application_process"`
	RequiredDocuments   json.RawMessage `json:"required_documents"`
	Capacity            *int64          `json:"capacity"`
	Availability        json.RawMessage `json:"availability"`
	StartDate           *string         `json:"start_date"`
	EndDate             *string         `json:"end_date"`
	Status              *string         `json:"status"`
}

func (b resourceBody) toInput() service.ResourceInput {
	in := service.ResourceInput{
		Title:              b.Title,
		Description:        b.Description,
		Category:           b.Category,
		ProviderName:       b.ProviderName,
		ApplicationProcess: b.ApplicationProcess,
		Capacity:           b.Capacity,
		StartDate:          b.StartDate,
		EndDate:            b.EndDate,
		Status:             b.Status,
	}
	setRaw := func(dst **string, raw json.RawMessage) {
		if len(raw) > 0 {
			s := string(raw)
			*dst = &s
		}
	}
	setRaw(&in.ProviderContact, b.ProviderContact)
	setRaw(&in.Location, b.Location)
	setRaw(&in.EligibilityCriteria, b.EligibilityCriteria)
	setRaw(&in.RequiredDocuments, b.RequiredDocuments)
	setRaw(&in.Availability, b.Availability)
	return in
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.resources.ListResources(r.Context(), service.ListResourcesRequest{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     pageParams(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	list := make([]map[string]any, 0, len(resp.Resources))
	for _, res := range resp.Resources {
		list = append(list, res.ToJSON())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": list,
		"total":     resp.Meta.Total,
		"pages":     resp.Meta.Pages,
		"page":      resp.Meta.Page,
		"per_page":  resp.Meta.PerPage,
	})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	var actorPtr *policy.Actor
	if actor, ok := actorFrom(r.Context()); ok {
		actorPtr = &actor
	}
	resource, err := h.resources.GetResource(r.Context(), actorPtr, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": resource.ToJSON()})
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body resourceBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	resource, err := h.resources.CreateResource(r.Context(), actor, body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Resource created successfully",
		"resource": resource.ToJSON(),
	})
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body resourceBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	resource, err := h.resources.UpdateResource(r.Context(), actor, mux.Vars(r)["id"], body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Resource updated successfully",
		"resource": resource.ToJSON(),
	})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	if err := h.resources.DeleteResource(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Resource deleted successfully"})
}

func (h *ResourceHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body struct {
		NeedLevel       string          `json:"need_level"`
		Reason          string          `json:"reason"`
		ApplicationData json.RawMessage `json:"application_data"`
		Documents       json.RawMessage `json:"documents"`
		Notes           string          `json:"notes"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	app, err := h.applications.Apply(r.Context(), actor, service.ApplyRequest{
		ResourceID:      mux.Vars(r)["id"],
		NeedLevel:       body.NeedLevel,
		Reason:          body.Reason,
		ApplicationData: rawJSON(body.ApplicationData),
		Documents:       rawJSON(body.Documents),
		Notes:           body.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Application submitted successfully",
		"application": app.ToJSON(),
	})
}

func (h *ResourceHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	app, err := h.applications.GetApplication(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": app.ToJSON()})
}

func (h *ResourceHandler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	apps, meta, err := h.applications.ListMyApplications(r.Context(), actor, pageParams(r))
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
