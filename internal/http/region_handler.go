package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/service"
)

type RegionHandler struct {
	regions service.RegionService
	logger  *zap.Logger
}

func NewRegionHandler(regions service.RegionService, logger *zap.Logger) *RegionHandler {
	return &RegionHandler{regions: regions, logger: logger}
}

type regionBody struct {
	Name        *string         `json:"name"`
	Code        *string         `json:"code"`
	Type        *string         `json:"region_type"`
	ParentID    *string         `json:"parent_id"`
	GeoBoundary json.RawMessage `json:"geo_boundary"`
	IsActive    *bool           `json:"is_active"`
}

func (b regionBody) toInput() service.RegionInput {
	in := service.RegionInput{
		Name:     b.Name,
		Code:     b.Code,
		Type:     b.Type,
		ParentID: b.ParentID,
		IsActive: b.IsActive,
	}
	if len(b.GeoBoundary) > 0 {
		s := string(b.GeoBoundary)
		in.GeoBoundary = &s
	}
	return in
}

func regionList(regions []*domain.Region) []map[string]any {
	list := make([]map[string]any, 0, len(regions))
	for _, reg := range regions {
		list = append(list, reg.ToJSON())
	}
	return list
}

func (h *RegionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	regions, meta, err := h.regions.ListRegions(r.Context(), service.ListRegionsRequest{
		Type:     q.Get("type"),
		ParentID: q.Get("parent_id"),
		Search:   q.Get("search"),
		Page:     pageParams(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"regions":  regionList(regions),
		"total":    meta.Total,
		"pages":    meta.Pages,
		"page":     meta.Page,
		"per_page": meta.PerPage,
	})
}

func (h *RegionHandler) Get(w http.ResponseWriter, r *http.Request) {
	region, err := h.regions.GetRegion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"region": region.ToJSON()})
}

func (h *RegionHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	chain, err := h.regions.GetHierarchy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hierarchy": regionList(chain)})
}

func (h *RegionHandler) Children(w http.ResponseWriter, r *http.Request) {
	children, err := h.regions.ListChildren(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regionList(children)})
}

func (h *RegionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body regionBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	region, err := h.regions.CreateRegion(r.Context(), actor, body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Region created successfully",
		"region":  region.ToJSON(),
	})
}

func (h *RegionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Authentication required"))
		return
	}

	var body regionBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, err)
		return
	}

	region, err := h.regions.UpdateRegion(r.Context(), actor, mux.Vars(r)["id"], body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Region updated successfully",
		"region":  region.ToJSON(),
	})
}
