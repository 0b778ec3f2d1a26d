package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"povertyline/internal/apperr"
	"povertyline/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the error as {"error": message} plus any detail fields
// the error carries (conflict responses include the blocking application).
func writeError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	if e, ok := apperr.From(err); ok {
		for k, v := range e.Details {
			body[k] = v
		}
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// pageParams reads page/per_page from the query string. Out-of-range values
// are clamped by Normalize downstream.
func pageParams(r *http.Request) models.PageParams {
	q := r.URL.Query()
	return models.PageParams{
		Page:    parseInt(q.Get("page"), 1),
		PerPage: parseInt(q.Get("per_page"), 20),
	}
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return apperr.Invalid("Invalid request body")
	}
	if len(body) == 0 {
		return apperr.Invalid("Request body required")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Invalid("Invalid JSON in request body")
	}
	return nil
}

const maxBodyBytes = 1 << 20

// rawJSON renders an optional raw JSON field as its text, empty when absent.
func rawJSON(m json.RawMessage) string {
	if len(m) == 0 {
		return ""
	}
	return string(m)
}
