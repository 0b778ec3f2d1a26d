package models

// Pagination defaults and limits shared by all list endpoints.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PageParams is the normalized pagination input of a list request.
type PageParams struct {
	Page    int
	PerPage int
}

// Normalize clamps out-of-range values to the defaults and the cap.
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the SQL offset for the normalized params.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageMeta is the pagination envelope attached to list responses.
type PageMeta struct {
	Total   int `json:"total"`
	Pages   int `json:"pages"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// NewPageMeta computes the envelope for a total row count. Pages is zero when
// the result set is empty.
func NewPageMeta(params PageParams, total int) PageMeta {
	pages := 0
	if total > 0 {
		pages = (total + params.PerPage - 1) / params.PerPage
	}
	return PageMeta{
		Total:   total,
		Pages:   pages,
		Page:    params.Page,
		PerPage: params.PerPage,
	}
}
