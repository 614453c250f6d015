package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit well inside the int range.
	MaxPage          = 100000
)

// PageRequest is the page/limit pair accepted by list endpoints.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit to sane values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the row offset of the page.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination builds metadata for a normalized page request and total row count.
func NewPagination(req PageRequest, total int) *Pagination {
	n := req.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + n.Limit - 1) / n.Limit
	}
	return &Pagination{Page: n.Page, Limit: n.Limit, Total: total, Pages: pages}
}
