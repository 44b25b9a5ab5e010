package models

// Pagination describes one page of an offset-paginated listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination builds pagination metadata for a listing of total rows.
// TotalPages is ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder normalizes a sort order string, defaulting to asc.
func ParseSortOrder(s string) SortOrder {
	if s == "desc" {
		return SortDesc
	}
	return SortAsc
}
