package shared

import "maps"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is the list query handed to repositories. Filters holds exact-match
// conditions by key; each repository decides which keys it honours.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// DefaultFilter is the first page, newest first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Where returns a copy of f with one more exact-match condition
func (f Filter) Where(key string, value any) Filter {
	filters := make(map[string]any, len(f.Filters)+1)
	maps.Copy(filters, f.Filters)
	filters[key] = value
	f.Filters = filters
	return f
}

func (f Filter) Offset() int {
	return (max(f.Page, 1) - 1) * f.Limit()
}

// Limit is the page size bounded to 1..MaxPageSize
func (f Filter) Limit() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return min(f.PageSize, MaxPageSize)
}
