package persistence

import (
	"slices"
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a listing may be ordered by
type sortColumns struct {
	table    string
	allowed  []string
	fallback string
}

var orderSort = sortColumns{
	table:    "orders",
	allowed:  []string{"created_at", "updated_at", "folio", "status", "received_at", "finished_at"},
	fallback: "created_at",
}

// OrderBy turns a requested field and direction into an ORDER BY column.
// Unknown fields use the fallback column; anything but asc sorts descending.
func (s sortColumns) OrderBy(field, dir string) clause.OrderByColumn {
	name := strings.TrimSpace(field)
	if !slices.Contains(s.allowed, name) {
		name = s.fallback
	}
	return clause.OrderByColumn{
		Column: clause.Column{Table: s.table, Name: name},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}
