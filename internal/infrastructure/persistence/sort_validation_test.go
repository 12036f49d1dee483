package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"
)

func TestSortColumns_OrderBy(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		dir      string
		wantName string
		wantDesc bool
	}{
		{"defaults to newest first", "", "", "created_at", true},
		{"folio ascending", "folio", "asc", "folio", false},
		{"direction is case insensitive", "status", " ASC ", "status", false},
		{"finished orders newest first", "finished_at", "desc", "finished_at", true},
		{"unknown direction sorts descending", "received_at", "sideways", "received_at", true},
		{"column outside the whitelist", "customer_id", "asc", "created_at", false},
		{"injected field", "folio; DROP TABLE payments;--", "asc", "created_at", false},
		{"injected direction", "folio", "ASC; DROP TABLE payments;--", "folio", true},
		{"field names are case sensitive", "FOLIO", "", "created_at", true},
		{"padded field", "  updated_at ", "", "updated_at", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orderSort.OrderBy(tt.field, tt.dir)

			assert.Equal(t, clause.Column{Table: "orders", Name: tt.wantName}, got.Column)
			assert.Equal(t, tt.wantDesc, got.Desc)
		})
	}
}

func TestSortColumns_EveryAllowedColumnResolves(t *testing.T) {
	for _, field := range orderSort.allowed {
		assert.Equal(t, field, orderSort.OrderBy(field, "").Column.Name)
	}
}
