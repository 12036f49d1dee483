package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
)

// BaseModel holds the identity and timestamp columns every table shares
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Entity rebuilds the domain identity of the row
func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the version column that repositories compare on
// update. Orders, payments and closings embed it.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// Root rebuilds the aggregate root without pending events
func (m *AggregateModel) Root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.Entity(), Version: m.Version}
}

func (m *AggregateModel) SetRoot(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
}

// dateOf reads a DATE column back as a business date
func dateOf(t time.Time) shared.Date {
	return shared.DateFromTime(t)
}
