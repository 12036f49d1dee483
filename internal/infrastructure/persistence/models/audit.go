package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/shared"
)

// AuditEntryModel is an append-only audit row
type AuditEntryModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key"`
	Action        audit.Action   `gorm:"type:varchar(50);not null;index"`
	EntityType    string         `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	OperatorID    uuid.UUID      `gorm:"type:uuid;not null"`
	OperatorRole  shared.Role    `gorm:"type:varchar(20);not null"`
	Details       map[string]any `gorm:"type:jsonb;serializer:json;not null"`
	SourceEventID *uuid.UUID     `gorm:"type:uuid;uniqueIndex"`
	CreatedAt     time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the persistence model to a domain audit Entry
func (m *AuditEntryModel) ToDomain() audit.Entry {
	return audit.Entry{
		ID:            m.ID,
		Action:        m.Action,
		EntityType:    m.EntityType,
		EntityID:      m.EntityID,
		OperatorID:    m.OperatorID,
		OperatorRole:  m.OperatorRole,
		Details:       m.Details,
		CreatedAt:     m.CreatedAt,
		SourceEventID: m.SourceEventID,
	}
}

// AuditEntryModelFromDomain creates a new persistence model from a domain audit Entry
func AuditEntryModelFromDomain(e *audit.Entry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:            e.ID,
		Action:        e.Action,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		OperatorID:    e.OperatorID,
		OperatorRole:  e.OperatorRole,
		Details:       e.Details,
		SourceEventID: e.SourceEventID,
		CreatedAt:     e.CreatedAt,
	}
}
