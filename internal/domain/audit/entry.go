package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
)

// Action names an audited operation
type Action string

const (
	ActionPaymentDiscrepancy Action = "payment.discrepancy"
	ActionDailyClosing       Action = "closing.daily"
	ActionMonthlyClosing     Action = "closing.monthly"
	ActionOrderTransition    Action = "order.transition"
)

// IsValid checks if the action is known
func (a Action) IsValid() bool {
	switch a {
	case ActionPaymentDiscrepancy, ActionDailyClosing, ActionMonthlyClosing, ActionOrderTransition:
		return true
	}
	return false
}

// Entry is an append-only audit record
type Entry struct {
	ID           uuid.UUID
	Action       Action
	EntityType   string
	EntityID     uuid.UUID
	OperatorID   uuid.UUID
	OperatorRole shared.Role
	Details      map[string]any
	CreatedAt    time.Time
	// SourceEventID links entries written from domain events, for deduplication
	SourceEventID *uuid.UUID
}

// NewEntry creates an audit entry attributed to op
func NewEntry(action Action, entityType string, entityID uuid.UUID, op shared.Operator, details map[string]any) (*Entry, error) {
	if !action.IsValid() {
		return nil, shared.NewFieldValidationError("action", "unknown audit action "+string(action))
	}
	if entityID == uuid.Nil {
		return nil, shared.NewFieldValidationError("entity_id", "cannot be empty")
	}
	if details == nil {
		details = map[string]any{}
	}
	return &Entry{
		ID:           uuid.New(),
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		OperatorID:   op.ID,
		OperatorRole: op.Role,
		Details:      details,
		CreatedAt:    time.Now(),
	}, nil
}

// Repository appends and reads audit entries
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]Entry, error)
	FindByAction(ctx context.Context, action Action, filter shared.Filter) ([]Entry, error)
}
