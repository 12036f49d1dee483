package workshop

import (
	"context"
	"fmt"

	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"go.uber.org/zap"
)

// AuditTrailHandler appends an order.transition audit entry for every
// order status change. Entries carry the source event id, so a redelivered
// event is written once.
type AuditTrailHandler struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewAuditTrailHandler creates a new AuditTrailHandler
func NewAuditTrailHandler(repo audit.Repository, logger *zap.Logger) *AuditTrailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditTrailHandler{repo: repo, logger: logger}
}

func (h *AuditTrailHandler) Name() string { return "order-audit" }

// EventTypes returns the event types this handler is interested in
func (h *AuditTrailHandler) EventTypes() []string {
	return []string{workshop.EventTypeOrderStatusChanged}
}

// Handle records an OrderStatusChangedEvent
func (h *AuditTrailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*workshop.OrderStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			workshop.EventTypeOrderStatusChanged, event.EventType())
	}

	entry, err := audit.NewEntry(audit.ActionOrderTransition, workshop.AggregateTypeOrder, e.OrderID,
		shared.Operator{ID: e.OperatorID},
		map[string]any{
			"folio": e.Folio,
			"from":  string(e.FromStatus),
			"to":    string(e.ToStatus),
		})
	if err != nil {
		return err
	}
	sourceID := e.ID
	entry.SourceEventID = &sourceID
	entry.CreatedAt = e.Timestamp

	if err := h.repo.Append(ctx, entry); err != nil {
		if shared.IsDuplicate(err) {
			h.logger.Debug("Order transition already audited", zap.String("event_id", sourceID.String()))
			return nil
		}
		return fmt.Errorf("append order transition audit: %w", err)
	}
	return nil
}

var _ shared.EventHandler = (*AuditTrailHandler)(nil)
