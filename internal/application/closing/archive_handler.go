package closing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const snapshotContentType = "application/json"

// SnapshotStore is where closing snapshots are written. PutIfAbsent leaves
// an existing object untouched and reports whether it wrote data.
type SnapshotStore interface {
	PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (bool, error)
}

// Snapshot is the archived JSON document of a closing
type Snapshot struct {
	Kind         string               `json:"kind"`
	ClosingID    uuid.UUID            `json:"closing_id"`
	BusinessDate *shared.Date         `json:"business_date,omitempty"`
	YearMonth    *shared.YearMonth    `json:"year_month,omitempty"`
	Totals       closing.MethodTotals `json:"totals"`
	TotalIncome  decimal.Decimal      `json:"total_income"`
	PaymentCount int                  `json:"payment_count"`
	DaysClosed   int                  `json:"days_closed,omitempty"`
	ClosedBy     uuid.UUID            `json:"closed_by"`
	ClosedAt     time.Time            `json:"closed_at"`
	EventID      uuid.UUID            `json:"event_id"`
}

// DailySnapshotKey is the object key of a daily closing snapshot
func DailySnapshotKey(date shared.Date) string {
	return "closings/daily/" + date.String() + ".json"
}

// MonthlySnapshotKey is the object key of a monthly closing snapshot
func MonthlySnapshotKey(ym shared.YearMonth) string {
	return "closings/monthly/" + ym.String() + ".json"
}

// ArchiveHandler writes a JSON snapshot of every closed day and month to
// object storage. Closings are immutable, so an existing snapshot is kept.
type ArchiveHandler struct {
	store  SnapshotStore
	logger *zap.Logger
}

// NewArchiveHandler creates a new ArchiveHandler
func NewArchiveHandler(store SnapshotStore, logger *zap.Logger) *ArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveHandler{store: store, logger: logger}
}

// Name namespaces the handler's idempotency keys
func (h *ArchiveHandler) Name() string { return "closing-archive" }

// EventTypes subscribes to the whole closing family
func (h *ArchiveHandler) EventTypes() []string {
	return []string{shared.FamilySubscription(closing.EventFamily)}
}

// Handle archives a DailyClosed or MonthlyClosed event
func (h *ArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var key string
	var snap Snapshot
	var base shared.BaseDomainEvent

	switch e := event.(type) {
	case *closing.DailyClosedEvent:
		date := e.BusinessDate
		key = DailySnapshotKey(date)
		base = e.BaseDomainEvent
		snap = Snapshot{
			Kind:         "daily",
			ClosingID:    e.ClosingID,
			BusinessDate: &date,
			Totals:       e.Totals,
			TotalIncome:  e.TotalIncome,
			PaymentCount: e.PaymentCount,
		}
	case *closing.MonthlyClosedEvent:
		ym := e.YearMonth
		key = MonthlySnapshotKey(ym)
		base = e.BaseDomainEvent
		snap = Snapshot{
			Kind:         "monthly",
			ClosingID:    e.ClosingID,
			YearMonth:    &ym,
			Totals:       e.Totals,
			TotalIncome:  e.TotalIncome,
			PaymentCount: e.PaymentCount,
			DaysClosed:   e.DaysClosed,
		}
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	snap.ClosedBy = base.OperatorID
	snap.ClosedAt = base.Timestamp.UTC()
	snap.EventID = base.ID

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	created, err := h.store.PutIfAbsent(ctx, key, data, snapshotContentType)
	if err != nil {
		return fmt.Errorf("archive snapshot %s: %w", key, err)
	}
	if !created {
		h.logger.Debug("Closing snapshot already archived", zap.String("key", key))
		return nil
	}

	h.logger.Info("Closing snapshot archived",
		zap.String("key", key),
		zap.String("closing_id", snap.ClosingID.String()),
		zap.String("total_income", snap.TotalIncome.StringFixed(2)),
	)
	return nil
}

var _ shared.EventHandler = (*ArchiveHandler)(nil)
