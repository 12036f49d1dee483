package closing

import (
	"context"

	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
)

// TransactionScope runs closings atomically. Row locks taken through the
// repositories are held until fn returns.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are bound to one database transaction
type TransactionalRepositories interface {
	DailyClosingRepo() closing.DailyClosingRepository
	MonthlyClosingRepo() closing.MonthlyClosingRepository
	PaymentLedger() closing.PaymentLedger
	AuditRepo() audit.Repository
	Outbox() shared.OutboxWriter
}
