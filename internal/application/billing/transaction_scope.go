package billing

import (
	"context"

	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
)

// TransactionScope runs payment commands atomically
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are bound to one database transaction.
// DailyClosingRepo is only used to take the shared lock on the payment's day.
type TransactionalRepositories interface {
	OrderRepo() workshop.OrderRepository
	PaymentRepo() billing.PaymentRepository
	DailyClosingRepo() closing.DailyClosingRepository
	AuditRepo() audit.Repository
	Outbox() shared.OutboxWriter
}
