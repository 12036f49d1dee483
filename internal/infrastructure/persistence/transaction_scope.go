package persistence

import (
	"context"

	appbilling "github.com/workshop/backend/internal/application/billing"
	appclosing "github.com/workshop/backend/internal/application/closing"
	appworkshop "github.com/workshop/backend/internal/application/workshop"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"gorm.io/gorm"
)

// OutboxPublisher serializes domain events into the outbox table of a transaction
type OutboxPublisher interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope runs use cases inside one GORM transaction.
// The workshop, billing and closing services each see it through their own
// TransactionScope adapter.
type GormTransactionScope struct {
	db        *gorm.DB
	publisher OutboxPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, publisher OutboxPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, publisher: publisher}
}

// run executes fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) run(ctx context.Context, fn func(repos *gormTransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, publisher: s.publisher})
	})
}

// Workshop returns the scope used by the order and inspection services
func (s *GormTransactionScope) Workshop() appworkshop.TransactionScope {
	return workshopScope{s}
}

// Billing returns the scope used by the payment service
func (s *GormTransactionScope) Billing() appbilling.TransactionScope {
	return billingScope{s}
}

// Closing returns the scope used by the closing service
func (s *GormTransactionScope) Closing() appclosing.TransactionScope {
	return closingScope{s}
}

type workshopScope struct{ *GormTransactionScope }

func (s workshopScope) Execute(ctx context.Context, fn func(repos appworkshop.TransactionalRepositories) error) error {
	return s.run(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

type billingScope struct{ *GormTransactionScope }

func (s billingScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.run(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

type closingScope struct{ *GormTransactionScope }

func (s closingScope) Execute(ctx context.Context, fn func(repos appclosing.TransactionalRepositories) error) error {
	return s.run(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx        *gorm.DB
	publisher OutboxPublisher
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() workshop.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// InspectionRepo returns the inspection repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InspectionRepo() workshop.InspectionRepository {
	return NewGormInspectionRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// PaymentLedger returns the payment ledger scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentLedger() closing.PaymentLedger {
	return NewGormPaymentLedger(r.tx)
}

// DailyClosingRepo returns the daily closing repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DailyClosingRepo() closing.DailyClosingRepository {
	return NewGormDailyClosingRepository(r.tx)
}

// MonthlyClosingRepo returns the monthly closing repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MonthlyClosingRepo() closing.MonthlyClosingRepository {
	return NewGormMonthlyClosingRepository(r.tx)
}

// AuditRepo returns the audit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AuditRepo() audit.Repository {
	return NewGormAuditRepository(r.tx)
}

// Outbox returns a writer that appends events in the current transaction.
func (r *gormTransactionalRepositories) Outbox() shared.OutboxWriter {
	return &txOutboxWriter{tx: r.tx, publisher: r.publisher}
}

type txOutboxWriter struct {
	tx        *gorm.DB
	publisher OutboxPublisher
}

func (w *txOutboxWriter) Append(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 || w.publisher == nil {
		return nil
	}
	return w.publisher.PublishWithTx(ctx, w.tx, events...)
}

var (
	_ appworkshop.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appbilling.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
	_ appclosing.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
)
