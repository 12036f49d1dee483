package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
)

// MockOrderRepository is a mock implementation of workshop.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*workshop.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByDetailID(ctx context.Context, detailID uuid.UUID) (*workshop.Order, error) {
	args := m.Called(ctx, detailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]workshop.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]workshop.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *workshop.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *workshop.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) NextFolio(ctx context.Context, year int) (string, error) {
	args := m.Called(ctx, year)
	return args.String(0), args.Error(1)
}

// MockPaymentRepository is a mock implementation of billing.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*billing.Payment, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByBusinessDate(ctx context.Context, date shared.Date) ([]billing.Payment, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

// MockDailyClosingRepository is a mock implementation of closing.DailyClosingRepository
type MockDailyClosingRepository struct {
	mock.Mock
}

func (m *MockDailyClosingRepository) FindByDate(ctx context.Context, date shared.Date) (*closing.DailyClosing, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closing.DailyClosing), args.Error(1)
}

func (m *MockDailyClosingRepository) FindUnattributedToMonth(ctx context.Context, upTo shared.Date) ([]closing.DailyClosing, error) {
	args := m.Called(ctx, upTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]closing.DailyClosing), args.Error(1)
}

func (m *MockDailyClosingRepository) LockForClose(ctx context.Context, date shared.Date) (*closing.DailyClosing, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closing.DailyClosing), args.Error(1)
}

func (m *MockDailyClosingRepository) LockForPayment(ctx context.Context, date shared.Date) (*closing.DailyClosing, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closing.DailyClosing), args.Error(1)
}

func (m *MockDailyClosingRepository) SaveWithLock(ctx context.Context, c *closing.DailyClosing) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockDailyClosingRepository) AttributeToMonth(ctx context.Context, monthlyID uuid.UUID, dailyIDs []uuid.UUID) error {
	return m.Called(ctx, monthlyID, dailyIDs).Error(0)
}

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.Entry, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) FindByAction(ctx context.Context, action audit.Action, filter shared.Filter) ([]audit.Entry, error) {
	args := m.Called(ctx, action, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

// recordingOutbox collects appended events
type recordingOutbox struct {
	events []shared.DomainEvent
}

func (o *recordingOutbox) Append(_ context.Context, events ...shared.DomainEvent) error {
	o.events = append(o.events, events...)
	return nil
}

func (o *recordingOutbox) types() []string {
	types := make([]string, len(o.events))
	for i, e := range o.events {
		types[i] = e.EventType()
	}
	return types
}

// fakeTxScope runs fn directly against the mocks
type fakeTxScope struct {
	orders   *MockOrderRepository
	payments *MockPaymentRepository
	dailies  *MockDailyClosingRepository
	audits   *MockAuditRepository
	outbox   *recordingOutbox
}

func newFakeTxScope() *fakeTxScope {
	return &fakeTxScope{
		orders:   new(MockOrderRepository),
		payments: new(MockPaymentRepository),
		dailies:  new(MockDailyClosingRepository),
		audits:   new(MockAuditRepository),
		outbox:   &recordingOutbox{},
	}
}

func (s *fakeTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *fakeTxScope) OrderRepo() workshop.OrderRepository              { return s.orders }
func (s *fakeTxScope) PaymentRepo() billing.PaymentRepository           { return s.payments }
func (s *fakeTxScope) DailyClosingRepo() closing.DailyClosingRepository { return s.dailies }
func (s *fakeTxScope) AuditRepo() audit.Repository                      { return s.audits }
func (s *fakeTxScope) Outbox() shared.OutboxWriter                      { return s.outbox }
