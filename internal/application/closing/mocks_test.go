package closing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
)

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

// MockMonthlyClosingRepository is a mock implementation of closing.MonthlyClosingRepository
type MockMonthlyClosingRepository struct {
	mock.Mock
}

func (m *MockMonthlyClosingRepository) FindByYearMonth(ctx context.Context, ym shared.YearMonth) (*closing.MonthlyClosing, error) {
	args := m.Called(ctx, ym)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closing.MonthlyClosing), args.Error(1)
}

func (m *MockMonthlyClosingRepository) LockForClose(ctx context.Context, ym shared.YearMonth) (*closing.MonthlyClosing, error) {
	args := m.Called(ctx, ym)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closing.MonthlyClosing), args.Error(1)
}

func (m *MockMonthlyClosingRepository) SaveWithLock(ctx context.Context, c *closing.MonthlyClosing) error {
	return m.Called(ctx, c).Error(0)
}

// MockPaymentLedger is a mock implementation of closing.PaymentLedger
type MockPaymentLedger struct {
	mock.Mock
}

func (m *MockPaymentLedger) AttributeToDailyClosing(ctx context.Context, closingID uuid.UUID, date shared.Date) (int64, error) {
	args := m.Called(ctx, closingID, date)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentLedger) SummarizeByClosing(ctx context.Context, closingID uuid.UUID) (closing.PaymentSummary, error) {
	args := m.Called(ctx, closingID)
	return args.Get(0).(closing.PaymentSummary), args.Error(1)
}

func (m *MockPaymentLedger) SummarizeUnattributed(ctx context.Context, date shared.Date) (closing.PaymentSummary, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(closing.PaymentSummary), args.Error(1)
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
	dailies   *MockDailyClosingRepository
	monthlies *MockMonthlyClosingRepository
	ledger    *MockPaymentLedger
	audits    *MockAuditRepository
	outbox    *recordingOutbox
}

func newFakeTxScope() *fakeTxScope {
	return &fakeTxScope{
		dailies:   new(MockDailyClosingRepository),
		monthlies: new(MockMonthlyClosingRepository),
		ledger:    new(MockPaymentLedger),
		audits:    new(MockAuditRepository),
		outbox:    &recordingOutbox{},
	}
}

func (s *fakeTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *fakeTxScope) DailyClosingRepo() closing.DailyClosingRepository     { return s.dailies }
func (s *fakeTxScope) MonthlyClosingRepo() closing.MonthlyClosingRepository { return s.monthlies }
func (s *fakeTxScope) PaymentLedger() closing.PaymentLedger                 { return s.ledger }
func (s *fakeTxScope) AuditRepo() audit.Repository                          { return s.audits }
func (s *fakeTxScope) Outbox() shared.OutboxWriter                          { return s.outbox }
