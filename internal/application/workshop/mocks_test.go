package workshop

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
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
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *workshop.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) NextFolio(ctx context.Context, year int) (string, error) {
	args := m.Called(ctx, year)
	return args.String(0), args.Error(1)
}

// MockInspectionRepository is a mock implementation of workshop.InspectionRepository
type MockInspectionRepository struct {
	mock.Mock
}

func (m *MockInspectionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*workshop.Inspection, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.Inspection), args.Error(1)
}

func (m *MockInspectionRepository) Create(ctx context.Context, inspection *workshop.Inspection) error {
	args := m.Called(ctx, inspection)
	return args.Error(0)
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
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
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
	err    error
}

func (o *recordingOutbox) Append(_ context.Context, events ...shared.DomainEvent) error {
	if o.err != nil {
		return o.err
	}
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

// MockCatalogGateway is a mock implementation of workshop.CatalogGateway
type MockCatalogGateway struct {
	mock.Mock
}

func (m *MockCatalogGateway) ListServices(ctx context.Context) ([]workshop.CatalogService, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]workshop.CatalogService), args.Error(1)
}

func (m *MockCatalogGateway) FindService(ctx context.Context, id uuid.UUID) (*workshop.CatalogService, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.CatalogService), args.Error(1)
}

// MockVehicleDirectory is a mock implementation of workshop.VehicleDirectory
type MockVehicleDirectory struct {
	mock.Mock
}

func (m *MockVehicleDirectory) FindByPlate(ctx context.Context, plate string) (*workshop.VehicleRecord, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.VehicleRecord), args.Error(1)
}

func (m *MockVehicleDirectory) FindVehicle(ctx context.Context, vehicleID uuid.UUID) (*workshop.VehicleRecord, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.VehicleRecord), args.Error(1)
}

// fakeTxScope runs fn directly against the mocks
type fakeTxScope struct {
	orders      *MockOrderRepository
	inspections *MockInspectionRepository
	payments    *MockPaymentRepository
	audit       *MockAuditRepository
	outbox      *recordingOutbox
}

func newFakeTxScope() *fakeTxScope {
	return &fakeTxScope{
		orders:      new(MockOrderRepository),
		inspections: new(MockInspectionRepository),
		payments:    new(MockPaymentRepository),
		audit:       new(MockAuditRepository),
		outbox:      &recordingOutbox{},
	}
}

func (s *fakeTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *fakeTxScope) OrderRepo() workshop.OrderRepository           { return s.orders }
func (s *fakeTxScope) InspectionRepo() workshop.InspectionRepository { return s.inspections }
func (s *fakeTxScope) PaymentRepo() billing.PaymentRepository        { return s.payments }
func (s *fakeTxScope) AuditRepo() audit.Repository                   { return s.audit }
func (s *fakeTxScope) Outbox() shared.OutboxWriter                   { return s.outbox }

var (
	_ TransactionScope          = (*fakeTxScope)(nil)
	_ TransactionalRepositories = (*fakeTxScope)(nil)
)
