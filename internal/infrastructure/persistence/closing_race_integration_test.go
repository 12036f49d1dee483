//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	appbilling "github.com/workshop/backend/internal/application/billing"
	appclosing "github.com/workshop/backend/internal/application/closing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/event"
	"github.com/workshop/backend/internal/infrastructure/migration"
	"github.com/workshop/backend/migrations"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts PostgreSQL 16 and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("workshop_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// the migrator closes its connection
	migrateDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(migrateDB, "", migrations.FS, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// seedFinishedOrder stores a finished order with a 100 service line
func seedFinishedOrder(t *testing.T, db *gorm.DB, n int) *workshop.Order {
	t.Helper()
	customerID, vehicleID := uuid.New(), uuid.New()
	require.NoError(t, db.Exec("INSERT INTO customers (id, name) VALUES (?, ?)", customerID, fmt.Sprintf("Customer %d", n)).Error)
	require.NoError(t, db.Exec("INSERT INTO vehicles (id, customer_id, plate) VALUES (?, ?, ?)", vehicleID, customerID, fmt.Sprintf("RACE%03d", n)).Error)

	by := uuid.New()
	order, err := workshop.NewOrder(workshop.NewOrderInput{
		Folio:      fmt.Sprintf("OS-2024-%06d", n),
		CustomerID: customerID,
		VehicleID:  vehicleID,
	}, by)
	require.NoError(t, err)

	inspection, err := workshop.NewInspection(order.ID, workshop.Checklist{ResponsibleName: "Ana Ruiz"}, true, by)
	require.NoError(t, err)
	_, err = order.TransitionTo(workshop.OrderStatusReceived, workshop.TransitionGate{Inspection: inspection}, by)
	require.NoError(t, err)

	price := decimal.NewFromInt(100)
	detail, err := order.AddDetail(workshop.NewDetailInput{Description: "Oil change", Price: &price}, by)
	require.NoError(t, err)
	for _, s := range []workshop.DetailStatus{workshop.DetailStatusInProgress, workshop.DetailStatusDone} {
		_, _, err = order.TransitionDetail(detail.ID, s, by)
		require.NoError(t, err)
	}
	_, err = order.TransitionTo(workshop.OrderStatusFinished, workshop.TransitionGate{}, by)
	require.NoError(t, err)
	order.PullDomainEvents()

	require.NoError(t, NewGormOrderRepository(db).Create(context.Background(), order))
	return order
}

// ==================== Close day race ====================

func TestCloseDay_ConcurrentPaymentsAndClosers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := newPostgresDB(t)
	now := time.Date(2024, time.May, 10, 18, 30, 0, 0, time.UTC)
	today := shared.NewDate(2024, time.May, 10)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	txScope := NewGormTransactionScope(db, event.NewOutboxPublisher(serializer))
	payments := appbilling.NewPaymentService(txScope.Billing(), NewGormPaymentRepository(db))
	payments.SetClock(func() time.Time { return now })
	closings := appclosing.NewClosingService(txScope.Closing(),
		NewGormDailyClosingRepository(db), NewGormMonthlyClosingRepository(db), NewGormPaymentLedger(db), closing.CutoffPolicy{})
	closings.SetClock(func() time.Time { return now })

	const orderCount, closerCount = 12, 4
	orders := make([]*workshop.Order, orderCount)
	for i := range orders {
		orders[i] = seedFinishedOrder(t, db, i+1)
	}

	ctx := shared.WithOperator(context.Background(), shared.Operator{ID: uuid.New(), Name: "Front desk", Role: shared.RoleFrontdesk})

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		paid        int
		rejected    int
		closedCount int
		closedWith  *appclosing.DailyClosingResponse
	)
	start := make(chan struct{})

	for _, order := range orders {
		wg.Add(1)
		go func(orderID uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := payments.RecordPayment(ctx, orderID, appbilling.RecordPaymentRequest{
				Amount: decimal.NewFromInt(100),
				Method: "cash",
			}, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				paid++
			case shared.IsAlreadyClosed(err):
				rejected++
			default:
				t.Errorf("unexpected payment error: %v", err)
			}
		}(order.ID)
	}
	for range closerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			resp, err := closings.CloseDay(ctx, today)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				closedCount++
				closedWith = resp
			case shared.IsAlreadyClosed(err):
			default:
				t.Errorf("unexpected close error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.Equal(t, 1, closedCount, "exactly one closer wins")
	require.NotNil(t, closedWith)
	require.NotNil(t, closedWith.ID)
	assert.Equal(t, orderCount, paid+rejected)

	// every committed payment was counted by the single closing
	assert.Equal(t, paid, closedWith.PaymentCount)
	assert.True(t, decimal.NewFromInt(int64(100*paid)).Equal(closedWith.TotalIncome))

	stored, err := NewGormPaymentRepository(db).FindByBusinessDate(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, stored, paid)
	for _, p := range stored {
		require.NotNil(t, p.DailyClosingID)
		assert.Equal(t, *closedWith.ID, *p.DailyClosingID)
	}

	status, err := closings.GetDailyClosingStatus(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, closedWith.ID, status.ID)
	assert.Equal(t, string(closing.StatusClosed), status.Status)
}
