package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestOrder(t *testing.T, folio string) *workshop.Order {
	t.Helper()
	order, err := workshop.NewOrder(workshop.NewOrderInput{
		Folio:      folio,
		CustomerID: uuid.New(),
		VehicleID:  uuid.New(),
		Mileage:    42000,
		FuelLevel:  50,
	}, uuid.New())
	require.NoError(t, err)
	return order
}

// ==================== Order repository ====================

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))

	order := newTestOrder(t, "OS-2024-000001")
	price := decimal.NewFromInt(450)
	_, err := order.AddDetail(workshop.NewDetailInput{Description: "Brake pads", Category: workshop.CategoryPart, Price: &price}, uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "OS-2024-000001", found.Folio)
	assert.Equal(t, workshop.OrderStatusIntake, found.Status)
	require.Len(t, found.Details, 1)
	assert.Equal(t, "Brake pads", found.Details[0].Description)

	byDetail, err := repo.FindByDetailID(ctx, found.Details[0].ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byDetail.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestGormOrderRepository_DuplicateFolio(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))

	require.NoError(t, repo.Create(ctx, newTestOrder(t, "OS-2024-000007")))
	err := repo.Create(ctx, newTestOrder(t, "OS-2024-000007"))

	assert.True(t, shared.IsDuplicate(err))
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))

	order := newTestOrder(t, "OS-2024-000002")
	require.NoError(t, repo.Create(ctx, order))

	_, err := order.AddDetail(workshop.NewDetailInput{Description: "Oil change"}, uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, order))
	assert.Equal(t, 2, order.Version)

	stale, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stale.Details, 1)

	// A second writer holding version 2 wins, the first becomes stale
	require.NoError(t, repo.SaveWithLock(ctx, order))
	stale.Version = 2
	err = repo.SaveWithLock(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	missing := newTestOrder(t, "OS-2024-000003")
	err = repo.SaveWithLock(ctx, missing)
	assert.True(t, shared.IsNotFound(err))
}

func TestGormOrderRepository_NextFolio(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))

	first, err := repo.NextFolio(ctx, 2024)
	require.NoError(t, err)
	second, err := repo.NextFolio(ctx, 2024)
	require.NoError(t, err)
	otherYear, err := repo.NextFolio(ctx, 2025)
	require.NoError(t, err)

	assert.Equal(t, "OS-2024-000001", first)
	assert.Equal(t, "OS-2024-000002", second)
	assert.Equal(t, "OS-2025-000001", otherYear)
}

func TestGormOrderRepository_FindAllFilters(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormOrderRepository(db)

	vehicle := models.VehicleModel{Plate: "ABC123", CustomerID: uuid.New()}
	vehicle.ID = uuid.New()
	require.NoError(t, db.Create(&vehicle).Error)

	withPlate := newTestOrder(t, "OS-2024-000010")
	withPlate.VehicleID = vehicle.ID
	require.NoError(t, repo.Create(ctx, withPlate))
	require.NoError(t, repo.Create(ctx, newTestOrder(t, "OS-2024-000011")))

	tests := []struct {
		name   string
		filter func(f *shared.Filter)
		want   int
	}{
		{name: "no filter", filter: func(f *shared.Filter) {}, want: 2},
		{name: "folio search", filter: func(f *shared.Filter) { f.Search = "000011" }, want: 1},
		{name: "plate search", filter: func(f *shared.Filter) { f.Search = "abc" }, want: 1},
		{name: "status", filter: func(f *shared.Filter) { *f = f.Where("status", "intake") }, want: 2},
		{name: "other status", filter: func(f *shared.Filter) { *f = f.Where("status", "repair") }, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := shared.DefaultFilter()
			tt.filter(&filter)

			orders, err := repo.FindAll(ctx, filter)
			require.NoError(t, err)
			assert.Len(t, orders, tt.want)

			count, err := repo.Count(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.want), count)
		})
	}
}

func TestGormOrderRepository_SaveWithLock_ConflictSQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	repo := NewGormOrderRepository(gormDB)

	order := newTestOrder(t, "OS-2024-000004")
	mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE id = \$1`).
		WithArgs(order.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err = repo.SaveWithLock(context.Background(), order)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, 1, order.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==================== Inspection repository ====================

func TestGormInspectionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInspectionRepository(newSQLiteDB(t))
	orderID := uuid.New()

	_, err := repo.FindByOrderID(ctx, orderID)
	assert.True(t, shared.IsNotFound(err))

	checklist := workshop.Checklist{ResponsibleName: "Maria Lopez", Mileage: 81234, FuelLevel: 75}
	inspection, err := workshop.NewInspection(orderID, checklist, true, uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, inspection))

	found, err := repo.FindByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, found.SignatureAccepted)
	assert.Equal(t, "Maria Lopez", found.Checklist.ResponsibleName)
	assert.Equal(t, 81234, found.Checklist.Mileage)

	again, err := workshop.NewInspection(orderID, checklist, false, uuid.New())
	require.NoError(t, err)
	assert.True(t, shared.IsDuplicate(repo.Create(ctx, again)))
}

// ==================== Directory ====================

func TestGormVehicleDirectory(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	directory := NewGormVehicleDirectory(db)

	customer := models.CustomerModel{Name: "Ana Ruiz", Phone: "555-0101"}
	customer.ID = uuid.New()
	require.NoError(t, db.Create(&customer).Error)
	vehicle := models.VehicleModel{CustomerID: customer.ID, Plate: "XYZ987", Make: "Nissan", Model: "Versa", Year: 2019}
	vehicle.ID = uuid.New()
	require.NoError(t, db.Create(&vehicle).Error)

	record, err := directory.FindByPlate(ctx, "XYZ987")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", record.Customer.Name)
	assert.Equal(t, "Versa", record.Vehicle.Model)

	byID, err := directory.FindVehicle(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, byID.Vehicle.CustomerID)

	_, err = directory.FindByPlate(ctx, "NOPE00")
	assert.True(t, shared.IsNotFound(err))
}

func TestGormCatalogGateway(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	gateway := NewGormCatalogGateway(db)

	services := []models.CatalogServiceModel{
		{SystemName: "brakes", Name: "Brake service", SuggestedPrice: decimal.NewFromInt(800), Active: true},
		{SystemName: "oil", Name: "Oil change", SuggestedPrice: decimal.NewFromInt(600), IsFavorite: true, Active: true},
		{SystemName: "legacy", Name: "Carburetor tune", SuggestedPrice: decimal.NewFromInt(300), Active: true},
	}
	for i := range services {
		services[i].ID = uuid.New()
		require.NoError(t, db.Create(&services[i]).Error)
	}
	// Active defaults to true on insert, so retire the legacy service explicitly
	require.NoError(t, db.Model(&services[2]).Update("active", false).Error)

	list, err := gateway.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Oil change", list[0].Name)
	assert.True(t, list[0].IsFavorite)

	found, err := gateway.FindService(ctx, services[0].ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(800).Equal(found.SuggestedPrice))

	_, err = gateway.FindService(ctx, services[2].ID)
	assert.True(t, shared.IsNotFound(err))
}
