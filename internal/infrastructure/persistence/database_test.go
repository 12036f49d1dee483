package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func sqliteConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:          "sqlite",
		SQLitePath:      "file::memory:",
		MaxOpenConns:    10,
		MaxIdleConns:    1,
		ConnMaxLifetime: 1,
		ConnMaxIdleTime: 1,
	}
}

func newPingDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return &Database{DB: gormDB}, mock
}

// ==================== Open ====================

func TestOpenDialector(t *testing.T) {
	tests := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{driver: "", name: "postgres"},
		{driver: "postgres", name: "postgres"},
		{driver: "sqlite", name: "sqlite"},
		{driver: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("driver "+tt.driver, func(t *testing.T) {
			dialector, err := openDialector(&config.DatabaseConfig{
				Driver:     tt.driver,
				Host:       "localhost",
				Port:       5432,
				SQLitePath: ":memory:",
			})
			if tt.wantErr {
				assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, dialector.Name())
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(sqliteConfig(), nil)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
	assert.False(t, isPostgres(db.DB))

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, nil)

	assert.Error(t, err)
}

func TestConfigurePool(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	configurePool(conn, &config.DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5}, "postgres")
	assert.Equal(t, 25, conn.Stats().MaxOpenConnections)

	configurePool(conn, &config.DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5}, "sqlite")
	assert.Equal(t, 1, conn.Stats().MaxOpenConnections)
}

// ==================== Readiness ====================

func TestDatabase_Ping(t *testing.T) {
	t.Run("database answers", func(t *testing.T) {
		db, mock := newPingDatabase(t)
		mock.ExpectPing()

		assert.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database down", func(t *testing.T) {
		db, mock := newPingDatabase(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err := db.Ping(context.Background())

		assert.ErrorContains(t, err, "ping database: connection refused")
	})

	t.Run("ping slower than the deadline", func(t *testing.T) {
		db, mock := newPingDatabase(t)
		mock.ExpectPing().WillDelayFor(time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		assert.Error(t, db.Ping(ctx))
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newPingDatabase(t)
	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_AutoMigrate(t *testing.T) {
	db, err := Open(sqliteConfig(), nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AutoMigrate())

	for _, table := range []string{"orders", "payments", "daily_closings", "monthly_closings", "audit_entries", "outbox_events"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}
}
