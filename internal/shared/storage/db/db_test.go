package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate-backend/internal/shared/config"
	"jobmate-backend/internal/shared/storage/db/dbtest"
)

func withTestDriver(t *testing.T, name string) {
	t.Helper()
	dbtest.Register()
	prev := openDB
	openDB = func(_, dsn string) (*sql.DB, error) {
		return sql.Open(name, dsn)
	}
	t.Cleanup(func() { openDB = prev })
}

func TestConnectAppliesPoolOptions(t *testing.T) {
	withTestDriver(t, dbtest.DriverName)

	db, err := Connect(context.Background(), "ignored", DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 30, db.Stats().MaxOpenConnections, "pool size plus overflow")
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ", DefaultOptions())
	require.Error(t, err)
}

func TestConnectFailsWhenPingFails(t *testing.T) {
	withTestDriver(t, dbtest.DeadPingDriverName)

	_, err := Connect(context.Background(), "ignored", DefaultOptions())
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Database{
		PoolSize:        7,
		MaxOverflow:     3,
		PoolTimeout:     12 * time.Second,
		PoolRecycle:     20 * time.Minute,
		ConnMaxIdleTime: 45 * time.Second,
		PrePing:         true,
		PingTimeout:     time.Second,
	})

	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3, opts.MaxOverflow)
	assert.Equal(t, 12*time.Second, opts.AcquireTimeout)
	assert.Equal(t, 20*time.Minute, opts.ConnMaxLifetime)
	assert.Equal(t, 45*time.Second, opts.ConnMaxIdleTime)
	assert.True(t, opts.PrePing)
	assert.Equal(t, time.Second, opts.PingTimeout)
}

func TestDefaultOptionsMatchServerPool(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 20, opts.MaxOverflow)
	assert.Equal(t, 30*time.Second, opts.AcquireTimeout)
	assert.Equal(t, 1800*time.Second, opts.ConnMaxLifetime)
	assert.True(t, opts.PrePing)
}

func TestRunMigrationsNilDatabaseIsNoop(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), nil))
}
