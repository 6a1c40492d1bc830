package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate-backend/internal/shared/storage/db/dbtest"
)

func newTestProvider(t *testing.T, driverName string, opts Options) *Provider {
	t.Helper()
	sqlDB := dbtest.Open(t, driverName)
	applyOptions(sqlDB, opts)
	return NewProvider(sqlDB, opts)
}

func TestSessionReleasedExactlyOnce(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())

	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Active())
	assert.Equal(t, 1, p.DB().Stats().InUse)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.EqualValues(t, 0, p.Active())
	assert.Equal(t, 0, p.DB().Stats().InUse)
}

func TestWithSessionReleasesOnError(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())
	boom := errors.New("handler failed")

	err := p.WithSession(context.Background(), func(ctx context.Context, s *Session) error {
		assert.EqualValues(t, 1, p.Active())
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, p.Active())
	assert.Equal(t, 0, p.DB().Stats().InUse)
}

func TestWithSessionReleasesOnPanic(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())

	func() {
		defer func() { _ = recover() }()
		_ = p.WithSession(context.Background(), func(ctx context.Context, s *Session) error {
			panic("handler exploded")
		})
	}()
	assert.EqualValues(t, 0, p.Active())
	assert.Equal(t, 0, p.DB().Stats().InUse)
}

func TestWithSessionReleasesOnCancellation(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())

	err := p.WithSession(ctx, func(ctx context.Context, s *Session) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, p.Active())
}

func TestConcurrentSessionsAreDistinct(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())

	var wg sync.WaitGroup
	sessions := make([]*Session, 2)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := p.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	require.NotNil(t, sessions[0])
	require.NotNil(t, sessions[1])
	assert.NotSame(t, sessions[0], sessions[1])
	assert.NotEqual(t, sessions[0].ID, sessions[1].ID)
	assert.NotSame(t, sessions[0].Conn(), sessions[1].Conn())
	assert.Equal(t, 2, p.DB().Stats().InUse)

	for _, s := range sessions {
		require.NoError(t, s.Close())
	}
	assert.EqualValues(t, 0, p.Active())
}

func TestAcquireReportsPoolExhausted(t *testing.T) {
	opts := DefaultOptions()
	opts.PoolSize = 1
	opts.MaxOverflow = 0
	opts.AcquireTimeout = 50 * time.Millisecond
	p := newTestProvider(t, dbtest.DriverName, opts)

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolExhausted)
	assert.EqualValues(t, 1, p.Active())

	require.NoError(t, held.Close())
	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestAcquireFailsLivenessCheck(t *testing.T) {
	p := newTestProvider(t, dbtest.DeadPingDriverName, DefaultOptions())

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrConnectionFailed)
	assert.EqualValues(t, 0, p.Active())
	assert.Equal(t, 0, p.DB().Stats().InUse)
}

func TestAcquireSkipsPingWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.PrePing = false
	p := newTestProvider(t, dbtest.DeadPingDriverName, opts)

	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSessionAllowsOneTransaction(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())
	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.Begin(context.Background(), nil)
	require.NoError(t, err)

	_, err = s.Begin(context.Background(), nil)
	require.ErrorIs(t, err, ErrTxActive)

	require.NoError(t, tx.Commit())
	tx2, err := s.Begin(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}

func TestCloseRollsBackOpenTransaction(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())
	s, err := p.Acquire(context.Background())
	require.NoError(t, err)

	tx, err := s.Begin(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, tx.Commit(), sql.ErrTxDone)
	assert.EqualValues(t, 0, p.Active())

	_, err = s.Begin(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.ExecContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionQueriesReturnNoRows(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())

	err := p.WithSession(context.Background(), func(ctx context.Context, s *Session) error {
		rows, err := s.QueryContext(ctx, "SELECT 1")
		require.NoError(t, err)
		assert.False(t, rows.Next())
		require.NoError(t, rows.Err())
		require.NoError(t, rows.Close())

		var n int
		assert.ErrorIs(t, s.QueryRowContext(ctx, "SELECT 1").Scan(&n), sql.ErrNoRows)
		return nil
	})
	require.NoError(t, err)
}

func TestClosedSessionRejectsQueries(t *testing.T) {
	p := newTestProvider(t, dbtest.DriverName, DefaultOptions())
	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = s.ExecContext(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.QueryContext(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrSessionClosed)

	row := s.QueryRowContext(ctx, "SELECT 1")
	assert.ErrorIs(t, row.Err(), ErrSessionClosed)
	var n int
	assert.ErrorIs(t, row.Scan(&n), ErrSessionClosed)
}
