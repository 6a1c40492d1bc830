package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"jobmate-backend/internal/shared/telemetry"
)

var (
	ErrPoolExhausted    = errors.New("database pool exhausted")
	ErrConnectionFailed = errors.New("database connection failed")
	ErrSessionClosed    = errors.New("database session closed")
	ErrTxActive         = errors.New("transaction already active on session")
)

// Provider hands out request-scoped sessions from a shared pool.
type Provider struct {
	db     *sql.DB
	opts   Options
	active atomic.Int64
}

// NewProvider wraps a pool. The provider does not own db until Close is called.
func NewProvider(db *sql.DB, opts Options) *Provider {
	return &Provider{db: db, opts: opts}
}

// DB exposes the underlying pool for health checks and metrics.
func (p *Provider) DB() *sql.DB {
	return p.db
}

// Active reports sessions acquired and not yet released.
func (p *Provider) Active() int64 {
	return p.active.Load()
}

// Close disposes of the pool.
func (p *Provider) Close() error {
	logPoolStats(p.db, "db.dispose")
	return p.db.Close()
}

// Ping checks the pool can reach the database.
func (p *Provider) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(p.opts))
	defer cancel()
	return p.db.PingContext(pingCtx)
}

// Acquire checks a connection out of the pool. The caller must Close the
// session; WithSession does that automatically.
func (p *Provider) Acquire(ctx context.Context) (*Session, error) {
	acquireCtx := ctx
	if p.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer cancel()
	}

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waited %s", ErrPoolExhausted, p.opts.AcquireTimeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if p.opts.PrePing {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(p.opts))
		err := conn.PingContext(pingCtx)
		cancel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: liveness check: %w", ErrConnectionFailed, err)
		}
	}

	p.active.Add(1)
	return &Session{ID: uuid.NewString(), conn: conn, provider: p}, nil
}

// WithSession runs fn with a fresh session and releases it on every exit
// path, including panics.
func (p *Provider) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// Session is one request's exclusive handle to a pooled connection. It is
// not safe to share between requests.
type Session struct {
	ID string

	conn     *sql.Conn
	provider *Provider

	mu     sync.Mutex
	tx     *Tx
	closed bool
}

// Conn returns the underlying connection.
func (s *Session) Conn() *sql.Conn {
	return s.conn
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *Row {
	if err := s.checkOpen(); err != nil {
		return &Row{err: err}
	}
	return &Row{row: s.conn.QueryRowContext(ctx, query, args...)}
}

// Row is the result of Session.QueryRowContext.
type Row struct {
	row *sql.Row
	err error
}

// Scan copies the row's columns into dest, like (*sql.Row).Scan.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}

// Err reports a deferred query error without scanning.
func (r *Row) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.row.Err()
}

// Begin starts the session's transaction. Only one may be open at a time.
func (s *Session) Begin(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx != nil {
		return nil, ErrTxActive
	}
	sqlTx, err := s.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.tx = &Tx{Tx: sqlTx, session: s}
	return s.tx, nil
}

// Close rolls back any open transaction and returns the connection to the
// pool. Calling Close more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tx := s.tx
	s.tx = nil
	s.mu.Unlock()

	var rollbackErr error
	if tx != nil {
		if err := tx.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rollbackErr = err
			telemetry.Warn("db.session_rollback_failed", map[string]any{
				"session_id": s.ID,
				"error":      err,
			})
		}
	}
	closeErr := s.conn.Close()
	s.provider.active.Add(-1)
	return errors.Join(rollbackErr, closeErr)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) clearTx(tx *Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == tx {
		s.tx = nil
	}
}

// Tx is the single transaction a session may hold.
type Tx struct {
	*sql.Tx
	session *Session
}

func (t *Tx) Commit() error {
	defer t.session.clearTx(t)
	return t.Tx.Commit()
}

func (t *Tx) Rollback() error {
	defer t.session.clearTx(t)
	return t.Tx.Rollback()
}
