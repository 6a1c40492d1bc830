// Package dbtest provides an in-process database/sql driver whose
// connections accept every statement and return no rows. It lets pool and
// session lifecycle tests run without a database server.
package dbtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

const (
	// DriverName connections answer pings.
	DriverName = "dbtest"
	// DeadPingDriverName connections fail every liveness check.
	DeadPingDriverName = "dbtest-deadping"
)

var registerOnce sync.Once

// Register installs both drivers. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		sql.Register(DriverName, nopDriver{})
		sql.Register(DeadPingDriverName, nopDriver{pingErr: errors.New("server closed the connection unexpectedly")})
	})
}

// Open returns a pool backed by the named test driver, closed at cleanup.
func Open(t testing.TB, name string) *sql.DB {
	t.Helper()
	Register()
	db, err := sql.Open(name, t.Name())
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type nopDriver struct {
	pingErr error
}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{pingErr: d.pingErr}, nil
}

type nopConn struct {
	pingErr error
}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (c nopConn) Ping(ctx context.Context) error          { return c.pingErr }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return io.EOF }
