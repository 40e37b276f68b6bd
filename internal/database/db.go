package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DB wraps the sql pool with a guarded reopen. The purchase automation
// occasionally leaves a connection stuck mid-request when a client
// disconnects during a long query; rather than letting the poisoned
// pool fail every subsequent request, callers can ask for a Reconnect
// and retry once.
type DB struct {
	mu  sync.Mutex
	dsn string
	sql *sql.DB
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	pool, err := open(dsn)
	if err != nil {
		return nil, err
	}
	return &DB{dsn: dsn, sql: pool}, nil
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Pool returns the current sql pool. The pointer may change across a
// Reconnect, so repositories should call this per operation rather than
// caching the result.
func (d *DB) Pool() *sql.DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sql
}

// Reconnect closes the current pool and opens a fresh one. Safe for
// concurrent use; the first caller does the work and later callers see
// the replacement pool.
func (d *DB) Reconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A healthy pool does not need replacing; a racing caller may have
	// already reconnected.
	if err := d.sql.PingContext(ctx); err == nil {
		return nil
	}

	_ = d.sql.Close()
	pool, err := open(d.dsn)
	if err != nil {
		return err
	}
	d.sql = pool
	return nil
}

// Close releases the underlying pool.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sql.Close()
}
