package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/tixops/suggest-api/internal/database"
)

// withRetry runs fn against the current pool and, when the driver
// reports a dead connection, reconnects the pool and retries exactly
// once. A cancelled context is never retried: the reconnect still runs
// so the next request gets a clean pool, but the original error is
// returned.
func withRetry(ctx context.Context, db *database.DB, fn func(*sql.DB) error) error {
	err := fn(db.Pool())
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		log.Warn().Err(err).Msg("query cancelled; resetting connection pool")
		_ = db.Reconnect(context.Background())
		return err
	}

	if !isBadConn(err) {
		return err
	}

	log.Warn().Err(err).Msg("connection was stuck; reconnecting and retrying")
	if rerr := db.Reconnect(ctx); rerr != nil {
		return err
	}
	return fn(db.Pool())
}

func isBadConn(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn)
}
