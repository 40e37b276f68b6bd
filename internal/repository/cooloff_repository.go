package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/model"
)

// CooloffRepo owns the account_cooloff ledger. Rows are keyed by
// nickname and never deleted; an expired row simply stops matching the
// active-read predicate and remains as an audit trail.
type CooloffRepo struct {
	db *database.DB
}

// NewCooloffRepo returns a new CooloffRepo bound to the given database.
func NewCooloffRepo(db *database.DB) *CooloffRepo { return &CooloffRepo{db: db} }

// RecordOffense upserts a cooloff row. A first offense starts at count
// 1 with expiry now + base minutes; each repeat increments the count
// and re-arms the expiry at base minutes multiplied by the new count,
// so the penalty grows strictly with every offense.
func (r *CooloffRepo) RecordOffense(ctx context.Context, nickname, reason string, baseMinutes int) error {
	const q = `
		INSERT INTO account_cooloff
			(account_nickname, reason, cooloff_count, created_at, expires_at)
		VALUES
			(?, ?, 1, NOW(), DATE_ADD(NOW(), INTERVAL ? MINUTE))
		ON DUPLICATE KEY UPDATE
			cooloff_count = cooloff_count + 1,
			created_at    = NOW(),
			expires_at    = DATE_ADD(NOW(), INTERVAL ? * cooloff_count MINUTE),
			reason        = VALUES(reason)`

	return withRetry(ctx, r.db, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, q, nickname, reason, baseMinutes, baseMinutes)
		return err
	})
}

// ActiveNicknames returns the nicknames whose exclusion window is
// still open.
func (r *CooloffRepo) ActiveNicknames(ctx context.Context) ([]string, error) {
	const q = `
		SELECT account_nickname
		FROM account_cooloff
		WHERE expires_at > NOW()`

	var out []string
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the ledger row for a nickname, expired or not.
func (r *CooloffRepo) Get(ctx context.Context, nickname string) (model.CooloffRecord, error) {
	const q = `
		SELECT account_nickname, reason, cooloff_count, created_at, expires_at
		FROM account_cooloff
		WHERE account_nickname = ?`

	var rec model.CooloffRecord
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, q, nickname).Scan(
			&rec.Nickname, &rec.Reason, &rec.Count, &rec.CreatedAt, &rec.ExpiresAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.CooloffRecord{}, ErrNotFound
	}
	if err != nil {
		return model.CooloffRecord{}, err
	}
	return rec, nil
}
