package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tixops/suggest-api/internal/database"
)

// UsageRepo reads ticket-purchase history: per-event usage keyed by
// account nickname, per-event purchaser quantities keyed by email, last
// purchase dates and forward-event counts. All of it is recomputed per
// ranking request, never cached here.
type UsageRepo struct {
	db *database.DB
}

// NewUsageRepo returns a new UsageRepo bound to the given database.
func NewUsageRepo(db *database.DB) *UsageRepo { return &UsageRepo{db: db} }

// GetEventUsage returns, for the given event code, how many tickets
// each account nickname has already obtained.
func (r *UsageRepo) GetEventUsage(ctx context.Context, eventCode string) (map[string]int, error) {
	const q = `
		SELECT account_nickname, ticket_count
		FROM account_usage
		WHERE event_code = ?
		ORDER BY last_used DESC`

	out := map[string]int{}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, eventCode)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(out)
		for rows.Next() {
			var nickname string
			var count int
			if err := rows.Scan(&nickname, &count); err != nil {
				return err
			}
			out[nickname] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetLastUsed returns the most recent usage timestamp per nickname.
func (r *UsageRepo) GetLastUsed(ctx context.Context, nicknames []string) (map[string]time.Time, error) {
	if len(nicknames) == 0 {
		return map[string]time.Time{}, nil
	}
	q := `
		SELECT account_nickname, MAX(last_used)
		FROM account_usage
		WHERE account_nickname IN (` + placeholders(len(nicknames)) + `)
		GROUP BY account_nickname`

	args := make([]any, len(nicknames))
	for i, n := range nicknames {
		args[i] = n
	}

	out := map[string]time.Time{}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(out)
		for rows.Next() {
			var nickname string
			var last time.Time
			if err := rows.Scan(&nickname, &last); err != nil {
				return err
			}
			out[nickname] = last
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetEventPurchasersByEmail returns, for the given event code, the
// purchased quantity per vendor email from the inventory tables.
func (r *UsageRepo) GetEventPurchasersByEmail(ctx context.Context, eventCode string) (map[string]int, error) {
	const q = `
		SELECT LOWER(v.email), SUM(po.quantity)
		FROM purchase_order po
		JOIN vendor v          ON v.id = po.vendor_id
		JOIN inventory_event e ON e.id = po.event_id
		WHERE e.source_key = ?
		  AND po.status <> 'REMOVED'
		  AND v.email IS NOT NULL
		GROUP BY LOWER(v.email)`

	out := map[string]int{}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, eventCode)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(out)
		for rows.Next() {
			var email string
			var qty int
			if err := rows.Scan(&email, &qty); err != nil {
				return err
			}
			out[email] = qty
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetLastPurchaseByEmail returns the most recent purchase-order date
// per vendor email.
func (r *UsageRepo) GetLastPurchaseByEmail(ctx context.Context, emails []string) (map[string]time.Time, error) {
	emails = normalizeEmails(emails)
	if len(emails) == 0 {
		return map[string]time.Time{}, nil
	}
	q := `
		SELECT LOWER(v.email), MAX(po.order_date)
		FROM vendor v
		JOIN purchase_order po ON po.vendor_id = v.id
		WHERE po.status <> 'REMOVED'
		  AND LOWER(v.email) IN (` + placeholders(len(emails)) + `)
		GROUP BY LOWER(v.email)`

	args := make([]any, len(emails))
	for i, e := range emails {
		args[i] = e
	}

	out := map[string]time.Time{}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(out)
		for rows.Next() {
			var email string
			var last time.Time
			if err := rows.Scan(&email, &last); err != nil {
				return err
			}
			out[email] = last
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetForwardEventCounts returns, per vendor email, how many distinct
// future events the vendor holds tickets for.
func (r *UsageRepo) GetForwardEventCounts(ctx context.Context, emails []string) (map[string]int, error) {
	emails = normalizeEmails(emails)
	if len(emails) == 0 {
		return map[string]int{}, nil
	}
	q := `
		SELECT LOWER(v.email), COUNT(DISTINCT e.id)
		FROM vendor v
		JOIN purchase_order po ON po.vendor_id = v.id
		JOIN inventory_event e ON e.id = po.event_id
		WHERE e.start_date > CURRENT_DATE
		  AND po.status <> 'REMOVED'
		  AND LOWER(v.email) IN (` + placeholders(len(emails)) + `)
		GROUP BY LOWER(v.email)`

	args := make([]any, len(emails))
	for i, e := range emails {
		args[i] = e
	}

	out := map[string]int{}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(out)
		for rows.Next() {
			var email string
			var count int
			if err := rows.Scan(&email, &count); err != nil {
				return err
			}
			out[email] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeEmails lowercases, trims and dedupes, dropping empties.
func normalizeEmails(emails []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
