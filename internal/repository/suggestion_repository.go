package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/model"
)

// SuggestionRepo owns the stored_suggestion snapshots the worker keeps
// for buylist rows, plus the buylist reads that drive the sweep.
type SuggestionRepo struct {
	db *database.DB
}

// NewSuggestionRepo returns a new SuggestionRepo bound to the given database.
func NewSuggestionRepo(db *database.DB) *SuggestionRepo { return &SuggestionRepo{db: db} }

// MissingSuggestionIDs returns the subset of ids that have no stored
// suggestion snapshot yet.
func (r *SuggestionRepo) MissingSuggestionIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `
		SELECT b.id
		FROM buylist b
		LEFT JOIN stored_suggestion s ON s.id = b.id
		WHERE s.id IS NULL
		  AND b.id IN (` + placeholders(len(ids)) + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var out []string
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out = append(out, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert stores (or refreshes) a suggestion snapshot.
func (r *SuggestionRepo) Upsert(ctx context.Context, id string, nicknames []string, suggestions []model.Suggestion) error {
	if nicknames == nil {
		nicknames = []string{}
	}
	if suggestions == nil {
		suggestions = []model.Suggestion{}
	}
	accountsJSON, err := json.Marshal(nicknames)
	if err != nil {
		return err
	}
	suggJSON, err := json.Marshal(suggestions)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO stored_suggestion (id, suggested_accounts, suggestions, created_at)
		VALUES (?, CAST(? AS JSON), CAST(? AS JSON), NOW())
		ON DUPLICATE KEY UPDATE
			suggested_accounts = VALUES(suggested_accounts),
			suggestions        = VALUES(suggestions),
			created_at         = NOW()`

	return withRetry(ctx, r.db, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, q, id, accountsJSON, suggJSON)
		return err
	})
}

// UnboughtToday returns buylist rows created today that are still
// unbought, oldest first.
func (r *SuggestionRepo) UnboughtToday(ctx context.Context) ([]model.BuylistItem, error) {
	const q = `
		SELECT id, account_id, event_code, currency_code, performer_id, venue_id,
		       card, confirmation_number, created_at
		FROM buylist
		WHERE order_status = 'Unbought'
		  AND created_at >= CURRENT_DATE
		  AND created_at < DATE_ADD(CURRENT_DATE, INTERVAL 1 DAY)
		ORDER BY created_at`

	return r.queryItems(ctx, q)
}

// ItemsToRefetch returns unbought buylist rows from the last two days
// whose stored top-30 suggestions contain any of the given cooled-off
// nicknames and that the purchase flow has not yet touched (no card, no
// confirmation number).
func (r *SuggestionRepo) ItemsToRefetch(ctx context.Context, cooloffNicknames []string) ([]model.BuylistItem, error) {
	if len(cooloffNicknames) == 0 {
		return nil, nil
	}
	q := `
		SELECT DISTINCT b.id, b.account_id, b.event_code, b.currency_code,
		       b.performer_id, b.venue_id, b.card, b.confirmation_number, b.created_at
		FROM stored_suggestion s
		JOIN buylist b ON b.id = s.id
		JOIN JSON_TABLE(s.suggestions, '$[*]' COLUMNS (
			ord FOR ORDINALITY,
			nickname VARCHAR(128) PATH '$.nickname'
		)) jt
		WHERE jt.ord <= 30
		  AND jt.nickname IN (` + placeholders(len(cooloffNicknames)) + `)
		  AND b.order_status = 'Unbought'
		  AND COALESCE(b.card, '') = ''
		  AND COALESCE(b.confirmation_number, '') = ''
		  AND b.created_at >= DATE_SUB(CURRENT_DATE, INTERVAL 1 DAY)
		  AND b.created_at <  DATE_ADD(CURRENT_DATE, INTERVAL 1 DAY)`

	args := make([]any, len(cooloffNicknames))
	for i, n := range cooloffNicknames {
		args[i] = n
	}
	return r.queryItems(ctx, q, args...)
}

func (r *SuggestionRepo) queryItems(ctx context.Context, q string, args ...any) ([]model.BuylistItem, error) {
	var out []model.BuylistItem
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var it model.BuylistItem
			if err := rows.Scan(&it.ID, &it.AccountID, &it.EventCode, &it.CurrencyCode,
				&it.PerformerID, &it.VenueID, &it.Card, &it.ConfirmationNumber, &it.CreatedAt); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
