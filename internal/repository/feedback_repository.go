package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/model"
)

// FeedbackRepo owns the suggestion_feedback log. Automation posts the
// raw outcome payload of every purchase attempt; the nickname and
// error code are projected out on insert for the cooloff path.
type FeedbackRepo struct {
	db *database.DB
}

// NewFeedbackRepo returns a new FeedbackRepo bound to the given database.
func NewFeedbackRepo(db *database.DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

// Insert stores the attempt payload and returns the projected record.
func (r *FeedbackRepo) Insert(ctx context.Context, payload json.RawMessage) (model.FeedbackRecord, error) {
	const ins = `INSERT INTO suggestion_feedback (data, created_at) VALUES (CAST(? AS JSON), NOW())`
	const sel = `
		SELECT id,
		       COALESCE(data->>'$.suggestion', ''),
		       COALESCE(data->>'$.error_code', '')
		FROM suggestion_feedback WHERE id = ?`

	var rec model.FeedbackRecord
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, ins, []byte(payload))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		return db.QueryRowContext(ctx, sel, id).Scan(&rec.ID, &rec.Nickname, &rec.ErrorCode)
	})
	if err != nil {
		return model.FeedbackRecord{}, err
	}
	return rec, nil
}

// FetchSince returns feedback rows created strictly after the
// watermark, newest first.
func (r *FeedbackRepo) FetchSince(ctx context.Context, watermark time.Time) ([]model.FeedbackRow, error) {
	const q = `
		SELECT id, data, created_at
		FROM suggestion_feedback
		WHERE created_at > ?
		ORDER BY created_at DESC`

	var out []model.FeedbackRow
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, watermark)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var row model.FeedbackRow
			var raw []byte
			if err := rows.Scan(&row.ID, &raw, &row.CreatedAt); err != nil {
				return err
			}
			row.Data = json.RawMessage(raw)
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
