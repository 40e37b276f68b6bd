package repository

import (
	"context"
	"database/sql"

	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/model"
)

// TicketLimitRepo reads user-reported ticket limits. Only event-code
// matching is implemented; venue and performer scoped (run) limits are
// carried through the query type but not yet matched.
type TicketLimitRepo struct {
	db *database.DB
}

// NewTicketLimitRepo returns a new TicketLimitRepo bound to the given database.
func NewTicketLimitRepo(db *database.DB) *TicketLimitRepo { return &TicketLimitRepo{db: db} }

// GetByEventCodes fetches stored limits for the given queries in one
// round trip, batched by event code. Each stored limit row fans out to
// every query that asked about its event code. Queries with no stored
// limit are simply absent from the result.
func (r *TicketLimitRepo) GetByEventCodes(ctx context.Context, queries []model.TicketLimitQuery) ([]model.TicketLimit, error) {
	codeToIDs := map[string][]string{}
	for _, item := range queries {
		if item.EventCode != "" {
			codeToIDs[item.EventCode] = append(codeToIDs[item.EventCode], item.ID)
		}
	}
	if len(codeToIDs) == 0 {
		return nil, nil
	}

	q := `
		SELECT event_code, venue_code, performer_id, limit_type, limit_value
		FROM ticket_limit
		WHERE event_code IN (` + placeholders(len(codeToIDs)) + `)`

	args := make([]any, 0, len(codeToIDs))
	for code := range codeToIDs {
		args = append(args, code)
	}

	var out []model.TicketLimit
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var eventCode string
			var venueCode, performerID *string
			var limitType string
			var limitValue int
			if err := rows.Scan(&eventCode, &venueCode, &performerID, &limitType, &limitValue); err != nil {
				return err
			}
			for _, id := range codeToIDs[eventCode] {
				code := eventCode
				out = append(out, model.TicketLimit{
					ID:          id,
					EventCode:   &code,
					VenueCode:   venueCode,
					PerformerID: performerID,
					LimitType:   limitType,
					LimitValue:  limitValue,
				})
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
