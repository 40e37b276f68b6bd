package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/model"
)

// EventRepo resolves event details from the event-mapping tables,
// joining the exchange listing to its matched event and venue.
type EventRepo struct {
	db *database.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *database.DB) *EventRepo { return &EventRepo{db: db} }

// GetEventDetails returns the event and venue details for an exchange
// source key, or ErrNotFound when the key is unmapped.
func (r *EventRepo) GetEventDetails(ctx context.Context, eventID string) (model.EventDetails, error) {
	const q = `
		SELECT
			  ee.source_name
			, ee.event_url
			, me.event_name
			, DATE_FORMAT(me.start_date, '%Y-%m-%dT%T')
			, mv.venue_name
			, mv.city
			, mv.state
			, mv.latitude
			, mv.longitude
		FROM exchange_event ee
		JOIN matched_event me ON me.id = ee.matched_event_id
		JOIN matched_venue mv ON mv.id = me.matched_venue_id
		WHERE ee.source_key = ?`

	details := model.EventDetails{ID: eventID}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, q, eventID).Scan(
			&details.SourceName, &details.EventURL, &details.EventName,
			&details.EventDate, &details.VenueName, &details.VenueCity,
			&details.VenueState, &details.Lat, &details.Lng)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.EventDetails{}, ErrNotFound
	}
	if err != nil {
		return model.EventDetails{}, err
	}
	return details, nil
}
