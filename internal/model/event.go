package model

import "time"

// EventDetails describes an event and its venue as resolved from the
// event-mapping store. Returned by the event lookup endpoint so the UI
// can confirm which event a suggestion request is about.
type EventDetails struct {
	ID         string   `json:"id"`
	SourceName *string  `json:"sourceName"`
	EventURL   *string  `json:"eventUrl"`
	EventName  *string  `json:"eventName"`
	EventDate  *string  `json:"eventDate"`
	VenueName  *string  `json:"venueName"`
	VenueCity  *string  `json:"venueCity"`
	VenueState *string  `json:"venueState"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
}

// BuylistItem is an unbought buylist row the suggestion worker sweeps.
// Card and ConfirmationNumber are filled by the purchase flow; rows
// with either set are no longer eligible for a suggestion refetch.
type BuylistItem struct {
	ID                 string
	AccountID          string
	EventCode          *string
	CurrencyCode       string
	PerformerID        *string
	VenueID            *string
	Card               *string
	ConfirmationNumber *string
	CreatedAt          time.Time
}
