package model

import (
	"encoding/json"
	"time"
)

// Location is the city/state pair attached to a ranked suggestion.
type Location struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Suggestion is a candidate account enriched with the computed ranking
// fields. It is built fresh on every request and never persisted except
// as part of a StoredSuggestion snapshot.
//
// Distance is great-circle kilometers between the account address and
// the event venue, nil when either side lacks coordinates. Proximity is
// the 3-level tier: 1 same state, 2 nearby state, 3 other.
// ForwardEvents is nil when the inventory store had no row for the
// account's email; the JSON rendering substitutes "Data Unavailable" to
// match what clients expect.
type Suggestion struct {
	ID                 string     `json:"id"`
	StatusCode         string     `json:"status_code"`
	Nickname           string     `json:"nickname"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Location           Location   `json:"location"`
	LastPurchaseDate   *time.Time `json:"lastPurchaseDate"`
	HasPurchasedEvent  int        `json:"hasPurchasedEvent"`
	NamePurchasedEvent bool       `json:"namePurchasedEvent"`
	Proximity          int        `json:"proximity"`
	Distance           *float64   `json:"distance"`
	ForwardEvents      *int       `json:"-"`
	Cooloff            *bool      `json:"cooloff,omitempty"`
	Rank               int        `json:"rank"`
	TicketLimit        *int       `json:"ticketLimit,omitempty"`
}

// MarshalJSON renders ForwardEvents as the count when known and as the
// literal "Data Unavailable" when the inventory store had no row.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	type alias Suggestion
	out := struct {
		alias
		ForwardEvents any `json:"forwardEvents"`
	}{alias: alias(s)}
	if s.ForwardEvents != nil {
		out.ForwardEvents = *s.ForwardEvents
	} else {
		out.ForwardEvents = "Data Unavailable"
	}
	return json.Marshal(out)
}

// StoredSuggestion is a snapshot of ranked suggestions for a buylist
// row, kept so the purchase automation can read precomputed picks.
type StoredSuggestion struct {
	ID                string       `json:"id"`
	SuggestedAccounts []string     `json:"suggested_accounts"`
	Suggestions       []Suggestion `json:"suggestions"`
	CreatedAt         time.Time    `json:"created_at"`
}
