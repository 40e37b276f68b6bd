package model

// Ticket limit types. A show limit covers a single performance, a run
// limit covers every date of a multi-date engagement.
const (
	LimitTypeShow = "show"
	LimitTypeRun  = "run"
)

// TicketLimit is the maximum ticket quantity permitted for an event,
// resolved per ranking pass and immutable once computed.
type TicketLimit struct {
	ID          string  `json:"id"`
	EventCode   *string `json:"event_code"`
	VenueCode   *string `json:"venue_code"`
	PerformerID *string `json:"performer_id"`
	LimitType   string  `json:"limit_type"`
	LimitValue  int     `json:"limit_value"`
}

// TicketLimitQuery identifies the event a limit should be looked up
// for. Only event-code matching is supported today; venue and performer
// identifiers are carried so run limits can be added without changing
// callers.
type TicketLimitQuery struct {
	ID          string
	EventCode   string
	VenueID     string
	PerformerID string
}
