package model

import (
	"encoding/json"
	"time"
)

// FeedbackRecord is the row written when automation reports the outcome
// of acting on a suggestion. The raw payload is stored as JSON; the
// nickname and error code are extracted on insert so the cooloff path
// does not have to reparse.
type FeedbackRecord struct {
	ID        int64
	Nickname  string
	ErrorCode string
}

// FeedbackRow is a feedback entry as streamed to websocket clients.
type FeedbackRow struct {
	ID        int64           `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}
