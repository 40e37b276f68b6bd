// Package queue defines message payloads exchanged over the message broker.
package queue

// FeedbackQueueName is the durable queue carrying penalty feedback
// events from the API to the background refetch worker.
const FeedbackQueueName = "suggestion.feedback.recorded"

// FeedbackRecordedEvent is published when purchase-attempt feedback
// carries a penalty error code. The consumer uses it to refresh stored
// suggestions that still list the penalized account near the top.
type FeedbackRecordedEvent struct {
	FeedbackID int64  `json:"feedback_id"`
	Nickname   string `json:"nickname"`
	ErrorCode  string `json:"error_code"`
	RecordedAt string `json:"recorded_at"`
}
