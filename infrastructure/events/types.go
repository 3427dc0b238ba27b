// Package events defines the submission event envelope carried on Redis
// Streams.
package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the Redis stream for triage events.
const StreamName = "triage-events"

// EventType names an event.
type EventType string

const (
	// SubmissionCreated is emitted after a submission is stored.
	SubmissionCreated EventType = "submission.created"
	// SubmissionUpdated is emitted after an admin changes status or response.
	SubmissionUpdated EventType = "submission.updated"
	// DigestGenerated carries the periodic open-ticket digest.
	DigestGenerated EventType = "digest.generated"
)

// Event is the envelope for every stream entry.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// SubmissionCreatedPayload describes a new submission and how it was routed.
type SubmissionCreatedPayload struct {
	SubmissionID  int64  `json:"submission_id"`
	CategoryID    *int64 `json:"category_id,omitempty"`
	AgencyID      *int64 `json:"agency_id,omitempty"`
	RoutingSource string `json:"routing_source"`
	Language      string `json:"language"`
}

// SubmissionUpdatedPayload describes an admin update.
type SubmissionUpdatedPayload struct {
	SubmissionID   int64  `json:"submission_id"`
	AgencyID       int64  `json:"agency_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
	UpdatedBy      string `json:"updated_by"`
}

// AgencyDigest is one agency's open-ticket counts.
type AgencyDigest struct {
	AgencyID   int64  `json:"agency_id"`
	AgencyName string `json:"agency_name"`
	Received   int    `json:"received"`
	InProgress int    `json:"in_progress"`
}

// DigestPayload is the body of a digest event.
type DigestPayload struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Agencies    []AgencyDigest `json:"agencies"`
}
