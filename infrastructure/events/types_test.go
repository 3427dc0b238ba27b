package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/civic-triage/infrastructure/events"
)

func TestEvent_WireFormat(t *testing.T) {
	categoryID := int64(4)
	event := events.Event{
		EventID:   uuid.MustParse("550e8400-e29b-41d4-a716-446655440001"),
		EventType: events.SubmissionCreated,
		TicketID:  "CE-20260129-00001",
		Timestamp: time.Date(2026, 1, 29, 10, 30, 0, 0, time.UTC),
		Payload: events.SubmissionCreatedPayload{
			SubmissionID:  12,
			CategoryID:    &categoryID,
			RoutingSource: "classified",
			Language:      "english",
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"event_id": "550e8400-e29b-41d4-a716-446655440001",
		"event_type": "submission.created",
		"ticket_id": "CE-20260129-00001",
		"timestamp": "2026-01-29T10:30:00Z",
		"payload": {"submission_id": 12, "category_id": 4, "routing_source": "classified", "language": "english"}
	}`, string(data))
}
