package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraevents "github.com/jonesrussell/civic-triage/infrastructure/events"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/events"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewPublisher_NilClient(t *testing.T) {
	t.Parallel()

	assert.Nil(t, events.NewPublisher(nil, logger.NewNop()))
}

func TestPublisher_NilReceiverIsNoOp(t *testing.T) {
	t.Parallel()

	var pub *events.Publisher
	event := infraevents.Event{EventType: infraevents.SubmissionCreated}

	require.NoError(t, pub.Publish(context.Background(), event))
	pub.PublishAsync(context.Background(), event)
	require.NoError(t, pub.Wait(context.Background()))
}

func TestPublisher_Publish_AppendsToStream(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	pub := events.NewPublisher(client, logger.NewNop())

	err := pub.Publish(context.Background(), infraevents.Event{
		EventType: infraevents.SubmissionCreated,
		TicketID:  "CE-20240115-00001",
		Payload: infraevents.SubmissionCreatedPayload{
			SubmissionID:  1,
			RoutingSource: "classified",
			Language:      "english",
		},
	})
	require.NoError(t, err)

	entries, err := mr.Stream(infraevents.StreamName)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := map[string]string{}
	for i := 0; i+1 < len(entries[0].Values); i += 2 {
		values[entries[0].Values[i]] = entries[0].Values[i+1]
	}
	assert.Equal(t, "submission.created", values["event_type"])

	var decoded infraevents.Event
	require.NoError(t, json.Unmarshal([]byte(values["event"]), &decoded))
	assert.NotEqual(t, uuid.Nil, decoded.EventID)
	assert.False(t, decoded.Timestamp.IsZero())
	assert.Equal(t, "CE-20240115-00001", decoded.TicketID)
}

func TestPublisher_WithStream(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	pub := events.NewPublisher(client, logger.NewNop(), events.WithStream("custom-stream"))

	require.NoError(t, pub.Publish(context.Background(), infraevents.Event{EventType: infraevents.DigestGenerated}))

	entries, err := mr.Stream("custom-stream")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPublisher_PublishAsync_WaitDrains(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	pub := events.NewPublisher(client, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	for range 3 {
		pub.PublishAsync(ctx, infraevents.Event{EventType: infraevents.SubmissionUpdated})
	}
	// Request cancellation must not abort background publishes.
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, pub.Wait(waitCtx))

	entries, err := mr.Stream(infraevents.StreamName)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPublisher_Publish_ServerDown(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	pub := events.NewPublisher(client, logger.NewNop())
	mr.Close()

	err := pub.Publish(context.Background(), infraevents.Event{EventType: infraevents.SubmissionCreated})
	assert.Error(t, err)
}

func TestPublisher_Ping(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	pub := events.NewPublisher(client, logger.NewNop())
	require.NoError(t, pub.Ping(context.Background()))

	mr.Close()
	require.Error(t, pub.Ping(context.Background()))

	var nilPub *events.Publisher
	require.NoError(t, nilPub.Ping(context.Background()))
}
