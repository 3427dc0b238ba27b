package digest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraevents "github.com/jonesrussell/civic-triage/infrastructure/events"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/digest"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/testhelpers"
)

type capturePublisher struct {
	events []infraevents.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e infraevents.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestBuild(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	payload := digest.Build([]domain.OpenCount{
		{AgencyID: 1, AgencyName: "WASAC", Status: domain.StatusInProgress, Count: 2},
		{AgencyID: 1, AgencyName: "WASAC", Status: domain.StatusReceived, Count: 5},
		{AgencyID: 3, AgencyName: "RTDA", Status: domain.StatusReceived, Count: 1},
	}, at)

	assert.Equal(t, at, payload.GeneratedAt)
	assert.Equal(t, []infraevents.AgencyDigest{
		{AgencyID: 1, AgencyName: "WASAC", Received: 5, InProgress: 2},
		{AgencyID: 3, AgencyName: "RTDA", Received: 1},
	}, payload.Agencies)
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	payload := digest.Build(nil, time.Now())
	assert.NotNil(t, payload.Agencies)
	assert.Empty(t, payload.Agencies)
}

func TestScheduler_Run(t *testing.T) {
	t.Parallel()

	store := testhelpers.NewMemoryStore()
	wasac := store.AddAgency("WASAC")
	water := store.AddCategory("Water Supply", &wasac)

	for i, status := range []domain.Status{domain.StatusReceived, domain.StatusReceived, domain.StatusInProgress, domain.StatusClosed} {
		sub := &domain.Submission{
			TicketID:    fmt.Sprintf("CE-20240115-%05d", i+1),
			CategoryID:  &water,
			AgencyID:    &wasac,
			Description: "No water in the sector",
			Status:      domain.StatusReceived,
		}
		require.NoError(t, store.InsertSubmission(context.Background(), sub))
		store.SetSubmissionStatus(sub.ID, status)
	}

	pub := &capturePublisher{}
	sched, err := digest.NewScheduler(store, pub, "", logger.NewNop())
	require.NoError(t, err)

	payload, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, payload.Agencies, 1)
	assert.Equal(t, 2, payload.Agencies[0].Received)
	assert.Equal(t, 1, payload.Agencies[0].InProgress)

	require.Len(t, pub.events, 1)
	assert.Equal(t, infraevents.DigestGenerated, pub.events[0].EventType)
}

func TestScheduler_RunPublishError(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{err: errors.New("redis down")}
	sched, err := digest.NewScheduler(testhelpers.NewMemoryStore(), pub, "", logger.NewNop())
	require.NoError(t, err)

	_, err = sched.Run(context.Background())
	assert.Error(t, err)
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := digest.NewScheduler(testhelpers.NewMemoryStore(), nil, "every morning", logger.NewNop())
	assert.Error(t, err)
}

func TestScheduler_NextAndLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.Local)
	sched, err := digest.NewScheduler(testhelpers.NewMemoryStore(), nil, "", logger.NewNop(),
		digest.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 16, 7, 0, 0, 0, time.Local), sched.Next())

	require.NoError(t, sched.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(ctx))
}
