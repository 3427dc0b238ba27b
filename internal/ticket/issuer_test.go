package ticket_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/testhelpers"
	"github.com/jonesrussell/civic-triage/internal/ticket"
)

var issueDay = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newIssuer(store ticket.Store, opts ...ticket.IssuerOption) *ticket.Issuer {
	g := ticket.NewGenerator(store, logger.NewNop(),
		ticket.WithClock(fixedClock(issueDay)),
		ticket.WithLocation(time.UTC),
	)
	opts = append([]ticket.IssuerOption{ticket.WithRetryDelay(0)}, opts...)
	return ticket.NewIssuer(g, store, logger.NewNop(), opts...)
}

func TestIssue_SucceedsOnThirdAttemptAfterTwoCollisions(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := testhelpers.NewMockTicketStore(ctrl)

	store.EXPECT().CountSubmissionsCreatedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).Times(3)
	gomock.InOrder(
		store.EXPECT().ExistsSubmissionWithTicketID(gomock.Any(), "CE-20260314-00001").Return(true, nil),
		store.EXPECT().ExistsSubmissionWithTicketID(gomock.Any(), "CE-20260314-00001").Return(true, nil),
		store.EXPECT().ExistsSubmissionWithTicketID(gomock.Any(), "CE-20260314-00001").Return(false, nil),
	)

	var committed []string
	id, err := newIssuer(store).Issue(context.Background(), func(_ context.Context, ticketID string) error {
		committed = append(committed, ticketID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "CE-20260314-00001", id)
	assert.Equal(t, []string{"CE-20260314-00001"}, committed)
}

func TestIssue_CommitRaceCountsAsCollision(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	store.Now = fixedClock(issueDay)

	calls := 0
	id, err := newIssuer(store).Issue(context.Background(), func(ctx context.Context, ticketID string) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("insert: %w", domain.ErrDuplicateTicketID)
		}
		return store.InsertSubmission(ctx, &domain.Submission{TicketID: ticketID})
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "CE-20260314-00001", id)
}

func TestIssue_BudgetExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := testhelpers.NewMockTicketStore(ctrl)
	store.EXPECT().CountSubmissionsCreatedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(7, nil).Times(ticket.DefaultMaxAttempts)
	store.EXPECT().ExistsSubmissionWithTicketID(gomock.Any(), gomock.Any()).Return(true, nil).Times(ticket.DefaultMaxAttempts)

	id, err := newIssuer(store).Issue(context.Background(), func(context.Context, string) error {
		t.Fatal("commit must not run for a taken id")
		return nil
	})

	require.ErrorIs(t, err, ticket.ErrRetryBudgetExhausted)
	assert.Empty(t, id)
}

func TestIssue_PluggableBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := testhelpers.NewMockTicketStore(ctrl)
	store.EXPECT().CountSubmissionsCreatedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).Times(2)
	store.EXPECT().ExistsSubmissionWithTicketID(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)

	_, err := newIssuer(store, ticket.WithMaxAttempts(2)).Issue(context.Background(), func(context.Context, string) error {
		return nil
	})

	require.ErrorIs(t, err, ticket.ErrRetryBudgetExhausted)
}

func TestIssue_ExistenceCheckFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := testhelpers.NewMockTicketStore(ctrl)
	dbErr := errors.New("database is down")
	store.EXPECT().CountSubmissionsCreatedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).Times(1)
	store.EXPECT().ExistsSubmissionWithTicketID(gomock.Any(), gomock.Any()).Return(false, dbErr).Times(1)

	_, err := newIssuer(store).Issue(context.Background(), func(context.Context, string) error {
		t.Fatal("commit must not run when the check failed")
		return nil
	})

	require.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ticket.ErrRetryBudgetExhausted)
}

func TestIssue_CommitFailureIsFatal(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	insertErr := errors.New("disk full")

	calls := 0
	_, err := newIssuer(store).Issue(context.Background(), func(context.Context, string) error {
		calls++
		return insertErr
	})

	require.ErrorIs(t, err, insertErr)
	assert.Equal(t, 1, calls)
}

func TestIssue_ConcurrentSubmissionsGetUniqueIDs(t *testing.T) {
	const workers = 20

	store := testhelpers.NewMemoryStore()
	store.Now = fixedClock(issueDay)
	issuer := newIssuer(store, ticket.WithMaxAttempts(50))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := issuer.Issue(context.Background(), func(ctx context.Context, ticketID string) error {
				return store.InsertSubmission(ctx, &domain.Submission{TicketID: ticketID, Status: domain.StatusReceived})
			})
			assert.NoError(t, err)
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, ids, workers)
	sort.Strings(ids)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("CE-20260314-%05d", i+1), id)
	}
	assert.Len(t, store.Submissions(), workers)
}
