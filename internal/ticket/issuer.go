package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/infrastructure/retry"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// Issuance defaults.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 10 * time.Millisecond
	maxRetryDelay      = 200 * time.Millisecond
)

// ErrRetryBudgetExhausted is returned when every candidate collided.
var ErrRetryBudgetExhausted = errors.New("ticket id retry budget exhausted")

var errCollision = errors.New("ticket id collision")

// CommitFunc persists a submission under ticketID. It returns
// domain.ErrDuplicateTicketID when another writer took the ID first.
type CommitFunc func(ctx context.Context, ticketID string) error

// Issuer hands unique ticket IDs to a commit step, retrying on collision.
type Issuer struct {
	generator   *Generator
	store       Store
	maxAttempts int
	retryDelay  time.Duration
	log         logger.Logger
	telemetry   *telemetry.Provider
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithMaxAttempts sets the retry budget.
func WithMaxAttempts(n int) IssuerOption {
	return func(i *Issuer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the initial backoff between attempts. Zero retries
// immediately.
func WithRetryDelay(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		if d >= 0 {
			i.retryDelay = d
		}
	}
}

// WithIssuerTelemetry records attempts and collisions.
func WithIssuerTelemetry(tp *telemetry.Provider) IssuerOption {
	return func(i *Issuer) {
		i.telemetry = tp
	}
}

// NewIssuer returns an issuer drawing candidates from g.
func NewIssuer(g *Generator, store Store, log logger.Logger, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		generator:   g,
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		log:         log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue generates a candidate, skips it if taken, and passes a free one to
// commit. Collisions, from the existence check or from commit, cost one
// attempt each. A failing existence check or any other commit error stops
// immediately.
func (i *Issuer) Issue(ctx context.Context, commit CommitFunc) (string, error) {
	var issued string
	attempts := 0

	err := retry.Retry(ctx, retry.Config{
		MaxAttempts:  i.maxAttempts,
		InitialDelay: i.retryDelay,
		MaxDelay:     maxRetryDelay,
		IsRetryable:  func(err error) bool { return errors.Is(err, errCollision) },
	}, func(attempt int) error {
		attempts = attempt
		candidate := i.generator.Generate(ctx)

		exists, err := i.store.ExistsSubmissionWithTicketID(ctx, candidate)
		if err != nil {
			return fmt.Errorf("check ticket id %s: %w", candidate, err)
		}
		if exists {
			return i.collision(ctx, candidate, attempt)
		}

		if err := commit(ctx, candidate); err != nil {
			if errors.Is(err, domain.ErrDuplicateTicketID) {
				return i.collision(ctx, candidate, attempt)
			}
			return fmt.Errorf("commit ticket %s: %w", candidate, err)
		}

		issued = candidate
		return nil
	})
	if err != nil {
		i.telemetry.RecordTicketFailure(ctx)
		if errors.Is(err, retry.ErrMaxAttemptsExceeded) {
			i.log.Error("Ticket id retry budget exhausted", logger.Int("attempts", attempts))
			return "", fmt.Errorf("%w after %d attempts", ErrRetryBudgetExhausted, attempts)
		}
		return "", err
	}

	i.telemetry.RecordTicketIssued(ctx, attempts)
	return issued, nil
}

func (i *Issuer) collision(ctx context.Context, candidate string, attempt int) error {
	i.telemetry.RecordTicketCollision(ctx)
	i.log.Debug("Ticket id collision",
		logger.String("ticket_id", candidate),
		logger.Int("attempt", attempt),
	)
	return errCollision
}
