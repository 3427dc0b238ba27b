// Package digest builds the daily per-agency summary of open submissions
// and publishes it on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	infracontext "github.com/jonesrussell/civic-triage/infrastructure/context"
	infraevents "github.com/jonesrussell/civic-triage/infrastructure/events"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
)

// DefaultSchedule runs the digest every day at 07:00.
const DefaultSchedule = "0 7 * * *"

// Store counts open submissions.
type Store interface {
	CountOpenByAgency(ctx context.Context) ([]domain.OpenCount, error)
}

// Publisher sends the digest event.
type Publisher interface {
	Publish(ctx context.Context, event infraevents.Event) error
}

// Build folds per-status counts into one entry per agency, in agency order.
func Build(counts []domain.OpenCount, at time.Time) infraevents.DigestPayload {
	payload := infraevents.DigestPayload{GeneratedAt: at, Agencies: make([]infraevents.AgencyDigest, 0)}
	index := make(map[int64]int)

	for _, c := range counts {
		pos, ok := index[c.AgencyID]
		if !ok {
			pos = len(payload.Agencies)
			index[c.AgencyID] = pos
			payload.Agencies = append(payload.Agencies, infraevents.AgencyDigest{
				AgencyID:   c.AgencyID,
				AgencyName: c.AgencyName,
			})
		}
		switch c.Status {
		case domain.StatusReceived:
			payload.Agencies[pos].Received += c.Count
		case domain.StatusInProgress:
			payload.Agencies[pos].InProgress += c.Count
		}
	}
	return payload
}

// Scheduler runs the digest job.
type Scheduler struct {
	store     Store
	publisher Publisher
	schedule  string
	parser    cron.Parser
	cron      *cron.Cron
	location  *time.Location
	now       func() time.Time
	log       logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLocation runs the schedule in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewScheduler validates schedule; empty means DefaultSchedule.
func NewScheduler(store Store, publisher Publisher, schedule string, log logger.Logger, opts ...Option) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("parse digest schedule %q: %w", schedule, err)
	}

	s := &Scheduler{
		store:     store,
		publisher: publisher,
		schedule:  schedule,
		parser:    parser,
		location:  time.Local,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	return s, nil
}

// Run builds and publishes one digest.
func (s *Scheduler) Run(ctx context.Context) (infraevents.DigestPayload, error) {
	counts, err := s.store.CountOpenByAgency(ctx)
	if err != nil {
		return infraevents.DigestPayload{}, fmt.Errorf("count open submissions: %w", err)
	}

	payload := Build(counts, s.now().UTC())
	event := infraevents.Event{EventType: infraevents.DigestGenerated, Payload: payload}
	if s.publisher != nil {
		if pubErr := s.publisher.Publish(ctx, event); pubErr != nil {
			return payload, fmt.Errorf("publish digest: %w", pubErr)
		}
	}

	s.log.Info("Open submission digest generated", logger.Int("agencies", len(payload.Agencies)))
	return payload, nil
}

// Start schedules Run. ctx values are carried into each run; its
// cancellation stops nothing, call Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		runCtx, cancel := infracontext.WithJobTimeout(context.WithoutCancel(ctx))
		defer cancel()

		if _, runErr := s.Run(runCtx); runErr != nil {
			s.log.Error("Digest run failed", logger.Error(runErr))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}

	s.cron.Start()
	s.log.Info("Digest scheduler started",
		logger.String("schedule", s.schedule),
		logger.Time("next_run", s.Next()),
	)
	return nil
}

// Next reports the next scheduled run after now.
func (s *Scheduler) Next() time.Time {
	schedule, err := s.parser.Parse(s.schedule)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(s.now().In(s.location))
}

// Stop halts scheduling and waits for a running job or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
