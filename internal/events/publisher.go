// Package events publishes submission lifecycle and digest events to a
// Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	infracontext "github.com/jonesrussell/civic-triage/infrastructure/context"
	infraevents "github.com/jonesrussell/civic-triage/infrastructure/events"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// DefaultMaxLen caps the stream length (approximate trimming).
const DefaultMaxLen = 10000

// Publisher writes events to the triage stream. A nil *Publisher is a
// valid no-op publisher.
type Publisher struct {
	client    *redis.Client
	stream    string
	maxLen    int64
	log       logger.Logger
	telemetry *telemetry.Provider
	wg        sync.WaitGroup
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithStream overrides the stream name.
func WithStream(name string) Option {
	return func(p *Publisher) {
		if name != "" {
			p.stream = name
		}
	}
}

// WithMaxLen overrides the approximate stream cap. Zero disables trimming.
func WithMaxLen(n int64) Option {
	return func(p *Publisher) {
		if n >= 0 {
			p.maxLen = n
		}
	}
}

// WithTelemetry records publish outcomes.
func WithTelemetry(tp *telemetry.Provider) Option {
	return func(p *Publisher) {
		p.telemetry = tp
	}
}

// NewPublisher returns nil when client is nil.
func NewPublisher(client *redis.Client, log logger.Logger, opts ...Option) *Publisher {
	if client == nil {
		return nil
	}
	p := &Publisher{
		client: client,
		stream: infraevents.StreamName,
		maxLen: DefaultMaxLen,
		log:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Ping(ctx).Err()
}

// Publish appends event to the stream, filling in ID and timestamp.
func (p *Publisher) Publish(ctx context.Context, event infraevents.Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_type": string(event.EventType),
			"event":      string(body),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	result := p.client.XAdd(ctx, args)
	if publishErr := result.Err(); publishErr != nil {
		p.telemetry.RecordEvent(ctx, string(event.EventType), false)
		p.log.Error("Failed to publish event",
			logger.String("event_type", string(event.EventType)),
			logger.String("ticket_id", event.TicketID),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.telemetry.RecordEvent(ctx, string(event.EventType), true)
	p.log.Debug("Published event",
		logger.String("event_type", string(event.EventType)),
		logger.String("ticket_id", event.TicketID),
		logger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishAsync publishes in the background. parent supplies values such as
// the request logger; its cancellation is ignored. Errors are logged.
func (p *Publisher) PublishAsync(parent context.Context, event infraevents.Event) {
	if p == nil {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := infracontext.Detached(parent)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Warn("Async publish failed",
				logger.String("event_type", string(event.EventType)),
				logger.Error(err),
			)
		}
	}()
}

// Wait blocks until in-flight async publishes finish or ctx ends.
func (p *Publisher) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
