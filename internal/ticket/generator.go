// Package ticket issues human-readable submission ticket IDs of the form
// CE-YYYYMMDD-NNNNN, numbered per day.
package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// DefaultPrefix starts every ticket ID.
const DefaultPrefix = "CE"

const (
	dateLayout     = "20060102"
	sequenceDigits = 5
)

//go:generate mockgen -source=generator.go -destination=../testhelpers/mock_ticket_store.go -package=testhelpers -mock_names=Store=MockTicketStore

// Store is the storage the generator and issuer read.
type Store interface {
	CountSubmissionsCreatedBetween(ctx context.Context, start, end time.Time) (int, error)
	ExistsSubmissionWithTicketID(ctx context.Context, ticketID string) (bool, error)
}

// Generator proposes candidate ticket IDs. It does not reserve them.
type Generator struct {
	store     Store
	prefix    string
	location  *time.Location
	now       func() time.Time
	log       logger.Logger
	telemetry *telemetry.Provider
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) GeneratorOption {
	return func(g *Generator) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// WithLocation sets the timezone that defines a ticket day. Default is the
// server's local zone.
func WithLocation(loc *time.Location) GeneratorOption {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithTelemetry records fallback IDs.
func WithTelemetry(tp *telemetry.Provider) GeneratorOption {
	return func(g *Generator) {
		g.telemetry = tp
	}
}

// NewGenerator returns a generator over store.
func NewGenerator(store Store, log logger.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:    store,
		prefix:   DefaultPrefix,
		location: time.Local,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns PREFIX-YYYYMMDD-NNNNN where NNNNN is one more than the
// number of submissions created today. If the count fails it returns
// PREFIX-<unix millis> instead.
func (g *Generator) Generate(ctx context.Context) string {
	now := g.now().In(g.location)
	start, end := dayBounds(now)

	count, err := g.store.CountSubmissionsCreatedBetween(ctx, start, end)
	if err != nil {
		g.log.Warn("Daily submission count failed, using timestamp ticket id", logger.Error(err))
		g.telemetry.RecordTicketFallback(ctx)
		return fmt.Sprintf("%s-%d", g.prefix, now.UnixMilli())
	}

	return fmt.Sprintf("%s-%s-%0*d", g.prefix, now.Format(dateLayout), sequenceDigits, count+1)
}

// dayBounds returns the first and last instant of t's calendar day in t's
// location. Both ends are inclusive.
func dayBounds(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
