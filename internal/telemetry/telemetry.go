// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the triage service. A nil *Provider is valid and records nothing.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "civic-triage"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	// Routing
	RoutingDecisions *prometheus.CounterVec
	RoutingDuration  prometheus.Histogram
	Classifications  *prometheus.CounterVec

	// Ticket issuance
	TicketsIssued      prometheus.Counter
	TicketAttempts     prometheus.Histogram
	TicketCollisions   prometheus.Counter
	TicketFallbackIDs  prometheus.Counter
	TicketIssueFailure prometheus.Counter

	// Intake
	SubmissionsCreated *prometheus.CounterVec
	StatusUpdates      *prometheus.CounterVec
	RateLimited        prometheus.Counter

	// Side channels
	EventsPublished *prometheus.CounterVec
	SearchIndexed   *prometheus.CounterVec
}

// Provider wraps the tracer and metrics.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewProvider registers metrics on the default Prometheus registry.
func NewProvider() *Provider {
	return NewProviderWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewProviderWithRegistry registers metrics on reg, served from g.
func NewProviderWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Provider {
	return &Provider{
		Tracer:   otel.Tracer(tracerName),
		Metrics:  initMetrics(promauto.With(reg)),
		gatherer: g,
	}
}

// Handler serves /metrics.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initRoutingMetrics(f, m)
	initTicketMetrics(f, m)
	initIntakeMetrics(f, m)
	return m
}

func initRoutingMetrics(f promauto.Factory, m *Metrics) {
	m.RoutingDecisions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_routing_decisions_total",
		Help: "Routing decisions by resolution source (explicit, classified, default, none)",
	}, []string{"source"})

	m.RoutingDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_routing_duration_seconds",
		Help:    "Time to route one submission, including category lookups",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	m.Classifications = f.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_classifications_total",
		Help: "Keyword classifications by language and outcome",
	}, []string{"language", "matched"})
}

func initTicketMetrics(f promauto.Factory, m *Metrics) {
	m.TicketsIssued = f.NewCounter(prometheus.CounterOpts{
		Name: "triage_tickets_issued_total",
		Help: "Ticket IDs committed",
	})

	m.TicketAttempts = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_ticket_attempts",
		Help:    "Attempts needed to commit a ticket ID",
		Buckets: []float64{1, 2, 3, 4, 5, 10, 25, 50},
	})

	m.TicketCollisions = f.NewCounter(prometheus.CounterOpts{
		Name: "triage_ticket_collisions_total",
		Help: "Candidate ticket IDs that were already taken",
	})

	m.TicketFallbackIDs = f.NewCounter(prometheus.CounterOpts{
		Name: "triage_ticket_fallback_ids_total",
		Help: "Timestamp ticket IDs generated because the daily count failed",
	})

	m.TicketIssueFailure = f.NewCounter(prometheus.CounterOpts{
		Name: "triage_ticket_issue_failures_total",
		Help: "Submissions rejected because no ticket ID could be committed",
	})
}

func initIntakeMetrics(f promauto.Factory, m *Metrics) {
	m.SubmissionsCreated = f.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_submissions_created_total",
		Help: "Submissions stored, by language",
	}, []string{"language"})

	m.StatusUpdates = f.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_status_updates_total",
		Help: "Admin status updates by new status",
	}, []string{"status"})

	m.RateLimited = f.NewCounter(prometheus.CounterOpts{
		Name: "triage_rate_limited_total",
		Help: "Submission requests rejected by the rate limiter",
	})

	m.EventsPublished = f.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_events_published_total",
		Help: "Stream events by type and result",
	}, []string{"event_type", "result"})

	m.SearchIndexed = f.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_search_indexed_total",
		Help: "Submission documents sent to the search index, by result",
	}, []string{"result"})
}

// RecordRouting records one routing decision.
func (p *Provider) RecordRouting(_ context.Context, source string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.RoutingDecisions.WithLabelValues(source).Inc()
	p.Metrics.RoutingDuration.Observe(duration.Seconds())
}

// RecordClassification records one classifier call.
func (p *Provider) RecordClassification(_ context.Context, language string, matched bool) {
	if p == nil {
		return
	}
	p.Metrics.Classifications.WithLabelValues(language, strconv.FormatBool(matched)).Inc()
}

// RecordTicketIssued records a committed ticket and the attempts it took.
func (p *Provider) RecordTicketIssued(_ context.Context, attempts int) {
	if p == nil {
		return
	}
	p.Metrics.TicketsIssued.Inc()
	p.Metrics.TicketAttempts.Observe(float64(attempts))
}

// RecordTicketCollision counts a taken candidate.
func (p *Provider) RecordTicketCollision(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.TicketCollisions.Inc()
}

// RecordTicketFallback counts a timestamp fallback ID.
func (p *Provider) RecordTicketFallback(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.TicketFallbackIDs.Inc()
}

// RecordTicketFailure counts an exhausted or failed issuance.
func (p *Provider) RecordTicketFailure(_ context.Context) {
	if p == nil {
		return
	}
	p.Metrics.TicketIssueFailure.Inc()
}

// RecordSubmission counts a stored submission.
func (p *Provider) RecordSubmission(_ context.Context, language string) {
	if p == nil {
		return
	}
	p.Metrics.SubmissionsCreated.WithLabelValues(language).Inc()
}

// RecordStatusUpdate counts an admin update.
func (p *Provider) RecordStatusUpdate(_ context.Context, status string) {
	if p == nil {
		return
	}
	p.Metrics.StatusUpdates.WithLabelValues(status).Inc()
}

// IncrementRateLimited counts a throttled request.
func (p *Provider) IncrementRateLimited() {
	if p == nil {
		return
	}
	p.Metrics.RateLimited.Inc()
}

// RecordEvent counts a stream publish.
func (p *Provider) RecordEvent(_ context.Context, eventType string, success bool) {
	if p == nil {
		return
	}
	p.Metrics.EventsPublished.WithLabelValues(eventType, resultLabel(success)).Inc()
}

// RecordSearchIndex counts an index write.
func (p *Provider) RecordSearchIndex(_ context.Context, success bool) {
	if p == nil {
		return
	}
	p.Metrics.SearchIndexed.WithLabelValues(resultLabel(success)).Inc()
}

// StartSpan starts a span; the caller ends it.
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p == nil {
		return noop.NewTracerProvider().Tracer(tracerName).Start(ctx, name)
	}
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
