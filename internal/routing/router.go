package routing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// Classifier picks a category name for a description.
type Classifier interface {
	Classify(description, language string) (string, bool)
}

// Request is a submission as seen by the router.
type Request struct {
	Description        string
	Language           string
	ExplicitCategoryID *int64
}

// Router makes the end-to-end routing decision.
type Router struct {
	classifier Classifier
	resolver   *Resolver
	telemetry  *telemetry.Provider
	log        logger.Logger
}

// NewRouter wires a classifier to a resolver. tp may be nil.
func NewRouter(c Classifier, r *Resolver, tp *telemetry.Provider, log logger.Logger) *Router {
	return &Router{classifier: c, resolver: r, telemetry: tp, log: log}
}

// Route decides where a submission goes. A valid explicit category skips
// classification entirely; an invalid one falls through to the classified
// and default steps. false means the submission is unrouted.
func (r *Router) Route(ctx context.Context, req Request) (domain.Resolution, bool) {
	start := time.Now()
	ctx, span := r.telemetry.StartSpan(ctx, "routing.Route",
		attribute.String("language", req.Language),
		attribute.Bool("explicit", req.ExplicitCategoryID != nil),
	)
	defer span.End()

	res, ok := r.route(ctx, req)

	source := domain.SourceNone
	if ok {
		source = res.Source
		span.SetAttributes(
			attribute.Int64("category_id", res.CategoryID),
			attribute.Int64("agency_id", res.AgencyID),
		)
	}
	span.SetAttributes(attribute.String("source", string(source)))
	r.telemetry.RecordRouting(ctx, string(source), time.Since(start))

	logger.FromContext(ctx).Debug("Submission routed",
		logger.String("source", string(source)),
		logger.String("category", res.CategoryName),
		logger.OptionalInt64("explicit_category_id", req.ExplicitCategoryID),
	)

	return res, ok
}

func (r *Router) route(ctx context.Context, req Request) (domain.Resolution, bool) {
	if req.ExplicitCategoryID != nil {
		if res, ok := r.resolver.ResolveExplicit(ctx, *req.ExplicitCategoryID); ok {
			return res, true
		}
		r.log.Info("Explicit category rejected, classifying instead",
			logger.Int64("category_id", *req.ExplicitCategoryID))
	}

	name, matched := r.classifier.Classify(req.Description, req.Language)
	r.telemetry.RecordClassification(ctx, req.Language, matched)

	return r.resolver.Resolve(ctx, Query{ClassifiedName: name})
}
