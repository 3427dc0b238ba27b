// Package routing turns a submission into a (category, agency) decision.
// The Resolver walks an ordered fallback chain; the Router adds keyword
// classification in front of it.
package routing

import (
	"context"
	"errors"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
)

// DefaultCategoryName is the catch-all category.
const DefaultCategoryName = "General"

// CategoryStore looks categories up. Missing rows are domain.ErrNotFound.
type CategoryStore interface {
	FindCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*domain.Category, error)
}

// Query is the input to one resolution.
type Query struct {
	ExplicitCategoryID *int64
	ClassifiedName     string
}

// Strategy is one step of the fallback chain.
type Strategy func(ctx context.Context, q Query) (domain.Resolution, bool)

// Resolver runs strategies in order; the first hit wins.
type Resolver struct {
	explicit   Strategy
	strategies []Strategy
}

// NewResolver builds the standard chain: explicit ID, classified name, then
// the default category.
func NewResolver(store CategoryStore, defaultCategory string, log logger.Logger) *Resolver {
	if defaultCategory == "" {
		defaultCategory = DefaultCategoryName
	}
	explicit := ExplicitStrategy(store, log)
	r := NewResolverWithStrategies(
		explicit,
		ClassifiedStrategy(store, log),
		DefaultStrategy(store, defaultCategory, log),
	)
	r.explicit = explicit
	return r
}

// NewResolverWithStrategies builds a resolver from a custom chain.
func NewResolverWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the first successful resolution, or false when every
// strategy misses.
func (r *Resolver) Resolve(ctx context.Context, q Query) (domain.Resolution, bool) {
	for _, s := range r.strategies {
		if res, ok := s(ctx, q); ok {
			return res, true
		}
	}
	return domain.Resolution{}, false
}

// ResolveExplicit checks a caller-supplied category ID on its own, without
// the later fallback steps. A resolver built from a custom chain runs the
// chain and keeps only an explicit hit.
func (r *Resolver) ResolveExplicit(ctx context.Context, id int64) (domain.Resolution, bool) {
	q := Query{ExplicitCategoryID: &id}
	if r.explicit != nil {
		return r.explicit(ctx, q)
	}
	res, ok := r.Resolve(ctx, q)
	if !ok || res.Source != domain.SourceExplicit {
		return domain.Resolution{}, false
	}
	return res, true
}

// ExplicitStrategy accepts a caller-supplied category ID that exists and
// has an agency.
func ExplicitStrategy(store CategoryStore, log logger.Logger) Strategy {
	return func(ctx context.Context, q Query) (domain.Resolution, bool) {
		if q.ExplicitCategoryID == nil {
			return domain.Resolution{}, false
		}
		cat, err := store.FindCategoryByID(ctx, *q.ExplicitCategoryID)
		return accept(cat, err, domain.SourceExplicit, log, logger.Int64("category_id", *q.ExplicitCategoryID))
	}
}

// ClassifiedStrategy accepts the classifier's category name when a category
// with exactly that name has an agency.
func ClassifiedStrategy(store CategoryStore, log logger.Logger) Strategy {
	return func(ctx context.Context, q Query) (domain.Resolution, bool) {
		if q.ClassifiedName == "" {
			return domain.Resolution{}, false
		}
		cat, err := store.FindCategoryByName(ctx, q.ClassifiedName)
		return accept(cat, err, domain.SourceClassified, log, logger.String("category", q.ClassifiedName))
	}
}

// DefaultStrategy routes to the named catch-all category.
func DefaultStrategy(store CategoryStore, name string, log logger.Logger) Strategy {
	return func(ctx context.Context, _ Query) (domain.Resolution, bool) {
		cat, err := store.FindCategoryByName(ctx, name)
		res, ok := accept(cat, err, domain.SourceDefault, log, logger.String("category", name))
		if !ok {
			log.Warn("Default category unavailable, submission will be unrouted",
				logger.String("category", name))
		}
		return res, ok
	}
}

// accept turns a lookup into a resolution. Storage errors are misses.
func accept(cat *domain.Category, err error, source domain.RoutingSource, log logger.Logger, key logger.Field) (domain.Resolution, bool) {
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error("Category lookup failed",
				logger.String("strategy", string(source)),
				key,
				logger.Error(err),
			)
		}
		return domain.Resolution{}, false
	}
	if cat == nil || cat.AgencyID == nil {
		log.Debug("Category has no agency", logger.String("strategy", string(source)), key)
		return domain.Resolution{}, false
	}

	return domain.Resolution{
		CategoryID:   cat.ID,
		AgencyID:     *cat.AgencyID,
		CategoryName: cat.Name,
		Source:       source,
	}, true
}
