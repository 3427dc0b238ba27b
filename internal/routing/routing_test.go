package routing_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/classifier"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/lexicon"
	"github.com/jonesrussell/civic-triage/internal/routing"
	"github.com/jonesrussell/civic-triage/internal/testhelpers"
)

type fixture struct {
	store      *testhelpers.MemoryStore
	wasac      int64
	rtda       int64
	rura       int64
	water      int64
	roads      int64
	orphan     int64
	general    int64
	classifier *countingClassifier
	router     *routing.Router
}

type countingClassifier struct {
	inner routing.Classifier
	calls atomic.Int32
}

func (c *countingClassifier) Classify(description, language string) (string, bool) {
	c.calls.Add(1)
	return c.inner.Classify(description, language)
}

func ptr(v int64) *int64 { return &v }

func newFixture(t *testing.T, withGeneral bool) *fixture {
	t.Helper()

	f := &fixture{store: testhelpers.NewMemoryStore()}
	f.wasac = f.store.AddAgency("WASAC")
	f.rtda = f.store.AddAgency("RTDA")
	f.rura = f.store.AddAgency("RURA")
	f.water = f.store.AddCategory("Water Supply", ptr(f.wasac))
	f.roads = f.store.AddCategory("Roads", ptr(f.rtda))
	f.orphan = f.store.AddCategory("Noise", nil)
	if withGeneral {
		f.general = f.store.AddCategory("General", ptr(f.rura))
	}

	lex := lexicon.New(lexicon.Language{Name: "english", Categories: []lexicon.CategoryKeywords{
		{Category: "Water Supply", Keywords: []string{"water", "pipe", "tap"}},
		{Category: "Roads", Keywords: []string{"road", "pothole"}},
		{Category: "Noise", Keywords: []string{"noise", "loud music"}},
		{Category: "Unknown Category", Keywords: []string{"dragon"}},
	}})

	f.classifier = &countingClassifier{inner: classifier.New(lex)}
	resolver := routing.NewResolver(f.store, routing.DefaultCategoryName, logger.NewNop())
	f.router = routing.NewRouter(f.classifier, resolver, nil, logger.NewNop())
	return f
}

func TestRoute_ExplicitShortCircuit(t *testing.T) {
	f := newFixture(t, true)

	descriptions := []string{
		"There is a pothole on the main road",
		"No water from the tap for three days",
		"",
		"completely unrelated text about dragons",
	}

	for _, desc := range descriptions {
		res, ok := f.router.Route(context.Background(), routing.Request{
			Description:        desc,
			Language:           "english",
			ExplicitCategoryID: ptr(f.water),
		})

		require.True(t, ok, desc)
		assert.Equal(t, domain.SourceExplicit, res.Source)
		assert.Equal(t, f.water, res.CategoryID)
		assert.Equal(t, f.wasac, res.AgencyID)
	}
	assert.Zero(t, f.classifier.calls.Load(), "classifier must not run for a valid explicit category")
}

func TestRoute_InvalidExplicitFallsToClassified(t *testing.T) {
	f := newFixture(t, true)

	for name, explicit := range map[string]int64{
		"unknown id":         9999,
		"category no agency": f.orphan,
	} {
		t.Run(name, func(t *testing.T) {
			res, ok := f.router.Route(context.Background(), routing.Request{
				Description:        "huge pothole on the road",
				Language:           "english",
				ExplicitCategoryID: ptr(explicit),
			})

			require.True(t, ok)
			assert.Equal(t, domain.SourceClassified, res.Source)
			assert.Equal(t, f.roads, res.CategoryID)
			assert.Equal(t, f.rtda, res.AgencyID)
		})
	}
}

type nameRecordingStore struct {
	routing.CategoryStore
	mu    sync.Mutex
	names []string
}

func (s *nameRecordingStore) FindCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	return s.CategoryStore.FindCategoryByName(ctx, name)
}

func TestRoute_InvalidExplicitSkipsDefaultLookup(t *testing.T) {
	f := newFixture(t, false)
	store := &nameRecordingStore{CategoryStore: f.store}
	log, logs := testhelpers.ObservedLogger(t)
	router := routing.NewRouter(f.classifier, routing.NewResolver(store, routing.DefaultCategoryName, log), nil, log)

	res, ok := router.Route(context.Background(), routing.Request{
		Description:        "huge pothole on the road",
		Language:           "english",
		ExplicitCategoryID: ptr(9999),
	})

	require.True(t, ok)
	assert.Equal(t, domain.SourceClassified, res.Source)
	assert.Equal(t, []string{"Roads"}, store.names)
	assert.Zero(t, logs.FilterMessage("Default category unavailable, submission will be unrouted").Len())
}

func TestResolver_ResolveExplicit(t *testing.T) {
	f := newFixture(t, true)
	store := &nameRecordingStore{CategoryStore: f.store}
	r := routing.NewResolver(store, routing.DefaultCategoryName, logger.NewNop())
	ctx := context.Background()

	res, ok := r.ResolveExplicit(ctx, f.water)
	require.True(t, ok)
	assert.Equal(t, routingResult(f.water, f.wasac, "Water Supply", domain.SourceExplicit), res)

	_, ok = r.ResolveExplicit(ctx, f.orphan)
	assert.False(t, ok)
	_, ok = r.ResolveExplicit(ctx, 9999)
	assert.False(t, ok)
	assert.Empty(t, store.names)

	custom := routing.NewResolverWithStrategies(func(context.Context, routing.Query) (domain.Resolution, bool) {
		return routingResult(f.general, f.rura, "General", domain.SourceDefault), true
	})
	_, ok = custom.ResolveExplicit(ctx, f.water)
	assert.False(t, ok, "non-explicit hits are not explicit resolutions")
}

func TestRoute_Classified(t *testing.T) {
	f := newFixture(t, true)

	res, ok := f.router.Route(context.Background(), routing.Request{
		Description: "The PIPE burst and water is everywhere",
		Language:    "english",
	})

	require.True(t, ok)
	assert.Equal(t, routingResult(f.water, f.wasac, "Water Supply", domain.SourceClassified), res)
	assert.Equal(t, int32(1), f.classifier.calls.Load())
}

func TestRoute_FallsBackToGeneral(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name        string
		description string
		explicit    *int64
	}{
		{"no keyword matches", "my neighbour keeps chickens", nil},
		{"classified category has no agency", "loud music every night", nil},
		{"classified category missing from storage", "a dragon ate my goat", nil},
		{"invalid explicit and no match", "my neighbour keeps chickens", ptr(424242)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := f.router.Route(context.Background(), routing.Request{
				Description:        tt.description,
				Language:           "english",
				ExplicitCategoryID: tt.explicit,
			})

			require.True(t, ok)
			assert.Equal(t, routingResult(f.general, f.rura, "General", domain.SourceDefault), res)
		})
	}
}

func TestRoute_NoneWhenGeneralMissing(t *testing.T) {
	f := newFixture(t, false)

	_, ok := f.router.Route(context.Background(), routing.Request{
		Description: "my neighbour keeps chickens",
		Language:    "english",
	})

	assert.False(t, ok)
}

func TestRoute_StorageFailureYieldsNone(t *testing.T) {
	f := newFixture(t, true)
	f.store.CategoryErr = errors.New("connection refused")

	_, ok := f.router.Route(context.Background(), routing.Request{
		Description:        "pothole on the road",
		Language:           "english",
		ExplicitCategoryID: ptr(f.roads),
	})

	assert.False(t, ok)
}

func TestRoute_AgencyAlwaysMatchesCategory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	requests := []routing.Request{
		{Description: "water pipe", Language: "english"},
		{Description: "pothole", Language: "english"},
		{Description: "nothing", Language: "english"},
		{Description: "pothole", Language: "english", ExplicitCategoryID: ptr(f.water)},
		{Description: "water", Language: "english", ExplicitCategoryID: ptr(f.orphan)},
		{Description: "water", Language: "kinyarwanda"},
	}

	for _, req := range requests {
		res, ok := f.router.Route(ctx, req)
		require.True(t, ok)

		cat, err := f.store.FindCategoryByID(ctx, res.CategoryID)
		require.NoError(t, err)
		require.NotNil(t, cat.AgencyID)
		assert.Equal(t, *cat.AgencyID, res.AgencyID)
		assert.Equal(t, cat.Name, res.CategoryName)
	}
}

func TestResolver_DefaultCategoryName(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	agency := store.AddAgency("MINALOC")
	other := store.AddCategory("Other", ptr(agency))

	r := routing.NewResolver(store, "Other", logger.NewNop())
	res, ok := r.Resolve(context.Background(), routing.Query{})

	require.True(t, ok)
	assert.Equal(t, routingResult(other, agency, "Other", domain.SourceDefault), res)
}

func TestResolver_StrategyOrder(t *testing.T) {
	var order []string
	strategy := func(name string, hit bool) routing.Strategy {
		return func(context.Context, routing.Query) (domain.Resolution, bool) {
			order = append(order, name)
			return domain.Resolution{CategoryName: name}, hit
		}
	}

	r := routing.NewResolverWithStrategies(strategy("a", false), strategy("b", true), strategy("c", true))
	res, ok := r.Resolve(context.Background(), routing.Query{})

	require.True(t, ok)
	assert.Equal(t, "b", res.CategoryName)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestResolver_LogsStorageErrors(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	store.CategoryErr = errors.New("timeout")
	log, logs := testhelpers.ObservedLogger(t)

	_, ok := routing.NewResolver(store, "", log).Resolve(context.Background(), routing.Query{ClassifiedName: "Roads"})

	assert.False(t, ok)
	assert.Equal(t, 2, logs.FilterMessage("Category lookup failed").Len())
}

func routingResult(categoryID, agencyID int64, name string, source domain.RoutingSource) domain.Resolution {
	return domain.Resolution{CategoryID: categoryID, AgencyID: agencyID, CategoryName: name, Source: source}
}
