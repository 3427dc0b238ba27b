package bootstrap

import (
	"context"

	infraes "github.com/jonesrussell/civic-triage/infrastructure/elasticsearch"
	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/config"
	"github.com/jonesrussell/civic-triage/internal/search"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// SetupSearchIndex connects to Elasticsearch and ensures the submission
// index exists. Returns nil if search is disabled or unavailable.
func SetupSearchIndex(
	ctx context.Context,
	cfg *config.Config,
	tp *telemetry.Provider,
	log infralogger.Logger,
) *search.Index {
	if !cfg.Elasticsearch.Enabled {
		return nil
	}

	client, err := infraes.NewClient(ctx, cfg.Elasticsearch.Config, log)
	if err != nil {
		log.Warn("Elasticsearch not available, search disabled", infralogger.Error(err))
		return nil
	}

	index := search.New(client, log,
		search.WithIndexName(cfg.Elasticsearch.Index),
		search.WithTelemetry(tp),
	)
	if err = index.EnsureIndex(ctx); err != nil {
		log.Warn("Failed to ensure search index, search disabled",
			infralogger.String("index", cfg.Elasticsearch.Index),
			infralogger.Error(err),
		)
		return nil
	}
	return index
}
