package bootstrap

import (
	"context"

	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	infraredis "github.com/jonesrussell/civic-triage/infrastructure/redis"
	"github.com/jonesrussell/civic-triage/internal/config"
	"github.com/jonesrussell/civic-triage/internal/events"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// SetupEventPublisher creates an optional event publisher if Redis is enabled.
// Returns nil if Redis is disabled or unavailable.
func SetupEventPublisher(
	ctx context.Context,
	cfg *config.Config,
	tp *telemetry.Provider,
	log infralogger.Logger,
) *events.Publisher {
	if !cfg.Redis.Enabled {
		return nil
	}

	client, err := infraredis.NewClient(ctx, cfg.Redis.Config)
	if err != nil {
		log.Warn("Redis not available, events disabled",
			infralogger.Error(err),
		)
		return nil
	}

	log.Info("Event publisher initialized",
		infralogger.String("redis_address", cfg.Redis.Address),
		infralogger.String("stream", cfg.Redis.Stream),
	)
	return events.NewPublisher(client, log,
		events.WithStream(cfg.Redis.Stream),
		events.WithTelemetry(tp),
	)
}
