// Package bootstrap handles application initialization and lifecycle management
// for the civic-triage service.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	infracontext "github.com/jonesrussell/civic-triage/infrastructure/context"
	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/infrastructure/profiling"
	"github.com/jonesrussell/civic-triage/internal/api"
	"github.com/jonesrussell/civic-triage/internal/auth"
	"github.com/jonesrussell/civic-triage/internal/config"
	"github.com/jonesrussell/civic-triage/internal/digest"
	"github.com/jonesrussell/civic-triage/internal/events"
	"github.com/jonesrussell/civic-triage/internal/intake"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// Serve runs the HTTP service until a shutdown signal or ctx cancellation.
func Serve(ctx context.Context, cfg *config.Config, log infralogger.Logger, version string) error {
	// Phase 0: profiling (if enabled)
	if pprofServer := profiling.StartPprofServer(cfg.Profiling, log); pprofServer != nil {
		defer func() { _ = pprofServer.Close() }()
	}
	pyro, err := profiling.StartPyroscope(cfg.Profiling, cfg.Service.Name, version, log)
	if err != nil {
		log.Warn("Continuous profiling disabled", infralogger.Error(err))
	}
	defer func() { _ = pyro.Stop() }()

	ctx = infralogger.WithContext(ctx, log)
	tp := telemetry.NewProvider()

	// Phase 1: database
	db, store, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", infralogger.Error(closeErr))
		}
	}()

	// Phase 2: optional side channels
	publisher := SetupEventPublisher(ctx, cfg, tp, log)
	index := SetupSearchIndex(ctx, cfg, tp, log)

	// Phase 3: routing core and intake service
	router := SetupRouter(cfg, store, tp, log)
	issuer, err := SetupTicketIssuer(cfg, store, tp, log)
	if err != nil {
		return err
	}
	loc, err := cfg.Ticket.Location()
	if err != nil {
		return fmt.Errorf("ticket location: %w", err)
	}

	opts := []intake.Option{
		intake.WithLanguages(cfg.Routing.Languages...),
		intake.WithLocation(loc),
		intake.WithTelemetry(tp),
	}
	if publisher != nil {
		opts = append(opts, intake.WithPublisher(publisher))
	}
	if index != nil {
		opts = append(opts, intake.WithSearcher(index))
	}
	service := intake.NewService(store, router, issuer, log, opts...)

	// Phase 4: digest scheduler (needs the event stream)
	if cfg.Digest.Enabled {
		scheduler, schedErr := setupDigest(ctx, cfg, store, publisher, loc, log)
		if schedErr != nil {
			return schedErr
		}
		if scheduler != nil {
			defer func() {
				stopCtx, cancel := infracontext.WithShutdownTimeout()
				defer cancel()
				if stopErr := scheduler.Stop(stopCtx); stopErr != nil {
					log.Warn("Digest scheduler did not stop cleanly", infralogger.Error(stopErr))
				}
			}()
		}
	}

	// Phase 5: HTTP server
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration, cfg.Auth.Issuer)
	limiter := api.NewRateLimiter(cfg.Intake.RateLimit, cfg.Intake.Burst, tp)
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go limiter.Run(limiterCtx)

	server := SetupHTTPServer(cfg, HTTPDeps{
		Handler:   api.NewHandler(service, auth.NewAuthenticator(store, tokens, log)),
		Tokens:    tokens,
		Limiter:   limiter,
		Store:     store,
		Publisher: publisher,
		Index:     index,
		Telemetry: tp,
	}, version, log)

	log.Info("Starting HTTP server",
		infralogger.Int("port", cfg.Service.Port),
		infralogger.String("database_driver", cfg.Database.Driver),
		infralogger.Bool("events_enabled", publisher != nil),
		infralogger.Bool("search_enabled", index != nil),
	)

	if runErr := server.RunWithGracefulShutdown(ctx); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	drainCtx, cancel := infracontext.WithShutdownTimeout()
	defer cancel()
	if waitErr := publisher.Wait(drainCtx); waitErr != nil {
		log.Warn("Pending events were not flushed", infralogger.Error(waitErr))
	}

	log.Info("Server exited")
	return nil
}

func setupDigest(
	ctx context.Context,
	cfg *config.Config,
	store digest.Store,
	publisher *events.Publisher,
	loc *time.Location,
	log infralogger.Logger,
) (*digest.Scheduler, error) {
	if publisher == nil {
		log.Warn("Digest enabled but events are disabled, skipping scheduler")
		return nil, nil //nolint:nilnil // nothing to schedule
	}

	scheduler, err := digest.NewScheduler(store, publisher, cfg.Digest.Schedule, log,
		digest.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("digest scheduler: %w", err)
	}
	if err = scheduler.Start(ctx); err != nil {
		return nil, fmt.Errorf("start digest scheduler: %w", err)
	}
	return scheduler, nil
}
