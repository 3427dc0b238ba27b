package bootstrap

import (
	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/civic-triage/infrastructure/gin"
	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/api"
	"github.com/jonesrussell/civic-triage/internal/config"
	"github.com/jonesrussell/civic-triage/internal/database"
	"github.com/jonesrussell/civic-triage/internal/events"
	"github.com/jonesrussell/civic-triage/internal/search"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// HTTPDeps are the collaborators the HTTP server is built from.
type HTTPDeps struct {
	Handler   *api.Handler
	Tokens    *jwt.Manager
	Limiter   *api.RateLimiter
	Store     *database.Store
	Publisher *events.Publisher
	Index     *search.Index
	Telemetry *telemetry.Provider
}

// SetupHTTPServer creates and configures the HTTP server.
func SetupHTTPServer(cfg *config.Config, deps HTTPDeps, version string, log infralogger.Logger) *infragin.Server {
	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(version).
		WithCORSOrigins(cfg.Service.CORSOrigins).
		WithTimeouts(cfg.Service.ReadTimeout, cfg.Service.WriteTimeout, 0).
		WithHealthCheck("database", infragin.PingCheck(deps.Store.Ping, true)).
		WithMetricsHandler(deps.Telemetry.Handler()).
		WithRoutes(func(router *gin.Engine) {
			api.RegisterRoutes(router, deps.Handler, deps.Tokens, deps.Limiter)
		})

	if deps.Publisher != nil {
		builder = builder.WithHealthCheck("redis", infragin.PingCheck(deps.Publisher.Ping, false))
	}
	if deps.Index != nil {
		builder = builder.WithHealthCheck("elasticsearch", infragin.PingCheck(deps.Index.Ping, false))
	}

	return builder.Build()
}
