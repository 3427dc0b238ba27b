package bootstrap

import (
	"fmt"

	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/classifier"
	"github.com/jonesrussell/civic-triage/internal/config"
	"github.com/jonesrussell/civic-triage/internal/lexicon"
	"github.com/jonesrussell/civic-triage/internal/routing"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
	"github.com/jonesrussell/civic-triage/internal/ticket"
)

// SetupClassifier loads the lexicon and builds the keyword classifier.
func SetupClassifier(cfg *config.Config, log infralogger.Logger) *classifier.Classifier {
	lex := lexicon.Load(cfg.Routing.LexiconPath, log)
	return classifier.New(lex,
		classifier.WithFallbackLanguage(cfg.Routing.FallbackLanguage),
		classifier.WithLogger(log),
	)
}

// SetupRouter builds the routing orchestrator over store.
func SetupRouter(
	cfg *config.Config,
	store routing.CategoryStore,
	tp *telemetry.Provider,
	log infralogger.Logger,
) *routing.Router {
	resolver := routing.NewResolver(store, cfg.Routing.DefaultCategory, log)
	return routing.NewRouter(SetupClassifier(cfg, log), resolver, tp, log)
}

// SetupTicketIssuer builds the ticket generator and its retrying issuer.
func SetupTicketIssuer(
	cfg *config.Config,
	store ticket.Store,
	tp *telemetry.Provider,
	log infralogger.Logger,
) (*ticket.Issuer, error) {
	loc, err := cfg.Ticket.Location()
	if err != nil {
		return nil, fmt.Errorf("ticket location: %w", err)
	}

	gen := ticket.NewGenerator(store, log,
		ticket.WithPrefix(cfg.Ticket.Prefix),
		ticket.WithLocation(loc),
		ticket.WithTelemetry(tp),
	)
	opts := []ticket.IssuerOption{
		ticket.WithMaxAttempts(cfg.Ticket.MaxAttempts),
		ticket.WithIssuerTelemetry(tp),
	}
	if cfg.Ticket.RetryDelay > 0 {
		opts = append(opts, ticket.WithRetryDelay(cfg.Ticket.RetryDelay))
	}
	return ticket.NewIssuer(gen, store, log, opts...), nil
}
