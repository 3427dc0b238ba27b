// Package config holds the civic-triage service configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	infraconfig "github.com/jonesrussell/civic-triage/infrastructure/config"
	infraes "github.com/jonesrussell/civic-triage/infrastructure/elasticsearch"
	infraevents "github.com/jonesrussell/civic-triage/infrastructure/events"
	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/infrastructure/profiling"
	infraredis "github.com/jonesrussell/civic-triage/infrastructure/redis"
	"github.com/jonesrussell/civic-triage/internal/database"
	"github.com/jonesrussell/civic-triage/internal/digest"
	"github.com/jonesrussell/civic-triage/internal/search"
)

const (
	defaultServiceName      = "civic-triage"
	defaultServicePort      = 8080
	defaultServerTimeout    = 30 * time.Second
	defaultJWTExpiration    = 24 * time.Hour
	defaultJWTIssuer        = "civic-triage"
	defaultLexiconPath      = "data/lexicon.json"
	defaultFallback         = "english"
	defaultCategory         = "General"
	defaultTicketPrefix     = "CE"
	defaultTicketAttempts   = 5
	defaultRateLimitRPS     = 1.0
	defaultRateLimitBurst   = 5
	defaultRedisAddress     = "localhost:6379"
	defaultElasticsearchURL = "http://localhost:9200"
	minJWTSecretLength      = 32
)

// Config is the root service configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Database      database.Config     `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Logging       infralogger.Config  `yaml:"logging"`
	Auth          AuthConfig          `yaml:"auth"`
	Routing       RoutingConfig       `yaml:"routing"`
	Ticket        TicketConfig        `yaml:"ticket"`
	Intake        IntakeConfig        `yaml:"intake"`
	Digest        DigestConfig        `yaml:"digest"`
	Profiling     profiling.Config    `yaml:"profiling"`
}

type ServiceConfig struct {
	Name         string        `env:"SERVICE_NAME"    yaml:"name"`
	Version      string        `env:"SERVICE_VERSION" yaml:"version"`
	Port         int           `env:"SERVICE_PORT"    yaml:"port"`
	Debug        bool          `env:"APP_DEBUG"       yaml:"debug"`
	CORSOrigins  []string      `env:"CORS_ORIGINS"    yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RedisConfig enables event publishing.
type RedisConfig struct {
	infraredis.Config `yaml:",inline"`

	Enabled bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
	Stream  string `env:"REDIS_EVENTS_STREAM"  yaml:"stream"`
}

// ElasticsearchConfig enables submission search.
type ElasticsearchConfig struct {
	infraes.Config `yaml:",inline"`

	Enabled bool   `env:"ELASTICSEARCH_ENABLED" yaml:"enabled"`
	Index   string `env:"ELASTICSEARCH_INDEX"   yaml:"index"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"AUTH_JWT_SECRET"     yaml:"jwt_secret"`
	JWTExpiration time.Duration `env:"AUTH_JWT_EXPIRATION" yaml:"jwt_expiration"`
	Issuer        string        `yaml:"issuer"`
}

// RoutingConfig drives classification and category resolution.
type RoutingConfig struct {
	LexiconPath      string   `env:"LEXICON_PATH"      yaml:"lexicon_path"`
	FallbackLanguage string   `yaml:"fallback_language"`
	DefaultCategory  string   `yaml:"default_category"`
	Languages        []string `env:"ROUTING_LANGUAGES" yaml:"languages"`
}

type TicketConfig struct {
	Prefix      string `env:"TICKET_PREFIX" yaml:"prefix"`
	MaxAttempts int    `yaml:"max_attempts"`
	// Timezone is an IANA name. Empty means the server's local zone.
	Timezone   string        `env:"TICKET_TIMEZONE" yaml:"timezone"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// IntakeConfig limits public submissions per client IP.
type IntakeConfig struct {
	RateLimit float64 `env:"INTAKE_RATE_LIMIT" yaml:"rate_limit"`
	Burst     int     `env:"INTAKE_BURST"      yaml:"burst"`
}

type DigestConfig struct {
	Enabled  bool   `env:"DIGEST_ENABLED"  yaml:"enabled"`
	Schedule string `env:"DIGEST_SCHEDULE" yaml:"schedule"`
}

// Location resolves Timezone.
func (t TicketConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(t.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(infraconfig.ValidateRequired("service.name", c.Service.Name))
	add(infraconfig.ValidatePort("service.port", c.Service.Port))
	add(infraconfig.ValidateOneOf("database.driver", c.Database.Driver,
		database.DriverPostgres, database.DriverSQLite))
	if c.Database.Driver == database.DriverPostgres {
		add(infraconfig.ValidateRequired("database.host", c.Database.Host))
		add(infraconfig.ValidateRequired("database.user", c.Database.User))
		add(infraconfig.ValidateRequired("database.dbname", c.Database.DBName))
	}
	if c.Database.Driver == database.DriverSQLite {
		add(infraconfig.ValidateRequired("database.path", c.Database.Path))
	}
	if c.Redis.Enabled {
		add(infraconfig.ValidateRequired("redis.address", c.Redis.Address))
	}
	if c.Elasticsearch.Enabled {
		add(infraconfig.ValidateRequired("elasticsearch.url", c.Elasticsearch.URL))
	}
	add(infraconfig.ValidateLogLevel(c.Logging.Level))
	add(infraconfig.ValidateRequired("auth.jwt_secret", c.Auth.JWTSecret))
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecretLength {
		add(&infraconfig.ValidationError{
			Field:   "auth.jwt_secret",
			Message: fmt.Sprintf("must be at least %d characters", minJWTSecretLength),
		})
	}
	add(infraconfig.ValidateRequired("routing.default_category", c.Routing.DefaultCategory))
	if len(c.Routing.Languages) == 0 {
		add(&infraconfig.ValidationError{Field: "routing.languages", Message: "is required"})
	}
	add(infraconfig.ValidatePositive("ticket.max_attempts", c.Ticket.MaxAttempts))
	if _, err := c.Ticket.Location(); err != nil {
		add(&infraconfig.ValidationError{Field: "ticket.timezone", Message: err.Error()})
	}
	if c.Intake.RateLimit <= 0 {
		add(&infraconfig.ValidationError{Field: "intake.rate_limit", Message: "must be greater than zero"})
	}
	add(infraconfig.ValidatePositive("intake.burst", c.Intake.Burst))
	if c.Digest.Enabled {
		add(infraconfig.ValidateRequired("digest.schedule", c.Digest.Schedule))
	}

	return errors.Join(errs...)
}

// Load reads path, applies defaults and environment overrides, and validates.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = defaultServicePort
	}
	if cfg.Service.ReadTimeout == 0 {
		cfg.Service.ReadTimeout = defaultServerTimeout
	}
	if cfg.Service.WriteTimeout == 0 {
		cfg.Service.WriteTimeout = defaultServerTimeout
	}
	if len(cfg.Service.CORSOrigins) == 0 {
		cfg.Service.CORSOrigins = []string{"http://localhost:3000"}
	}

	cfg.Database.SetDefaults()
	cfg.Profiling.SetDefaults()

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = infraevents.StreamName
	}
	if cfg.Elasticsearch.URL == "" {
		cfg.Elasticsearch.URL = defaultElasticsearchURL
	}
	if rc := cfg.Elasticsearch.RetryConfig; rc != nil && rc.MaxAttempts == 0 {
		cfg.Elasticsearch.RetryConfig = nil
	}
	cfg.Elasticsearch.SetDefaults()
	if cfg.Elasticsearch.Index == "" {
		cfg.Elasticsearch.Index = search.DefaultIndexName
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = infralogger.DefaultLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = infralogger.DefaultFormat
	}

	if cfg.Auth.JWTExpiration == 0 {
		cfg.Auth.JWTExpiration = defaultJWTExpiration
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = defaultJWTIssuer
	}

	if cfg.Routing.LexiconPath == "" {
		cfg.Routing.LexiconPath = defaultLexiconPath
	}
	if cfg.Routing.FallbackLanguage == "" {
		cfg.Routing.FallbackLanguage = defaultFallback
	}
	if cfg.Routing.DefaultCategory == "" {
		cfg.Routing.DefaultCategory = defaultCategory
	}
	if len(cfg.Routing.Languages) == 0 {
		cfg.Routing.Languages = []string{"english", "kinyarwanda"}
	}

	if cfg.Ticket.Prefix == "" {
		cfg.Ticket.Prefix = defaultTicketPrefix
	}
	if cfg.Ticket.MaxAttempts == 0 {
		cfg.Ticket.MaxAttempts = defaultTicketAttempts
	}

	if cfg.Intake.RateLimit == 0 {
		cfg.Intake.RateLimit = defaultRateLimitRPS
	}
	if cfg.Intake.Burst == 0 {
		cfg.Intake.Burst = defaultRateLimitBurst
	}

	if cfg.Digest.Schedule == "" {
		cfg.Digest.Schedule = digest.DefaultSchedule
	}
}
