package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/quantfolio/quantfolio/internal/authz"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// DATABASE_URL is optional. Without it the service runs in
	// allow-list-only authorization mode and the models/bots data surface
	// answers with empty collections.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	AuthResearchers  string `envconfig:"AUTH_RESEARCHERS"`
	AuthBotOperators string `envconfig:"AUTH_BOT_OPERATORS"`
	AuthAllowAll     bool   `envconfig:"AUTH_ALLOW_ALL"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// HasDatabase reports whether a relational database is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && c.DatabaseURL != ""
}

// AuthzConfig shapes the authorization settings for injection into the
// authz store, keeping that package free of environment reads.
func (c *Config) AuthzConfig() authz.Config {
	return authz.Config{
		Allowlists: map[authz.Role]string{
			authz.RoleResearcher:  c.AuthResearchers,
			authz.RoleBotOperator: c.AuthBotOperators,
		},
		AllowAll: c.AuthAllowAll,
	}
}
