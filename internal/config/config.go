package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full application configuration, loaded from environment
// variables. The three signing secrets are required: the process refuses to
// start without them rather than falling back to a compiled-in default.
type Config struct {
	// HTTP server.
	Addr            string        `env:"STAFFLY_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"STAFFLY_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Postgres credential store. Optional for tooling that runs without a
	// database; the API requires it.
	PostgresDSN string `env:"STAFFLY_PG_DSN"`

	// Token signing secrets. Access and refresh secrets must be independent.
	AccessSecret  string `env:"STAFFLY_ACCESS_SECRET,required"`
	RefreshSecret string `env:"STAFFLY_REFRESH_SECRET,required"`
	CSRFSecret    string `env:"STAFFLY_CSRF_SECRET,required"`

	// Cookie behavior. Secure is forced on outside development.
	CookieDomain string `env:"STAFFLY_COOKIE_DOMAIN"`
	Dev          bool   `env:"STAFFLY_DEV" envDefault:"false"`

	// Dashboard origins allowed by CORS.
	AllowedOrigins []string `env:"STAFFLY_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Per-IP rate limit applied to credential submission.
	LoginRateBurst  int `env:"STAFFLY_LOGIN_RATE_BURST" envDefault:"10"`
	LoginRatePerSec int `env:"STAFFLY_LOGIN_RATE_PER_SEC" envDefault:"5"`
}

// Load parses configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.AccessSecret) == "" ||
		strings.TrimSpace(c.RefreshSecret) == "" ||
		strings.TrimSpace(c.CSRFSecret) == "" {
		return fmt.Errorf("config: signing secrets must not be blank")
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("config: STAFFLY_ACCESS_SECRET and STAFFLY_REFRESH_SECRET must differ")
	}
	if c.LoginRateBurst <= 0 {
		c.LoginRateBurst = 10
	}
	if c.LoginRatePerSec <= 0 {
		c.LoginRatePerSec = 5
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// CookieSecure reports whether cookies must carry the Secure attribute.
func (c *Config) CookieSecure() bool {
	return !c.Dev
}
