package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type (
	// Config is loaded once at startup and never mutated afterwards,
	// every component receives the same pointer.
	Config struct {
		GASURL         string `envconfig:"GAS_URL"`
		Pepper         string `envconfig:"PEPPER"`
		SuperadminUser string `envconfig:"SUPERADMIN_USER"`
		SuperadminHash string `envconfig:"SUPERADMIN_HASH"`
		Port           int    `envconfig:"PORT" default:"10000"`

		ServiceName string        `envconfig:"SERVICE_NAME" default:"puente_API_ID_rdAlmacen"`
		GASTimeout  time.Duration `envconfig:"GAS_TIMEOUT" default:"20s"`
		BcryptCost  int           `envconfig:"BCRYPT_COST" default:"12"`

		LoginRateLimit    int           `envconfig:"LOGIN_RATE_LIMIT" default:"100"`
		RegisterRateLimit int           `envconfig:"REGISTER_RATE_LIMIT" default:"50"`
		RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
		RateLimitRedisURL string        `envconfig:"RATE_LIMIT_REDIS_URL"`
		TrustProxy        bool          `envconfig:"TRUST_PROXY" default:"false"`

		UniformAuthErrors bool     `envconfig:"UNIFORM_AUTH_ERRORS" default:"false"`
		AllowedOrigins    []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	}
)

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to read configuration from environment, cause %w", err)
	}
	cfg.GASURL = strings.TrimSpace(cfg.GASURL)
	cfg.SuperadminUser = strings.TrimSpace(cfg.SuperadminUser)
	cfg.SuperadminHash = strings.TrimSpace(cfg.SuperadminHash)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid PORT %v", c.Port)
	case c.GASTimeout <= 0:
		return fmt.Errorf("GAS_TIMEOUT must be positive, got %v", c.GASTimeout)
	case c.LoginRateLimit <= 0 || c.RegisterRateLimit <= 0:
		return fmt.Errorf("rate limits must be positive, got login=%v register=%v", c.LoginRateLimit, c.RegisterRateLimit)
	case c.RateLimitWindow <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.RateLimitWindow)
	}
	return nil
}

// GASConfigured reports if the remote directory endpoint is known.
func (c *Config) GASConfigured() bool {
	return c != nil && c.GASURL != ""
}

// SuperadminConfigured is true only when both the identifier and the hash are set.
func (c *Config) SuperadminConfigured() bool {
	return c != nil && c.SuperadminUser != "" && c.SuperadminHash != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%v", c.Port)
}
