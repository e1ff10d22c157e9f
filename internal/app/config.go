package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters, loaded from RIPPLE_*
// environment variables.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`

	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"1h"`

	Database Database `envPrefix:"DATABASE_"`
	Auth     Auth     `envPrefix:"AUTH_"`
}

// Database contains connection parameters for the Postgres store.
type Database struct {
	DSN      string `env:"DSN,required"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
}

// Auth contains token issuance parameters.
type Auth struct {
	// Secret signs access and refresh tokens. Must be at least 32 bytes;
	// the codec rejects shorter keys at startup.
	Secret string `env:"SECRET,required,unset"`

	AccessTTL    time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL   time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
	ClockSkew    time.Duration `env:"CLOCK_SKEW" envDefault:"2m"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "RIPPLE_"}); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
