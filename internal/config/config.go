// Package config loads pm configuration from PM_-prefixed environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "PM_"

// Config contains pm configuration parameters.
type Config struct {
	LogLevel int   `env:"LOG_LEVEL" envDefault:"4"`
	Vault    Vault `envPrefix:"VAULT_"`
	KDF      KDF   `envPrefix:"KDF_"`
	HIBP     HIBP  `envPrefix:"HIBP_"`
	Audit    Audit `envPrefix:"AUDIT_"`
}

// Vault contains vault file parameters.
type Vault struct {
	Dir           string `env:"DIR" envDefault:"." validate:"required"`
	AtomicWrites  bool   `env:"ATOMIC_WRITES" envDefault:"true"`
	EnforcePolicy bool   `env:"ENFORCE_POLICY" envDefault:"false"`
}

// KDF contains master credential derivation parameters. Iterations must
// match the value used when master.hash was created.
type KDF struct {
	Iterations int `env:"ITERATIONS" envDefault:"100000" validate:"min=100000"`
}

// HIBP contains breach-check parameters.
type HIBP struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	URL     string        `env:"URL" envDefault:"https://api.pwnedpasswords.com/range/" validate:"required,url"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"4s" validate:"gt=0"`
}

// Audit contains audit log parameters. An empty DB disables auditing.
type Audit struct {
	DB string `env:"DB"`
}

// NewConfig loads and validates configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
