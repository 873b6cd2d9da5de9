package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port               string       `env:"PORT" envDefault:"8080"`
	DBConnectionString string       `env:"DB_CONNECTION_STRING"`
	APIToken           string       `env:"SYNC_API_TOKEN"`
	LogLevel           string       `env:"LOG_LEVEL" envDefault:"info"`
	Remote             RemoteConfig `envPrefix:"ONBOARDING_"`
	Sync               SyncConfig   `envPrefix:"SYNC_"`
}

// Load reads the configuration from the environment, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	return cfg, nil
}

// Validate checks the minimum configuration the server needs to start.
func (c *Config) Validate() error {
	var errs []error
	if c.DBConnectionString == "" {
		errs = append(errs, errors.New("DB_CONNECTION_STRING must be set"))
	}
	if c.APIToken == "" {
		errs = append(errs, errors.New("SYNC_API_TOKEN must be set"))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.Sync.BatchSize))
	}
	if c.Sync.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("SYNC_BATCH_DELAY cannot be negative, got %s", c.Sync.BatchDelay))
	}
	if c.Sync.Interval < 0 {
		errs = append(errs, fmt.Errorf("SYNC_INTERVAL cannot be negative, got %s", c.Sync.Interval))
	}
	if c.Remote.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("ONBOARDING_MAX_RETRIES cannot be negative, got %d", c.Remote.MaxRetries))
	}
	return errors.Join(errs...)
}
