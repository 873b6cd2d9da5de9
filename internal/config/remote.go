package config

import "time"

// RemoteConfig holds onboarding portal API configuration
type RemoteConfig struct {
	BaseURL    string        `env:"API_URL"`
	APIKey     string        `env:"API_KEY"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"2s"`
}

// DefaultRemoteConfig returns the default onboarding API configuration
func DefaultRemoteConfig() *RemoteConfig {
	return &RemoteConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}
