package config

import "time"

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	Interval          time.Duration `env:"INTERVAL" envDefault:"1h"`
	AutoSyncEnabled   bool          `env:"AUTO_ENABLED" envDefault:"true"`
	BatchSize         int           `env:"BATCH_SIZE" envDefault:"50"`
	BatchDelay        time.Duration `env:"BATCH_DELAY" envDefault:"0s"`
	KeepAliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"30s"`
	EventBuffer       int           `env:"EVENT_BUFFER" envDefault:"64"`
}

// BatchConfig holds batch processing configuration
type BatchConfig struct {
	Size       int
	BatchDelay time.Duration
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Interval:          time.Hour,
		AutoSyncEnabled:   true,
		BatchSize:         50,
		KeepAliveInterval: 30 * time.Second,
		EventBuffer:       64,
	}
}

// Batch derives the batch processor configuration from the sync settings
func (c *SyncConfig) Batch() BatchConfig {
	return BatchConfig{Size: c.BatchSize, BatchDelay: c.BatchDelay}
}
