package session

import "time"

// Config holds store configuration. It is read once by New.
type Config struct {
	// MaxSessionAge is the TTL applied on create (default: 1h)
	MaxSessionAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"1h"`

	// CleanupInterval between sweeps (0 to disable the sweeper)
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// MaxAggregateMemory is the eviction threshold in bytes (0 to disable eviction)
	MaxAggregateMemory int64 `env:"SESSION_MAX_MEMORY" envDefault:"536870912"`

	// SecureWipe zeroes table cells and byte slices before a session is released
	SecureWipe bool `env:"SESSION_SECURE_WIPE" envDefault:"false"`
}

// DefaultConfig returns default store configuration
func DefaultConfig() Config {
	return Config{
		MaxSessionAge:      time.Hour,
		CleanupInterval:    5 * time.Minute,
		MaxAggregateMemory: 512 << 20,
		SecureWipe:         false,
	}
}

// NewFromConfig creates a new Store from the provided Config.
func NewFromConfig(cfg Config, opts ...Option) *Store {
	configOpts := []Option{
		WithConfig(cfg),
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
