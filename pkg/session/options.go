package session

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring the Store
type Option func(*Store)

// WithConfig sets custom configuration
func WithConfig(config Config) Option {
	return func(s *Store) {
		s.config = config
	}
}

// WithMaxSessionAge sets the TTL applied to new sessions
func WithMaxSessionAge(d time.Duration) Option {
	return func(s *Store) {
		s.config.MaxSessionAge = d
	}
}

// WithCleanupInterval sets the sweep interval. Zero disables the sweeper.
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.config.CleanupInterval = interval
	}
}

// WithMaxAggregateMemory sets the eviction threshold in bytes. Zero disables eviction.
func WithMaxAggregateMemory(bytes int64) Option {
	return func(s *Store) {
		s.config.MaxAggregateMemory = bytes
	}
}

// WithSecureWipe zeroes payloads before sessions are released
func WithSecureWipe(enabled bool) Option {
	return func(s *Store) {
		s.config.SecureWipe = enabled
	}
}

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTickerFunc replaces the ticker used by the sweeper
func WithTickerFunc(fn TickerFunc) Option {
	return func(s *Store) {
		if fn != nil {
			s.newTicker = fn
		}
	}
}

// WithSweepHook registers a callback invoked after every sweep cycle
func WithSweepHook(fn func(SweepResult)) Option {
	return func(s *Store) {
		if fn != nil {
			s.sweepHooks = append(s.sweepHooks, fn)
		}
	}
}
