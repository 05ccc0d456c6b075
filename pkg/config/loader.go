package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option adjusts how a single Load call parses the environment.
type Option func(*env.Options)

// WithPrefix scopes every env tag of the struct to prefix, e.g. "FORECAST_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithRequiredIfNoDefault marks every field without envDefault as required.
func WithRequiredIfNoDefault() Option {
	return func(o *env.Options) {
		o.RequiredIfNoDef = true
	}
}

// configCache keeps one parsed copy per (type, prefix).
type configCache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	globalCache = &configCache{values: make(map[string]any)}

	defaultEnvLoaded sync.Once
)

// Load parses environment variables into v according to its `env` tags.
// The default .env file is loaded once, if present. Each configuration type
// is parsed once per prefix; later calls are served from the cache.
//
// Example:
//
//	var cfg session.Config
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T, opts ...Option) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	key := cacheKey[T](o.Prefix)

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()

	if cached, ok := globalCache.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.ParseWithOptions(v, o); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	globalCache.values[key] = *v
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// LoadEnv loads one or more .env files into the process environment.
// Variables already set are not overridden.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// ResetCache drops every cached configuration. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	clear(globalCache.values)
}

func cacheKey[T any](prefix string) string {
	return reflect.TypeFor[T]().String() + "|" + prefix
}
