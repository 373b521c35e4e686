package dispatcher

import "github.com/dshills/persona/internal/dispatcher/hook"

// Config holds dispatcher configuration options.
type Config struct {
	// RecoverFromPanic converts role function panics into ErrPanic errors.
	RecoverFromPanic bool

	// MaxCallDepth limits nesting of re-entrant calls.
	// Zero means no limit.
	MaxCallDepth int

	// EnableMetrics enables per-method call statistics.
	EnableMetrics bool

	// AutoAssert re-evaluates assertions after an external call that
	// changed the data segment.
	AutoAssert bool

	// Logger receives transition and audit logs. Nil disables logging.
	Logger hook.Logger

	// InitialData seeds the data segment after the definition's initializers.
	InitialData map[string]any
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RecoverFromPanic: true,
		MaxCallDepth:     256,
		EnableMetrics:    false,
		AutoAssert:       true,
	}
}

// WithMetrics returns a copy of the config with metrics enabled.
func (c Config) WithMetrics() Config {
	c.EnableMetrics = true
	return c
}

// WithPanicRecovery returns a copy of the config with panic recovery set.
func (c Config) WithPanicRecovery(recover bool) Config {
	c.RecoverFromPanic = recover
	return c
}

// WithMaxCallDepth returns a copy of the config with the depth limit set.
func (c Config) WithMaxCallDepth(depth int) Config {
	c.MaxCallDepth = depth
	return c
}

// WithAutoAssert returns a copy of the config with automatic assertion
// evaluation set.
func (c Config) WithAutoAssert(enabled bool) Config {
	c.AutoAssert = enabled
	return c
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(logger hook.Logger) Config {
	c.Logger = logger
	return c
}

// WithInitialData returns a copy of the config with seed data set.
func (c Config) WithInitialData(data map[string]any) Config {
	c.InitialData = data
	return c
}
