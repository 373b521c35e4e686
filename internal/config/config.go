package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/dispatcher/hook"
	"github.com/dshills/persona/internal/script"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PERSONA_"

// Config is the CLI configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Dispatcher DispatcherConfig `koanf:"dispatcher"`
	Script     ScriptConfig     `koanf:"script"`
	Paths      PathsConfig      `koanf:"paths"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // auto, text, json
}

// DispatcherConfig mirrors dispatcher.Config.
type DispatcherConfig struct {
	Depth   int  `koanf:"depth"`
	Recover bool `koanf:"recover"`
	Assert  bool `koanf:"assert"`
	Metrics bool `koanf:"metrics"`
}

// ScriptConfig bounds Lua role scripts.
type ScriptConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Stack   int           `koanf:"stack"`
}

// PathsConfig locates manifests and role scripts.
type PathsConfig struct {
	Manifests string `koanf:"manifests"`
	Scripts   string `koanf:"scripts"`
}

// TelemetryConfig toggles OpenTelemetry instrumentation.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Exporter string `koanf:"exporter"` // report, stdout
}

func defaults(k *koanf.Koanf) {
	_ = k.Set("log.level", "info")
	_ = k.Set("log.format", "auto")
	_ = k.Set("dispatcher.depth", 256)
	_ = k.Set("dispatcher.recover", true)
	_ = k.Set("dispatcher.assert", true)
	_ = k.Set("dispatcher.metrics", false)
	_ = k.Set("script.timeout", "2s")
	_ = k.Set("script.stack", script.DefaultCallStackSize)
	_ = k.Set("paths.manifests", "manifests")
	_ = k.Set("paths.scripts", "roles")
	_ = k.Set("telemetry.enabled", false)
	_ = k.Set("telemetry.exporter", "report")
}

// Load reads defaults, then the YAML file at path (if non-empty), then
// PERSONA_ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// PERSONA_SCRIPT_TIMEOUT -> script.timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Path: "log.level", Message: err.Error()}
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return &ValidationError{Path: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	switch c.Telemetry.Exporter {
	case "report", "stdout":
	default:
		return &ValidationError{Path: "telemetry.exporter", Message: fmt.Sprintf("unknown exporter %q", c.Telemetry.Exporter)}
	}
	if c.Dispatcher.Depth < 0 {
		return &ValidationError{Path: "dispatcher.depth", Message: "must not be negative"}
	}
	if c.Script.Timeout < 0 {
		return &ValidationError{Path: "script.timeout", Message: "must not be negative"}
	}
	if c.Script.Stack < 0 {
		return &ValidationError{Path: "script.stack", Message: "must not be negative"}
	}
	return nil
}

// DispatcherConfig converts the settings into a dispatcher.Config.
func (c *Config) DispatcherConfig(logger hook.Logger) dispatcher.Config {
	cfg := dispatcher.DefaultConfig().
		WithMaxCallDepth(c.Dispatcher.Depth).
		WithPanicRecovery(c.Dispatcher.Recover).
		WithAutoAssert(c.Dispatcher.Assert).
		WithLogger(logger)
	if c.Dispatcher.Metrics {
		cfg = cfg.WithMetrics()
	}
	return cfg
}

// ScriptOptions converts the settings into Lua state options.
func (c *Config) ScriptOptions() []script.StateOption {
	return []script.StateOption{
		script.WithExecutionTimeout(c.Script.Timeout),
		script.WithCallStackSize(c.Script.Stack),
	}
}
