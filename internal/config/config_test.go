package config_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/persona/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Dispatcher.Depth != 256 || !cfg.Dispatcher.Recover || !cfg.Dispatcher.Assert {
		t.Errorf("Dispatcher = %+v", cfg.Dispatcher)
	}
	if cfg.Script.Timeout != 2*time.Second {
		t.Errorf("Script.Timeout = %v, want 2s", cfg.Script.Timeout)
	}
	if cfg.Paths.Scripts != "roles" || cfg.Paths.Manifests != "manifests" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if cfg.Telemetry.Enabled || cfg.Telemetry.Exporter != "report" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")
	content := `
log:
  level: debug
  format: json
dispatcher:
  depth: 32
  metrics: true
script:
  timeout: 500ms
paths:
  scripts: /srv/roles
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PERSONA_DISPATCHER_DEPTH", "64")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Dispatcher.Depth != 64 {
		t.Errorf("env must override file: depth = %d", cfg.Dispatcher.Depth)
	}
	if !cfg.Dispatcher.Metrics {
		t.Error("metrics must be enabled from file")
	}
	if cfg.Script.Timeout != 500*time.Millisecond {
		t.Errorf("Script.Timeout = %v", cfg.Script.Timeout)
	}
	if cfg.Paths.Scripts != "/srv/roles" {
		t.Errorf("Paths.Scripts = %q", cfg.Paths.Scripts)
	}

	dc := cfg.DispatcherConfig(nil)
	if dc.MaxCallDepth != 64 || !dc.EnableMetrics || !dc.AutoAssert {
		t.Errorf("DispatcherConfig() = %+v", dc)
	}
	if len(cfg.ScriptOptions()) != 2 {
		t.Error("expected two script options")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		path string
	}{
		{"level", "PERSONA_LOG_LEVEL", "loud", "log.level"},
		{"format", "PERSONA_LOG_FORMAT", "xml", "log.format"},
		{"depth", "PERSONA_DISPATCHER_DEPTH", "-1", "dispatcher.depth"},
		{"exporter", "PERSONA_TELEMETRY_EXPORTER", "otlp", "telemetry.exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := config.Load("")
			var verr *config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path || !errors.Is(err, config.ErrValidationFailed) {
				t.Errorf("error = %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.NewLogger(&buf, config.LogConfig{Level: "warn", Format: "auto"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info must be filtered at warn level")
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("non-terminal writer must get JSON, got %q", out)
	}

	buf.Reset()
	config.NewLogger(&buf, config.LogConfig{Level: "debug", Format: "text"}).Debug("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := config.ParseLevel(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
