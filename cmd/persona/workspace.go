package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/dshills/persona/internal/article"
	"github.com/dshills/persona/internal/catalog"
	"github.com/dshills/persona/internal/config"
	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/dispatcher/hook"
	"github.com/dshills/persona/internal/manifest"
	"github.com/dshills/persona/internal/telemetry"
)

var errUnknownDefinition = errors.New("unknown definition")

var builtins = map[string]func() *dispatcher.Definition{
	"Article":     article.Definition,
	"NewsArticle": article.NewsDefinition,
	"Member":      article.MemberDefinition,
}

// workspace is the state shared by every subcommand: configuration,
// logger, manifests and the role catalog.
type workspace struct {
	cfg       *config.Config
	logger    *slog.Logger
	manifests *manifest.Set
	scripts   *catalog.Scripts
	recorder  *telemetry.Recorder
	exporter  *telemetry.Stdout
}

func openWorkspace(opts *rootOptions, stderr io.Writer) (*workspace, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.manifests != "" {
		cfg.Paths.Manifests = opts.manifests
	}
	if opts.scripts != "" {
		cfg.Paths.Scripts = opts.scripts
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.trace {
		cfg.Telemetry.Enabled = true
	}
	if opts.exporter != "" {
		cfg.Telemetry.Exporter = opts.exporter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ws := &workspace{
		cfg:     cfg,
		logger:  config.NewLogger(stderr, cfg.Log),
		scripts: catalog.NewScripts(cfg.ScriptOptions()...),
	}

	if err := ws.scripts.LoadDir(cfg.Paths.Scripts); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		ws.logger.Debug("no script directory", "path", cfg.Paths.Scripts)
	}

	ws.manifests, err = manifest.LoadDir(os.DirFS(cfg.Paths.Manifests), ".", cfg.ScriptOptions()...)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		ws.logger.Debug("no manifest directory", "path", cfg.Paths.Manifests)
		ws.manifests = manifest.NewSet(cfg.ScriptOptions()...)
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "stdout":
			ws.exporter, err = telemetry.NewStdout(stderr, "persona", version)
		default:
			ws.recorder, err = telemetry.NewRecorder()
		}
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}

	ws.logger.Debug("workspace ready",
		"scripts", len(ws.scripts.Names()),
		"manifests", ws.manifests.Len(),
		"telemetry", cfg.Telemetry.Enabled,
	)
	return ws, nil
}

// source resolves roles from scripts first and built-in roles second.
func (ws *workspace) source() catalog.Chain {
	return catalog.Chain{ws.scripts, article.Source()}
}

// definition looks a name up among manifests, then built-ins.
func (ws *workspace) definition(name string) (*dispatcher.Definition, error) {
	if _, ok := ws.manifests.Get(name); ok {
		return ws.manifests.Definition(name)
	}
	if build, ok := builtins[name]; ok {
		return build(), nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownDefinition, name)
}

// definitionNames lists every definition the workspace can build.
func (ws *workspace) definitionNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range ws.manifests.Names() {
		seen[name] = true
		names = append(names, name)
	}
	for name := range builtins {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// newDispatcher builds a dispatcher for name with the configured hooks.
func (ws *workspace) newDispatcher(name string) (*dispatcher.Dispatcher, error) {
	def, err := ws.definition(name)
	if err != nil {
		return nil, err
	}
	d, err := dispatcher.New(def, ws.source(), ws.cfg.DispatcherConfig(ws.logger))
	if err != nil {
		return nil, err
	}
	ws.attachHooks(d)
	return d, nil
}

// rebuild constructs a fresh dispatcher for d's definition around d's
// current data. d is left untouched, so a failed rebuild keeps it usable.
func (ws *workspace) rebuild(d *dispatcher.Dispatcher) (*dispatcher.Dispatcher, error) {
	next, err := dispatcher.Restore(d.Definition(), ws.source(), d.Data().Snapshot(), ws.cfg.DispatcherConfig(ws.logger))
	if err != nil {
		return nil, err
	}
	ws.attachHooks(next)
	return next, nil
}

func (ws *workspace) attachHooks(d *dispatcher.Dispatcher) {
	if ws.logger.Enabled(context.Background(), slog.LevelDebug) {
		d.Hooks().Register(hook.NewAuditHook(ws.logger))
	}
	switch {
	case ws.recorder != nil:
		d.Hooks().Register(ws.recorder.Hook())
	case ws.exporter != nil:
		d.Hooks().Register(ws.exporter.Hook())
	}
}

// report prints the span report, or flushes the stdout exporter, when
// telemetry is on.
func (ws *workspace) report(ctx context.Context, w io.Writer) error {
	if ws.exporter != nil {
		return ws.exporter.Shutdown(ctx)
	}
	if ws.recorder == nil {
		return nil
	}
	if err := ws.recorder.WriteReport(ctx, w); err != nil {
		return err
	}
	return ws.recorder.Shutdown(ctx)
}

// parseArg converts a command-line argument into an int, a bool or a
// string.
func parseArg(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
