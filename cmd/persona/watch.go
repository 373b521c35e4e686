package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/persona/internal/catalog"
	"github.com/dshills/persona/internal/dispatcher"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		debounce time.Duration
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "watch <definition>",
		Short: "Rebuild a dispatcher whenever a role script changes",
		Long: `watch builds a dispatcher, then watches the script directory. Each
change reloads the script and rebuilds the dispatcher around its current
data. A script that fails to compile leaves the previous role in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d, err := ws.newDispatcher(args[0])
			if err != nil {
				return err
			}

			w, err := catalog.NewWatcher(ws.scripts,
				catalog.WithDebounce(debounce),
				catalog.WithWatchLogger(ws.logger),
			)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Watch(ws.cfg.Paths.Scripts); err != nil {
				return fmt.Errorf("watching %s: %w", ws.cfg.Paths.Scripts, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s for %s\n", ws.cfg.Paths.Scripts, d.Definition().Name)
			writeRoles(out, d)
			return watchLoop(ctx, out, ws, d, w.Events(), limit)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "quiet period before a changed script is reloaded")
	cmd.Flags().IntVar(&limit, "events", 0, "exit after this many script events (0 watches until interrupted)")
	return cmd
}

func watchLoop(ctx context.Context, w io.Writer, ws *workspace, d *dispatcher.Dispatcher, events <-chan catalog.Event, limit int) error {
	defer func() { _ = d.Close() }()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return errInterrupted
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			seen++
			if ev.Err != nil {
				fmt.Fprintf(w, "%s %s: %v\n", ev.Op, ev.Path, ev.Err)
			} else {
				fmt.Fprintf(w, "%s %s (%s)\n", ev.Op, ev.Role, ev.Path)
				next, err := ws.rebuild(d)
				if err != nil {
					fmt.Fprintf(w, "rebuild failed: %v\n", err)
				} else {
					_ = d.Close()
					d = next
					writeRoles(w, d)
				}
			}
			if limit > 0 && seen >= limit {
				return nil
			}
		}
	}
}

func writeRoles(w io.Writer, d *dispatcher.Dispatcher) {
	fmt.Fprintf(w, "roles: %s; enabled: %s\n", strings.Join(d.Roles(), ", "), strings.Join(d.EnabledRoles(), ", "))
}
