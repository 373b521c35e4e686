package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/persona/internal/dispatcher"
)

// callSeparator splits a chain of calls on the command line.
const callSeparator = "+"

type callStep struct {
	method string
	args   []any
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var (
		enable  []string
		disable []string
		sets    []string
		show    bool
	)

	cmd := &cobra.Command{
		Use:   "call <definition> <method> [args...] [+ <method> [args...]]...",
		Short: "Build a dispatcher and run a chain of external calls on it",
		Example: `  persona call Article setTitle Hello + publish + getTitle
  persona call Member --set level=admin permissions`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args[1:])
			if err != nil {
				return err
			}
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d, err := ws.newDispatcher(args[0])
			if err != nil {
				return err
			}
			defer d.Close()
			if err := prepare(d, enable, disable, sets); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			runErr := runSteps(out, d, steps)
			if show {
				fmt.Fprintln(out)
				if err := writeInspection(out, d, dispatcher.EnabledMethods); err != nil {
					return err
				}
			}
			if err := ws.report(cmd.Context(), out); err != nil {
				return err
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&enable, "enable", nil, "roles to enable before the first call")
	flags.StringSliceVar(&disable, "disable", nil, "roles to disable before the first call")
	flags.StringArrayVar(&sets, "set", nil, "data to set before the first call (key=value)")
	flags.BoolVar(&show, "show", false, "print the dispatcher state after the calls")
	return cmd
}

func parseSteps(args []string) ([]callStep, error) {
	var steps []callStep
	var cur *callStep
	for _, a := range args {
		if a == callSeparator {
			if cur == nil {
				return nil, fmt.Errorf("empty call before %q", callSeparator)
			}
			steps = append(steps, *cur)
			cur = nil
			continue
		}
		if cur == nil {
			cur = &callStep{method: a}
			continue
		}
		cur.args = append(cur.args, parseArg(a))
	}
	if cur == nil {
		return nil, fmt.Errorf("empty call after %q", callSeparator)
	}
	return append(steps, *cur), nil
}

// prepare applies --set, --disable and --enable, then re-evaluates
// assertions so data-driven roles follow the seeded data.
func prepare(d *dispatcher.Dispatcher, enable, disable, sets []string) error {
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		d.Data().Set(key, parseArg(value))
	}
	for _, name := range disable {
		if err := d.Disable(name); err != nil {
			return err
		}
	}
	for _, name := range enable {
		if err := d.Enable(name); err != nil {
			return err
		}
	}
	if len(sets) > 0 {
		return d.UpdateRoles()
	}
	return nil
}

// runSteps executes each call in order and stops at the first error.
func runSteps(w io.Writer, d *dispatcher.Dispatcher, steps []callStep) error {
	for _, s := range steps {
		result, err := d.Call(s.method, s.args...)
		if err != nil {
			return fmt.Errorf("%s: %w", s.method, err)
		}
		if result == nil {
			fmt.Fprintf(w, "%s -> ok\n", s.method)
			continue
		}
		fmt.Fprintf(w, "%s -> %v\n", s.method, result)
	}
	return nil
}
