package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/persona/internal/dispatcher"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "inspect [definition]",
		Short: "List definitions, or the roles, methods and data of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, name := range ws.definitionNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			filter, err := parseMethodState(state)
			if err != nil {
				return err
			}
			d, err := ws.newDispatcher(args[0])
			if err != nil {
				return err
			}
			defer d.Close()
			return writeInspection(out, d, filter)
		},
	}
	cmd.Flags().StringVar(&state, "methods", "all", "methods to list: all, enabled, disabled")
	return cmd
}

func parseMethodState(s string) (dispatcher.MethodState, error) {
	for _, st := range []dispatcher.MethodState{dispatcher.AllMethods, dispatcher.EnabledMethods, dispatcher.DisabledMethods} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown method state %q", s)
}

func writeInspection(w io.Writer, d *dispatcher.Dispatcher, state dispatcher.MethodState) error {
	snap := d.Snapshot()
	def := d.Definition()

	fmt.Fprintf(w, "%s (%s)\n", snap.Definition, snap.ID)
	if lineage := def.Lineage(); len(lineage) > 1 {
		names := make([]string, len(lineage))
		for i, l := range lineage {
			names[i] = l.Name
		}
		fmt.Fprintf(w, "lineage: %s\n", strings.Join(names, " > "))
	}
	fmt.Fprintf(w, "roles:   %s\n", strings.Join(snap.Roles, ", "))
	fmt.Fprintf(w, "enabled: %s\n", strings.Join(snap.Enabled, ", "))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tROLE\tORIGIN\tVISIBILITY\tENABLED")
	for _, m := range d.ListMethods(state) {
		roleName := m.Role
		if m.Own {
			roleName = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", m.Name, roleName, m.Origin, m.Visibility, m.Enabled)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(snap.Data) > 0 {
		fmt.Fprintln(w)
		keys := make([]string, 0, len(snap.Data))
		for k := range snap.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s = %v\n", k, snap.Data[k])
		}
	}
	return nil
}
