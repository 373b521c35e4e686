package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

var errInterrupted = errors.New("interrupted")

type rootOptions struct {
	configPath string
	manifests  string
	scripts    string
	logLevel   string
	trace      bool
	exporter   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Inspect and drive role-composed objects",
		Long: `persona builds dispatchers from the built-in Article, NewsArticle and
Member definitions or from TOML/YAML manifests, resolving roles from Lua
scripts first and the built-in roles second.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file")
	flags.StringVar(&opts.manifests, "manifests", "", "manifest directory (overrides paths.manifests)")
	flags.StringVar(&opts.scripts, "scripts", "", "role script directory (overrides paths.scripts)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.trace, "trace", false, "instrument calls with OpenTelemetry")
	flags.StringVar(&opts.exporter, "trace-exporter", "", "trace output: report (summary on stdout) or stdout (JSON on stderr)")

	cmd.AddCommand(
		newInspectCmd(opts),
		newCallCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
