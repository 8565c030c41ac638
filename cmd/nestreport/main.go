package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nestdb/nestreport/internal/config"
	"github.com/nestdb/nestreport/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile  string
	verbose  bool
	logger   *zap.Logger
	settings *config.Settings
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nestreport",
		Short: "Run reports against NestDB databases",
		Long: `nestreport runs queries against NestDB database files and renders
the results as text tables, JSON, or HTML.

The NestDB engine library is located automatically: an already-installed
copy is used when one loads, otherwise the matching release is downloaded
and installed on first use.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.New(verbose)
			if err != nil {
				return err
			}
			settings, err = config.Load(cfgFile)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: user config dir)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEngineCmd())
	root.AddCommand(newReportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
