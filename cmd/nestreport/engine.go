package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nestdb/nestreport/internal/engine"
)

func newEngineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage the NestDB engine library",
	}
	cmd.AddCommand(newEngineEnsureCmd())
	cmd.AddCommand(newEngineStatusCmd())
	return cmd
}

// resolverOptions maps the loaded settings onto resolver options.
func resolverOptions() engine.Options {
	return engine.Options{
		LibraryPath:  settings.LibraryPath,
		InstallDir:   settings.InstallDir,
		DatabasePath: settings.Database,
		Version:      settings.Version,
		Token:        settings.Token,
		Timeout:      settings.Timeout,
		CacheMaxAge:  settings.CacheMaxAge,
	}
}

// terminalProgress renders a single carriage-return progress line on
// stderr.
func terminalProgress() engine.ProgressFunc {
	return func(read, total int64) {
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\rdownloading engine... %3d%%", read*100/total)
		} else {
			fmt.Fprintf(os.Stderr, "\rdownloading engine... %d KiB", read/1024)
		}
		if read == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func newEngineEnsureCmd() *cobra.Command {
	var (
		force       bool
		skipInstall bool
		noProgress  bool
		tag         string
	)

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Make sure a loadable engine library is installed",
		Long: `Locates the engine library, installing one from the release host when
no local copy loads. Safe to run repeatedly; a working installation is a
no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolverOptions()
			opts.Force = force
			opts.SkipInstall = skipInstall
			if tag != "" {
				opts.Version = tag
			}
			if !noProgress {
				opts.Progress = terminalProgress()
			}

			resolver := engine.NewResolver(engine.ResolverConfig{
				Options: opts,
				Logger:  logger,
			})
			loaded, err := resolver.Ensure(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("engine ready: %s (version %s)\n", loaded.Path, loaded.RawVersion)
			if loaded.Warning != "" {
				fmt.Fprintf(os.Stderr, "warning: %s\n", loaded.Warning)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reinstall even if a working library is present")
	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "never download; fail if no local library loads")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the download progress line")
	cmd.Flags().StringVar(&tag, "engine-version", "", "release tag to install (default: configured version or latest)")
	return cmd
}

func newEngineStatusCmd() *cobra.Command {
	var showCandidates bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current engine installation",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := engine.NewResolver(engine.ResolverConfig{
				Options: resolverOptions(),
				Logger:  logger,
			})
			record, candidates, err := resolver.Status(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "install dir:\t%s\n", record.InstallDir)
			if record.Valid {
				fmt.Fprintf(w, "library:\t%s\n", record.LibraryPath)
				if record.Version != "" {
					fmt.Fprintf(w, "version:\t%s\n", record.Version)
				} else {
					fmt.Fprintf(w, "version:\tUnknown\n")
				}
			} else {
				fmt.Fprintf(w, "library:\tnot installed\n")
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if showCandidates {
				fmt.Println("\nsearch locations:")
				w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, c := range candidates {
					fmt.Fprintf(w, "  %s\t%s\n", c.Origin, c.Path)
				}
				return w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCandidates, "candidates", false, "list every location the resolver would search")
	return cmd
}
