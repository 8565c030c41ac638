package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nestdb/nestreport/internal/driver"
	"github.com/nestdb/nestreport/internal/engine"
	"github.com/nestdb/nestreport/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		dbPath string
		query  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a query and render the result",
		Long: `Opens a NestDB database, runs a query, and writes the result to
stdout in the chosen format. The engine library is resolved (and
installed if needed) automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = settings.Database
			}
			if dbPath == "" {
				return errors.New("no database given: use --db or set database in the config")
			}
			if format == "" {
				format = settings.Format
			}
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			opts := resolverOptions()
			opts.DatabasePath = dbPath
			resolver := engine.NewResolver(engine.ResolverConfig{
				Options: opts,
				Logger:  logger,
			})
			loaded, err := resolver.Ensure(cmd.Context())
			if err != nil {
				return err
			}
			if loaded.Warning != "" {
				fmt.Fprintf(os.Stderr, "warning: %s\n", loaded.Warning)
			}

			d, err := driver.New(loaded.Library)
			if err != nil {
				return err
			}
			conn, err := d.Open(dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			rows, err := conn.Query(query)
			if err != nil {
				return err
			}
			return report.Write(os.Stdout, outFormat, rows)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database file (default: configured database)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "query to run")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: table, json, or html (default: configured format)")
	cmd.MarkFlagRequired("query")
	return cmd
}
