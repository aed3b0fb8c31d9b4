/*
main.go - bookctl command-line tool

PURPOSE:
  Operator-facing CLI for the bookstock catalog. Imports CSV inventory
  files and prints per-store reports without going through the HTTP API.

COMMANDS:
  bookctl import --db bookstock.db inventory.csv
  bookctl report --db bookstock.db "BookWorld" [--limit 5]

SEE ALSO:
  - cmd/server/main.go: The HTTP-facing counterpart
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/bookstock/catalog"
	"github.com/warp/bookstock/ingest"
	"github.com/warp/bookstock/report"
	"github.com/warp/bookstock/store/sqlite"
)

type rootOptions struct {
	Database string
	Verbose  bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bookctl",
		Short: "Bookstock catalog operations",
		Long:  "Import CSV inventory files and print per-store reports.",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "bookstock.db", "path to SQLite database")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newReportCommand(opts))

	return cmd
}

func logger(opts *rootOptions) zerolog.Logger {
	level := zerolog.WarnLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// =============================================================================
// IMPORT
// =============================================================================

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Ingest a CSV inventory file",
		Long: `Ingest a CSV inventory file into the catalog.

Example:
  bookctl import --db ./bookstock.db inventory.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, args[0], cmd)
		},
	}
}

func runImport(ctx context.Context, opts *rootOptions, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	st, err := sqlite.New(opts.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	pool := ingest.NewPool(ingest.PoolOptions{Min: 1, Max: 2, Logger: logger(opts)})
	pool.Start()
	defer pool.Stop()

	summary, err := catalog.NewImporter(pool, st, logger(opts)).Ingest(ctx, raw)
	if summary != nil {
		printSummary(cmd, summary)
	}
	return err
}

func printSummary(cmd *cobra.Command, s *catalog.Summary) {
	cmd.Printf("rows processed: %d (%d succeeded)\n", s.RowsProcessed, s.Succeeded())
	cmd.Printf("created: %d stores, %d authors, %d books, %d positions\n",
		s.Created.Stores, s.Created.Authors, s.Created.Books, s.Created.Positions)
	cmd.Printf("updated positions: %d\n", s.UpdatedPositions)
	for _, e := range s.Errors {
		cmd.Printf("row %d rejected: %s (%s)\n", e.Ordinal, e.Reason, e.Raw)
	}
}

// =============================================================================
// REPORT
// =============================================================================

func newReportCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report <store name>",
		Short: "Print ranked reports for one store",
		Long: `Print the priciest-books and prolific-authors reports for a store.

Example:
  bookctl report --db ./bookstock.db "BookWorld" --limit 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, args[0], limit, cmd)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", report.DefaultLimit, "rows per report")
	return cmd
}

func runReport(ctx context.Context, opts *rootOptions, storeName string, limit int, cmd *cobra.Command) error {
	st, err := sqlite.New(opts.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	storeRec, err := st.StoreByName(ctx, storeName)
	if err != nil {
		return err
	}
	if storeRec == nil {
		return fmt.Errorf("unknown store %q", storeName)
	}

	rep := report.NewReporter(st)

	books, err := rep.PriciestBooks(ctx, storeRec.ID, limit)
	if err != nil {
		return err
	}
	cmd.Printf("Priciest books at %s:\n", storeRec.Name)
	for i, b := range books {
		cmd.Printf("  %d. %s by %s - %s (%d copies)\n", i+1, b.Book, b.Author, b.Price.StringFixed(2), b.Copies)
	}

	authors, err := rep.ProlificAuthors(ctx, storeRec.ID, limit)
	if err != nil {
		return err
	}
	cmd.Printf("Most prolific authors at %s:\n", storeRec.Name)
	for i, a := range authors {
		cmd.Printf("  %d. %s - %d books, %d copies\n", i+1, a.Author, a.Books, a.Copies)
	}

	return nil
}
