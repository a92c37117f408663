package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/applyo/prospector/internal/importer"
	"github.com/applyo/prospector/internal/persistence"
)

func newImportCmd() *cobra.Command {
	var dbPath string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import-companies <csv>",
		Short: "Load company/person rows into the company cache",
		Long: `Reads a CSV with a header naming company_name, website, employee_name and
employee_title (any order; website and employee_title optional) and upserts
every row. People discovery answers cached companies without generation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			store, err := persistence.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := importer.ImportCSV(cmd.Context(), f, store, batchSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows read, %d imported, %d skipped\n", stats.Rows, stats.Imported, stats.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", envOr("DB_PATH", "data/prospector.db"), "sqlite database path")
	cmd.Flags().IntVar(&batchSize, "batch-size", importer.DefaultBatchSize, "rows per transaction")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
