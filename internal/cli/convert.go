package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/honorscan/internal/export"
	"github.com/ppiankov/honorscan/internal/store"
)

var (
	convertJSON   string
	convertSQLite string
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Export the honoree table as JSON or SQLite",
	Long: `Convert writes the honoree table as a JSON array of objects keyed by the
CSV header, with values trimmed and carriage returns removed. With --sqlite
the table and the result log are also written to a SQLite database.

Example:
  honorscan convert --json file.json
  honorscan convert --json "" --sqlite honorees.db`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertJSON, "json", "file.json", "JSON output path (empty to skip)")
	convertCmd.Flags().StringVar(&convertSQLite, "sqlite", "", "SQLite output path (optional)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	table := appConfig.Paths.Table
	w := cmd.OutOrStdout()

	if convertJSON != "" {
		n, err := convertToJSON(table, convertJSON)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Wrote %d records to %s\n", goodStyle.Render("✓"), n, convertJSON)
	}

	if convertSQLite != "" {
		records, _, err := store.NewRecordStore(table, nil).Load()
		if err != nil {
			return err
		}
		results, err := store.NewProgressTracker(appConfig.Paths.ProgressFile, appConfig.Paths.ResultsFile).LoadResults()
		if err != nil {
			return err
		}
		if err := export.WriteSQLite(context.Background(), convertSQLite, records, results); err != nil {
			return fmt.Errorf("export sqlite: %w", err)
		}
		fmt.Fprintf(w, "%s Wrote %d records to %s\n", goodStyle.Render("✓"), len(records), convertSQLite)
	}
	return nil
}

func convertToJSON(in, out string) (n int, err error) {
	src, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("open table: %w", err)
	}
	defer func() { _ = src.Close() }()

	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	dst, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", out, err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", out, closeErr)
		}
	}()

	return export.CSVToJSON(src, dst)
}
