package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/ingest"
	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/store"
)

var (
	mergeOut  string
	importOut string
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <manifest>",
	Short: "Merge yearly honoree lists into one table",
	Long: `Merge reads a manifest with one "<location> <year>" pair per line. A
location is a CSV file or an http(s) URL of a page holding an honoree
table. Sources are loaded concurrently and merged in manifest order; every
row gets the year of its source, headers are lowercased, and columns are
ordered year, name, age, title, company, category, description, followed
by any other columns sorted by name.

Example:
  honorscan merge lists.txt
  honorscan merge lists.txt --out 30u30_all_years.csv --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

// importHTMLCmd represents the import-html command
var importHTMLCmd = &cobra.Command{
	Use:   "import-html <url> <year>",
	Short: "Import an honoree table from a web page",
	Long: `Import fetches one page, honoring robots.txt and per-host pacing, and
writes the first table with a name column as a CSV file. The output can be
listed in a merge manifest.

Example:
  honorscan import-html https://example.org/30-under-30/2019 2019 --out 2019.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runImportHTML,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(importHTMLCmd)

	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "output CSV path (default: the configured table)")
	mergeCmd.Flags().Int("workers", 4, "number of sources loaded concurrently")
	_ = viper.BindPFlag("ingest.workers", mergeCmd.Flags().Lookup("workers"))

	importHTMLCmd.Flags().StringVar(&importOut, "out", "", "output CSV path (required)")
	_ = importHTMLCmd.MarkFlagRequired("out")
}

func runMerge(cmd *cobra.Command, args []string) error {
	sources, err := ingest.ReadManifestFile(args[0])
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("manifest %s lists no sources", args[0])
	}

	out := mergeOut
	if out == "" {
		out = appConfig.Paths.Table
	}
	return mergeInto(cmd, sources, out)
}

func runImportHTML(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[1])
	}
	src := ingest.Source{Location: args[0], Year: year}
	if !src.IsRemote() {
		return fmt.Errorf("not an http(s) URL: %s", args[0])
	}
	return mergeInto(cmd, []ingest.Source{src}, importOut)
}

func mergeInto(cmd *cobra.Command, sources []ingest.Source, out string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	merger := ingest.NewMerger(appConfig.Ingest.Workers, ingest.NewFetcher(appConfig.HTTP, logger), logger)
	table, err := merger.Merge(ctx, sources)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	if err := store.NewRecordStore(out, nil).Save(table.Records(), table.Columns); err != nil {
		return err
	}

	logger.Info("table written", zap.String("path", out), zap.Int("rows", len(table.Rows)))
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s Merged %d records into %s\n", goodStyle.Render("✓"), len(table.Rows), out)
	fmt.Fprintf(w, "Columns: %v\n", table.Columns)
	for _, col := range []string{model.ColYear, model.ColName, model.ColCompany} {
		if !slices.Contains(table.Columns, col) {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Warning: no %s column; enrich will reject this table", col)))
		}
	}
	return nil
}
