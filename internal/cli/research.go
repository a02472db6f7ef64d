package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/honorscan/internal/cache"
	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/pipeline"
	"github.com/ppiankov/honorscan/internal/store"
)

var (
	findYear    int
	findCompany string
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print progress counters and result log totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker := store.NewProgressTracker(appConfig.Paths.ProgressFile, appConfig.Paths.ResultsFile)
		state, err := tracker.LoadProgress()
		if err != nil {
			return err
		}
		results, err := tracker.LoadResults()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printTitle(out, "Processing Summary")
		printField(out, "Total rows", state.TotalRows)
		printField(out, "Processed", state.ProcessedCount)
		printField(out, "Fraud found", state.FraudFoundCount)
		lastUpdated := "never"
		if !state.LastUpdated.IsZero() {
			lastUpdated = state.LastUpdated.Format(time.RFC3339)
		}
		printField(out, "Last updated", lastUpdated)
		fmt.Fprintln(out)
		printField(out, "Fraud cases", badStyle.Render(strconv.Itoa(len(results.FraudCases))))
		printField(out, "Uncertain cases", warnStyle.Render(strconv.Itoa(len(results.UncertainCases))))
		return nil
	},
}

// knownCmd represents the known command
var knownCmd = &cobra.Command{
	Use:   "known",
	Short: "Locate the known validation cases in the table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records := newLookupStore()
		out := cmd.OutOrStdout()

		printTitle(out, "Known Fraud Cases for Validation")
		for _, kc := range model.KnownCases() {
			match, err := records.Find(store.Query{Name: kc.Name, Year: kc.SearchYear, Company: kc.Company})
			if err != nil {
				return err
			}

			year := "any year"
			if kc.SearchYear != 0 {
				year = strconv.Itoa(kc.SearchYear)
			}
			status := badStyle.Render("NOT FOUND in dataset")
			label := ""
			if match != nil {
				status = goodStyle.Render(fmt.Sprintf("Row %d", match.Index))
				label = match.Record.FraudLabel
			}

			lines := []string{
				titleStyle.Render(fmt.Sprintf("%s (%s, %s)", kc.Name, kc.Company, year)),
				"Status:   " + status,
				"Expected: " + kc.Expected,
			}
			if match != nil {
				if label == "" {
					label = "(not yet processed)"
				}
				lines = append(lines, "Label:    "+label)
			}
			fmt.Fprintln(out, renderBox(lines...))
		}
		return nil
	},
}

// queriesCmd represents the queries command
var queriesCmd = &cobra.Command{
	Use:   "queries <name> <company>",
	Short: "Print web search queries for researching a person by hand",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, company := args[0], args[1]
		out := cmd.OutOrStdout()

		printTitle(out, fmt.Sprintf("Search Queries for %s (%s)", name, company))
		for _, q := range pipeline.SearchQueries(name, company) {
			fmt.Fprintf(out, "  %s\n", q)
			if verbose {
				fmt.Fprintf(out, "    %s\n", labelStyle.Render(pipeline.SearchURL(q)))
			}
		}
	},
}

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find <name...>",
	Short: "Find a person's row in the table",
	Long: `Find looks up a person by case-insensitive name, optionally narrowed by
year and company substring, and prints the first matching row. Other rows
matching the same query are counted.

Example:
  honorscan find Sam Bankman-Fried
  honorscan find Jane Doe --year 2021 --company acme`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		records := newLookupStore()

		match, err := records.Find(store.Query{Name: name, Year: findYear, Company: findCompany})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if match == nil {
			fmt.Fprintf(out, "Not found: %s\n", name)
			return nil
		}

		_, schema, err := records.Load()
		if err != nil {
			return err
		}

		printTitle(out, fmt.Sprintf("Found at row %d", match.Index))
		for _, col := range schema {
			printField(out, col, match.Record.Field(col))
		}
		if match.Duplicates > 0 {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("  %d more row(s) match; narrow with --year or --company", match.Duplicates)))
		}
		return nil
	},
}

// labelCmd represents the label command
var labelCmd = &cobra.Command{
	Use:   "label <row> <text>",
	Short: "Set the fraud label of one row by index",
	Long: `Label writes text into the fraud column of the row at the given index
(as printed by find). Use "N/A" to mark a row as checked with no finding.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		row, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid row index %q", args[0])
		}
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return fmt.Errorf("label text is empty")
		}

		ok, err := store.NewRecordStore(appConfig.Paths.Table, nil).UpdateLabel(row, text)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("row %d is out of range", row)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Row %d labeled: %s\n", goodStyle.Render("✓"), row, text)
		return nil
	},
}

func newLookupStore() *store.RecordStore {
	return store.NewRecordStore(appConfig.Paths.Table, cache.NewMemoryCache(10*time.Minute, 10*time.Minute))
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(knownCmd)
	rootCmd.AddCommand(queriesCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(labelCmd)

	findCmd.Flags().IntVar(&findYear, "year", 0, "match only this year")
	findCmd.Flags().StringVar(&findCompany, "company", "", "match only companies containing this text")
}
