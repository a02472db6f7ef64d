package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/cache"
	"github.com/ppiankov/honorscan/internal/classifier"
	"github.com/ppiankov/honorscan/internal/metrics"
	"github.com/ppiankov/honorscan/internal/pipeline"
	"github.com/ppiankov/honorscan/internal/store"
	"github.com/ppiankov/honorscan/internal/validate"
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Label every unprocessed honoree with a controversy check",
	Long: `Enrich walks the honoree table in file order. Rows whose fraud column is
already filled are skipped. For every other row the classifier is asked
whether the honoree was the target of a lawsuit, scandal or controversy;
a positive answer is checked again with a strict yes/no confirmation.

The table is flushed every --checkpoint-every labeled rows and at the end.
Interrupting with Ctrl-C stops before the next row and flushes.

Example:
  honorscan enrich
  honorscan enrich --limit 50 --dry-run
  honorscan enrich --provider openai --primary-model gpt-4o --fallback-model gpt-4o-mini`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	f := enrichCmd.Flags()
	f.Int("limit", 0, "max rows to label this run (0 = no limit)")
	f.Int("start-from", 0, "row index to start scanning from")
	f.Bool("dry-run", false, "classify without writing the table or result log")
	f.Int("checkpoint-every", 10, "labeled rows between table flushes (0 = only at end)")
	f.Bool("confirm", true, "run the confirmation pass on positive answers")
	f.String("provider", "", "LLM provider (gemini, openai, anthropic, ollama)")
	f.String("primary-model", "", "primary model name")
	f.String("fallback-model", "", "fallback model name")
	f.Bool("grounding", true, "allow web-search grounding")
	f.Float64("rpm", 0, "max classifier requests per minute (0 = unlimited)")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")

	bind := map[string]string{
		"pipeline.limit":               "limit",
		"pipeline.start_from":          "start-from",
		"pipeline.dry_run":             "dry-run",
		"pipeline.checkpoint_every":    "checkpoint-every",
		"pipeline.enable_confirmation": "confirm",
		"llm.provider":                 "provider",
		"llm.primary_model":            "primary-model",
		"llm.fallback_model":           "fallback-model",
		"llm.grounding":                "grounding",
		"llm.requests_per_minute":      "rpm",
		"metrics.textfile_path":        "metrics-textfile",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg := appConfig

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client, err := classifier.FromConfig(cfg, logger, m)
	if err != nil {
		return err
	}

	records := store.NewRecordStore(cfg.Paths.Table, cache.NewMemoryCache(time.Hour, 10*time.Minute))
	progress := store.NewProgressTracker(cfg.Paths.ProgressFile, cfg.Paths.ResultsFile)

	cc := client.Config()
	logger.Info("enrichment starting",
		zap.String("table", records.Path()),
		zap.String("primary_model", cc.PrimaryModel),
		zap.String("fallback_model", cc.FallbackModel),
		zap.Bool("grounding", cc.Grounding),
		zap.Duration("timeout", cc.Timeout))

	enricher := pipeline.New(client, records, progress, pipeline.ConfigFromModel(cfg.Pipeline), logger, m).
		WithSourceRanker(validate.NewAuthorityClassifier(&cfg.Authority))
	summary, runErr := enricher.Run(ctx)

	if err := m.WriteToTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("metrics textfile not written", zap.Error(err))
	}
	if summary != nil {
		printEnrichSummary(cmd, summary, cfg.Pipeline.DryRun)
	}
	if runErr != nil {
		return fmt.Errorf("enrich: %w", runErr)
	}
	return nil
}

func printEnrichSummary(cmd *cobra.Command, s *pipeline.Summary, dryRun bool) {
	out := cmd.OutOrStdout()

	title := "Enrichment Run"
	if dryRun {
		title += " (dry run)"
	}
	printTitle(out, title)
	printField(out, "Run ID", s.RunID)
	printField(out, "Total rows", s.TotalRows)
	printField(out, "Labeled", s.Labeled)
	printField(out, "Skipped", s.Skipped)
	printField(out, "Flagged", badStyle.Render(fmt.Sprint(s.Flagged)))
	printField(out, "Overruled", s.Overruled)
	printField(out, "No controversy", s.None)
	printField(out, "Uncertain", warnStyle.Render(fmt.Sprint(s.Uncertain)))
	printField(out, "Checkpoints", s.Checkpoints)
	printField(out, "Elapsed", s.Elapsed.Round(time.Second))
	if s.Interrupted {
		fmt.Fprintln(out, warnStyle.Render("  Interrupted: rerun to resume from the first unlabeled row"))
	}
}
