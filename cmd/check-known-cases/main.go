// Sanity check of the classifier against publicly documented cases.
// Each known case is labeled live and printed next to the expected outcome.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/viper"

	"github.com/ppiankov/honorscan/internal/classifier"
	"github.com/ppiankov/honorscan/internal/logging"
	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	logger, err := logging.New(false, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := classifier.FromConfig(cfg, logger, nil)
	if err != nil {
		return err
	}
	enricher := pipeline.New(client, nil, nil, pipeline.DefaultConfig(), logger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cc := client.Config()
	fmt.Printf("=== Known Case Check (%s: %s, fallback %s, timeout %s) ===\n\n",
		cfg.LLM.Provider, cc.PrimaryModel, cc.FallbackModel, cc.Timeout)

	hits := 0
	cases := model.KnownCases()
	for _, kc := range cases {
		if ctx.Err() != nil {
			break
		}

		rec := model.HonoreeRecord{Name: kc.Name, Company: kc.Company, Year: kc.SearchYear}
		d := enricher.Label(ctx, rec)

		mark := "✗"
		if d.Kind == pipeline.KindFlagged {
			mark = "✓"
			hits++
		}
		fmt.Printf("%s %s (%s)\n", mark, kc.Name, kc.Company)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("  Expected: %s\n", kc.Expected)
		fmt.Printf("  Got:      %s\n", d.Label)
		fmt.Printf("  Kind:     %s (model %s)\n", d.Kind, d.Model)
		if d.Confirmation != "" {
			fmt.Printf("  Confirm:  %s\n", d.Confirmation)
		}
		if d.Uncertain != "" {
			fmt.Printf("  Review:   %s\n", d.Uncertain)
		}
		fmt.Println()
	}

	fmt.Printf("%d of %d known cases flagged\n", hits, len(cases))
	return nil
}

// loadConfig applies HONORSCAN_* environment overrides to the defaults
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("HONORSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"llm.provider", "llm.primary_model", "llm.fallback_model", "llm.api_key", "llm.base_url"} {
		_ = v.BindEnv(key)
	}

	override := func(dst *string, key string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	override(&cfg.LLM.Provider, "llm.provider")
	override(&cfg.LLM.PrimaryModel, "llm.primary_model")
	override(&cfg.LLM.FallbackModel, "llm.fallback_model")
	override(&cfg.LLM.APIKey, "llm.api_key")
	override(&cfg.LLM.BaseURL, "llm.base_url")
	return cfg
}
