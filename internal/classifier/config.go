package classifier

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/llm"
	"github.com/ppiankov/honorscan/internal/metrics"
	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/worker"
)

// ConfigFromModel converts the LLM section of the application config
func ConfigFromModel(cfg model.LLMConfig) Config {
	return Config{
		PrimaryModel:  cfg.PrimaryModel,
		FallbackModel: cfg.FallbackModel,
		Grounding:     cfg.Grounding,
		Timeout:       time.Duration(cfg.Timeout) * time.Second,
		MaxTokens:     cfg.MaxTokens,
	}
}

// FromConfig builds the provider named in cfg and wraps it in a Client.
// API keys missing from cfg are taken from the provider's environment variables.
func FromConfig(cfg *model.Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	providerCfg := llm.ConfigFromModel(cfg)
	providerCfg.Logger = logger
	if providerCfg.APIKey == "" {
		providerCfg.APIKey = llm.APIKeyFromEnv(providerCfg.Provider)
	}
	if providerCfg.BaseURL == "" && strings.EqualFold(providerCfg.Provider, "ollama") {
		providerCfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	provider, err := llm.NewProvider(providerCfg)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	limiter := worker.PerMinute(cfg.LLM.RequestsPerMinute)
	return New(provider, ConfigFromModel(cfg.LLM), limiter, logger, m), nil
}
