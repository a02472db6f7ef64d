package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Provider defines the interface for text-generation providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate returns the model's text answer for a single prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one generation call
type GenerateRequest struct {
	// Prompt is the user message
	Prompt string

	// System is an optional system instruction
	System string

	// Model is the specific model to use (provider-specific)
	Model string

	// Grounding asks the provider to augment the answer with live web search.
	// Providers without search support ignore it and report Grounded=false.
	Grounding bool

	// MaxTokens limits the response length (0 uses the provider default)
	MaxTokens int
}

// GenerateResponse contains the provider's answer
type GenerateResponse struct {
	// Text is the generated answer, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// Grounded reports whether web search augmentation was applied
	Grounded bool

	// Sources are the web pages the answer was grounded on, if any
	Sources []string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama"
	Provider string

	// Model is the default model when a request does not name one
	Model string

	// APIKey for Gemini/OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, test servers)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Timeout:  60,
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// withTimeout bounds a single API call; 0 seconds means 60
func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	timeout := time.Duration(seconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
