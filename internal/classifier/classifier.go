// Package classifier wraps a text-generation provider with primary/fallback
// model selection. Classify never panics and never returns a bare error:
// failures come back inside the Result.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/llm"
	"github.com/ppiankov/honorscan/internal/metrics"
	"github.com/ppiankov/honorscan/internal/worker"
)

// ErrNoText is returned when a model answers with empty text
var ErrNoText = errors.New("no text produced")

// DefaultTimeout bounds each attempt when Config.Timeout is zero
const DefaultTimeout = 60 * time.Second

// Config selects the models and per-attempt limits
type Config struct {
	PrimaryModel  string
	FallbackModel string

	// Grounding allows web-search augmentation. When false, grounding
	// requests are sent without search.
	Grounding bool

	// Timeout bounds each attempt (0 means DefaultTimeout)
	Timeout time.Duration

	// MaxTokens caps the answer length (0 uses the provider default)
	MaxTokens int
}

// TransportError describes a failed attempt against one model
type TransportError struct {
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classify with %q: %v", e.Model, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a classification. Exactly one of Text and Err is set.
type Result struct {
	Text    string
	Model   string
	Sources []string
	Err     error
}

// OK reports whether the result carries text
func (r Result) OK() bool {
	return r.Err == nil && r.Text != ""
}

// Client is a stateless call wrapper around an llm.Provider
type Client struct {
	provider llm.Provider
	cfg      Config
	limiter  *worker.Limiter
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a Client. limiter, logger and m may be nil.
func New(provider llm.Provider, cfg Config, limiter *worker.Limiter, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: provider,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
		metrics:  m,
	}
}

// Config returns the effective configuration
func (c *Client) Config() Config {
	return c.cfg
}

// Classify sends prompt to the primary model and, if that attempt fails,
// exactly once to the fallback model with the same prompt and grounding.
func (c *Client) Classify(ctx context.Context, prompt string, grounding bool) Result {
	grounding = grounding && c.cfg.Grounding

	first := c.attempt(ctx, c.cfg.PrimaryModel, prompt, grounding)
	if first.Err == nil {
		return first
	}

	c.logger.Warn("primary model failed, trying fallback",
		zap.String("model", c.cfg.PrimaryModel),
		zap.String("fallback", c.cfg.FallbackModel),
		zap.Error(first.Err))

	if ctx.Err() != nil {
		return first
	}

	c.metrics.IncFallback()
	second := c.attempt(ctx, c.cfg.FallbackModel, prompt, grounding)
	if second.Err == nil {
		return second
	}

	c.logger.Warn("fallback model failed",
		zap.String("model", c.cfg.FallbackModel),
		zap.Error(second.Err))

	return Result{
		Model: c.cfg.FallbackModel,
		Err:   errors.Join(first.Err, second.Err),
	}
}

func (c *Client) attempt(ctx context.Context, model, prompt string, grounding bool) (res Result) {
	res.Model = model
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = Result{Model: model, Err: &TransportError{Model: model, Err: fmt.Errorf("provider panic: %v", r)}}
		}

		outcome := metrics.OutcomeOK
		switch {
		case errors.Is(res.Err, ErrNoText):
			outcome = metrics.OutcomeEmpty
		case res.Err != nil:
			outcome = metrics.OutcomeError
		}
		c.metrics.ObserveCall(model, outcome, time.Since(start))
	}()

	if c.provider == nil {
		res.Err = &TransportError{Model: model, Err: errors.New("no provider configured")}
		return res
	}

	if err := c.limiter.Wait(ctx, model); err != nil {
		res.Err = &TransportError{Model: model, Err: fmt.Errorf("rate limit wait: %w", err)}
		return res
	}

	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.provider.Generate(actx, llm.GenerateRequest{
		Prompt:    prompt,
		Model:     model,
		Grounding: grounding,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		res.Err = &TransportError{Model: model, Err: err}
		return res
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		res.Err = &TransportError{Model: model, Err: ErrNoText}
		return res
	}

	res.Text = strings.TrimSpace(resp.Text)
	res.Sources = resp.Sources
	if resp.Model != "" {
		res.Model = resp.Model
	}

	c.logger.Debug("classified",
		zap.String("model", res.Model),
		zap.Bool("grounded", resp.Grounded),
		zap.Int("sources", len(resp.Sources)),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", time.Since(start)))

	return res
}
