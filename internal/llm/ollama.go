package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const ollamaDefaultURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for local Ollama models.
// Local models have no web search, so grounding requests are answered ungrounded.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates a provider for the Ollama server at config.BaseURL
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultURL
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, config.Timeout, 120), // local models can be slow
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the server answers the model listing
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	log := p.config.logger().With(zap.String("base_url", p.baseURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		log.Warn("Ollama availability check failed", zap.Error(err))
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Warn("Ollama availability check failed", zap.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn("Ollama availability check failed", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// Generate answers a prompt with a single non-streaming generate call
func (p *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}
	if req.Grounding {
		p.config.logger().Debug("grounding not available for ollama, answering ungrounded", zap.String("model", model))
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	apiReq := ollamaRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Options: ollamaOptions{Temperature: 0.2, NumPredict: maxTokens},
	}

	var resp ollamaResponse
	err := postJSON(ctx, p.httpClient, p.baseURL+"/api/generate", nil, apiReq, &resp, func(body []byte) string {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) != nil {
			return ""
		}
		return apiErr.Error
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	text := strings.TrimSpace(resp.Response)

	// Some models report zero counts; 1 token is roughly 4 characters
	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		tokensUsed = (len(req.Prompt) + len(text)) / 4
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}
	return &GenerateResponse{
		Text:       text,
		Model:      respModel,
		TokensUsed: tokensUsed,
	}, nil
}
