package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	anthropicVersion       = "2023-06-01"
	anthropicDefaultModel  = "claude-3-5-haiku-20241022"
	anthropicDefaultTokens = 1000

	// anthropicWebSearch is the server-side search tool used for grounding
	anthropicWebSearch   = "web_search_20250305"
	anthropicMaxSearches = 5
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
// models. Grounding is served by the server-side web search tool.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// anthropicBlock is one content block of a response. Only the fields used
// for text and search citations are decoded.
type anthropicBlock struct {
	Type      string              `json:"type"`
	Text      string              `json:"text,omitempty"`
	Citations []anthropicCitation `json:"citations,omitempty"`
	Content   json.RawMessage     `json:"content,omitempty"` // web_search_tool_result: list of results or an error object
}

type anthropicCitation struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Role       string           `json:"role"`
	Content    []anthropicBlock `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, config.Timeout, 60),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a minimal message to check the key and model
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	req := anthropicRequest{
		Model:     p.modelFor(""),
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	}

	if _, err := p.makeRequest(ctx, req); err != nil {
		p.config.logger().Warn("Anthropic API check failed", zap.Error(err))
		return false
	}
	return true
}

// Generate answers a prompt using the Messages API. With grounding the web
// search tool is offered and the pages it cited are returned as sources.
func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = anthropicDefaultTokens
	}

	apiReq := anthropicRequest{
		Model:       p.modelFor(req.Model),
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: 0.2,
	}
	if req.Grounding {
		apiReq.Tools = []anthropicTool{{Type: anthropicWebSearch, Name: "web_search", MaxUses: anthropicMaxSearches}}
	}

	resp, err := p.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	text, sources := collectAnthropicContent(resp.Content)
	if text == "" {
		return nil, fmt.Errorf("no text in Anthropic response (stop reason %q)", resp.StopReason)
	}

	return &GenerateResponse{
		Text:       text,
		Model:      resp.Model,
		Grounded:   len(apiReq.Tools) > 0,
		Sources:    sources,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// collectAnthropicContent joins the text blocks and gathers unique cited
// URLs. Text citations come first, then any other search results.
func collectAnthropicContent(blocks []anthropicBlock) (string, []string) {
	var text strings.Builder
	var cited, found []string

	for _, b := range blocks {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
			for _, c := range b.Citations {
				cited = append(cited, c.URL)
			}
		case "web_search_tool_result":
			var results []anthropicCitation
			// An error result is an object, not a list; it carries no URLs
			if err := json.Unmarshal(b.Content, &results); err == nil {
				for _, r := range results {
					found = append(found, r.URL)
				}
			}
		}
	}

	seen := make(map[string]bool)
	var sources []string
	for _, u := range append(cited, found...) {
		if u != "" && !seen[u] {
			seen[u] = true
			sources = append(sources, u)
		}
	}
	return strings.TrimSpace(text.String()), sources
}

func (p *AnthropicProvider) modelFor(requested string) string {
	switch {
	case requested != "":
		return requested
	case p.config.Model != "":
		return p.config.Model
	default:
		return anthropicDefaultModel
	}
}

// makeRequest posts one Messages API call
func (p *AnthropicProvider) makeRequest(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp anthropicResponse
	err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", header, apiReq, &resp, func(body []byte) string {
		var apiErr anthropicError
		if json.Unmarshal(body, &apiErr) != nil || apiErr.Error.Message == "" {
			return ""
		}
		return apiErr.Error.Type + ": " + apiErr.Error.Message
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
