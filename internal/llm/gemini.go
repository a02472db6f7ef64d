package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ppiankov/honorscan/internal/util"
)

// GeminiProvider implements the Provider interface for Google Gemini models.
// It is the only provider that supports Google Search grounding.
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: util.NewHTTPClient(0, config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that the configured model can be described with the API key
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	model := p.config.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if _, err := p.client.Models.Get(ctx, model, nil); err != nil {
		p.config.logger().Warn("Gemini API check failed", zap.String("model", model), zap.Error(err))
		return false
	}
	return true
}

// Generate calls the generateContent endpoint, optionally with Google Search grounding
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model must be specified")
	}

	ctx, cancel := withTimeout(ctx, p.config.Timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(maxTokens)
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Grounding {
		genConfig.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates from Gemini")
	}

	out := &GenerateResponse{
		Text:     strings.TrimSpace(resp.Text()),
		Model:    model,
		Grounded: req.Grounding,
		Sources:  groundingSources(resp.Candidates[0]),
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// groundingSources lists the unique web URIs cited by a grounded candidate
func groundingSources(c *genai.Candidate) []string {
	if c == nil || c.GroundingMetadata == nil {
		return nil
	}

	var sources []string
	seen := make(map[string]bool)
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		uri := citedURI(chunk.Web)
		if !seen[uri] {
			seen[uri] = true
			sources = append(sources, uri)
		}
	}
	return sources
}

// groundingRedirectHost serves expiring redirect links for grounding citations
const groundingRedirectHost = "vertexaisearch.cloud.google.com"

// citedURI replaces a grounding redirect with the cited site, which the API
// reports as the chunk title
func citedURI(web *genai.GroundingChunkWeb) string {
	u, err := url.Parse(web.URI)
	if err != nil || u.Hostname() != groundingRedirectHost {
		return web.URI
	}
	domain := strings.ToLower(strings.TrimSpace(web.Title))
	if domain == "" || strings.ContainsAny(domain, " /") || !strings.Contains(domain, ".") {
		return web.URI
	}
	return "https://" + domain + "/"
}
