package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/cache"
)

// robotsTTL bounds how long a host's robots.txt is trusted during a long ingest
const robotsTTL = time.Hour

// RobotsRule is the verdict for one URL
type RobotsRule struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker answers robots.txt questions for honoree list pages. Parsed
// files are cached per scheme and host.
type RobotsChecker struct {
	client *http.Client
	rules  cache.Cache
	ua     string
	token  string
	logger *zap.Logger
}

// NewRobotsChecker creates a checker. A nil client uses http.DefaultClient
// and a nil logger discards output.
func NewRobotsChecker(userAgent string, client *http.Client, logger *zap.Logger) *RobotsChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsChecker{
		client: client,
		rules:  cache.NewMemoryCache(robotsTTL, 10*time.Minute),
		ua:     userAgent,
		token:  NormalizeUserAgent(userAgent),
		logger: logger,
	}
}

// Check returns the rule for rawURL. A robots.txt that cannot be fetched
// allows everything; only a malformed URL is an error.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsRule, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RobotsRule{}, fmt.Errorf("parse URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return RobotsRule{}, fmt.Errorf("parse URL: %q is not absolute", rawURL)
	}

	origin := u.Scheme + "://" + u.Host
	data, err := r.load(ctx, origin)
	if err != nil {
		r.logger.Warn("robots.txt unavailable, allowing fetch", zap.String("origin", origin), zap.Error(err))
		return RobotsRule{Allowed: true}, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	rule := RobotsRule{Allowed: data.TestAgent(path, r.token)}
	if g := data.FindGroup(r.token); g != nil {
		rule.CrawlDelay = g.CrawlDelay
	}
	return rule, nil
}

func (r *RobotsChecker) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	if v, ok := r.rules.Get(origin); ok {
		return v.(*robotstxt.RobotsData), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.ua)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// 4xx allows all, 5xx disallows all
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	r.rules.Set(origin, data, 0)
	return data, nil
}

// Forget drops every cached robots.txt
func (r *RobotsChecker) Forget() {
	r.rules.Clear()
}

// NormalizeUserAgent returns the product token of a user agent, e.g.
// "honorscan" for "honorscan/0.1 (+https://example.org)"
func NormalizeUserAgent(ua string) string {
	product, _, _ := strings.Cut(strings.TrimSpace(ua), " ")
	name, _, _ := strings.Cut(product, "/")
	return name
}
