package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/util"
	"github.com/ppiankov/honorscan/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// ErrPageTooLarge is returned when a page exceeds the configured body limit
var ErrPageTooLarge = errors.New("page exceeds body limit")

// fetchBackoff is the first retry delay; it doubles per attempt
var fetchBackoff = time.Second

const maxFetchAttempts = 3

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher downloads honoree list pages politely: robots.txt is honored,
// requests are paced per host and bodies are size-limited.
type Fetcher struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	userAgent  string
	maxBytes   int64
	logger     *zap.Logger
}

// Page is a fetched HTML document
type Page struct {
	HTML         string
	FinalURL     string
	StatusCode   int
	ContentType  string
	LastModified string
}

// NewFetcher creates a Fetcher from the HTTP section of the config
func NewFetcher(cfg model.HTTPConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy, "")
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	var robots *util.RobotsChecker
	if cfg.RespectRobots {
		robots = util.NewRobotsChecker(cfg.UserAgent, client, logger)
	}

	var limiter *worker.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.RequestsPerSecond, 1)
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}

	return &Fetcher{
		httpClient: client,
		robots:     robots,
		limiter:    limiter,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Fetch retrieves one page
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	host, err := worker.HostKey(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		rule, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !rule.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		crawlDelay = rule.CrawlDelay
	}

	if err := f.limiter.WaitWithDelay(ctx, host, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	// One byte past the limit tells a full page from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", rawURL, ErrPageTooLarge, f.maxBytes)
	}

	return &Page{
		HTML:         string(body),
		FinalURL:     resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// FetchWithRetry retries transient failures (network errors, 429, 5xx)
// with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	backoff := fetchBackoff

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		page, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w (last error: %v)", context.Cause(ctx), lastErr)
		}
		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}

		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w (last error: %v)", context.Cause(ctx), lastErr)
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
