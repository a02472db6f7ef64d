package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/honorscan/internal/util"
)

// newHTTPClient returns a client for a JSON API with proxy settings from config
func newHTTPClient(config Config, timeoutSeconds, fallbackSeconds int) *http.Client {
	if timeoutSeconds == 0 {
		timeoutSeconds = fallbackSeconds
	}
	return util.NewHTTPClient(timeoutSeconds, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
}

// postJSON sends body to url and decodes a 200 response into out. For other
// statuses apiMessage extracts the provider's error text from the body; an
// empty result falls back to the raw body.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body, out any, apiMessage func([]byte) string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if apiMessage != nil {
			msg = apiMessage(respBody)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
