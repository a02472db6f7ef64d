package util

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy", "NO_PROXY", "no_proxy", "REQUEST_METHOD"} {
		t.Setenv(k, "")
	}
}

func proxyHost(t *testing.T, fn func(*http.Request) (*url.URL, error), rawURL string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if u == nil {
		return ""
	}
	return u.Host
}

func TestNewProxyFunc(t *testing.T) {
	clearProxyEnv(t)

	fn := NewProxyFunc("http://proxy.local:8080", "", "skip.example.org")

	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/list", "proxy.local:8080"},
		{"https://example.com/list", "proxy.local:8080"},
		{"http://skip.example.org/list", ""},
		{"http://127.0.0.1:9999/", ""},
	}

	for _, tt := range tests {
		if got := proxyHost(t, fn, tt.url); got != tt.want {
			t.Errorf("proxy for %s = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestNewProxyFunc_SeparateHTTPS(t *testing.T) {
	clearProxyEnv(t)

	fn := NewProxyFunc("http://plain.local:8080", "http://secure.local:8443", "")

	if got := proxyHost(t, fn, "http://example.com"); got != "plain.local:8080" {
		t.Errorf("http proxy = %q", got)
	}
	if got := proxyHost(t, fn, "https://example.com"); got != "secure.local:8443" {
		t.Errorf("https proxy = %q", got)
	}
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(15, "", "", "")
	if client.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want 15s", client.Timeout)
	}
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Errorf("transport = %T, want *http.Transport", client.Transport)
	}
}
