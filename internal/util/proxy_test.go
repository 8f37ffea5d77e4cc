package util

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy", "NO_PROXY", "no_proxy", "REQUEST_METHOD"} {
		t.Setenv(name, "")
	}
}

func proxyFor(t *testing.T, proxy func(*http.Request) (*url.URL, error), rawURL string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := proxy(req)
	if err != nil {
		t.Fatalf("%s: %v", rawURL, err)
	}
	if got == nil {
		return ""
	}
	return got.String()
}

func TestNewProxyFunc(t *testing.T) {
	clearProxyEnv(t)
	proxy := NewProxyFunc("http://plain:3128", "http://secure:3128", ".internal,example.org")

	tests := []struct {
		url  string
		want string
	}{
		{"https://api.congress.gov/v3/bill", "http://secure:3128"},
		{"http://example.com/", "http://plain:3128"},
		{"http://localhost:11434/api/tags", ""},
		{"https://db.internal/x", ""},
		{"https://news.example.org/a", ""},
		{"https://notexample.org/a", "http://secure:3128"},
	}

	for _, tt := range tests {
		if got := proxyFor(t, proxy, tt.url); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.url, tt.want, got)
		}
	}
}

func TestNewProxyFunc_Wildcard(t *testing.T) {
	clearProxyEnv(t)
	proxy := NewProxyFunc("http://plain:3128", "", "*")
	if got := proxyFor(t, proxy, "http://anything.com/"); got != "" {
		t.Errorf("wildcard should bypass, got %q", got)
	}
}

func TestNewProxyFunc_EnvironmentFallback(t *testing.T) {
	clearProxyEnv(t)
	t.Setenv("HTTPS_PROXY", "http://from-env:8080")

	proxy := NewProxyFunc("http://plain:3128", "", "")
	if got := proxyFor(t, proxy, "https://api.congress.gov/"); got != "http://from-env:8080" {
		t.Errorf("expected env HTTPS proxy, got %q", got)
	}
	if got := proxyFor(t, proxy, "http://example.com/"); got != "http://plain:3128" {
		t.Errorf("expected configured HTTP proxy, got %q", got)
	}
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	if c := NewHTTPClient(model.HTTPConfig{}); c.Timeout != 30*time.Second {
		t.Errorf("expected 30s default, got %v", c.Timeout)
	}
	if c := NewHTTPClient(model.HTTPConfig{Timeout: 5 * time.Second}); c.Timeout != 5*time.Second {
		t.Errorf("expected configured timeout, got %v", c.Timeout)
	}
}
