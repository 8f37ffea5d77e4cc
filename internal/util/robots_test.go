package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Legislens/0.1 (+https://github.com/ppiankov/legislens)", "Legislens"},
		{"Legislens", "Legislens"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeUserAgent(tt.in); got != tt.want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		if ua := r.Header.Get("User-Agent"); ua != "Legislens/0.1" {
			t.Errorf("User-Agent = %q", ua)
		}
		_, _ = w.Write([]byte("User-agent: Legislens\nDisallow: /private/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"))
	}))
	defer srv.Close()

	checker := NewRobotsChecker(srv.Client(), "Legislens/0.1")
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, srv.URL+"/118/bills/hr1/BILLS-118hr1ih.htm")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("bill text path should be allowed for Legislens")
	}
	if delay != 2*time.Second {
		t.Errorf("crawl delay = %v, want 2s", delay)
	}

	if checker.IsAllowed(ctx, srv.URL+"/private/draft.htm") {
		t.Error("/private/ should be disallowed")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1 (cached)", n)
	}

	checker.Clear()
	_ = checker.IsAllowed(ctx, srv.URL+"/")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("robots.txt fetched %d times after Clear, want 2", n)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	checker := NewRobotsChecker(srv.Client(), "Legislens/0.1")
	allowed, delay, err := checker.CanFetch(context.Background(), srv.URL+"/anything")
	if err != nil || !allowed || delay != 0 {
		t.Errorf("CanFetch = %v, %v, %v; want allowed", allowed, delay, err)
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	checker := NewRobotsChecker(nil, "Legislens/0.1")
	if !checker.IsAllowed(context.Background(), url+"/bill.htm") {
		t.Error("unreachable robots.txt should allow")
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker(nil, "Legislens/0.1")
	if _, _, err := checker.CanFetch(context.Background(), "/no/host"); err == nil {
		t.Error("expected error for URL without host")
	}
}
