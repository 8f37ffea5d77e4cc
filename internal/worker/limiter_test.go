package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://content.guardianapis.com/search"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://newsapi.org/v2/everything"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "https://www.congress.gov", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_WaitWithDelayCancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.WaitWithDelay(ctx, "https://www.congress.gov", time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "https://api.congress.gov/v3/bill"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}
	// Burst of one is spent
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}
	// Hosts are case-insensitive and ignore ports
	if limiter.Allow("https://API.Congress.gov:443/v3/bill") {
		t.Errorf("expected host normalization to share the bucket")
	}
	if !limiter.Allow("https://serpapi.com/search.json") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetDomainRate("API.congress.gov", 0.1, 1)

	if !limiter.Allow("https://api.congress.gov/v3/bill/118/hr/1") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("https://api.congress.gov/v3/bill/118/hr/2") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("https://www.congress.gov/118/bills/hr1/BILLS-118hr1ih.htm") {
		t.Errorf("other host should pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !limiter.Allow("https://newsapi.org") {
			t.Fatalf("request %d denied with limiting disabled", i)
		}
	}
}

func TestLimiter_Nil(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "https://newsapi.org"); err != nil {
		t.Errorf("nil limiter Wait = %v", err)
	}
	if !limiter.Allow("https://newsapi.org") {
		t.Error("nil limiter should allow")
	}
	limiter.SetDomainRate("newsapi.org", 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "https://newsapi.org"); !errors.Is(err, context.Canceled) {
		t.Errorf("nil limiter should still honor ctx, got %v", err)
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("https://Content.GuardianAPIs.com:8443/search")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "content.guardianapis.com" {
		t.Errorf("expected content.guardianapis.com, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
	if _, err := extractHost("/relative/path"); err == nil {
		t.Errorf("expected error for URL without host")
	}
}
