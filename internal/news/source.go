// Package news correlates a bill with press coverage from up to three news
// APIs and reduces it to a deduplicated article list, a weekly timeline and a
// coarse sentiment label.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
)

// Query is what every source is asked for
type Query struct {
	Text     string
	Window   model.DateWindow
	PageSize int
}

// Source is one news API
type Source interface {
	// Name is the stable identifier recorded on each article
	Name() string
	// Tier is the source-quality rank, lower is better
	Tier() int
	// Endpoint is the URL rate limiting is keyed on
	Endpoint() string
	// Configured reports credential presence
	Configured() bool
	Search(ctx context.Context, q Query) ([]model.Article, error)
}

// Source names
const (
	SourceGuardian   = "guardian"
	SourceGoogleNews = "google_news"
	SourceNewsAPI    = "newsapi"
)

const defaultPageSize = 20

const maxResponseBytes = 4 << 20

func pageSize(q Query) int {
	if q.PageSize > 0 {
		return q.PageSize
	}
	return defaultPageSize
}

// getJSON performs a GET and decodes a JSON body. Non-2xx responses become
// *llm.StatusError so they classify like provider failures.
func getJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return llm.Classify(ctx, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return llm.Classify(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return llm.Classify(ctx, &llm.StatusError{StatusCode: resp.StatusCode, Message: msg})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", llm.ErrMalformedResponse, err)
	}
	return nil
}

// parseTime tries each layout and returns the zero time when none match
func parseTime(value string, layouts ...string) time.Time {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
