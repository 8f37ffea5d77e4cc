package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

// NewsAPIBaseURL is newsapi.org
const NewsAPIBaseURL = "https://newsapi.org"

// NewsAPISource searches newsapi.org /v2/everything
type NewsAPISource struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewNewsAPISource creates a NewsAPI source; baseURL may be empty
func NewNewsAPISource(apiKey, baseURL string, client *http.Client, userAgent string) *NewsAPISource {
	if baseURL == "" {
		baseURL = NewsAPIBaseURL
	}
	return &NewsAPISource{apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/"), client: client, userAgent: userAgent}
}

func (s *NewsAPISource) Name() string     { return SourceNewsAPI }
func (s *NewsAPISource) Tier() int        { return TierNewsAPI }
func (s *NewsAPISource) Endpoint() string { return s.baseURL }
func (s *NewsAPISource) Configured() bool { return s.apiKey != "" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search queries /v2/everything sorted by publish date
func (s *NewsAPISource) Search(ctx context.Context, q Query) ([]model.Article, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(pageSize(q)))
	if !q.Window.From.IsZero() {
		params.Set("from", q.Window.From.Format("2006-01-02"))
	}
	if !q.Window.To.IsZero() {
		params.Set("to", q.Window.To.Format("2006-01-02"))
	}

	header := http.Header{}
	header.Set("X-Api-Key", s.apiKey)

	var resp newsAPIResponse
	if err := getJSON(ctx, s.client, s.baseURL+"/v2/everything?"+params.Encode(), header, s.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("newsapi search: %w", err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("newsapi search: %s: %s", resp.Code, resp.Message)
	}

	articles := make([]model.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		// Deleted articles are returned as "[Removed]" placeholders
		if a.URL == "" || a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, model.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      SourceNewsAPI,
			Publisher:   a.Source.Name,
			PublishedAt: parseTime(a.PublishedAt, time.RFC3339),
		})
	}
	return articles, nil
}
