package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/legislens/internal/model"
)

// SerpAPIBaseURL is SerpAPI's search endpoint
const SerpAPIBaseURL = "https://serpapi.com"

// GoogleNewsSource searches Google News through SerpAPI's google_news engine
type GoogleNewsSource struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewGoogleNewsSource creates a Google News source; baseURL may be empty
func NewGoogleNewsSource(apiKey, baseURL string, client *http.Client, userAgent string) *GoogleNewsSource {
	if baseURL == "" {
		baseURL = SerpAPIBaseURL
	}
	return &GoogleNewsSource{apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/"), client: client, userAgent: userAgent}
}

func (s *GoogleNewsSource) Name() string     { return SourceGoogleNews }
func (s *GoogleNewsSource) Tier() int        { return TierGoogleNews }
func (s *GoogleNewsSource) Endpoint() string { return s.baseURL }
func (s *GoogleNewsSource) Configured() bool { return s.apiKey != "" }

type serpNewsResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  struct {
		Name string `json:"name"`
	} `json:"source"`
	Stories []serpNewsResult `json:"stories"`
}

type serpResponse struct {
	Error       string           `json:"error"`
	NewsResults []serpNewsResult `json:"news_results"`
}

// SerpAPI google_news dates look like "11/14/2024, 08:00 AM, +0000 UTC"
var serpDateLayouts = []string{
	"01/02/2006, 03:04 PM, -0700 MST",
	"01/02/2006, 03:04 PM, -0700",
}

// Search queries the google_news engine. The engine has no date parameters,
// so the window is expressed with after:/before: operators and re-checked locally.
func (s *GoogleNewsSource) Search(ctx context.Context, q Query) ([]model.Article, error) {
	text := q.Text
	if !q.Window.From.IsZero() {
		text += " after:" + q.Window.From.Format("2006-01-02")
	}

	params := url.Values{}
	params.Set("engine", "google_news")
	params.Set("q", text)
	params.Set("gl", "us")
	params.Set("hl", "en")
	params.Set("api_key", s.apiKey)

	var resp serpResponse
	if err := getJSON(ctx, s.client, s.baseURL+"/search.json?"+params.Encode(), nil, s.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("google news search: %w", err)
	}
	if resp.Error != "" && !strings.Contains(strings.ToLower(resp.Error), "hasn't returned any results") {
		return nil, fmt.Errorf("google news search: %s", resp.Error)
	}

	limit := pageSize(q)
	articles := make([]model.Article, 0, limit)
	var add func(results []serpNewsResult)
	add = func(results []serpNewsResult) {
		for _, r := range results {
			if len(articles) >= limit {
				return
			}
			// Story clusters carry their articles one level down
			if r.Link == "" {
				add(r.Stories)
				continue
			}
			articles = append(articles, model.Article{
				Title:       r.Title,
				Description: r.Snippet,
				URL:         r.Link,
				Source:      SourceGoogleNews,
				Publisher:   r.Source.Name,
				PublishedAt: parseTime(r.Date, serpDateLayouts...),
			})
		}
	}
	add(resp.NewsResults)

	return articles, nil
}
