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
	"golang.org/x/net/html"
)

// GuardianBaseURL is the Guardian Open Platform content API
const GuardianBaseURL = "https://content.guardianapis.com"

// GuardianSource searches the Guardian Open Platform
type GuardianSource struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewGuardianSource creates a Guardian source; baseURL may be empty
func NewGuardianSource(apiKey, baseURL string, client *http.Client, userAgent string) *GuardianSource {
	if baseURL == "" {
		baseURL = GuardianBaseURL
	}
	return &GuardianSource{apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/"), client: client, userAgent: userAgent}
}

func (s *GuardianSource) Name() string     { return SourceGuardian }
func (s *GuardianSource) Tier() int        { return TierGuardian }
func (s *GuardianSource) Endpoint() string { return s.baseURL }
func (s *GuardianSource) Configured() bool { return s.apiKey != "" }

type guardianResponse struct {
	Response struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Results []struct {
			WebTitle           string `json:"webTitle"`
			WebURL             string `json:"webUrl"`
			WebPublicationDate string `json:"webPublicationDate"`
			SectionName        string `json:"sectionName"`
			Fields             struct {
				TrailText string `json:"trailText"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

// Search queries /search within the window, newest first
func (s *GuardianSource) Search(ctx context.Context, q Query) ([]model.Article, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("api-key", s.apiKey)
	params.Set("order-by", "newest")
	params.Set("show-fields", "trailText")
	params.Set("page-size", strconv.Itoa(pageSize(q)))
	if !q.Window.From.IsZero() {
		params.Set("from-date", q.Window.From.Format("2006-01-02"))
	}
	if !q.Window.To.IsZero() {
		params.Set("to-date", q.Window.To.Format("2006-01-02"))
	}

	var resp guardianResponse
	if err := getJSON(ctx, s.client, s.baseURL+"/search?"+params.Encode(), nil, s.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("guardian search: %w", err)
	}
	if resp.Response.Status != "" && resp.Response.Status != "ok" {
		return nil, fmt.Errorf("guardian search: status %s: %s", resp.Response.Status, resp.Response.Message)
	}

	articles := make([]model.Article, 0, len(resp.Response.Results))
	for _, r := range resp.Response.Results {
		if r.WebURL == "" || r.WebTitle == "" {
			continue
		}
		articles = append(articles, model.Article{
			Title:       r.WebTitle,
			Description: stripTags(r.Fields.TrailText),
			URL:         r.WebURL,
			Source:      SourceGuardian,
			Publisher:   "The Guardian",
			PublishedAt: parseTime(r.WebPublicationDate, time.RFC3339),
		})
	}
	return articles, nil
}

// stripTags returns the text content of an HTML fragment (trailText carries markup)
func stripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}
