package congress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
	"github.com/ppiankov/legislens/internal/util"
	"github.com/ppiankov/legislens/internal/worker"
)

// DefaultBaseURL is the Congress.gov v3 API root
const DefaultBaseURL = "https://api.congress.gov/v3"

const (
	defaultMaxTextBytes = 5_000_000
	maxJSONBytes        = 4 << 20
)

var (
	// ErrBillNotFound means Congress.gov has no bill for the ref
	ErrBillNotFound = errors.New("bill not found")

	// ErrNoText means no text version has a supported format yet
	ErrNoText = errors.New("no bill text available")

	// ErrRobotsDisallowed means robots.txt forbids fetching the text URL
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
)

// Client reads bills from the Congress.gov API
type Client struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	userAgent    string
	limiter      *worker.Limiter
	robots       *util.RobotsChecker
	maxTextBytes int64
	logger       *telemetry.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithLimiter rate limits API and text requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRobots checks robots.txt before downloading bill text
func WithRobots(r *util.RobotsChecker) Option {
	return func(c *Client) { c.robots = r }
}

// WithMaxTextBytes caps the text download size
func WithMaxTextBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTextBytes = n
		}
	}
}

func WithLogger(l *telemetry.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Congress.gov client
func NewClient(apiKey string, client *http.Client, userAgent string, opts ...Option) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		client:       client,
		userAgent:    userAgent,
		maxTextBytes: defaultMaxTextBytes,
		logger:       telemetry.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig wires the shared HTTP client, limiter and robots checker
func NewClientFromConfig(cfg model.CongressConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter, logger *telemetry.Logger) *Client {
	httpClient := util.NewHTTPClient(httpCfg)
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithLimiter(limiter),
		WithMaxTextBytes(cfg.MaxTextBytes),
		WithLogger(logger),
	}
	if cfg.RespectRobot {
		opts = append(opts, WithRobots(util.NewRobotsChecker(httpClient, httpCfg.UserAgent)))
	}
	return NewClient(cfg.APIKey, httpClient, httpCfg.UserAgent, opts...)
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type billResponse struct {
	Bill struct {
		Congress       int    `json:"congress"`
		Type           string `json:"type"`
		Number         string `json:"number"`
		Title          string `json:"title"`
		IntroducedDate string `json:"introducedDate"`
		Sponsors       []struct {
			FullName string `json:"fullName"`
		} `json:"sponsors"`
		PolicyArea struct {
			Name string `json:"name"`
		} `json:"policyArea"`
		LatestAction struct {
			ActionDate string `json:"actionDate"`
			Text       string `json:"text"`
		} `json:"latestAction"`
	} `json:"bill"`
}

type summariesResponse struct {
	Summaries []struct {
		ActionDate string `json:"actionDate"`
		ActionDesc string `json:"actionDesc"`
		Text       string `json:"text"`
		UpdateDate string `json:"updateDate"`
	} `json:"summaries"`
}

type textResponse struct {
	TextVersions []struct {
		Date    *string `json:"date"`
		Type    string  `json:"type"`
		Formats []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"formats"`
	} `json:"textVersions"`
}

// GetBill loads metadata, the latest CRS summary and the text version list
func (c *Client) GetBill(ctx context.Context, ref BillRef) (*Bill, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: congress.gov API key not set", llm.ErrUnavailable)
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var br billResponse
	if err := c.getJSON(ctx, "/bill/"+ref.Path(), &br); err != nil {
		return nil, fmt.Errorf("get bill %s: %w", ref, err)
	}

	bill := &Bill{
		Ref:            ref,
		Title:          strings.TrimSpace(br.Bill.Title),
		IntroducedDate: parseDate(br.Bill.IntroducedDate),
		PolicyArea:     br.Bill.PolicyArea.Name,
		LatestAction:   strings.TrimSpace(br.Bill.LatestAction.Text),
	}
	if len(br.Bill.Sponsors) > 0 {
		bill.Sponsor = br.Bill.Sponsors[0].FullName
	}

	var sr summariesResponse
	if err := c.getJSON(ctx, "/bill/"+ref.Path()+"/summaries", &sr); err != nil {
		if !errors.Is(err, ErrBillNotFound) {
			return nil, fmt.Errorf("get summaries %s: %w", ref, err)
		}
	}
	latest := ""
	for _, s := range sr.Summaries {
		date := s.UpdateDate
		if date == "" {
			date = s.ActionDate
		}
		if date >= latest {
			latest = date
			bill.Summary = htmlToText(s.Text)
		}
	}

	var tr textResponse
	if err := c.getJSON(ctx, "/bill/"+ref.Path()+"/text", &tr); err != nil {
		if !errors.Is(err, ErrBillNotFound) {
			return nil, fmt.Errorf("get text versions %s: %w", ref, err)
		}
	}
	for _, v := range tr.TextVersions {
		version := TextVersion{Type: v.Type}
		if v.Date != nil {
			version.Date = parseDate(*v.Date)
		}
		for _, f := range v.Formats {
			version.Formats = append(version.Formats, TextFormat{Type: f.Type, URL: f.URL})
		}
		bill.TextVersions = append(bill.TextVersions, version)
	}

	c.logger.Info("bill loaded", map[string]any{
		"bill":          ref.ID(),
		"has_summary":   bill.Summary != "",
		"text_versions": len(bill.TextVersions),
	})
	return bill, nil
}

// Fetch loads a bill and its text. When no text is published the CRS summary
// stands in for it; ErrNoText is returned only when both are missing.
func (c *Client) Fetch(ctx context.Context, ref BillRef) (*Bill, error) {
	bill, err := c.GetBill(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := c.FetchText(ctx, bill); err != nil {
		if !errors.Is(err, ErrNoText) && !errors.Is(err, ErrRobotsDisallowed) {
			return nil, err
		}
		if bill.Summary == "" {
			return nil, fmt.Errorf("%s: %w", ref, ErrNoText)
		}
		c.logger.Warn("bill text unavailable, using summary", map[string]any{
			"bill":  ref.ID(),
			"error": err,
		})
		bill.Text = bill.Summary
	}
	return bill, nil
}

// BillID returns the cache key for ref without contacting the API
func (c *Client) BillID(ref string) (string, error) {
	parsed, err := ParseBillRef(ref)
	if err != nil {
		return "", err
	}
	return parsed.ID(), nil
}

// Load parses ref, fetches the bill and builds an analysis request for it
func (c *Client) Load(ctx context.Context, ref string, opts model.AnalysisOptions) (model.AnalysisRequest, error) {
	parsed, err := ParseBillRef(ref)
	if err != nil {
		return model.AnalysisRequest{}, err
	}
	bill, err := c.Fetch(ctx, parsed)
	if err != nil {
		return model.AnalysisRequest{}, err
	}
	return bill.AnalysisRequest(opts), nil
}

// FetchText downloads the newest text version, preferring HTML over PDF, and
// stores the plain text on bill.
func (c *Client) FetchText(ctx context.Context, bill *Bill) (string, error) {
	format, ok := pickFormat(bill.TextVersions)
	if !ok {
		return "", ErrNoText
	}

	var delay time.Duration
	if c.robots != nil {
		allowed, crawlDelay, err := c.robots.CanFetch(ctx, format.URL)
		if err != nil {
			return "", llm.Classify(ctx, err)
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s", ErrRobotsDisallowed, format.URL)
		}
		delay = crawlDelay
	}
	if err := c.limiter.WaitWithDelay(ctx, format.URL, delay); err != nil {
		return "", llm.Classify(ctx, err)
	}

	data, err := c.download(ctx, format.URL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", format.URL, err)
	}

	var text string
	if isPDF(format) {
		text, err = pdfToText(data)
	} else {
		text = htmlToText(string(data))
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}

	c.logger.Info("bill text fetched", map[string]any{
		"bill":   bill.Ref.ID(),
		"format": format.Type,
		"bytes":  len(data),
		"chars":  len(text),
	})
	bill.Text = text
	return text, nil
}

// pickFormat returns the HTML (else PDF) download of the newest version.
// Undated versions rank below dated ones; among equals the later entry wins.
func pickFormat(versions []TextVersion) (TextFormat, bool) {
	var (
		best     TextFormat
		bestDate time.Time
		found    bool
	)
	for _, v := range versions {
		f, ok := preferredFormat(v.Formats)
		if !ok {
			continue
		}
		var date time.Time
		if v.Date != nil {
			date = *v.Date
		}
		if !found || !date.Before(bestDate) {
			best, bestDate, found = f, date, true
		}
	}
	return best, found
}

func preferredFormat(formats []TextFormat) (TextFormat, bool) {
	var pdfFormat *TextFormat
	for i, f := range formats {
		if f.URL == "" {
			continue
		}
		switch strings.ToLower(f.Type) {
		case "formatted text", "html":
			return f, true
		case "pdf":
			if pdfFormat == nil {
				pdfFormat = &formats[i]
			}
		}
	}
	if pdfFormat != nil {
		return *pdfFormat, true
	}
	return TextFormat{}, false
}

func isPDF(f TextFormat) bool {
	return strings.EqualFold(f.Type, "pdf") || strings.HasSuffix(strings.ToLower(f.URL), ".pdf")
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)
	rawURL := c.baseURL + path + "?" + params.Encode()

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return llm.Classify(ctx, err)
	}

	body, err := c.get(ctx, rawURL, "application/json", maxJSONBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", llm.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL, "*/*", c.maxTextBytes)
}

// get performs a GET, mapping 404 to ErrBillNotFound and other non-2xx
// statuses onto the shared failure taxonomy.
func (c *Client) get(ctx context.Context, rawURL, accept string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, llm.Classify(ctx, fmt.Errorf("execute request: %w", redactKey(err, c.apiKey)))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, llm.Classify(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBillNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, llm.Classify(ctx, &llm.StatusError{StatusCode: resp.StatusCode, Message: msg})
	}
	return body, nil
}

// redactKey keeps the API key out of *url.Error messages
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, key, "REDACTED"),
			Err: urlErr.Err,
		}
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

// parseDate accepts "2006-01-02" and RFC 3339; nil when neither matches
func parseDate(value string) *time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
