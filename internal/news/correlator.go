package news

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
	"github.com/ppiankov/legislens/internal/telemetry"
	"github.com/ppiankov/legislens/internal/util"
	"github.com/ppiankov/legislens/internal/worker"
)

// DefaultMaxArticles caps the merged article list
const DefaultMaxArticles = 50

// Request describes the bill whose coverage is wanted
type Request struct {
	Title          string
	Keywords       []string
	IntroducedDate *time.Time
}

// Correlator fans a query out to every configured source and reduces the results
type Correlator struct {
	sources       []Source
	tiers         *TierClassifier
	limiter       *worker.Limiter
	logger        *telemetry.Logger
	now           func() time.Time
	pageSize      int
	maxArticles   int
	timelineWeeks int
}

// Option configures a Correlator
type Option func(*Correlator)

// WithLimiter rate limits each source request by endpoint host
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Correlator) { c.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *telemetry.Logger) Option {
	return func(c *Correlator) { c.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Correlator) { c.now = now }
}

// WithTierClassifier overrides the default tier classifier
func WithTierClassifier(t *TierClassifier) Option {
	return func(c *Correlator) { c.tiers = t }
}

// WithLimits sets page size, article cap and timeline length; zero keeps the default
func WithLimits(pageSize, maxArticles, timelineWeeks int) Option {
	return func(c *Correlator) {
		if pageSize > 0 {
			c.pageSize = pageSize
		}
		if maxArticles > 0 {
			c.maxArticles = maxArticles
		}
		if timelineWeeks > 0 {
			c.timelineWeeks = timelineWeeks
		}
	}
}

// NewCorrelator creates a correlator over sources, queried in the given order
func NewCorrelator(sources []Source, opts ...Option) *Correlator {
	c := &Correlator{
		sources:       sources,
		tiers:         NewTierClassifier(nil),
		logger:        telemetry.Discard(),
		now:           time.Now,
		pageSize:      defaultPageSize,
		maxArticles:   DefaultMaxArticles,
		timelineWeeks: DefaultTimelineWeeks,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCorrelatorFromConfig wires the three standard sources from configuration
func NewCorrelatorFromConfig(cfg model.NewsConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter, logger *telemetry.Logger) *Correlator {
	client := util.NewHTTPClient(httpCfg)
	return newStandardCorrelator(cfg, client, httpCfg.UserAgent, limiter, logger)
}

func newStandardCorrelator(cfg model.NewsConfig, client *http.Client, userAgent string, limiter *worker.Limiter, logger *telemetry.Logger) *Correlator {
	sources := []Source{
		NewGuardianSource(cfg.GuardianAPIKey, "", client, userAgent),
		NewGoogleNewsSource(cfg.SerpAPIKey, "", client, userAgent),
		NewNewsAPISource(cfg.NewsAPIKey, "", client, userAgent),
	}
	return NewCorrelator(sources,
		WithLimiter(limiter),
		WithLogger(logger),
		WithLimits(cfg.PageSize, cfg.MaxArticles, cfg.TimelineWeeks),
	)
}

// Name identifies the correlator in logs
func (c *Correlator) Name() string { return "news" }

// Available is ready when at least one source has credentials
func (c *Correlator) Available(ctx context.Context) ondevice.State {
	if c.ConfiguredSources() > 0 {
		return ondevice.StateReady
	}
	return ondevice.StateUnavailable
}

// ConfiguredSources counts sources with credentials
func (c *Correlator) ConfiguredSources() int {
	n := 0
	for _, s := range c.sources {
		if s.Configured() {
			n++
		}
	}
	return n
}

type sourceResult struct {
	articles []model.Article
	err      error
}

// Correlate searches every configured source concurrently. A failing source
// is logged and contributes nothing, so coverage may come back empty. The call
// fails only when no source is configured or the context is cancelled.
func (c *Correlator) Correlate(ctx context.Context, req Request) (*model.NewsCorrelation, error) {
	if c.ConfiguredSources() == 0 {
		return nil, fmt.Errorf("%w: no news source configured", llm.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, llm.Classify(ctx, err)
	}

	query := Query{
		Text:     BuildQuery(req.Title, req.Keywords),
		Window:   SearchWindow(req.IntroducedDate, c.now()),
		PageSize: c.pageSize,
	}

	results := make([]sourceResult, len(c.sources))
	var wg sync.WaitGroup
	for i, src := range c.sources {
		if !src.Configured() {
			continue
		}
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			articles, err := c.search(ctx, src, query)
			results[i] = sourceResult{articles: articles, err: err}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, llm.Classify(ctx, err)
	}

	counts := make(map[string]int)
	perSource := make([][]model.Article, 0, len(c.sources))
	failed := 0
	for i, src := range c.sources {
		if !src.Configured() {
			continue
		}
		r := results[i]
		if r.err != nil {
			failed++
			c.logger.Warn("news source failed", map[string]any{
				"source": src.Name(),
				"kind":   llm.Kind(r.err),
				"error":  r.err,
			})
			continue
		}
		counts[src.Name()] = len(r.articles)
		perSource = append(perSource, r.articles)
	}

	articles := inWindow(Merge(perSource...), query.Window)
	c.tiers.Apply(articles)
	SortArticles(articles)
	if len(articles) > c.maxArticles {
		articles = articles[:c.maxArticles]
	}
	if articles == nil {
		articles = []model.Article{}
	}
	timeline := BuildTimeline(articles, c.timelineWeeks)
	if timeline == nil {
		timeline = []model.TimelineEvent{}
	}

	c.logger.Info("news correlated", map[string]any{
		"articles": len(articles),
		"sources":  len(counts),
		"failed":   failed,
	})

	return &model.NewsCorrelation{
		Query:        query.Text,
		Window:       query.Window,
		Articles:     articles,
		Timeline:     timeline,
		Sentiment:    ScoreSentiment(articles),
		SourceCounts: counts,
	}, nil
}

func (c *Correlator) search(ctx context.Context, src Source, q Query) ([]model.Article, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, src.Endpoint()); err != nil {
			return nil, llm.Classify(ctx, err)
		}
	}
	articles, err := src.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	for i := range articles {
		articles[i].Source = src.Name()
		articles[i].Tier = src.Tier()
	}
	return articles, nil
}

// inWindow drops articles published before the window; undated articles are kept
func inWindow(articles []model.Article, w model.DateWindow) []model.Article {
	out := articles[:0]
	for _, a := range articles {
		if !a.PublishedAt.IsZero() && a.PublishedAt.Before(w.From) {
			continue
		}
		out = append(out, a)
	}
	return out
}
