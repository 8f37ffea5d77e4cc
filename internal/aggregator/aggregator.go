// Package aggregator runs the enabled adapters for one bill in two phases
// (on-device, then cloud) and merges whatever succeeded into a
// model.CompositeAnalysis. Adapter failures never fail the run.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/news"
	"github.com/ppiankov/legislens/internal/ondevice"
	"github.com/ppiankov/legislens/internal/telemetry"
)

// newsKeywordCategories is how many top categories feed the news query
const newsKeywordCategories = 3

type Summarizer interface {
	Summarize(ctx context.Context, text string) (*model.Summary, error)
}

type Categorizer interface {
	Categorize(ctx context.Context, title, summary string) ([]model.Category, error)
}

type UrgencyClassifier interface {
	ClassifyUrgency(ctx context.Context, title, summary string) (*model.Urgency, error)
}

type ProvisionExtractor interface {
	ExtractProvisions(ctx context.Context, text string, max int) (*model.ProvisionSet, error)
}

type StakeholderAnalyzer interface {
	AnalyzeStakeholders(ctx context.Context, title, summary string, provisions []string) (*model.StakeholderAnalysis, error)
}

type HistoricalAnalyzer interface {
	AnalyzeHistory(ctx context.Context, title, summary string, provisions []string) (*model.HistoricalAnalysis, error)
}

type ImpactAnalyzer interface {
	AnalyzeImpact(ctx context.Context, title, summary, text string) (*model.ImpactAnalysis, error)
}

type NewsCorrelator interface {
	Available(ctx context.Context) ondevice.State
	Correlate(ctx context.Context, req news.Request) (*model.NewsCorrelation, error)
}

// Deps are the adapters the aggregator drives. A nil field is an unavailable
// adapter and its output is always absent.
type Deps struct {
	Summarizer   Summarizer
	Categorizer  Categorizer
	Urgency      UrgencyClassifier
	Provisions   ProvisionExtractor
	Stakeholders StakeholderAnalyzer
	Historical   HistoricalAnalyzer
	Impact       ImpactAnalyzer
	News         NewsCorrelator

	// Probed by CheckAvailability only
	Runtime ondevice.Runtime
	Cloud   llm.Provider
}

// Aggregator is stateless between runs and safe for concurrent use
type Aggregator struct {
	deps          Deps
	logger        *telemetry.Logger
	now           func() time.Time
	maxProvisions int
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithLogger sets the logger
func WithLogger(l *telemetry.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithClock overrides time.Now for timing and GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithMaxProvisions caps the provisions extractor output
func WithMaxProvisions(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxProvisions = n
		}
	}
}

// New creates an aggregator over deps
func New(deps Deps, opts ...Option) *Aggregator {
	a := &Aggregator{
		deps:          deps,
		logger:        telemetry.Discard(),
		now:           time.Now,
		maxProvisions: 8,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run analyzes one bill. It returns an error only for invalid input; every
// adapter failure is logged and leaves its field absent.
func (a *Aggregator) Run(ctx context.Context, req model.AnalysisRequest) (*model.CompositeAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts := req.Options
	log := a.logger.With(map[string]any{"bill": req.BillID})

	// 1. Phase 1: on-device, sequential
	t0 := a.now()
	core := a.runOnDevice(ctx, req, log)
	t1 := a.now()

	// 2. Phase 2: cloud, concurrent
	var enhanced *model.EnhancedAnalysis
	var cloudTime time.Duration
	t2 := t1
	if !opts.OfflineMode {
		enhanced = a.runCloud(ctx, req, core, log)
		t2 = a.now()
		cloudTime = t2.Sub(t1)
	}
	if enhanced.IsEmpty() {
		enhanced = nil
	}

	result := &model.CompositeAnalysis{
		Core:        core,
		Enhanced:    enhanced,
		Providers:   model.AttributionFor(core, enhanced),
		GeneratedAt: a.now().UTC(),
		ProcessingTime: model.ProcessingTime{
			OnDevice: t1.Sub(t0),
			Cloud:    cloudTime,
			Total:    t2.Sub(t0),
		},
	}

	log.Info("analysis complete", map[string]any{
		"on_device": result.Providers.OnDevice,
		"cloud":     result.Providers.Gemini,
		"news":      result.Providers.News,
		"total_ms":  result.ProcessingTime.Total.Milliseconds(),
	})
	return result, nil
}

func (a *Aggregator) runOnDevice(ctx context.Context, req model.AnalysisRequest, log *telemetry.Logger) model.CoreAnalysis {
	opts := req.Options
	d := a.deps
	var core model.CoreAnalysis

	if opts.IncludeSummary && d.Summarizer != nil {
		summary, err := d.Summarizer.Summarize(ctx, req.Text)
		if a.ok(log, "summarizer", err) {
			core.Summary = summary
		}
	}

	if opts.IncludeCategories {
		if d.Categorizer != nil {
			categories, err := d.Categorizer.Categorize(ctx, req.Title, req.Summary)
			if a.ok(log, "categorizer", err) && len(categories) > 0 {
				core.Categories = categories
			}
		}
		if d.Urgency != nil {
			urgency, err := d.Urgency.ClassifyUrgency(ctx, req.Title, req.Summary)
			if a.ok(log, "urgency", err) {
				core.Urgency = urgency
			}
		}
	}

	if opts.IncludeProvisions && d.Provisions != nil {
		provisions, err := d.Provisions.ExtractProvisions(ctx, req.Text, a.maxProvisions)
		if a.ok(log, "provisions", err) && provisions != nil && len(provisions.Provisions) > 0 {
			core.Provisions = provisions
		}
	}

	// Stakeholders consume provision descriptions
	if opts.IncludeStakeholders && d.Stakeholders != nil {
		if core.Provisions == nil {
			log.Info("adapter skipped", map[string]any{"adapter": "stakeholders", "reason": "no provisions"})
		} else {
			stakeholders, err := d.Stakeholders.AnalyzeStakeholders(ctx, req.Title, req.Summary, core.Provisions.Descriptions())
			if a.ok(log, "stakeholders", err) {
				core.StakeholderPerspectives = stakeholders
			}
		}
	}

	return core
}

func (a *Aggregator) runCloud(ctx context.Context, req model.AnalysisRequest, core model.CoreAnalysis, log *telemetry.Logger) *model.EnhancedAnalysis {
	opts := req.Options
	d := a.deps
	enhanced := &model.EnhancedAnalysis{}
	var wg sync.WaitGroup

	if opts.IncludeHistoricalAnalysis && d.Historical != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			history, err := d.Historical.AnalyzeHistory(ctx, req.Title, req.Summary, core.Provisions.Descriptions())
			if a.ok(log, "historical", err) {
				enhanced.HistoricalAnalysis = history
			}
		}()
	}

	if opts.IncludeImpactAnalysis && d.Impact != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			impact, err := d.Impact.AnalyzeImpact(ctx, req.Title, req.Summary, req.Text)
			if a.ok(log, "impact", err) {
				enhanced.ImpactAnalysis = impact
			}
		}()
	}

	// News keywords come from the categorizer
	if opts.IncludeNews && d.News != nil {
		if len(core.Categories) == 0 {
			log.Info("adapter skipped", map[string]any{"adapter": "news", "reason": "no categories"})
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				correlation, err := d.News.Correlate(ctx, news.Request{
					Title:          req.Title,
					Keywords:       news.KeywordsFromCategories(core.Categories, newsKeywordCategories),
					IntroducedDate: req.IntroducedDate,
				})
				if a.ok(log, "news", err) {
					enhanced.NewsCorrelation = correlation
				}
			}()
		}
	}

	wg.Wait()
	return enhanced
}

// ok logs a failed adapter call with its taxonomy kind
func (a *Aggregator) ok(log *telemetry.Logger, adapter string, err error) bool {
	if err == nil {
		return true
	}
	fields := map[string]any{"adapter": adapter, "kind": llm.Kind(err), "error": err}
	if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, llm.ErrCancelled) {
		log.Info("adapter skipped", fields)
	} else {
		log.Warn("adapter failed", fields)
	}
	return false
}
