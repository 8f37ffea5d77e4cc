package aggregator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/legislens/internal/adapters"
	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/news"
	"github.com/ppiankov/legislens/internal/ondevice"
	"github.com/ppiankov/legislens/internal/telemetry"
)

// stub is a single adapter double: it counts calls and returns a canned
// value or error
type stub struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stub) call(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return llm.Classify(ctx, err)
	}
	return s.err
}

func (s *stub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeSummarizer struct{ stub }

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (*model.Summary, error) {
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.Summary{KeyPoints: "- housing", Short: "Expands housing vouchers."}, nil
}

type fakeCategorizer struct {
	stub
	categories []model.Category
}

func (f *fakeCategorizer) Categorize(ctx context.Context, title, summary string) ([]model.Category, error) {
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return f.categories, nil
}

type fakeUrgency struct{ stub }

func (f *fakeUrgency) ClassifyUrgency(ctx context.Context, title, summary string) (*model.Urgency, error) {
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.Urgency{Urgency: model.UrgencyMedium, ImpactLevel: model.ImpactModerate}, nil
}

type fakeProvisions struct {
	stub
	max int
}

func (f *fakeProvisions) ExtractProvisions(ctx context.Context, text string, max int) (*model.ProvisionSet, error) {
	f.max = max
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.ProvisionSet{Provisions: []model.Provision{
		{Title: "Vouchers", Description: "Expands housing choice vouchers", Importance: model.ImportanceHigh},
	}}, nil
}

type fakeStakeholders struct {
	stub
	provisions []string
}

func (f *fakeStakeholders) AnalyzeStakeholders(ctx context.Context, title, summary string, provisions []string) (*model.StakeholderAnalysis, error) {
	f.provisions = provisions
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.StakeholderAnalysis{Perspectives: []model.StakeholderPerspective{
		{Group: "Renters", Position: model.PositionSupport},
	}}, nil
}

type fakeHistorical struct{ stub }

func (f *fakeHistorical) AnalyzeHistory(ctx context.Context, title, summary string, provisions []string) (*model.HistoricalAnalysis, error) {
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.HistoricalAnalysis{HistoricalContext: "Builds on 1974 Section 8."}, nil
}

type fakeImpact struct{ stub }

func (f *fakeImpact) AnalyzeImpact(ctx context.Context, title, summary, text string) (*model.ImpactAnalysis, error) {
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.ImpactAnalysis{Economic: "e", Social: "s", Political: "p"}, nil
}

type fakeNews struct {
	stub
	state ondevice.State
	req   news.Request
}

func (f *fakeNews) Available(ctx context.Context) ondevice.State { return f.state }

func (f *fakeNews) Correlate(ctx context.Context, req news.Request) (*model.NewsCorrelation, error) {
	f.req = req
	if err := f.call(ctx); err != nil {
		return nil, err
	}
	return &model.NewsCorrelation{Query: news.BuildQuery(req.Title, req.Keywords), Sentiment: model.SentimentNeutral}, nil
}

type fixture struct {
	summarizer   *fakeSummarizer
	categorizer  *fakeCategorizer
	urgency      *fakeUrgency
	provisions   *fakeProvisions
	stakeholders *fakeStakeholders
	historical   *fakeHistorical
	impact       *fakeImpact
	news         *fakeNews
}

func newFixture() *fixture {
	return &fixture{
		summarizer: &fakeSummarizer{},
		categorizer: &fakeCategorizer{categories: []model.Category{
			{Name: "Housing", Confidence: 0.9, Tags: []string{"rent", "vouchers"}},
			{Name: "Urban Development", Confidence: 0.6},
			{Name: "Finance", Confidence: 0.5, Tags: []string{"lending"}},
			{Name: "Tax", Confidence: 0.2, Tags: []string{"credits"}},
		}},
		urgency:      &fakeUrgency{},
		provisions:   &fakeProvisions{},
		stakeholders: &fakeStakeholders{},
		historical:   &fakeHistorical{},
		impact:       &fakeImpact{},
		news:         &fakeNews{state: ondevice.StateReady},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Summarizer:   f.summarizer,
		Categorizer:  f.categorizer,
		Urgency:      f.urgency,
		Provisions:   f.provisions,
		Stakeholders: f.stakeholders,
		Historical:   f.historical,
		Impact:       f.impact,
		News:         f.news,
	}
}

func (f *fixture) counts() []int {
	return []int{
		f.summarizer.count(), f.categorizer.count(), f.urgency.count(), f.provisions.count(),
		f.stakeholders.count(), f.historical.count(), f.impact.count(), f.news.count(),
	}
}

// steppingClock advances by step on every read
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func housingRequest(level model.Level) model.AnalysisRequest {
	return model.AnalysisRequest{
		BillID:  "118-hr-1234",
		Title:   "Affordable Housing Access Act",
		Summary: "Expands rental assistance and housing vouchers for low-income families.",
		Text:    strings.Repeat("SEC. 2. HOUSING CHOICE VOUCHERS. The Secretary shall expand eligibility. ", 70),
		Options: level.Options(),
	}
}

func TestRun_InvalidInput(t *testing.T) {
	agg := New(newFixture().deps())
	req := housingRequest(model.LevelStandard)
	req.Summary = "  "

	result, err := agg.Run(context.Background(), req)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if result != nil {
		t.Error("expected nil result for invalid input")
	}
}

func TestRun_QuickPresetStaysOnDevice(t *testing.T) {
	f := newFixture()
	agg := New(f.deps(), WithClock(steppingClock(10*time.Millisecond)))

	result, err := agg.Run(context.Background(), housingRequest(model.LevelQuick))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Core.Summary == nil {
		t.Error("expected core.summary")
	}
	if result.Enhanced != nil {
		t.Errorf("expected no enhanced analysis, got %+v", result.Enhanced)
	}
	if result.ProcessingTime.Cloud != 0 {
		t.Errorf("cloud time = %v, want 0", result.ProcessingTime.Cloud)
	}
	if f.historical.count()+f.impact.count()+f.news.count() != 0 {
		t.Error("cloud adapters must not run in quick mode")
	}
	if !result.Providers.OnDevice || result.Providers.Gemini || result.Providers.News {
		t.Errorf("providers = %+v", result.Providers)
	}
}

func TestRun_DeepPresetWithFailingHistorical(t *testing.T) {
	f := newFixture()
	f.historical.err = fmt.Errorf("%w: 503", llm.ErrNetworkOrQuota)
	agg := New(f.deps())

	result, err := agg.Run(context.Background(), housingRequest(model.LevelDeep))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Enhanced == nil {
		t.Fatal("expected enhanced analysis")
	}
	if result.Enhanced.HistoricalAnalysis != nil {
		t.Error("historical analysis should be absent")
	}
	if result.Enhanced.ImpactAnalysis == nil || result.Enhanced.NewsCorrelation == nil {
		t.Errorf("impact and news should be present: %+v", result.Enhanced)
	}
	if !result.Providers.Gemini || !result.Providers.News {
		t.Errorf("providers = %+v, want gemini and news", result.Providers)
	}
}

func TestRun_MalformedCategorizerOutput(t *testing.T) {
	f := newFixture()
	rt := &textRuntime{reply: "I'm sorry, I can't categorize this bill."}
	deps := f.deps()
	deps.Categorizer = adapters.NewCategorizer(rt)

	result, err := New(deps).Run(context.Background(), housingRequest(model.LevelDeep))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Core.Categories != nil {
		t.Errorf("categories should be absent, got %+v", result.Core.Categories)
	}
	if f.news.count() != 0 {
		t.Error("news must be skipped without categories")
	}
	if rt.destroyed != rt.created {
		t.Errorf("sessions created %d, destroyed %d", rt.created, rt.destroyed)
	}
}

func TestRun_EveryAdapterFails(t *testing.T) {
	errs := []error{
		llm.ErrUnavailable,
		llm.ErrMalformedResponse,
		llm.ErrTimeout,
		llm.ErrNetworkOrQuota,
		llm.ErrCancelled,
		errors.New("unexpected"),
	}
	for _, failure := range errs {
		t.Run(llm.Kind(failure), func(t *testing.T) {
			f := newFixture()
			for _, s := range []*stub{
				&f.summarizer.stub, &f.categorizer.stub, &f.urgency.stub, &f.provisions.stub,
				&f.stakeholders.stub, &f.historical.stub, &f.impact.stub, &f.news.stub,
			} {
				s.err = failure
			}

			result, err := New(f.deps()).Run(context.Background(), housingRequest(model.LevelDeep))
			if err != nil {
				t.Fatalf("Run returned %v, want partial result", err)
			}
			if result.Core.HasAny() || result.Enhanced != nil {
				t.Errorf("expected empty analysis, got %+v", result)
			}
			if result.Providers != (model.ProviderAttribution{}) {
				t.Errorf("providers = %+v, want all false", result.Providers)
			}
		})
	}
}

func TestRun_PartialFailureSubsets(t *testing.T) {
	// Each bit forces one adapter to fail
	for mask := 0; mask < 1<<8; mask++ {
		f := newFixture()
		stubs := []*stub{
			&f.summarizer.stub, &f.categorizer.stub, &f.urgency.stub, &f.provisions.stub,
			&f.stakeholders.stub, &f.historical.stub, &f.impact.stub, &f.news.stub,
		}
		for i, s := range stubs {
			if mask&(1<<i) != 0 {
				s.err = llm.ErrMalformedResponse
			}
		}

		result, err := New(f.deps()).Run(context.Background(), housingRequest(model.LevelDeep))
		if err != nil || result == nil {
			t.Fatalf("mask %08b: Run = %v, %v", mask, result, err)
		}

		core, enh := result.Core, result.Enhanced
		wantAttr := model.AttributionFor(core, enh)
		if result.Providers != wantAttr {
			t.Errorf("mask %08b: providers = %+v, want %+v", mask, result.Providers, wantAttr)
		}
		for i, n := range f.counts() {
			if n > 1 {
				t.Errorf("mask %08b: adapter %d called %d times", mask, i, n)
			}
		}
	}
}

func TestRun_StakeholdersRequireProvisions(t *testing.T) {
	t.Run("provisions disabled", func(t *testing.T) {
		f := newFixture()
		req := housingRequest(model.LevelStandard)
		req.Options.IncludeProvisions = false

		result, err := New(f.deps()).Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.Core.StakeholderPerspectives != nil {
			t.Error("stakeholders should be absent")
		}
		if f.stakeholders.count() != 0 {
			t.Error("stakeholder adapter should not be called")
		}
	})

	t.Run("provisions failed", func(t *testing.T) {
		f := newFixture()
		f.provisions.err = llm.ErrTimeout

		result, err := New(f.deps()).Run(context.Background(), housingRequest(model.LevelStandard))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.Core.StakeholderPerspectives != nil || f.stakeholders.count() != 0 {
			t.Error("stakeholders should be skipped when provisions failed")
		}
	})

	t.Run("provisions present", func(t *testing.T) {
		f := newFixture()
		result, err := New(f.deps(), WithMaxProvisions(5)).Run(context.Background(), housingRequest(model.LevelStandard))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.Core.StakeholderPerspectives == nil {
			t.Fatal("expected stakeholders")
		}
		if len(f.stakeholders.provisions) != 1 || f.stakeholders.provisions[0] != "Expands housing choice vouchers" {
			t.Errorf("stakeholders got provisions %v", f.stakeholders.provisions)
		}
		if f.provisions.max != 5 {
			t.Errorf("max provisions = %d, want 5", f.provisions.max)
		}
	})
}

func TestRun_OfflineModeSkipsCloud(t *testing.T) {
	f := newFixture()
	req := housingRequest(model.LevelDeep)
	req.Options.OfflineMode = true

	result, err := New(f.deps(), WithClock(steppingClock(time.Millisecond))).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Enhanced.IsEmpty() {
		t.Errorf("enhanced = %+v, want absent", result.Enhanced)
	}
	if result.ProcessingTime.Cloud != 0 {
		t.Errorf("cloud time = %v, want 0", result.ProcessingTime.Cloud)
	}
	if f.historical.count()+f.impact.count()+f.news.count() != 0 {
		t.Error("cloud adapters ran in offline mode")
	}
}

func TestRun_NewsKeywordsFromTopCategories(t *testing.T) {
	f := newFixture()
	introduced := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	req := housingRequest(model.LevelDeep)
	req.IntroducedDate = &introduced

	if _, err := New(f.deps()).Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"rent", "vouchers", "Urban Development", "lending"}
	got := f.news.req.Keywords
	if len(got) != len(want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d = %q, want %q", i, got[i], want[i])
		}
	}
	if f.news.req.IntroducedDate == nil || !f.news.req.IntroducedDate.Equal(introduced) {
		t.Error("introduced date not forwarded to news")
	}
}

func TestRun_NewsOnlyAttribution(t *testing.T) {
	f := newFixture()
	req := housingRequest(model.LevelStandard)
	req.Options.IncludeNews = true

	result, err := New(f.deps()).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Providers.News || result.Providers.Gemini {
		t.Errorf("providers = %+v, want news only", result.Providers)
	}
}

func TestRun_NilAdaptersAreUnavailable(t *testing.T) {
	result, err := New(Deps{}).Run(context.Background(), housingRequest(model.LevelDeep))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Core.HasAny() || result.Enhanced != nil {
		t.Errorf("expected empty analysis, got %+v", result)
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(f.deps()).Run(ctx, housingRequest(model.LevelDeep))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Core.HasAny() || result.Enhanced != nil {
		t.Error("cancelled adapters should leave every field absent")
	}
}

func TestRun_Timing(t *testing.T) {
	f := newFixture()
	result, err := New(f.deps(), WithClock(steppingClock(5*time.Millisecond))).Run(context.Background(), housingRequest(model.LevelDeep))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	pt := result.ProcessingTime
	if pt.OnDevice <= 0 || pt.Cloud <= 0 {
		t.Errorf("processing time = %+v, want positive phases", pt)
	}
	if pt.Total < pt.OnDevice+pt.Cloud {
		t.Errorf("total %v < on-device %v + cloud %v", pt.Total, pt.OnDevice, pt.Cloud)
	}
	if result.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestRun_LogsFailureKind(t *testing.T) {
	f := newFixture()
	f.impact.err = llm.ErrNetworkOrQuota
	var buf bytes.Buffer

	if _, err := New(f.deps(), WithLogger(telemetry.New(&buf))).Run(context.Background(), housingRequest(model.LevelDeep)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"adapter":"impact"`) || !strings.Contains(out, `"kind":"network_or_quota"`) {
		t.Errorf("log output missing impact failure: %s", out)
	}
}

func TestCheckAvailability(t *testing.T) {
	rt := &textRuntime{states: map[ondevice.Capability]ondevice.State{
		ondevice.CapabilitySummarizer: ondevice.StateReady,
		ondevice.CapabilityPrompt:     ondevice.StateDownloading,
	}}

	tests := []struct {
		name  string
		deps  Deps
		want  Availability
		level model.Level
	}{
		{
			name:  "nothing",
			deps:  Deps{},
			level: model.LevelQuick,
		},
		{
			name:  "summarizer only",
			deps:  Deps{Runtime: rt},
			want:  Availability{OnDevice: OnDeviceAvailability{Summarizer: true}},
			level: model.LevelQuick,
		},
		{
			name: "cloud and news",
			deps: Deps{Runtime: rt, Cloud: &fakeProvider{available: true}, News: &fakeNews{state: ondevice.StateReady}},
			want: Availability{
				OnDevice: OnDeviceAvailability{Summarizer: true},
				Cloud:    CloudAvailability{Gemini: true, NewsSources: true},
			},
			level: model.LevelDeep,
		},
		{
			name:  "prompt ready",
			deps:  Deps{Runtime: &textRuntime{}},
			want:  Availability{OnDevice: OnDeviceAvailability{Summarizer: true, Prompt: true, Writer: true, Rewriter: true, Proofreader: true}},
			level: model.LevelStandard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.deps).CheckAvailability(context.Background())
			if got != tt.want {
				t.Errorf("CheckAvailability() = %+v, want %+v", got, tt.want)
			}
			if level := got.RecommendedLevel(); level != tt.level {
				t.Errorf("RecommendedLevel() = %s, want %s", level, tt.level)
			}
		})
	}
}

// textRuntime answers every prompt with the same reply. Capabilities missing
// from states are ready.
type textRuntime struct {
	mu        sync.Mutex
	reply     string
	states    map[ondevice.Capability]ondevice.State
	created   int
	destroyed int
}

func (r *textRuntime) Availability(ctx context.Context, c ondevice.Capability) ondevice.State {
	if s, ok := r.states[c]; ok {
		return s
	}
	if r.states != nil {
		return ondevice.StateUnavailable
	}
	return ondevice.StateReady
}

func (r *textRuntime) NewSession(ctx context.Context, opts ondevice.SessionOptions) (ondevice.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	return &textSession{runtime: r}, nil
}

type textSession struct {
	runtime *textRuntime
	once    sync.Once
}

func (s *textSession) Prompt(ctx context.Context, input string) (string, error) {
	return s.runtime.reply, nil
}

func (s *textSession) Destroy() {
	s.once.Do(func() {
		s.runtime.mu.Lock()
		s.runtime.destroyed++
		s.runtime.mu.Unlock()
	})
}

type fakeProvider struct{ available bool }

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return nil, llm.ErrUnavailable
}

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return p.available }
