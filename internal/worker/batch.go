package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/cache"
	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
)

// Loader turns a bill reference ("118/hr/1234") into an analysis request
type Loader interface {
	Load(ctx context.Context, ref string, opts model.AnalysisOptions) (model.AnalysisRequest, error)
}

// BillIDer is a Loader that can derive the cache key without fetching
type BillIDer interface {
	BillID(ref string) (string, error)
}

// Analyzer runs one analysis
type Analyzer interface {
	Run(ctx context.Context, req model.AnalysisRequest) (*model.CompositeAnalysis, error)
}

// AnalyzeJob loads and analyzes one bill
type AnalyzeJob struct {
	Index int
	Ref   string
	batch *BatchProcessor
}

// Execute checks the cache, then loads, analyzes and stores the bill
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	b := j.batch
	start := time.Now()
	result := &BillResult{Index: j.Index, Ref: j.Ref}
	defer func() { result.Duration = time.Since(start) }()

	var checkedID string
	if ider, ok := b.loader.(BillIDer); ok && !b.refresh {
		if id, err := ider.BillID(j.Ref); err == nil {
			checkedID = id
			result.BillID = id
			if cached, found := b.lookup(ctx, id); found {
				result.Analysis = cached
				result.Cached = true
				return result
			}
		}
	}

	req, err := b.loader.Load(ctx, j.Ref, b.level.Options())
	if err != nil {
		result.Error = fmt.Errorf("load %s: %w", j.Ref, err)
		return result
	}
	result.BillID = req.BillID

	if !b.refresh && req.BillID != checkedID {
		if cached, found := b.lookup(ctx, req.BillID); found {
			result.Analysis = cached
			result.Cached = true
			return result
		}
	}

	analysis, err := b.analyzer.Run(ctx, req)
	if err != nil {
		result.Error = fmt.Errorf("analyze %s: %w", j.Ref, err)
		return result
	}
	result.Analysis = analysis

	if err := b.store.Store(ctx, req.BillID, b.level, analysis); err != nil && !errors.Is(err, cache.ErrNoBillID) {
		b.logger.Warn("cache store failed", map[string]any{"bill": req.BillID, "error": err})
	}
	return result
}

func (b *BatchProcessor) lookup(ctx context.Context, billID string) (*model.CompositeAnalysis, bool) {
	cached, found, err := b.store.Lookup(ctx, billID, b.level)
	if err != nil {
		b.logger.Warn("cache lookup failed", map[string]any{"bill": billID, "error": err})
		return nil, false
	}
	return cached, found
}

// BillResult is the outcome for one bill reference
type BillResult struct {
	Index    int
	Ref      string
	BillID   string
	Analysis *model.CompositeAnalysis
	Cached   bool
	Duration time.Duration
	Error    error
}

// GetError returns the error from the analysis
func (r *BillResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many bills concurrently
type BatchProcessor struct {
	loader      Loader
	analyzer    Analyzer
	store       cache.AnalysisStore
	level       model.Level
	refresh     bool
	concurrency int
	logger      *telemetry.Logger
	onResult    func(*BillResult)
}

// BatchOption configures a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithStore reuses and records analyses in store
func WithStore(store cache.AnalysisStore) BatchOption {
	return func(b *BatchProcessor) {
		if store != nil {
			b.store = store
		}
	}
}

// WithRefresh skips cache lookups
func WithRefresh(refresh bool) BatchOption {
	return func(b *BatchProcessor) { b.refresh = refresh }
}

func WithBatchLogger(l *telemetry.Logger) BatchOption {
	return func(b *BatchProcessor) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithProgress is called for every finished bill, in completion order
func WithProgress(fn func(*BillResult)) BatchOption {
	return func(b *BatchProcessor) { b.onResult = fn }
}

// NewBatchProcessor creates a batch processor for one analysis level
func NewBatchProcessor(loader Loader, analyzer Analyzer, level model.Level, concurrency int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		loader:      loader,
		analyzer:    analyzer,
		store:       cache.Nop{},
		level:       level,
		concurrency: concurrency,
		logger:      telemetry.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessRefs analyzes refs concurrently. Results keep the input order; refs
// never reached because ctx ended carry a cancellation error.
func (b *BatchProcessor) ProcessRefs(ctx context.Context, refs []string) []*BillResult {
	results := make([]*BillResult, len(refs))
	if len(refs) == 0 {
		return results
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, ref := range refs {
			if !pool.Submit(&AnalyzeJob{Index: i, Ref: ref, batch: b}) {
				break
			}
		}
		pool.Close()
	}()

	for r := range pool.Results() {
		res := r.(*BillResult)
		results[res.Index] = res
		b.logger.Info("bill processed", map[string]any{
			"ref":         res.Ref,
			"cached":      res.Cached,
			"duration_ms": res.Duration.Milliseconds(),
			"kind":        llm.Kind(res.Error),
		})
		if b.onResult != nil {
			b.onResult(res)
		}
	}

	for i, res := range results {
		if res == nil {
			results[i] = &BillResult{
				Index: i,
				Ref:   refs[i],
				Error: llm.Classify(ctx, fmt.Errorf("not processed: %w", context.Cause(ctx))),
			}
		}
	}
	return results
}

// ProcessFile reads refs from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BillResult, error) {
	refs, err := ReadRefsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read bill refs: %w", err)
	}
	return b.ProcessRefs(ctx, refs), nil
}

// ReadRefsFromFile reads bill references, one per line. Blank lines and
// # comments are skipped; duplicates (ignoring case) are dropped.
func ReadRefsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var refs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := strings.ToLower(line)
		if !seen[key] {
			seen[key] = true
			refs = append(refs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return refs, nil
}

// Summarize counts successes, cache hits and failures
func Summarize(results []*BillResult) (ok, cached, failed int) {
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
		case r.Cached:
			cached++
			ok++
		default:
			ok++
		}
	}
	return ok, cached, failed
}
