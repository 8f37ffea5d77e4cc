package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legislens/internal/cache"
	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
	"github.com/ppiankov/legislens/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchLevel   string
	batchRefresh bool
	batchNoCache bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many Congress.gov bills from a file in parallel",
	Long: `Batch analyzes a list of bills concurrently:
- Read bill references from the input file (one per line, # comments allowed)
- Fetch each bill and its text from Congress.gov
- Reuse cached analyses unless --refresh is set
- Write one JSON file per bill to the output directory

Example:
  legislens batch bills.txt
  legislens batch bills.txt --concurrency 8 --level deep --output-dir ./reports
  legislens batch bills.txt --timeout 30m --refresh`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for per-bill JSON (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchLevel, "level", "", "analysis level: quick, standard, deep (default from config)")
	batchCmd.Flags().BoolVar(&batchRefresh, "refresh", false, "ignore cached analyses")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "disable the analysis cache entirely")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	level, err := resolveLevel(batchLevel, cfg)
	if err != nil {
		return err
	}

	refs, err := worker.ReadRefsFromFile(file)
	if err != nil {
		return fmt.Errorf("read bill refs: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg, !batchNoCache)
	if err != nil {
		return err
	}
	defer rt.Close()
	if !rt.congress.Configured() {
		return fmt.Errorf("batch needs a Congress.gov API key (set CONGRESS_API_KEY)")
	}

	_, _, err = processBatch(ctx, os.Stderr, batchRun{
		file:     file,
		refs:     refs,
		level:    level,
		workers:  cfg.Concurrency.Workers,
		dir:      cfg.Output.Dir,
		timeout:  batchTimeout,
		refresh:  batchRefresh,
		loader:   rt.congress,
		analyzer: rt.agg,
		store:    rt.store,
		logger:   rt.logger,
	})
	return err
}

// batchRun is one batch invocation with its collaborators resolved
type batchRun struct {
	file     string
	refs     []string
	level    model.Level
	workers  int
	dir      string
	timeout  time.Duration
	refresh  bool
	loader   worker.Loader
	analyzer worker.Analyzer
	store    cache.AnalysisStore
	logger   *telemetry.Logger
}

// processBatch analyzes every ref, writes one JSON file per success into
// run.dir and reports progress to status. It fails only when every bill did.
func processBatch(ctx context.Context, status io.Writer, run batchRun) (ok, failed int, err error) {
	refs := run.refs
	printBanner(status, "Legislens Batch Analysis")
	fmt.Fprintf(status, "  Input file:   %s (%d bills)\n", run.file, len(refs))
	fmt.Fprintf(status, "  Level:        %s\n", run.level)
	fmt.Fprintf(status, "  Workers:      %d\n", run.workers)
	fmt.Fprintf(status, "  Output dir:   %s\n", run.dir)
	fmt.Fprintf(status, "  Timeout:      %v\n", run.timeout)
	fmt.Fprintln(status)

	if err := os.MkdirAll(run.dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("create output directory: %w", err)
	}

	var (
		mu       sync.Mutex
		done     int
		writeErr int
	)
	progress := func(res *worker.BillResult) {
		mu.Lock()
		defer mu.Unlock()
		done++

		if res.Error != nil {
			printFailure(status, "[%d/%d] %s: %s: %v", done, len(refs), res.Ref, llm.Kind(res.Error), res.Error)
			return
		}
		path := filepath.Join(run.dir, sanitizeFilename(res.BillID)+".json")
		if err := writeJSONFile(path, res.Analysis); err != nil {
			writeErr++
			printFailure(status, "[%d/%d] %s: %v", done, len(refs), res.Ref, err)
			return
		}
		note := ""
		if res.Cached {
			note = " (cached)"
		}
		printSuccess(status, "[%d/%d] %s%s in %s", done, len(refs), res.BillID, note, res.Duration.Round(time.Millisecond))
	}

	opts := []worker.BatchOption{
		worker.WithRefresh(run.refresh),
		worker.WithBatchLogger(run.logger),
		worker.WithProgress(progress),
	}
	if run.store != nil {
		opts = append(opts, worker.WithStore(run.store))
	}
	processor := worker.NewBatchProcessor(run.loader, run.analyzer, run.level, run.workers, opts...)
	results := processor.ProcessRefs(ctx, refs)
	ok, cached, failed := worker.Summarize(results)

	printBanner(status, "Batch Complete")
	fmt.Fprintf(status, "  Total:     %d bills\n", len(results))
	fmt.Fprintf(status, "  Success:   %d (%d from cache)\n", ok, cached)
	fmt.Fprintf(status, "  Failures:  %d\n", failed)
	if writeErr > 0 {
		fmt.Fprintf(status, "  Unwritten: %d\n", writeErr)
	}
	fmt.Fprintf(status, "  Output:    %s\n", run.dir)
	fmt.Fprintln(status)

	if failed > 0 && ok == 0 {
		return ok, failed, fmt.Errorf("all %d bills failed", failed)
	}
	return ok, failed, nil
}
