package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/legislens/internal/congress"
	"github.com/ppiankov/legislens/internal/model"
)

var (
	billRef        string
	billID         string
	billTitle      string
	billSummary    string
	billText       string
	textFile       string
	introducedDate string
	levelName      string
	outJSON        string
	refresh        bool
	noCache        bool
	analyzeTimeout time.Duration
)

// optionFlags maps each per-adapter flag to its override field
var optionFlags = []struct {
	name  string
	usage string
	field func(*model.OptionOverrides) **bool
}{
	{"include-summary", "run the summarizer", func(o *model.OptionOverrides) **bool { return &o.IncludeSummary }},
	{"include-categories", "run the categorizer and urgency classifier", func(o *model.OptionOverrides) **bool { return &o.IncludeCategories }},
	{"include-provisions", "extract key provisions", func(o *model.OptionOverrides) **bool { return &o.IncludeProvisions }},
	{"include-stakeholders", "analyze stakeholder perspectives (needs provisions)", func(o *model.OptionOverrides) **bool { return &o.IncludeStakeholders }},
	{"include-history", "run the cloud historical analysis", func(o *model.OptionOverrides) **bool { return &o.IncludeHistoricalAnalysis }},
	{"include-impact", "run the cloud impact analysis", func(o *model.OptionOverrides) **bool { return &o.IncludeImpactAnalysis }},
	{"include-news", "correlate news coverage (needs categories)", func(o *model.OptionOverrides) **bool { return &o.IncludeNews }},
	{"offline", "skip every cloud adapter", func(o *model.OptionOverrides) **bool { return &o.OfflineMode }},
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one bill",
	Long: `Analyze runs the on-device and cloud adapters over a single bill.

The bill comes either from Congress.gov (--bill, needs CONGRESS_API_KEY) or
from flags and files (--title plus --summary, --text or --text-file). Text
files may be plain text, HTML or PDF.

Levels bundle adapter flags: quick stays on-device, standard runs every
on-device adapter, deep adds historical, impact and news analysis. The
--include-* flags override individual adapters on top of the level.

Example:
  legislens analyze --bill 118/hr/1234 --level deep
  legislens analyze --title "Clean Water Act Amendments" --text-file bill.pdf
  legislens analyze --bill 118/s/42 --json analysis.json --include-news=false`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.StringVar(&billRef, "bill", "", "Congress.gov bill reference, e.g. 118/hr/1234")
	f.StringVar(&billID, "bill-id", "", "identifier used as the cache key for flag input")
	f.StringVar(&billTitle, "title", "", "bill title")
	f.StringVar(&billSummary, "summary", "", "bill summary")
	f.StringVar(&billText, "text", "", "full bill text")
	f.StringVar(&textFile, "text-file", "", "read the bill text from a .txt, .html or .pdf file")
	f.StringVar(&introducedDate, "introduced", "", "introduction date (YYYY-MM-DD), anchors the news window")
	f.StringVar(&levelName, "level", "", "analysis level: quick, standard, deep (default from config)")
	f.StringVar(&outJSON, "json", "", "write the analysis as JSON to this path (\"-\" for stdout)")
	f.BoolVar(&refresh, "refresh", false, "ignore cached analyses and store a fresh one")
	f.BoolVar(&noCache, "no-cache", false, "disable the analysis cache entirely")
	f.DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall analysis timeout")

	for _, of := range optionFlags {
		f.Bool(of.name, false, of.usage)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := resolveLevel(levelName, cfg)
	if err != nil {
		return err
	}
	opts, err := overridesFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	analysisOpts := opts.Apply(level.Options())

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg, !noCache)
	if err != nil {
		return err
	}
	defer rt.Close()

	status := os.Stderr
	var req model.AnalysisRequest
	if billRef != "" {
		ref, err := congress.ParseBillRef(billRef)
		if err != nil {
			return err
		}
		if !refresh && level.IsPreset(analysisOpts) {
			if found, ok := lookupCached(ctx, rt, ref.ID(), level); ok {
				return emitAnalysis(ref.String(), level, true, found)
			}
		}
		if !rt.congress.Configured() {
			return fmt.Errorf("--bill needs a Congress.gov API key (set CONGRESS_API_KEY)")
		}
		printInfo(status, "Fetching %s from Congress.gov...", ref)
		bill, err := rt.congress.Fetch(ctx, ref)
		if err != nil {
			return fmt.Errorf("fetch bill: %w", err)
		}
		printSuccess(status, "Loaded %q (%d characters of text)", bill.Title, len(bill.Text))
		req = bill.AnalysisRequest(analysisOpts)
	} else {
		req, err = requestFromFlags(analysisOpts)
		if err != nil {
			return err
		}
	}

	analysis, cached, err := analyzeCached(ctx, rt, req, level, refresh)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return emitAnalysis(req.Title, level, cached, analysis)
}

// emitAnalysis prints the analysis or writes it as JSON per --json
func emitAnalysis(title string, level model.Level, cached bool, analysis *model.CompositeAnalysis) error {
	switch outJSON {
	case "":
		printAnalysis(os.Stdout, title, level, cached, analysis)
	case "-":
		return newJSONEncoder(os.Stdout).Encode(analysis)
	default:
		if err := writeJSONFile(outJSON, analysis); err != nil {
			return err
		}
		printAnalysis(os.Stdout, title, level, cached, analysis)
		printSuccess(os.Stderr, "JSON written to %s", outJSON)
	}
	return nil
}

func lookupCached(ctx context.Context, rt *runtimeDeps, billID string, level model.Level) (*model.CompositeAnalysis, bool) {
	found, ok, err := rt.store.Lookup(ctx, billID, level)
	if err != nil {
		rt.logger.Warn("cache lookup failed", map[string]any{"bill": billID, "error": err})
		return nil, false
	}
	return found, ok
}

// analyzeCached serves from the store when the request has a bill ID and
// runs with the level's own flags
func analyzeCached(ctx context.Context, rt *runtimeDeps, req model.AnalysisRequest, level model.Level, refresh bool) (*model.CompositeAnalysis, bool, error) {
	cacheable := req.BillID != "" && level.IsPreset(req.Options)
	if cacheable && !refresh {
		if found, ok := lookupCached(ctx, rt, req.BillID, level); ok {
			return found, true, nil
		}
	}

	printInfo(os.Stderr, "Running %s analysis...", level)
	analysis, err := rt.agg.Run(ctx, req)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		if err := rt.store.Store(ctx, req.BillID, level, analysis); err != nil {
			rt.logger.Warn("cache store failed", map[string]any{"bill": req.BillID, "error": err})
		}
	}
	return analysis, false, nil
}

func requestFromFlags(opts model.AnalysisOptions) (model.AnalysisRequest, error) {
	req := model.AnalysisRequest{
		BillID:  strings.TrimSpace(billID),
		Title:   strings.TrimSpace(billTitle),
		Summary: strings.TrimSpace(billSummary),
		Text:    billText,
		Options: opts,
	}
	if textFile != "" {
		if req.Text != "" {
			return req, fmt.Errorf("--text and --text-file are mutually exclusive")
		}
		text, err := readInputFile(textFile)
		if err != nil {
			return req, err
		}
		req.Text = text
	}
	if introducedDate != "" {
		t, err := time.Parse("2006-01-02", introducedDate)
		if err != nil {
			return req, fmt.Errorf("invalid --introduced %q (want YYYY-MM-DD)", introducedDate)
		}
		req.IntroducedDate = &t
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w (use --bill, or --title with --summary/--text/--text-file)", err)
	}
	return req, nil
}

// readInputFile extracts text from a local bill file by extension
func readInputFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := congress.PDFText(data)
		if err != nil {
			return "", fmt.Errorf("extract PDF text from %s: %w", path, err)
		}
		return text, nil
	case ".html", ".htm", ".xhtml":
		return congress.HTMLText(string(data)), nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

func resolveLevel(name string, cfg *model.Config) (model.Level, error) {
	if strings.TrimSpace(name) == "" {
		name = cfg.Analysis.DefaultLevel
	}
	return model.ParseLevel(name)
}

// overridesFromFlags collects only the --include-* flags the user set
func overridesFromFlags(flags *pflag.FlagSet) (model.OptionOverrides, error) {
	var o model.OptionOverrides
	for _, of := range optionFlags {
		if !flags.Changed(of.name) {
			continue
		}
		v, err := flags.GetBool(of.name)
		if err != nil {
			return o, err
		}
		*of.field(&o) = &v
	}
	return o, nil
}
