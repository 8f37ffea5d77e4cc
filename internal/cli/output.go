package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ppiankov/legislens/internal/aggregator"
	"github.com/ppiankov/legislens/internal/model"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	titleColor   = color.New(color.FgMagenta, color.Bold)
	dimColor     = color.New(color.Faint)
)

const banner = "═══════════════════════════════════════════════════════════"

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func printFailure(w io.Writer, format string, args ...any) {
	_, _ = errorColor.Fprintf(w, "✗ "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	_, _ = warningColor.Fprintf(w, "! "+format+"\n", args...)
}

func printInfo(w io.Writer, format string, args ...any) {
	_, _ = infoColor.Fprintf(w, "⚙ "+format+"\n", args...)
}

func printBanner(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, banner)
	_, _ = titleColor.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w)
}

func printHeading(w io.Writer, title string) {
	fmt.Fprintln(w)
	_, _ = titleColor.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("─", len([]rune(title))))
}

// yesNo renders a capability flag
func yesNo(ok bool) string {
	if ok {
		return successColor.Sprint("available")
	}
	return errorColor.Sprint("unavailable")
}

func printAvailability(w io.Writer, av aggregator.Availability) {
	printBanner(w, "Provider Availability")
	rows := []struct {
		name string
		ok   bool
	}{
		{"On-device summarizer", av.OnDevice.Summarizer},
		{"On-device prompt", av.OnDevice.Prompt},
		{"On-device writer", av.OnDevice.Writer},
		{"On-device rewriter", av.OnDevice.Rewriter},
		{"On-device proofreader", av.OnDevice.Proofreader},
		{"Cloud model", av.Cloud.Gemini},
		{"News sources", av.Cloud.NewsSources},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-24s %s\n", row.name, yesNo(row.ok))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Recommended level: %s\n", infoColor.Sprint(av.RecommendedLevel()))
	fmt.Fprintln(w)
}

// printAnalysis renders a composite analysis for a terminal
func printAnalysis(w io.Writer, title string, level model.Level, cached bool, a *model.CompositeAnalysis) {
	printBanner(w, title)

	source := "fresh"
	if cached {
		source = "cached"
	}
	fmt.Fprintf(w, "  Level:      %s (%s)\n", level, source)
	fmt.Fprintf(w, "  Providers:  on-device=%v cloud=%v news=%v\n",
		a.Providers.OnDevice, a.Providers.Gemini, a.Providers.News)
	fmt.Fprintf(w, "  Time:       %s total (on-device %s, cloud %s)\n",
		a.ProcessingTime.Total.Round(time.Millisecond),
		a.ProcessingTime.OnDevice.Round(time.Millisecond),
		a.ProcessingTime.Cloud.Round(time.Millisecond))

	core := a.Core
	if s := core.Summary; s != nil {
		printHeading(w, "Summary")
		if s.Headline != "" {
			_, _ = infoColor.Fprintln(w, s.Headline)
		}
		for _, text := range []string{s.Short, s.Teaser, s.KeyPoints} {
			if text != "" {
				fmt.Fprintln(w, text)
			}
		}
	}

	if len(core.Categories) > 0 {
		printHeading(w, "Categories")
		for _, c := range core.Categories {
			fmt.Fprintf(w, "  • %s %s\n", c.Name, dimColor.Sprintf("(%.0f%%)", c.Confidence*100))
		}
	}

	if u := core.Urgency; u != nil {
		printHeading(w, "Urgency")
		fmt.Fprintf(w, "  %s urgency, %s impact\n", urgencyColor(u.Urgency).Sprint(u.Urgency), u.ImpactLevel)
		if u.Reasoning != "" {
			fmt.Fprintf(w, "  %s\n", u.Reasoning)
		}
		if u.AffectedPopulation != "" {
			fmt.Fprintf(w, "  Affected: %s\n", u.AffectedPopulation)
		}
	}

	if p := core.Provisions; p != nil && len(p.Provisions) > 0 {
		printHeading(w, "Key Provisions")
		for i, prov := range p.Provisions {
			fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, prov.Title, prov.Importance)
			if prov.Description != "" {
				fmt.Fprintf(w, "     %s\n", prov.Description)
			}
		}
	}

	if sa := core.StakeholderPerspectives; sa != nil && len(sa.Perspectives) > 0 {
		printHeading(w, "Stakeholders")
		for _, p := range sa.Perspectives {
			fmt.Fprintf(w, "  • %s: %s\n", p.Group, positionColor(p.Position).Sprint(p.Position))
		}
	}

	if e := a.Enhanced; !e.IsEmpty() {
		if h := e.HistoricalAnalysis; h != nil {
			printHeading(w, "Historical Context")
			if h.HistoricalContext != "" {
				fmt.Fprintln(w, h.HistoricalContext)
			}
			for _, b := range h.SimilarBills {
				fmt.Fprintf(w, "  • %s (%s) %s\n", b.Title, b.Outcome, dimColor.Sprintf("%.0f%% similar", b.Similarity*100))
			}
		}
		if im := e.ImpactAnalysis; im != nil {
			printHeading(w, "Impact")
			fmt.Fprintf(w, "  Economic:  %s\n", im.Economic)
			fmt.Fprintf(w, "  Social:    %s\n", im.Social)
			fmt.Fprintf(w, "  Political: %s\n", im.Political)
		}
		if n := e.NewsCorrelation; n != nil {
			printHeading(w, "News Coverage")
			fmt.Fprintf(w, "  %d articles, sentiment %s\n", len(n.Articles), n.Sentiment)
			for i, art := range n.Articles {
				if i == 5 {
					fmt.Fprintf(w, "  %s\n", dimColor.Sprintf("... %d more", len(n.Articles)-5))
					break
				}
				fmt.Fprintf(w, "  • %s %s\n", art.Title, dimColor.Sprintf("(%s, %s)", art.Publisher, art.PublishedAt.Format("2006-01-02")))
			}
		}
	}

	if !core.HasAny() && a.Enhanced.IsEmpty() {
		fmt.Fprintln(w)
		printWarning(w, "no adapter produced a result; run 'legislens check' to see what is available")
	}
	fmt.Fprintln(w)
}

func urgencyColor(u model.UrgencyLevel) *color.Color {
	switch u {
	case model.UrgencyCritical, model.UrgencyHigh:
		return errorColor
	case model.UrgencyMedium:
		return warningColor
	default:
		return successColor
	}
}

func positionColor(p model.Position) *color.Color {
	switch p {
	case model.PositionStronglySupport, model.PositionSupport:
		return successColor
	case model.PositionStronglyOppose, model.PositionOppose:
		return errorColor
	default:
		return dimColor
	}
}

func newJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

// writeJSONFile writes v as indented JSON, creating parent directories
func writeJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" || s == "." || s == ".." {
		s = "bill"
	}
	return s
}
