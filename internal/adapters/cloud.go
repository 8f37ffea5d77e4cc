package adapters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
)

// HistoricalAnalyzer compares a bill with prior legislation on the cloud provider
type HistoricalAnalyzer struct {
	cloud
}

// NewHistoricalAnalyzer creates a historical analyzer backed by provider
func NewHistoricalAnalyzer(provider llm.Provider, opts ...Option) *HistoricalAnalyzer {
	return &HistoricalAnalyzer{cloud{name: "historical", provider: provider, settings: newSettings(opts)}}
}

// AnalyzeHistory returns similar bills, trends and context
func (h *HistoricalAnalyzer) AnalyzeHistory(ctx context.Context, title, summary string, provisions []string) (*model.HistoricalAnalysis, error) {
	var raw model.HistoricalAnalysis
	prompt := historicalPrompt(title, truncate(summary, h.settings.maxChars), provisions)
	if err := h.generateJSON(ctx, historicalSystem, prompt, &raw); err != nil {
		return nil, err
	}

	bills := make([]model.SimilarBill, 0, len(raw.SimilarBills))
	for _, b := range raw.SimilarBills {
		b.Title = strings.TrimSpace(b.Title)
		if b.Title == "" {
			continue
		}
		b.Congress = strings.TrimSpace(b.Congress)
		b.Outcome = strings.ToLower(strings.TrimSpace(b.Outcome))
		b.Similarity = clamp01(b.Similarity)
		b.Differences = cleanList(b.Differences)
		bills = append(bills, b)
	}
	sort.SliceStable(bills, func(i, j int) bool { return bills[i].Similarity > bills[j].Similarity })

	out := &model.HistoricalAnalysis{
		SimilarBills:      bills,
		Trends:            cleanList(raw.Trends),
		Recommendations:   cleanList(raw.Recommendations),
		HistoricalContext: strings.TrimSpace(raw.HistoricalContext),
	}
	if len(out.SimilarBills) == 0 && len(out.Trends) == 0 && out.HistoricalContext == "" {
		return nil, fmt.Errorf("%w: empty historical analysis", llm.ErrMalformedResponse)
	}
	return out, nil
}

// ImpactAnalyzer assesses economic, social and political impact on the cloud provider
type ImpactAnalyzer struct {
	cloud
}

// NewImpactAnalyzer creates an impact analyzer backed by provider
func NewImpactAnalyzer(provider llm.Provider, opts ...Option) *ImpactAnalyzer {
	return &ImpactAnalyzer{cloud{name: "impact", provider: provider, settings: newSettings(opts)}}
}

// AnalyzeImpact returns the three impact summaries
func (i *ImpactAnalyzer) AnalyzeImpact(ctx context.Context, title, summary, text string) (*model.ImpactAnalysis, error) {
	var raw model.ImpactAnalysis
	// Summary and text share the budget
	budget := i.settings.maxChars
	prompt := impactPrompt(title, truncate(summary, budget/4), truncate(text, budget-budget/4))
	if err := i.generateJSON(ctx, impactSystem, prompt, &raw); err != nil {
		return nil, err
	}

	out := &model.ImpactAnalysis{
		Economic:  strings.TrimSpace(raw.Economic),
		Social:    strings.TrimSpace(raw.Social),
		Political: strings.TrimSpace(raw.Political),
	}
	if out.Economic == "" && out.Social == "" && out.Political == "" {
		return nil, fmt.Errorf("%w: empty impact analysis", llm.ErrMalformedResponse)
	}
	return out, nil
}
