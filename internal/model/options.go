package model

import (
	"fmt"
	"strings"
)

// AnalysisOptions gates each adapter call independently
type AnalysisOptions struct {
	IncludeSummary            bool `json:"includeSummary"`
	IncludeCategories         bool `json:"includeCategories"` // Also gates the urgency classifier
	IncludeProvisions         bool `json:"includeProvisions"`
	IncludeStakeholders       bool `json:"includeStakeholders"` // Requires provisions
	IncludeHistoricalAnalysis bool `json:"includeHistoricalAnalysis"`
	IncludeImpactAnalysis     bool `json:"includeImpactAnalysis"`
	IncludeNews               bool `json:"includeNews"` // Requires categories
	OfflineMode               bool `json:"offlineMode"` // Skips the whole cloud phase
}

// DefaultOptions returns the defaults for omitted flags: core on, enhanced off
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		IncludeSummary:      true,
		IncludeCategories:   true,
		IncludeProvisions:   true,
		IncludeStakeholders: true,
	}
}

// WantsCloud reports whether any cloud adapter can run under these options
func (o AnalysisOptions) WantsCloud() bool {
	if o.OfflineMode {
		return false
	}
	return o.IncludeHistoricalAnalysis || o.IncludeImpactAnalysis || o.IncludeNews
}

// OptionOverrides is the wire form of AnalysisOptions where every flag may be omitted
type OptionOverrides struct {
	IncludeSummary            *bool `json:"includeSummary,omitempty"`
	IncludeCategories         *bool `json:"includeCategories,omitempty"`
	IncludeProvisions         *bool `json:"includeProvisions,omitempty"`
	IncludeStakeholders       *bool `json:"includeStakeholders,omitempty"`
	IncludeHistoricalAnalysis *bool `json:"includeHistoricalAnalysis,omitempty"`
	IncludeImpactAnalysis     *bool `json:"includeImpactAnalysis,omitempty"`
	IncludeNews               *bool `json:"includeNews,omitempty"`
	OfflineMode               *bool `json:"offlineMode,omitempty"`
}

// Apply fills base with every flag that was explicitly set
func (o OptionOverrides) Apply(base AnalysisOptions) AnalysisOptions {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.IncludeSummary, o.IncludeSummary)
	set(&base.IncludeCategories, o.IncludeCategories)
	set(&base.IncludeProvisions, o.IncludeProvisions)
	set(&base.IncludeStakeholders, o.IncludeStakeholders)
	set(&base.IncludeHistoricalAnalysis, o.IncludeHistoricalAnalysis)
	set(&base.IncludeImpactAnalysis, o.IncludeImpactAnalysis)
	set(&base.IncludeNews, o.IncludeNews)
	set(&base.OfflineMode, o.OfflineMode)
	return base
}

// Level is a named analysis preset
type Level string

const (
	LevelQuick    Level = "quick"    // On-device only, cloud phase forced off
	LevelStandard Level = "standard" // All on-device adapters, no cloud adapters
	LevelDeep     Level = "deep"     // Everything
)

// Levels lists the presets from cheapest to richest
var Levels = []Level{LevelQuick, LevelStandard, LevelDeep}

// ParseLevel parses a level name (case-insensitive). Empty means standard.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelQuick:
		return LevelQuick, nil
	case LevelStandard, "":
		return LevelStandard, nil
	case LevelDeep:
		return LevelDeep, nil
	default:
		return "", fmt.Errorf("unknown analysis level: %q (supported: quick, standard, deep)", s)
	}
}

// Options returns the flag set bundled by the preset
func (l Level) Options() AnalysisOptions {
	opts := DefaultOptions()
	switch l {
	case LevelQuick:
		opts.OfflineMode = true
	case LevelDeep:
		opts.IncludeHistoricalAnalysis = true
		opts.IncludeImpactAnalysis = true
		opts.IncludeNews = true
	}
	return opts
}

// IsPreset reports whether opts is exactly the level's flag set. Analyses run
// with anything else are not cached under the level.
func (l Level) IsPreset(opts AnalysisOptions) bool {
	return opts == l.Options()
}

func (l Level) String() string {
	return string(l)
}
