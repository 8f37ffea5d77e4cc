package model

import (
	"encoding/json"
	"time"
)

// CompositeAnalysis is the merged result of one aggregator run.
// Presence of a sub-record is its success signal; failed adapters leave it nil.
type CompositeAnalysis struct {
	Core           CoreAnalysis        `json:"core"`
	Enhanced       *EnhancedAnalysis   `json:"enhanced,omitempty"`
	Providers      ProviderAttribution `json:"providers"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	ProcessingTime ProcessingTime      `json:"processingTime"`
}

// CoreAnalysis holds the on-device results
type CoreAnalysis struct {
	Summary                 *Summary             `json:"summary,omitempty"`
	Categories              []Category           `json:"categories,omitempty"`
	Urgency                 *Urgency             `json:"urgency,omitempty"`
	Provisions              *ProvisionSet        `json:"provisions,omitempty"`
	StakeholderPerspectives *StakeholderAnalysis `json:"stakeholderPerspectives,omitempty"`
}

// HasAny reports whether at least one on-device field is present
func (c CoreAnalysis) HasAny() bool {
	return c.Summary != nil || len(c.Categories) > 0 || c.Urgency != nil ||
		c.Provisions != nil || c.StakeholderPerspectives != nil
}

// EnhancedAnalysis holds the cloud results
type EnhancedAnalysis struct {
	HistoricalAnalysis *HistoricalAnalysis `json:"historicalAnalysis,omitempty"`
	ImpactAnalysis     *ImpactAnalysis     `json:"impactAnalysis,omitempty"`
	NewsCorrelation    *NewsCorrelation    `json:"newsCorrelation,omitempty"`
}

// IsEmpty reports whether no cloud field is present
func (e *EnhancedAnalysis) IsEmpty() bool {
	return e == nil || (e.HistoricalAnalysis == nil && e.ImpactAnalysis == nil && e.NewsCorrelation == nil)
}

// ProviderAttribution records which class of provider contributed a field
type ProviderAttribution struct {
	OnDevice bool `json:"chrome"` // On-device runtime
	Gemini   bool `json:"gemini"` // Cloud model (historical, impact)
	News     bool `json:"news"`   // News sources
}

// AttributionFor derives provider flags from field presence
func AttributionFor(core CoreAnalysis, enhanced *EnhancedAnalysis) ProviderAttribution {
	attr := ProviderAttribution{OnDevice: core.HasAny()}
	if enhanced != nil {
		attr.Gemini = enhanced.HistoricalAnalysis != nil || enhanced.ImpactAnalysis != nil
		attr.News = enhanced.NewsCorrelation != nil
	}
	return attr
}

// ProcessingTime holds phase durations; JSON encodes milliseconds
type ProcessingTime struct {
	OnDevice time.Duration `json:"-"`
	Cloud    time.Duration `json:"-"`
	Total    time.Duration `json:"-"`
}

type processingTimeJSON struct {
	Chrome int64 `json:"chrome"`
	Cloud  int64 `json:"cloud"`
	Total  int64 `json:"total"`
}

// MarshalJSON encodes the durations as integer milliseconds
func (p ProcessingTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(processingTimeJSON{
		Chrome: p.OnDevice.Milliseconds(),
		Cloud:  p.Cloud.Milliseconds(),
		Total:  p.Total.Milliseconds(),
	})
}

// UnmarshalJSON decodes integer milliseconds (used when reading cached analyses)
func (p *ProcessingTime) UnmarshalJSON(data []byte) error {
	var raw processingTimeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.OnDevice = time.Duration(raw.Chrome) * time.Millisecond
	p.Cloud = time.Duration(raw.Cloud) * time.Millisecond
	p.Total = time.Duration(raw.Total) * time.Millisecond
	return nil
}

// Summary holds the summarizer variants (at least two are populated)
type Summary struct {
	KeyPoints string `json:"keyPoints,omitempty"`
	Short     string `json:"short,omitempty"` // tl;dr
	Teaser    string `json:"teaser,omitempty"`
	Headline  string `json:"headline,omitempty"`
}

// Variants counts the non-empty variants
func (s *Summary) Variants() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, v := range []string{s.KeyPoints, s.Short, s.Teaser, s.Headline} {
		if v != "" {
			n++
		}
	}
	return n
}

// Category is one policy area the bill touches
type Category struct {
	Name        string   `json:"name"`
	Confidence  float64  `json:"confidence"` // 0-1
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UrgencyLevel is how time-sensitive a bill is
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// ImpactLevel is how far-reaching a bill is
type ImpactLevel string

const (
	ImpactMinimal        ImpactLevel = "minimal"
	ImpactModerate       ImpactLevel = "moderate"
	ImpactSignificant    ImpactLevel = "significant"
	ImpactTransformative ImpactLevel = "transformative"
)

// Urgency is the urgency classifier output
type Urgency struct {
	Urgency            UrgencyLevel `json:"urgency"`
	ImpactLevel        ImpactLevel  `json:"impactLevel"`
	Reasoning          string       `json:"reasoning,omitempty"`
	AffectedPopulation string       `json:"affectedPopulation,omitempty"`
	TimelineConcerns   []string     `json:"timelineConcerns,omitempty"`
}

// Importance ranks a provision
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Provision is one key provision of the bill
type Provision struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Impact       string     `json:"impact,omitempty"`
	Stakeholders []string   `json:"stakeholders,omitempty"`
	Section      string     `json:"section,omitempty"`
	Importance   Importance `json:"importance"`
}

// ProvisionSet is the provisions extractor output
type ProvisionSet struct {
	Provisions []Provision `json:"provisions"`
	Themes     []string    `json:"themes,omitempty"`
}

// Descriptions returns the provision descriptions in order
func (p *ProvisionSet) Descriptions() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Provisions))
	for _, prov := range p.Provisions {
		desc := prov.Description
		if desc == "" {
			desc = prov.Title
		}
		out = append(out, desc)
	}
	return out
}

// Position is a stakeholder's stance on a five-point scale
type Position string

const (
	PositionStronglySupport Position = "strongly_support"
	PositionSupport         Position = "support"
	PositionNeutral         Position = "neutral"
	PositionOppose          Position = "oppose"
	PositionStronglyOppose  Position = "strongly_oppose"
)

// StakeholderPerspective is one group's view of the bill
type StakeholderPerspective struct {
	Group     string   `json:"group"`
	Position  Position `json:"position"`
	Reasoning string   `json:"reasoning,omitempty"`
	Benefits  []string `json:"benefits,omitempty"`
	Concerns  []string `json:"concerns,omitempty"`
	Actions   []string `json:"actions,omitempty"`
}

// StakeholderAnalysis is the stakeholder analyzer output
type StakeholderAnalysis struct {
	Perspectives       []StakeholderPerspective `json:"perspectives"`
	ConsensusAreas     []string                 `json:"consensusAreas,omitempty"`
	ControversialAreas []string                 `json:"controversialAreas,omitempty"`
}

// SimilarBill is a prior bill the historical analyzer matched
type SimilarBill struct {
	Title       string   `json:"title"`
	Congress    string   `json:"congress,omitempty"`
	Outcome     string   `json:"outcome"`
	Similarity  float64  `json:"similarity"` // 0-1
	Differences []string `json:"differences,omitempty"`
}

// HistoricalAnalysis is the cloud historical analyzer output
type HistoricalAnalysis struct {
	SimilarBills      []SimilarBill `json:"similarBills"`
	Trends            []string      `json:"trends,omitempty"`
	Recommendations   []string      `json:"recommendations,omitempty"`
	HistoricalContext string        `json:"historicalContext,omitempty"`
}

// ImpactAnalysis is the cloud impact analyzer output
type ImpactAnalysis struct {
	Economic  string `json:"economic"`
	Social    string `json:"social"`
	Political string `json:"political"`
}
