package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// UrgencyClassifier rates urgency and impact on the on-device prompt model
type UrgencyClassifier struct {
	onDevice
}

// NewUrgencyClassifier creates an urgency classifier backed by rt
func NewUrgencyClassifier(rt ondevice.Runtime, opts ...Option) *UrgencyClassifier {
	return &UrgencyClassifier{onDevice{
		name:       "urgency",
		runtime:    rt,
		capability: ondevice.CapabilityPrompt,
		settings:   newSettings(opts),
	}}
}

var urgencyLevels = map[string]model.UrgencyLevel{
	"low":       model.UrgencyLow,
	"medium":    model.UrgencyMedium,
	"moderate":  model.UrgencyMedium,
	"high":      model.UrgencyHigh,
	"urgent":    model.UrgencyHigh,
	"critical":  model.UrgencyCritical,
	"immediate": model.UrgencyCritical,
}

var impactLevels = map[string]model.ImpactLevel{
	"minimal":        model.ImpactMinimal,
	"low":            model.ImpactMinimal,
	"moderate":       model.ImpactModerate,
	"medium":         model.ImpactModerate,
	"significant":    model.ImpactSignificant,
	"high":           model.ImpactSignificant,
	"transformative": model.ImpactTransformative,
}

// ClassifyUrgency returns the urgency assessment
func (u *UrgencyClassifier) ClassifyUrgency(ctx context.Context, title, summary string) (*model.Urgency, error) {
	var raw struct {
		Urgency            string   `json:"urgency"`
		ImpactLevel        string   `json:"impactLevel"`
		Reasoning          string   `json:"reasoning"`
		AffectedPopulation string   `json:"affectedPopulation"`
		TimelineConcerns   []string `json:"timelineConcerns"`
	}
	prompt := urgencyPrompt(title, truncate(summary, u.settings.maxChars))
	if err := u.promptJSON(ctx, urgencySystem, prompt, &raw); err != nil {
		return nil, err
	}

	urgency, ok := urgencyLevels[enumKey(raw.Urgency)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown urgency %q", llm.ErrMalformedResponse, raw.Urgency)
	}
	impact, ok := impactLevels[enumKey(raw.ImpactLevel)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown impact level %q", llm.ErrMalformedResponse, raw.ImpactLevel)
	}

	return &model.Urgency{
		Urgency:            urgency,
		ImpactLevel:        impact,
		Reasoning:          strings.TrimSpace(raw.Reasoning),
		AffectedPopulation: strings.TrimSpace(raw.AffectedPopulation),
		TimelineConcerns:   cleanList(raw.TimelineConcerns),
	}, nil
}
