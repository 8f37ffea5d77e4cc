package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// StakeholderAnalyzer maps group positions on the on-device prompt model
type StakeholderAnalyzer struct {
	onDevice
}

// NewStakeholderAnalyzer creates a stakeholder analyzer backed by rt
func NewStakeholderAnalyzer(rt ondevice.Runtime, opts ...Option) *StakeholderAnalyzer {
	return &StakeholderAnalyzer{onDevice{
		name:       "stakeholders",
		runtime:    rt,
		capability: ondevice.CapabilityPrompt,
		settings:   newSettings(opts),
	}}
}

var positions = map[string]model.Position{
	"strongly_support": model.PositionStronglySupport,
	"strong_support":   model.PositionStronglySupport,
	"support":          model.PositionSupport,
	"supports":         model.PositionSupport,
	"neutral":          model.PositionNeutral,
	"mixed":            model.PositionNeutral,
	"oppose":           model.PositionOppose,
	"opposes":          model.PositionOppose,
	"strongly_oppose":  model.PositionStronglyOppose,
	"strong_oppose":    model.PositionStronglyOppose,
}

// AnalyzeStakeholders returns group perspectives given the extracted provisions
func (s *StakeholderAnalyzer) AnalyzeStakeholders(ctx context.Context, title, summary string, provisions []string) (*model.StakeholderAnalysis, error) {
	if len(provisions) == 0 {
		return nil, fmt.Errorf("%w: stakeholder analysis needs provisions", model.ErrInvalidInput)
	}

	var raw model.StakeholderAnalysis
	prompt := stakeholderPrompt(title, truncate(summary, s.settings.maxChars), provisions)
	if err := s.promptJSON(ctx, stakeholderSystem, prompt, &raw); err != nil {
		return nil, err
	}

	perspectives := make([]model.StakeholderPerspective, 0, len(raw.Perspectives))
	for _, p := range raw.Perspectives {
		p.Group = strings.TrimSpace(p.Group)
		if p.Group == "" {
			continue
		}
		if pos, ok := positions[enumKey(string(p.Position))]; ok {
			p.Position = pos
		} else {
			p.Position = model.PositionNeutral
		}
		p.Reasoning = strings.TrimSpace(p.Reasoning)
		p.Benefits = cleanList(p.Benefits)
		p.Concerns = cleanList(p.Concerns)
		p.Actions = cleanList(p.Actions)
		perspectives = append(perspectives, p)
	}

	if len(perspectives) == 0 {
		return nil, fmt.Errorf("%w: no stakeholder perspectives in response", llm.ErrMalformedResponse)
	}
	return &model.StakeholderAnalysis{
		Perspectives:       perspectives,
		ConsensusAreas:     cleanList(raw.ConsensusAreas),
		ControversialAreas: cleanList(raw.ControversialAreas),
	}, nil
}
