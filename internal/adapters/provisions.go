package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// DefaultMaxProvisions caps the provisions list when the caller passes 0
const DefaultMaxProvisions = 8

// ProvisionExtractor pulls key provisions from bill text on the on-device prompt model
type ProvisionExtractor struct {
	onDevice
}

// NewProvisionExtractor creates a provisions extractor backed by rt
func NewProvisionExtractor(rt ondevice.Runtime, opts ...Option) *ProvisionExtractor {
	return &ProvisionExtractor{onDevice{
		name:       "provisions",
		runtime:    rt,
		capability: ondevice.CapabilityPrompt,
		settings:   newSettings(opts),
	}}
}

var importanceLevels = map[string]model.Importance{
	"low":      model.ImportanceLow,
	"minor":    model.ImportanceLow,
	"medium":   model.ImportanceMedium,
	"moderate": model.ImportanceMedium,
	"high":     model.ImportanceHigh,
	"critical": model.ImportanceHigh,
	"major":    model.ImportanceHigh,
}

// ExtractProvisions returns at most max provisions plus themes
func (p *ProvisionExtractor) ExtractProvisions(ctx context.Context, text string, max int) (*model.ProvisionSet, error) {
	if max <= 0 {
		max = DefaultMaxProvisions
	}

	// The model may answer with the wrapper object or a bare array
	var raw json.RawMessage
	prompt := provisionsPrompt(truncate(text, p.settings.maxChars), max)
	if err := p.promptJSON(ctx, provisionsSystem, prompt, &raw); err != nil {
		return nil, err
	}

	var set model.ProvisionSet
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &set.Provisions); err != nil {
			return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
		}
	} else if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	provisions := make([]model.Provision, 0, len(set.Provisions))
	for _, prov := range set.Provisions {
		prov.Title = strings.TrimSpace(prov.Title)
		prov.Description = strings.TrimSpace(prov.Description)
		if prov.Title == "" && prov.Description == "" {
			continue
		}
		if prov.Title == "" {
			prov.Title = firstWords(prov.Description, 8)
		}
		prov.Impact = strings.TrimSpace(prov.Impact)
		prov.Section = strings.TrimSpace(prov.Section)
		prov.Stakeholders = cleanList(prov.Stakeholders)
		if level, ok := importanceLevels[enumKey(string(prov.Importance))]; ok {
			prov.Importance = level
		} else {
			prov.Importance = model.ImportanceMedium
		}
		provisions = append(provisions, prov)
		if len(provisions) == max {
			break
		}
	}

	if len(provisions) == 0 {
		return nil, fmt.Errorf("%w: no provisions in response", llm.ErrMalformedResponse)
	}
	return &model.ProvisionSet{Provisions: provisions, Themes: cleanList(set.Themes)}, nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}
