package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
)

const maxCategories = 5

// Categorizer assigns policy categories on the on-device prompt model
type Categorizer struct {
	onDevice
}

// NewCategorizer creates a categorizer backed by rt
func NewCategorizer(rt ondevice.Runtime, opts ...Option) *Categorizer {
	return &Categorizer{onDevice{
		name:       "categorizer",
		runtime:    rt,
		capability: ondevice.CapabilityPrompt,
		settings:   newSettings(opts),
	}}
}

// Categorize returns categories sorted by confidence, highest first
func (c *Categorizer) Categorize(ctx context.Context, title, summary string) ([]model.Category, error) {
	var payload json.RawMessage
	prompt := categorizerPrompt(title, truncate(summary, c.settings.maxChars))
	if err := c.promptJSON(ctx, categorizerSystem, prompt, &payload); err != nil {
		return nil, err
	}

	// Accept a bare array or {"categories": [...]}
	var raw []model.Category
	if strings.HasPrefix(strings.TrimSpace(string(payload)), "{") {
		var wrapped struct {
			Categories []model.Category `json:"categories"`
		}
		if err := json.Unmarshal(payload, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
		}
		raw = wrapped.Categories
	} else if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	categories := normalizeCategories(raw)
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories in response", llm.ErrMalformedResponse)
	}
	return categories, nil
}

func normalizeCategories(raw []model.Category) []model.Category {
	out := make([]model.Category, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, cat := range raw {
		cat.Name = strings.TrimSpace(cat.Name)
		key := strings.ToLower(cat.Name)
		if cat.Name == "" || seen[key] {
			continue
		}
		seen[key] = true

		cat.Confidence = clamp01(cat.Confidence)
		cat.Description = strings.TrimSpace(cat.Description)
		tags := make([]string, 0, len(cat.Tags))
		for _, tag := range cat.Tags {
			tags = append(tags, strings.ToLower(tag))
		}
		cat.Tags = cleanList(tags)
		out = append(out, cat)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > maxCategories {
		out = out[:maxCategories]
	}
	return out
}
