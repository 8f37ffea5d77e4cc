package aggregator

import (
	"context"

	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// OnDeviceAvailability reports which runtime capabilities are ready now
type OnDeviceAvailability struct {
	Summarizer  bool `json:"summarizer"`
	Prompt      bool `json:"prompt"`
	Writer      bool `json:"writer"`
	Rewriter    bool `json:"rewriter"`
	Proofreader bool `json:"proofreader"`
}

// CloudAvailability reports credential presence for the cloud providers
type CloudAvailability struct {
	Gemini      bool `json:"gemini"`
	NewsSources bool `json:"newsSources"`
}

// Availability is the probe result used to pick an analysis level
type Availability struct {
	OnDevice OnDeviceAvailability `json:"onDevice"`
	Cloud    CloudAvailability    `json:"cloud"`
}

// CheckAvailability probes the runtime and cloud credentials without running
// any analysis
func (a *Aggregator) CheckAvailability(ctx context.Context) Availability {
	var av Availability
	if rt := a.deps.Runtime; rt != nil {
		ready := func(c ondevice.Capability) bool { return rt.Availability(ctx, c).Ready() }
		av.OnDevice = OnDeviceAvailability{
			Summarizer:  ready(ondevice.CapabilitySummarizer),
			Prompt:      ready(ondevice.CapabilityPrompt),
			Writer:      ready(ondevice.CapabilityWriter),
			Rewriter:    ready(ondevice.CapabilityRewriter),
			Proofreader: ready(ondevice.CapabilityProofreader),
		}
	}
	if a.deps.Cloud != nil {
		av.Cloud.Gemini = a.deps.Cloud.IsAvailable(ctx)
	}
	if a.deps.News != nil {
		av.Cloud.NewsSources = a.deps.News.Available(ctx).Ready()
	}
	return av
}

// RecommendedLevel is the richest preset the probe can serve: deep when any
// cloud provider is usable, standard when the prompt capability can drive the
// structured adapters, quick otherwise
func (av Availability) RecommendedLevel() model.Level {
	switch {
	case av.Cloud.Gemini || av.Cloud.NewsSources:
		return model.LevelDeep
	case av.OnDevice.Prompt:
		return model.LevelStandard
	default:
		return model.LevelQuick
	}
}
