package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// Summarizer produces the summary variants on the on-device summarizer
type Summarizer struct {
	onDevice
}

// NewSummarizer creates a summarizer backed by rt
func NewSummarizer(rt ondevice.Runtime, opts ...Option) *Summarizer {
	return &Summarizer{onDevice{
		name:       "summarizer",
		runtime:    rt,
		capability: ondevice.CapabilitySummarizer,
		settings:   newSettings(opts),
	}}
}

// Summarize generates each variant in its own session. Individual variants
// may fail; at least two must succeed.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*model.Summary, error) {
	input := truncate(text, s.settings.maxChars)
	if input == "" {
		return nil, fmt.Errorf("%w: empty bill text", model.ErrInvalidInput)
	}

	summary := &model.Summary{}
	var lastErr error

	for _, variant := range summaryVariants {
		var out string
		err := ondevice.WithSession(ctx, s.runtime, s.sessionOptions(variant.system, false), func(sess ondevice.Session) error {
			var err error
			out, err = sess.Prompt(ctx, input)
			return err
		})
		if err != nil {
			// These end the whole call; other failures only lose one variant
			if errors.Is(err, llm.ErrCancelled) || errors.Is(err, llm.ErrUnavailable) {
				return nil, err
			}
			lastErr = err
			continue
		}

		out = strings.TrimSpace(out)
		switch variant.key {
		case "key-points":
			summary.KeyPoints = out
		case "tl;dr":
			summary.Short = out
		case "teaser":
			summary.Teaser = out
		case "headline":
			summary.Headline = strings.Trim(out, `"`)
		}
	}

	if summary.Variants() < 2 {
		if lastErr != nil {
			return nil, fmt.Errorf("summarizer produced %d variants: %w", summary.Variants(), lastErr)
		}
		return nil, fmt.Errorf("%w: summarizer produced %d non-empty variants", llm.ErrMalformedResponse, summary.Variants())
	}
	return summary, nil
}
