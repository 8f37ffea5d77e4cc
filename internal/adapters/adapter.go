// Package adapters wraps each model-backed capability behind a typed produce
// method. On-device adapters run on an ondevice.Runtime; cloud adapters run on
// an llm.Provider.
package adapters

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// DefaultMaxChars is the text budget per prompt
const DefaultMaxChars = 12000

// Adapter is the capability half shared by every adapter
type Adapter interface {
	Name() string
	Available(ctx context.Context) ondevice.State
}

type settings struct {
	maxChars    int
	initTimeout time.Duration
	temperature float64
}

// Option tunes an adapter
type Option func(*settings)

// WithMaxChars sets the character budget for bill text in prompts
func WithMaxChars(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithInitTimeout bounds on-device session creation
func WithInitTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.initTimeout = d
		}
	}
}

// WithTemperature overrides the sampling temperature
func WithTemperature(t float64) Option {
	return func(s *settings) {
		if t > 0 {
			s.temperature = t
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		maxChars:    DefaultMaxChars,
		initTimeout: ondevice.DefaultInitTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// onDevice is embedded by adapters backed by the local runtime
type onDevice struct {
	name       string
	runtime    ondevice.Runtime
	capability ondevice.Capability
	settings   settings
}

func (a *onDevice) Name() string { return a.name }

func (a *onDevice) Available(ctx context.Context) ondevice.State {
	if a == nil || a.runtime == nil {
		return ondevice.StateUnavailable
	}
	return a.runtime.Availability(ctx, a.capability)
}

func (a *onDevice) sessionOptions(system string, json bool) ondevice.SessionOptions {
	return ondevice.SessionOptions{
		Capability:  a.capability,
		System:      system,
		Temperature: a.settings.temperature,
		JSON:        json,
		InitTimeout: a.settings.initTimeout,
	}
}

// promptJSON runs one prompt in a scoped session and decodes the embedded JSON into v
func (a *onDevice) promptJSON(ctx context.Context, system, prompt string, v any) error {
	return ondevice.WithSession(ctx, a.runtime, a.sessionOptions(system, true), func(s ondevice.Session) error {
		out, err := s.Prompt(ctx, prompt)
		if err != nil {
			return err
		}
		return llm.DecodeJSON(out, v)
	})
}

// cloud is embedded by adapters backed by a credentialed provider
type cloud struct {
	name     string
	provider llm.Provider
	settings settings
}

func (a *cloud) Name() string { return a.name }

// Available is binary for cloud adapters: ready with a credential, unavailable without
func (a *cloud) Available(ctx context.Context) ondevice.State {
	if a == nil || a.provider == nil || !a.provider.IsAvailable(ctx) {
		return ondevice.StateUnavailable
	}
	return ondevice.StateReady
}

func (a *cloud) generateJSON(ctx context.Context, system, prompt string, v any) error {
	if a.provider == nil {
		return fmt.Errorf("%w: %s has no cloud provider", llm.ErrUnavailable, a.name)
	}
	if err := ctx.Err(); err != nil {
		return llm.Classify(ctx, err)
	}

	resp, err := a.provider.Generate(ctx, llm.GenerateRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: float32(a.settings.temperature),
		JSON:        true,
	})
	if err != nil {
		return llm.Classify(ctx, err)
	}
	return llm.DecodeJSON(resp.Text, v)
}

// truncate cuts text to at most max bytes on a rune boundary, preferring the
// last whitespace in the final tenth of the budget
func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if max <= 0 || len(text) <= max {
		return text
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if ws := strings.LastIndexAny(text[:cut], " \n\t"); ws > cut-cut/10 {
		cut = ws
	}
	return strings.TrimSpace(text[:cut]) + "\n[text truncated]"
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		// Models sometimes answer in percent. Slight overshoots like 1.2
		// are scores, not 1.2%.
		if f <= 100 && (f > 1.5 || f == math.Trunc(f)) {
			return f / 100
		}
		return 1
	default:
		return f
	}
}

// cleanList trims entries and drops blanks and exact duplicates
func cleanList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// enumKey lowercases and joins words with underscores ("Strongly Support" -> "strongly_support")
func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
