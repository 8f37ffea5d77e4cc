// Package ondevice models the local model runtime: per-capability
// availability states and short-lived model sessions that are always released.
package ondevice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
)

// State is the availability of one on-device capability
type State string

const (
	StateReady        State = "ready"
	StateDownloading  State = "downloading"
	StateDownloadable State = "downloadable"
	StateUnavailable  State = "unavailable"
)

// Ready reports whether a session can be created right now
func (s State) Ready() bool { return s == StateReady }

// Capability names one on-device model API
type Capability string

const (
	CapabilitySummarizer  Capability = "summarizer"
	CapabilityPrompt      Capability = "prompt"
	CapabilityWriter      Capability = "writer"
	CapabilityRewriter    Capability = "rewriter"
	CapabilityProofreader Capability = "proofreader"
)

// Capabilities lists every capability in probe order
var Capabilities = []Capability{
	CapabilitySummarizer,
	CapabilityPrompt,
	CapabilityWriter,
	CapabilityRewriter,
	CapabilityProofreader,
}

// DefaultInitTimeout bounds session creation independently of the caller's context
const DefaultInitTimeout = 30 * time.Second

// SessionOptions configures one session
type SessionOptions struct {
	Capability  Capability
	System      string
	Temperature float64
	// JSON asks the runtime for JSON output where supported
	JSON bool
	// InitTimeout bounds NewSession; zero means DefaultInitTimeout
	InitTimeout time.Duration
}

// Session is a live model handle. Destroy must be safe to call more than once.
type Session interface {
	Prompt(ctx context.Context, input string) (string, error)
	Destroy()
}

// Runtime is the capability provider behind every on-device adapter
type Runtime interface {
	Availability(ctx context.Context, c Capability) State
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// WithSession acquires a session for opts.Capability, runs fn, and destroys
// the session on every exit path. A non-ready capability fails with
// llm.ErrUnavailable; slow initialization fails with llm.ErrTimeout.
func WithSession(ctx context.Context, rt Runtime, opts SessionOptions, fn func(Session) error) error {
	if rt == nil {
		return fmt.Errorf("%w: no on-device runtime", llm.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return llm.Classify(ctx, err)
	}

	if state := rt.Availability(ctx, opts.Capability); !state.Ready() {
		return fmt.Errorf("%w: %s is %s", llm.ErrUnavailable, opts.Capability, state)
	}

	session, err := newSessionBounded(ctx, rt, opts)
	if err != nil {
		return err
	}
	defer session.Destroy()

	return llm.Classify(ctx, fn(session))
}

type sessionResult struct {
	session Session
	err     error
}

// newSessionBounded creates a session but gives up after the init timeout even
// if the runtime ignores its context. A session that arrives late is destroyed.
func newSessionBounded(ctx context.Context, rt Runtime, opts SessionOptions) (Session, error) {
	timeout := opts.InitTimeout
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan sessionResult, 1)
	go func() {
		s, err := rt.NewSession(initCtx, opts)
		done <- sessionResult{session: s, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctx.Err() == nil && errors.Is(initCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s session init after %s: %w", llm.ErrTimeout, opts.Capability, timeout, res.err)
			}
			return nil, llm.Classify(ctx, fmt.Errorf("create %s session: %w", opts.Capability, res.err))
		}
		return res.session, nil

	case <-initCtx.Done():
		go func() {
			if res := <-done; res.session != nil {
				res.session.Destroy()
			}
		}()
		if err := ctx.Err(); err != nil {
			return nil, llm.Classify(ctx, err)
		}
		return nil, fmt.Errorf("%w: %s session init exceeded %s", llm.ErrTimeout, opts.Capability, timeout)
	}
}
