package adapters

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/ondevice"
)

// scriptedRuntime answers prompts by matching the session's system prompt
type scriptedRuntime struct {
	mu        sync.Mutex
	state     ondevice.State
	replies   map[string]string // system substring -> reply
	failures  map[string]error  // system substring -> error
	created   int
	destroyed int
	prompts   []string
}

func newScriptedRuntime() *scriptedRuntime {
	return &scriptedRuntime{
		state:    ondevice.StateReady,
		replies:  map[string]string{},
		failures: map[string]error{},
	}
}

func (r *scriptedRuntime) Availability(ctx context.Context, c ondevice.Capability) ondevice.State {
	return r.state
}

func (r *scriptedRuntime) NewSession(ctx context.Context, opts ondevice.SessionOptions) (ondevice.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	return &scriptedSession{runtime: r, system: opts.System}, nil
}

type scriptedSession struct {
	runtime *scriptedRuntime
	system  string
	once    sync.Once
}

func (s *scriptedSession) Prompt(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r := s.runtime
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, input)
	for key, err := range r.failures {
		if strings.Contains(s.system, key) {
			return "", err
		}
	}
	for key, reply := range r.replies {
		if strings.Contains(s.system, key) {
			return reply, nil
		}
	}
	return "", errors.New("no scripted reply")
}

func (s *scriptedSession) Destroy() {
	s.once.Do(func() {
		s.runtime.mu.Lock()
		s.runtime.destroyed++
		s.runtime.mu.Unlock()
	})
}

// fakeProvider is a canned llm.Provider
type fakeProvider struct {
	available bool
	text      string
	err       error
	lastReq   llm.GenerateRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return p.available }

func (p *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.lastReq = req
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerateResponse{Text: p.text}, nil
}
