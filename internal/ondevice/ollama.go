package ondevice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
)

// Daemon is the subset of the Ollama API the runtime needs
type Daemon interface {
	ListModels(ctx context.Context) ([]llm.OllamaModel, error)
	Load(ctx context.Context, model string, keepAlive time.Duration) error
	Unload(ctx context.Context, model string) error
	Pull(ctx context.Context, model string) error
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

// OllamaRuntime backs every capability with a model on a local Ollama daemon
type OllamaRuntime struct {
	daemon      Daemon
	models      map[Capability]string
	temperature float64
	keepAlive   time.Duration
	logger      *telemetry.Logger

	mu        sync.Mutex
	downloads map[string]bool // model -> pull in flight
	refs      map[string]int  // model -> open sessions
}

// NewOllamaRuntime builds a runtime from configuration
func NewOllamaRuntime(daemon Daemon, cfg model.OnDeviceConfig, logger *telemetry.Logger) *OllamaRuntime {
	models := make(map[Capability]string, len(cfg.Models))
	for name, m := range cfg.Models {
		models[Capability(strings.ToLower(name))] = m
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &OllamaRuntime{
		daemon:      daemon,
		models:      models,
		temperature: cfg.Temperature,
		keepAlive:   5 * time.Minute,
		logger:      logger,
		downloads:   make(map[string]bool),
		refs:        make(map[string]int),
	}
}

// Model returns the local model mapped to a capability
func (r *OllamaRuntime) Model(c Capability) string {
	return r.models[c]
}

// Availability reports the state of one capability
func (r *OllamaRuntime) Availability(ctx context.Context, c Capability) State {
	name := r.models[c]
	if name == "" {
		return StateUnavailable
	}

	installed, err := r.daemon.ListModels(ctx)
	if err != nil {
		return StateUnavailable
	}

	r.mu.Lock()
	downloading := r.downloads[name]
	r.mu.Unlock()
	if downloading {
		return StateDownloading
	}

	for _, m := range installed {
		if sameModel(m.Name, name) || sameModel(m.Model, name) {
			return StateReady
		}
	}
	return StateDownloadable
}

// Download pulls the model for a capability. Availability reports
// downloading while the pull is in flight.
func (r *OllamaRuntime) Download(ctx context.Context, c Capability) error {
	name := r.models[c]
	if name == "" {
		return fmt.Errorf("%w: no model configured for %s", llm.ErrUnavailable, c)
	}

	r.mu.Lock()
	if r.downloads[name] {
		r.mu.Unlock()
		return nil
	}
	r.downloads[name] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.downloads, name)
		r.mu.Unlock()
	}()

	r.logger.Info("pulling on-device model", map[string]any{"capability": string(c), "model": name})
	return r.daemon.Pull(ctx, name)
}

// NewSession preloads the capability's model and returns a session bound to it
func (r *OllamaRuntime) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	name := r.models[opts.Capability]
	if name == "" {
		return nil, fmt.Errorf("%w: no model configured for %s", llm.ErrUnavailable, opts.Capability)
	}

	if err := r.acquire(ctx, name); err != nil {
		return nil, err
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = r.temperature
	}

	return &ollamaSession{
		runtime:     r,
		model:       name,
		system:      opts.System,
		temperature: temperature,
		json:        opts.JSON,
	}, nil
}

// acquire preloads name for the first open session and counts the rest
func (r *OllamaRuntime) acquire(ctx context.Context, name string) error {
	r.mu.Lock()
	first := r.refs[name] == 0
	r.refs[name]++
	r.mu.Unlock()

	if !first {
		return nil
	}
	if err := r.daemon.Load(ctx, name, r.keepAlive); err != nil {
		r.mu.Lock()
		r.dropRef(name)
		r.mu.Unlock()
		return err
	}
	return nil
}

// release unloads name once its last session is gone. A session opened
// while the unload is in flight gets the model reloaded on its first prompt.
func (r *OllamaRuntime) release(name string) {
	r.mu.Lock()
	last := r.dropRef(name)
	r.mu.Unlock()
	if !last {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.daemon.Unload(ctx, name); err != nil {
		r.logger.Warn("unload on-device model failed", map[string]any{"model": name, "err": err})
	}
}

// dropRef decrements the count for name and reports whether it hit zero.
// Callers hold r.mu.
func (r *OllamaRuntime) dropRef(name string) bool {
	r.refs[name]--
	if r.refs[name] > 0 {
		return false
	}
	delete(r.refs, name)
	return true
}

// OpenSessions reports how many sessions hold name
func (r *OllamaRuntime) OpenSessions(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[name]
}

type ollamaSession struct {
	runtime     *OllamaRuntime
	model       string
	system      string
	temperature float64
	json        bool
	destroyOnce sync.Once
}

func (s *ollamaSession) Prompt(ctx context.Context, input string) (string, error) {
	resp, err := s.runtime.daemon.Generate(ctx, llm.GenerateRequest{
		System:      s.system,
		Prompt:      input,
		Model:       s.model,
		Temperature: float32(s.temperature),
		JSON:        s.json,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Destroy releases the session's hold on the model. The last session to let
// go unloads it, detached from any request context.
func (s *ollamaSession) Destroy() {
	s.destroyOnce.Do(func() {
		s.runtime.release(s.model)
	})
}

// sameModel treats "name" and "name:latest" as the same model
func sameModel(a, b string) bool {
	if a == b {
		return true
	}
	return strings.TrimSuffix(a, ":latest") == strings.TrimSuffix(b, ":latest")
}
