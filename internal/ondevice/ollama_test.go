package ondevice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
)

type fakeDaemon struct {
	mu        sync.Mutex
	installed []llm.OllamaModel
	listErr   error
	loaded    []string
	unloaded  []string
	pullGate  chan struct{}
	lastReq   llm.GenerateRequest
}

func (d *fakeDaemon) ListModels(ctx context.Context) ([]llm.OllamaModel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.installed, d.listErr
}

func (d *fakeDaemon) Load(ctx context.Context, m string, keepAlive time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = append(d.loaded, m)
	return nil
}

func (d *fakeDaemon) Unload(ctx context.Context, m string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unloaded = append(d.unloaded, m)
	return nil
}

func (d *fakeDaemon) Pull(ctx context.Context, m string) error {
	if d.pullGate != nil {
		<-d.pullGate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.installed = append(d.installed, llm.OllamaModel{Name: m})
	return nil
}

func (d *fakeDaemon) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	d.mu.Lock()
	d.lastReq = req
	d.mu.Unlock()
	return &llm.GenerateResponse{Text: "generated"}, nil
}

func testConfig() model.OnDeviceConfig {
	return model.OnDeviceConfig{
		Models: map[string]string{
			"summarizer": "llama3.2:3b",
			"prompt":     "qwen2.5:7b",
		},
		Temperature: 0.2,
	}
}

func TestOllamaRuntime_Availability(t *testing.T) {
	daemon := &fakeDaemon{installed: []llm.OllamaModel{{Name: "llama3.2:3b"}}}
	rt := NewOllamaRuntime(daemon, testConfig(), nil)
	ctx := context.Background()

	if got := rt.Availability(ctx, CapabilitySummarizer); got != StateReady {
		t.Errorf("summarizer: expected ready, got %s", got)
	}
	if got := rt.Availability(ctx, CapabilityPrompt); got != StateDownloadable {
		t.Errorf("prompt: expected downloadable, got %s", got)
	}
	if got := rt.Availability(ctx, CapabilityWriter); got != StateUnavailable {
		t.Errorf("writer has no model: expected unavailable, got %s", got)
	}

	daemon.listErr = errors.New("connection refused")
	if got := rt.Availability(ctx, CapabilitySummarizer); got != StateUnavailable {
		t.Errorf("daemon down: expected unavailable, got %s", got)
	}
}

func TestOllamaRuntime_LatestTagMatches(t *testing.T) {
	daemon := &fakeDaemon{installed: []llm.OllamaModel{{Name: "mistral:latest"}}}
	rt := NewOllamaRuntime(daemon, model.OnDeviceConfig{Models: map[string]string{"prompt": "mistral"}}, nil)
	if got := rt.Availability(context.Background(), CapabilityPrompt); got != StateReady {
		t.Errorf("expected ready, got %s", got)
	}
}

func TestOllamaRuntime_Download(t *testing.T) {
	daemon := &fakeDaemon{pullGate: make(chan struct{})}
	rt := NewOllamaRuntime(daemon, testConfig(), nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- rt.Download(ctx, CapabilityPrompt) }()

	deadline := time.Now().Add(time.Second)
	for rt.Availability(ctx, CapabilityPrompt) != StateDownloading {
		if time.Now().After(deadline) {
			t.Fatal("never observed downloading state")
		}
		time.Sleep(2 * time.Millisecond)
	}

	close(daemon.pullGate)
	if err := <-done; err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if got := rt.Availability(ctx, CapabilityPrompt); got != StateReady {
		t.Errorf("expected ready after pull, got %s", got)
	}

	if err := rt.Download(ctx, CapabilityProofreader); !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for unmapped capability, got %v", err)
	}
}

func TestOllamaRuntime_SessionLifecycle(t *testing.T) {
	daemon := &fakeDaemon{installed: []llm.OllamaModel{{Name: "qwen2.5:7b"}}}
	rt := NewOllamaRuntime(daemon, testConfig(), nil)

	var out string
	err := WithSession(context.Background(), rt, SessionOptions{
		Capability: CapabilityPrompt,
		System:     "Return JSON",
		JSON:       true,
	}, func(s Session) error {
		var err error
		out, err = s.Prompt(context.Background(), "categorize")
		return err
	})
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if out != "generated" {
		t.Errorf("unexpected output %q", out)
	}

	if len(daemon.loaded) != 1 || daemon.loaded[0] != "qwen2.5:7b" {
		t.Errorf("expected model preload, got %v", daemon.loaded)
	}
	if len(daemon.unloaded) != 1 || daemon.unloaded[0] != "qwen2.5:7b" {
		t.Errorf("expected model unload on release, got %v", daemon.unloaded)
	}
	if daemon.lastReq.Model != "qwen2.5:7b" || !daemon.lastReq.JSON || daemon.lastReq.System != "Return JSON" {
		t.Errorf("unexpected generate request %+v", daemon.lastReq)
	}
	if daemon.lastReq.Temperature != float32(0.2) {
		t.Errorf("expected configured temperature, got %v", daemon.lastReq.Temperature)
	}
}

func TestOllamaRuntime_SharedModelUnloadsOnLastRelease(t *testing.T) {
	daemon := &fakeDaemon{installed: []llm.OllamaModel{{Name: "qwen2.5:7b"}}}
	rt := NewOllamaRuntime(daemon, testConfig(), nil)
	ctx := context.Background()

	first, err := rt.NewSession(ctx, SessionOptions{Capability: CapabilityPrompt})
	if err != nil {
		t.Fatal(err)
	}
	second, err := rt.NewSession(ctx, SessionOptions{Capability: CapabilityPrompt})
	if err != nil {
		t.Fatal(err)
	}
	if len(daemon.loaded) != 1 {
		t.Errorf("model loaded %d times, want once for overlapping sessions", len(daemon.loaded))
	}

	first.Destroy()
	first.Destroy()
	if len(daemon.unloaded) != 0 {
		t.Fatalf("model unloaded while another session holds it: %v", daemon.unloaded)
	}
	if n := rt.OpenSessions("qwen2.5:7b"); n != 1 {
		t.Errorf("open sessions = %d, want 1", n)
	}
	if _, err := second.Prompt(ctx, "still usable"); err != nil {
		t.Errorf("prompt after sibling release: %v", err)
	}

	second.Destroy()
	if len(daemon.unloaded) != 1 || daemon.unloaded[0] != "qwen2.5:7b" {
		t.Errorf("expected a single unload after the last release, got %v", daemon.unloaded)
	}
	if n := rt.OpenSessions("qwen2.5:7b"); n != 0 {
		t.Errorf("open sessions = %d after release", n)
	}
}

func TestOllamaRuntime_FailedLoadDropsReference(t *testing.T) {
	daemon := &failingLoadDaemon{fakeDaemon: &fakeDaemon{}}
	rt := NewOllamaRuntime(daemon, testConfig(), nil)

	if _, err := rt.NewSession(context.Background(), SessionOptions{Capability: CapabilityPrompt}); err == nil {
		t.Fatal("expected load failure")
	}
	if n := rt.OpenSessions("qwen2.5:7b"); n != 0 {
		t.Errorf("open sessions = %d after failed load", n)
	}
}

type failingLoadDaemon struct {
	*fakeDaemon
}

func (d *failingLoadDaemon) Load(ctx context.Context, m string, keepAlive time.Duration) error {
	return errors.New("daemon down")
}
