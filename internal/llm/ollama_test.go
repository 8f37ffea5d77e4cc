package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Format != "json" {
			t.Errorf("Expected json format, got %q", req.Format)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}

		resp := ollamaResponse{
			Model:           "llama3.2:3b",
			Response:        `{"urgency":"high"}`,
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.2:3b", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "classify", JSON: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != `{"urgency":"high"}` {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Expected 30 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Generate_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "x"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaProvider_Generate_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})

	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
}

func TestOllamaProvider_ModelManagement(t *testing.T) {
	var loads, unloads, pulls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:3b","model":"llama3.2:3b","size":2019393189}]}`))
		case "/api/ps":
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:3b","model":"llama3.2:3b","expires_at":"2030-01-01T00:00:00Z"}]}`))
		case "/api/generate":
			var raw map[string]any
			_ = json.NewDecoder(r.Body).Decode(&raw)
			if _, hasPrompt := raw["prompt"]; hasPrompt {
				t.Errorf("Load/unload requests must not carry a prompt")
			}
			if ka, ok := raw["keep_alive"].(float64); ok && ka == 0 {
				unloads++
			} else {
				loads++
			}
			_, _ = w.Write([]byte(`{"model":"llama3.2:3b","done":true}`))
		case "/api/pull":
			pulls++
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Timeout: 5})
	ctx := context.Background()

	if !provider.IsAvailable(ctx) {
		t.Fatal("Expected daemon available")
	}

	models, err := provider.ListModels(ctx)
	if err != nil || len(models) != 1 || models[0].Name != "llama3.2:3b" {
		t.Fatalf("Unexpected models %v (%v)", models, err)
	}

	running, err := provider.RunningModels(ctx)
	if err != nil || len(running) != 1 || running[0].ExpiresAt.IsZero() {
		t.Fatalf("Unexpected running models %v (%v)", running, err)
	}

	if err := provider.Load(ctx, "llama3.2:3b", 5*time.Minute); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := provider.Unload(ctx, "llama3.2:3b"); err != nil {
		t.Fatalf("Unload failed: %v", err)
	}
	if err := provider.Pull(ctx, "llama3.2:3b"); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	if loads != 1 || unloads != 1 || pulls != 1 {
		t.Errorf("Expected one load/unload/pull, got %d/%d/%d", loads, unloads, pulls)
	}
}

func TestOllamaProvider_IsAvailable_DaemonDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: url, Timeout: 1})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected unavailable when daemon is down")
	}
}
