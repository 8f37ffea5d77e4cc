package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/util"
)

// OllamaProvider implements the Provider interface for Ollama local models.
// It also exposes the daemon's model-management endpoints used by the
// on-device runtime.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	// pullClient has no overall timeout; pulls are bounded by ctx only
	pullClient *http.Client
	config     Config
}

// Ollama API structures
type ollamaRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt,omitempty"`
	Stream    bool           `json:"stream"`
	System    string         `json:"system,omitempty"`
	Format    string         `json:"format,omitempty"`
	KeepAlive any            `json:"keep_alive,omitempty"`
	Options   *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`

	// Token counts (only present when done=true)
	TotalDuration   int64 `json:"total_duration,omitempty"`
	LoadDuration    int64 `json:"load_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// OllamaModel is one entry of /api/tags or /api/ps
type OllamaModel struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type ollamaModelList struct {
	Models []OllamaModel `json:"models"`
}

type ollamaPullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type ollamaPullResponse struct {
	Status string `json:"status"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   config.timeout(120 * time.Second), // Local models can be slow
			Transport: transport,
		},
		pullClient: &http.Client{Transport: transport},
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// BaseURL returns the daemon address
func (p *OllamaProvider) BaseURL() string {
	return p.baseURL
}

// IsAvailable checks whether the Ollama daemon answers
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.ListModels(ctx)
	return err == nil
}

// Generate runs one prompt through /api/generate
func (p *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := p.config.model(req, "")
	if model == "" {
		return nil, fmt.Errorf("%w: ollama model must be specified (e.g., llama3.2:3b)", ErrUnavailable)
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: false,
		System: req.System,
		Options: &ollamaOptions{
			Temperature: float64(p.config.temperature(req)),
			NumPredict:  p.config.maxTokens(req),
		},
	}
	if req.JSON {
		apiReq.Format = "json"
	}

	var resp ollamaResponse
	if err := p.post(ctx, p.httpClient, "/api/generate", apiReq, &resp); err != nil {
		return nil, Classify(ctx, fmt.Errorf("ollama API error: %w", err))
	}

	text := strings.TrimSpace(resp.Response)

	// Ollama provides counts but they may be 0 for some models
	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		tokensUsed = (len(req.Prompt) + len(text)) / 4
	}

	return &GenerateResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: tokensUsed,
	}, nil
}

// ListModels returns the models pulled onto the daemon
func (p *OllamaProvider) ListModels(ctx context.Context) ([]OllamaModel, error) {
	var list ollamaModelList
	if err := p.get(ctx, "/api/tags", &list); err != nil {
		return nil, err
	}
	return list.Models, nil
}

// RunningModels returns the models currently loaded in memory
func (p *OllamaProvider) RunningModels(ctx context.Context) ([]OllamaModel, error) {
	var list ollamaModelList
	if err := p.get(ctx, "/api/ps", &list); err != nil {
		return nil, err
	}
	return list.Models, nil
}

// Load preloads a model into memory and keeps it resident for keepAlive
func (p *OllamaProvider) Load(ctx context.Context, model string, keepAlive time.Duration) error {
	req := ollamaRequest{Model: model, KeepAlive: keepAlive.String()}
	var resp ollamaResponse
	if err := p.post(ctx, p.httpClient, "/api/generate", req, &resp); err != nil {
		return Classify(ctx, fmt.Errorf("load %s: %w", model, err))
	}
	return nil
}

// Unload evicts a model from memory
func (p *OllamaProvider) Unload(ctx context.Context, model string) error {
	req := ollamaRequest{Model: model, KeepAlive: 0}
	var resp ollamaResponse
	if err := p.post(ctx, p.httpClient, "/api/generate", req, &resp); err != nil {
		return fmt.Errorf("unload %s: %w", model, err)
	}
	return nil
}

// Pull downloads a model and blocks until the daemon reports success
func (p *OllamaProvider) Pull(ctx context.Context, model string) error {
	var resp ollamaPullResponse
	if err := p.post(ctx, p.pullClient, "/api/pull", ollamaPullRequest{Model: model}, &resp); err != nil {
		return Classify(ctx, fmt.Errorf("pull %s: %w", model, err))
	}
	if resp.Status != "success" {
		return fmt.Errorf("pull %s: unexpected status %q", model, resp.Status)
	}
	return nil
}

func (p *OllamaProvider) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return p.do(p.httpClient, httpReq, out)
}

func (p *OllamaProvider) post(ctx context.Context, client *http.Client, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return p.do(client, httpReq, out)
}

func (p *OllamaProvider) do(client *http.Client, httpReq *http.Request, out any) error {
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return &StatusError{StatusCode: httpResp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{StatusCode: httpResp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", ErrMalformedResponse, err)
	}
	return nil
}
