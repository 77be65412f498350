package humanizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Ollama provider — self-hosted model, first in the cascade
// ---------------------------------------------------------------------------

const (
	defaultOllamaURL   = "http://localhost:11434/api/generate"
	defaultOllamaModel = "qwen2.5:7b"

	// Local CPU inference can be slow.
	ollamaTimeout = 120 * time.Second
)

// OllamaProvider calls a self-hosted Ollama instance.
type OllamaProvider struct {
	httpClient *http.Client
	url        string
	model      string

	mu        sync.Mutex
	lastError string
}

func NewOllamaProvider(url, model string) *OllamaProvider {
	if url == "" {
		url = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		httpClient: &http.Client{Timeout: ollamaTimeout},
		url:        url,
		model:      model,
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	body := ollamaRequest{Model: p.model, Prompt: prompt, Stream: false}
	if req.JSONMode {
		body.Format = "json"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("ollama: HTTP error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		err := fmt.Errorf("ollama: HTTP %d", resp.StatusCode)
		p.recordError(err)
		return nil, err
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("ollama: parse response: %w", err)
	}
	if parsed.Response == "" {
		return nil, fmt.Errorf("ollama: empty response")
	}

	p.clearError()
	return &CompletionResponse{
		Text:      parsed.Response,
		LatencyMs: int(time.Since(start).Milliseconds()),
		Provider:  p.Name(),
	}, nil
}

func (p *OllamaProvider) Health() ProviderHealth {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProviderHealth{
		Available: p.lastError == "",
		LastError: p.lastError,
	}
}

func (p *OllamaProvider) recordError(err error) {
	p.mu.Lock()
	p.lastError = err.Error()
	p.mu.Unlock()
}

func (p *OllamaProvider) clearError() {
	p.mu.Lock()
	p.lastError = ""
	p.mu.Unlock()
}
