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
// Groq provider — last resort in the cascade
// ---------------------------------------------------------------------------

const (
	groqURL     = "https://api.groq.com/openai/v1/chat/completions"
	groqModel   = "llama3-8b-8192"
	groqTimeout = 15 * time.Second
)

// GroqProvider calls the Groq OpenAI-compatible chat endpoint.
type GroqProvider struct {
	httpClient *http.Client
	url        string
	apiKey     string

	mu        sync.Mutex
	lastError string
}

func NewGroqProvider(apiKey string) *GroqProvider {
	return &GroqProvider{
		httpClient: &http.Client{Timeout: groqTimeout},
		url:        groqURL,
		apiKey:     apiKey,
	}
}

func (p *GroqProvider) Name() string { return "groq" }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model    string        `json:"model"`
	Messages []groqMessage `json:"messages"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

func (p *GroqProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("groq: api key not configured")
	}

	start := time.Now()

	messages := []groqMessage{}
	if req.System != "" {
		messages = append(messages, groqMessage{Role: "system", Content: req.System})
	}
	prompt := req.Prompt
	if req.JSONMode {
		prompt = "Return only JSON, no prose.\n\n" + prompt
	}
	messages = append(messages, groqMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(groqRequest{Model: groqModel, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("groq: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("groq: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("groq: HTTP error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("groq: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		err := fmt.Errorf("groq: HTTP %d: %s", resp.StatusCode, string(respBody))
		p.recordError(err)
		return nil, err
	}

	var parsed groqResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("groq: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("groq: no choices in response")
	}

	text := parsed.Choices[0].Message.Content
	if req.JSONMode {
		text = stripCodeFence(text)
	}

	p.clearError()
	return &CompletionResponse{
		Text:      text,
		LatencyMs: int(time.Since(start).Milliseconds()),
		Provider:  p.Name(),
	}, nil
}

func (p *GroqProvider) Health() ProviderHealth {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProviderHealth{
		Available: p.apiKey != "" && p.lastError == "",
		LastError: p.lastError,
	}
}

func (p *GroqProvider) recordError(err error) {
	p.mu.Lock()
	p.lastError = err.Error()
	p.mu.Unlock()
}

func (p *GroqProvider) clearError() {
	p.mu.Lock()
	p.lastError = ""
	p.mu.Unlock()
}
