package humanizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Gemini provider — hosted fallback, second in the cascade
// ---------------------------------------------------------------------------

const (
	geminiURL     = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	geminiTimeout = 15 * time.Second
)

// GeminiProvider calls the Google Gemini generateContent endpoint.
type GeminiProvider struct {
	httpClient *http.Client
	url        string
	apiKey     string

	mu        sync.Mutex
	lastError string
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		httpClient: &http.Client{Timeout: geminiTimeout},
		url:        geminiURL,
		apiKey:     apiKey,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("gemini: api key not configured")
	}

	start := time.Now()

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}
	if req.JSONMode {
		prompt = "Return only JSON, no prose.\n\n" + prompt
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.url+"?key="+p.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("gemini: HTTP error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		err := fmt.Errorf("gemini: HTTP %d: %s", resp.StatusCode, string(respBody))
		p.recordError(err)
		return nil, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
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

func (p *GeminiProvider) Health() ProviderHealth {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProviderHealth{
		Available: p.apiKey != "" && p.lastError == "",
		LastError: p.lastError,
	}
}

func (p *GeminiProvider) recordError(err error) {
	p.mu.Lock()
	p.lastError = err.Error()
	p.mu.Unlock()
}

func (p *GeminiProvider) clearError() {
	p.mu.Lock()
	p.lastError = ""
	p.mu.Unlock()
}

// stripCodeFence removes a markdown code fence wrapper from model output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
	} else {
		return s
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
