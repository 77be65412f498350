package humanizer

import (
	"context"
	"fmt"
	"sync"
)

// LLMProvider generates the human explanation for one verification result.
// Providers are tried in registration order; any error moves the cascade to
// the next provider.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Health() ProviderHealth
}

// CompletionRequest is sent to an LLM provider.
type CompletionRequest struct {
	System    string
	Prompt    string
	JSONMode  bool
	TimeoutMs int
}

// CompletionResponse is returned by an LLM provider.
type CompletionResponse struct {
	Text      string
	LatencyMs int
	Provider  string
}

// ProviderHealth reports the availability of an LLM provider.
type ProviderHealth struct {
	Available bool
	LastError string
}

// ---------------------------------------------------------------------------
// Stub provider for tests
// ---------------------------------------------------------------------------

// StubProvider is a deterministic provider for testing. It returns pre-loaded
// responses in order, cycling back to the start when all have been consumed.
type StubProvider struct {
	mu        sync.Mutex
	name      string
	responses []string
	idx       int
	healthy   bool
	calls     int
}

func NewStubProvider(name string, responses []string) *StubProvider {
	return &StubProvider{
		name:      name,
		responses: responses,
		healthy:   true,
	}
}

func (s *StubProvider) Name() string { return s.name }

func (s *StubProvider) Complete(_ context.Context, _ CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if !s.healthy {
		return nil, fmt.Errorf("provider %s is unhealthy", s.name)
	}
	if len(s.responses) == 0 {
		return nil, fmt.Errorf("provider %s has no responses configured", s.name)
	}

	text := s.responses[s.idx]
	s.idx = (s.idx + 1) % len(s.responses)
	return &CompletionResponse{Text: text, Provider: s.name}, nil
}

func (s *StubProvider) Health() ProviderHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := ProviderHealth{Available: s.healthy}
	if !s.healthy {
		h.LastError = "provider marked unhealthy"
	}
	return h
}

// SetHealthy marks the stub provider healthy or unhealthy.
func (s *StubProvider) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

// Calls returns the total number of Complete() invocations.
func (s *StubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
