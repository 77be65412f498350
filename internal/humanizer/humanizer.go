package humanizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

// ---------------------------------------------------------------------------
// Humanizer — turns rule verdicts into plain-language explanations
// Providers cascade in registration order; the raw verdict message is the
// terminal fallback when every provider fails.
// ---------------------------------------------------------------------------

const systemPrompt = `You are SafeSentinel, the trusted mentor for crypto transfers.
Your audience is non-technical. Follow the Nudge protocol:
1. METAPHOR: a simple analogy for the problem.
2. REAL RISK: what happens to the money.
3. SUGGESTED ACTION: what the user should do next.
Keep it short, objective and safety-first.`

// RiskContext carries everything a provider needs to explain one verdict.
type RiskContext struct {
	Request    gatekeeper.TransferRequest `json:"request"`
	Verdict    gatekeeper.Verdict         `json:"verdict"`
	TrustScore float64                    `json:"trust_score"`
	OnChain    *gatekeeper.OnChainInfo    `json:"on_chain,omitempty"`
	Volume24h  float64                    `json:"volume_24h"`
}

// Intent is a transfer request extracted from free-form user text. Empty
// fields were not present in the text.
type Intent struct {
	Asset       string `json:"asset"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Network     string `json:"network"`
	Address     string `json:"address"`
}

// Humanizer runs the provider cascade.
type Humanizer struct {
	providers []LLMProvider
}

func New(providers ...LLMProvider) *Humanizer {
	return &Humanizer{providers: providers}
}

// RegisterProvider appends a provider to the end of the cascade.
func (h *Humanizer) RegisterProvider(p LLMProvider) {
	h.providers = append(h.providers, p)
}

// HumanizeRisk produces a plain-language explanation for a verdict. It never
// fails: when every provider errors, the verdict's own message is returned.
func (h *Humanizer) HumanizeRisk(ctx context.Context, rc RiskContext) string {
	payload, err := json.Marshal(rc)
	if err != nil {
		return fallbackMessage(rc.Verdict)
	}

	req := CompletionRequest{
		System: systemPrompt,
		Prompt: fmt.Sprintf("Verification result:\n%s\n\nGenerate the Nudge response.", payload),
	}

	for _, p := range h.providers {
		resp, err := p.Complete(ctx, req)
		if err != nil {
			log.Debug().Err(err).Str("provider", p.Name()).Msg("humanizer: provider failed, trying next")
			continue
		}
		if resp.Text == "" {
			continue
		}
		log.Debug().
			Str("provider", resp.Provider).
			Int("latency_ms", resp.LatencyMs).
			Msg("humanizer: explanation generated")
		return resp.Text
	}

	log.Warn().Str("status", string(rc.Verdict.Status)).Msg("humanizer: all providers failed, using raw verdict")
	return fallbackMessage(rc.Verdict)
}

// ExtractIntent parses a free-form message into a structured transfer intent.
func (h *Humanizer) ExtractIntent(ctx context.Context, text string) (*Intent, error) {
	req := CompletionRequest{
		Prompt: fmt.Sprintf(
			"Extract JSON with keys asset, origin, destination, network, address from: %q. Use empty strings for unknown fields.",
			text),
		JSONMode: true,
	}

	var lastErr error
	for _, p := range h.providers {
		resp, err := p.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		var intent Intent
		if err := json.Unmarshal([]byte(stripCodeFence(resp.Text)), &intent); err != nil {
			lastErr = fmt.Errorf("parse intent from %s: %w", p.Name(), err)
			continue
		}
		return &intent, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, fmt.Errorf("humanizer: extract intent: %w", lastErr)
}

// ProviderHealths reports the health of every provider in cascade order.
func (h *Humanizer) ProviderHealths() map[string]ProviderHealth {
	out := make(map[string]ProviderHealth, len(h.providers))
	for _, p := range h.providers {
		out[p.Name()] = p.Health()
	}
	return out
}

func fallbackMessage(v gatekeeper.Verdict) string {
	return "⚠️ " + v.Message
}
