package sourcing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/cache"
)

// ---------------------------------------------------------------------------
// Sourcing agent — search-backed route discovery
// Finds the safest path to obtain an asset on a target network via the
// Perplexity Sonar API. Results are cached since routes rarely change.
// ---------------------------------------------------------------------------

const (
	defaultSonarURL = "https://api.perplexity.ai/chat/completions"
	sonarModel      = "sonar"
	sonarTimeout    = 45 * time.Second

	maxTokenLen   = 10
	maxNetworkLen = 20
)

// RoutePlan is the structured answer for one asset/network pair.
type RoutePlan struct {
	Steps             []string `json:"steps"`
	CEXSource         string   `json:"cex_source"`
	BridgeNeeded      bool     `json:"bridge_needed"`
	RecommendedBridge string   `json:"recommended_bridge"`
	EstimatedFeeRange string   `json:"estimated_fee_range"`
	Warning           string   `json:"warning,omitempty"`
}

// Agent queries the search API and caches discovered routes.
type Agent struct {
	httpClient *http.Client
	url        string
	apiKey     string
	cache      *cache.RedisCache // nil disables caching
}

// NewAgent creates a sourcing agent. cache may be nil.
func NewAgent(apiKey string, routeCache *cache.RedisCache) *Agent {
	return &Agent{
		httpClient: &http.Client{Timeout: sonarTimeout},
		url:        defaultSonarURL,
		apiKey:     apiKey,
		cache:      routeCache,
	}
}

// sanitizeToken keeps alphanumerics only, uppercased and length-capped.
// User text flows into the search prompt, so nothing else passes.
func sanitizeToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() >= maxTokenLen {
			break
		}
	}
	return b.String()
}

// sanitizeNetwork keeps alphanumerics and spaces, length-capped.
func sanitizeNetwork(network string) string {
	var b strings.Builder
	for _, r := range network {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
		if b.Len() >= maxNetworkLen {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// FindBestRoute discovers how to obtain token on targetNetwork.
func (a *Agent) FindBestRoute(ctx context.Context, token, targetNetwork string) (*RoutePlan, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("sourcing: api key not configured")
	}

	cleanToken := sanitizeToken(token)
	cleanNet := sanitizeNetwork(targetNetwork)
	if cleanToken == "" {
		return nil, fmt.Errorf("sourcing: token is empty after sanitization")
	}

	if a.cache != nil {
		if raw, err := a.cache.GetRoute(ctx, "discovery", cleanToken, cleanNet); err == nil && raw != nil {
			var plan RoutePlan
			if err := json.Unmarshal(raw, &plan); err == nil {
				log.Debug().Str("token", cleanToken).Str("network", cleanNet).Msg("sourcing: route cache hit")
				return &plan, nil
			}
		}
	}

	plan, err := a.query(ctx, cleanToken, cleanNet)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if raw, merr := json.Marshal(plan); merr == nil {
			if cerr := a.cache.SaveRoute(ctx, "discovery", cleanToken, cleanNet, raw); cerr != nil {
				log.Warn().Err(cerr).Msg("sourcing: route cache write failed")
			}
		}
	}

	return plan, nil
}

func (a *Agent) query(ctx context.Context, token, network string) (*RoutePlan, error) {
	prompt := fmt.Sprintf(`You are an elite Web3 route architect. Your mission is to protect the user's capital by finding the most efficient path to obtain %s on the %s network.

RESEARCH REQUIREMENTS (REAL-TIME):
1. CENTRALIZED LIQUIDITY: where does %s trade with the highest volume today? (Binance, OKX, Bybit, Coinbase?)
2. DIRECT WITHDRAWAL: does any of those exchanges allow direct withdrawal to the %s network?
3. DEX AGGREGATORS: for Solana check Jupiter or Raydium; for Tron check SunSwap.
4. BRIDGES: if needed, which official bridge (Portal, Stargate, Allbridge) is safest?

MANDATORY RESPONSE FORMAT (PURE JSON):
{
  "steps": ["Step 1: ...", "Step 2: ...", "Step 3: ..."],
  "cex_source": "best CEX name",
  "bridge_needed": true,
  "recommended_bridge": "bridge/aggregator name or 'Native'",
  "estimated_fee_range": "Low/Medium/High",
  "warning": "security or gas warning if any"
}`, token, network, token, network)

	body := chatRequest{
		Model: sonarModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are technical, direct, and answer only with valid JSON."},
			{Role: "user", Content: prompt},
		},
	}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("sourcing: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sourcing: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sourcing: route search HTTP error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sourcing: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("sourcing: route search HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("sourcing: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("sourcing: no choices in response")
	}

	var plan RoutePlan
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &plan); err != nil {
		return nil, fmt.Errorf("sourcing: parse route plan: %w", err)
	}

	log.Info().
		Str("token", token).
		Str("network", network).
		Str("cex", plan.CEXSource).
		Bool("bridge", plan.BridgeNeeded).
		Msg("sourcing: route discovered")

	return &plan, nil
}
