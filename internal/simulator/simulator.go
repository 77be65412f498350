package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Transaction simulator — pre-flight check via alchemy_simulateAssetChanges
// Answers "what happens if I sign this?" before any funds move.
// ---------------------------------------------------------------------------

const simTimeout = 20 * time.Second

// endpointTemplates maps network labels to Alchemy RPC URL templates.
var endpointTemplates = map[string]string{
	"ETH":      "https://eth-mainnet.g.alchemy.com/v2/%s",
	"ERC20":    "https://eth-mainnet.g.alchemy.com/v2/%s",
	"POLYGON":  "https://polygon-mainnet.g.alchemy.com/v2/%s",
	"ARBITRUM": "https://arb-mainnet.g.alchemy.com/v2/%s",
}

// AssetChange is one balance movement observed in the simulation.
type AssetChange struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

// Result is the outcome of a simulated transfer.
type Result struct {
	Status  string        `json:"status"` // SUCCESS or REVERTED
	Error   string        `json:"error,omitempty"`
	Changes []AssetChange `json:"changes,omitempty"`
	GasUsed string        `json:"gas_used,omitempty"`
}

const (
	StatusSuccess  = "SUCCESS"
	StatusReverted = "REVERTED"
)

// Simulator runs dry-run transfers against Alchemy simulation endpoints.
type Simulator struct {
	httpClient *http.Client
	apiKey     string
	// endpointOverride replaces the per-network URL when set (tests).
	endpointOverride string
}

func New(apiKey string) *Simulator {
	return &Simulator{
		httpClient: &http.Client{Timeout: simTimeout},
		apiKey:     apiKey,
	}
}

// Covered reports whether simulation is available for a network.
func Covered(network string) bool {
	_, ok := endpointTemplates[strings.ToUpper(network)]
	return ok
}

type rpcRequest struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result *simResult `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type simResult struct {
	Changes []struct {
		ChangeType string `json:"changeType"`
		Symbol     string `json:"symbol"`
		Amount     string `json:"amount"`
		From       string `json:"from"`
		To         string `json:"to"`
	} `json:"changes"`
	GasUsed string `json:"gasUsed"`
}

// SimulateTransfer dry-runs a value transfer and reports resulting asset
// changes. value is a hex-encoded wei amount, "0x0" for token transfers.
func (s *Simulator) SimulateTransfer(ctx context.Context, from, to, network, value string) (*Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("simulator: api key not configured")
	}

	url := s.endpointOverride
	if url == "" {
		tmpl, ok := endpointTemplates[strings.ToUpper(network)]
		if !ok {
			return nil, fmt.Errorf("simulator: network %s not supported", network)
		}
		url = fmt.Sprintf(tmpl, s.apiKey)
	}

	if value == "" {
		value = "0x0"
	}

	payload, err := json.Marshal(rpcRequest{
		ID:      1,
		JSONRPC: "2.0",
		Method:  "alchemy_simulateAssetChanges",
		Params: []any{map[string]string{
			"from":  from,
			"to":    to,
			"value": value,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("simulator: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("simulator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("simulator: simulation HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("simulator: read response: %w", err)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("simulator: parse response: %w", err)
	}

	// RPC-level errors mean the transaction would revert, which is itself a
	// meaningful answer for a pre-flight check.
	if parsed.Error != nil {
		log.Debug().Str("error", parsed.Error.Message).Msg("simulator: transaction would revert")
		return &Result{Status: StatusReverted, Error: parsed.Error.Message}, nil
	}
	if parsed.Result == nil {
		return nil, fmt.Errorf("simulator: empty result")
	}

	result := &Result{Status: StatusSuccess, GasUsed: parsed.Result.GasUsed}
	for _, change := range parsed.Result.Changes {
		if change.ChangeType != "TRANSFER" {
			continue
		}
		amount, err := decimal.NewFromString(change.Amount)
		if err != nil {
			amount = decimal.Zero
		}
		symbol := change.Symbol
		if symbol == "" {
			symbol = "Unknown"
		}
		result.Changes = append(result.Changes, AssetChange{
			Asset:  symbol,
			Amount: amount,
			From:   change.From,
			To:     change.To,
		})
	}

	log.Debug().
		Int("changes", len(result.Changes)).
		Str("gas_used", result.GasUsed).
		Msg("simulator: simulation complete")

	return result, nil
}
