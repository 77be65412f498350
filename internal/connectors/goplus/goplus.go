package goplus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/security"
)

// ---------------------------------------------------------------------------
// GoPlus Security API client — token_security endpoint
// https://docs.gopluslabs.io/reference/token_security
// ---------------------------------------------------------------------------

const (
	defaultBaseURL = "https://api.gopluslabs.io/api/v1"
	httpTimeout    = 10 * time.Second
)

// chainIDs maps network labels to GoPlus chain identifiers. Networks outside
// this map have no security coverage.
var chainIDs = map[string]string{
	"ETH":       "1",
	"ERC20":     "1",
	"BSC":       "56",
	"BEP20":     "56",
	"POLYGON":   "137",
	"ARBITRUM":  "42161",
	"OPTIMISM":  "10",
	"AVALANCHE": "43114",
}

// Client queries GoPlus for token contract security reports.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    defaultBaseURL,
	}
}

// Supported reports whether a network label maps to a covered chain.
func Supported(network string) bool {
	_, ok := chainIDs[strings.ToUpper(network)]
	return ok
}

// tokenSecurityResponse mirrors the GoPlus envelope. Flag fields arrive as
// string "0"/"1" rather than booleans.
type tokenSecurityResponse struct {
	Code    int                      `json:"code"`
	Message string                   `json:"message"`
	Result  map[string]tokenSecurity `json:"result"`
}

type tokenSecurity struct {
	IsHoneypot           string `json:"is_honeypot"`
	IsBlacklisted        string `json:"is_blacklisted"`
	IsInDEX              string `json:"is_in_dex"`
	CanTakeBackOwnership string `json:"can_take_back_ownership"`
	OwnerChangeBalance   string `json:"owner_change_balance"`
	HiddenOwner          string `json:"hidden_owner"`
	SelfDestruct         string `json:"selfdestruct"`
	ExternalCall         string `json:"external_call"`
}

// CheckToken fetches the security report for a token contract. Returns nil
// without error when the network is not covered by GoPlus.
func (c *Client) CheckToken(ctx context.Context, address, network string) (*security.Report, error) {
	chainID, ok := chainIDs[strings.ToUpper(network)]
	if !ok {
		log.Debug().Str("network", network).Msg("goplus: network not covered, skipping audit")
		return nil, nil
	}

	url := fmt.Sprintf("%s/token_security/%s?contract_addresses=%s", c.baseURL, chainID, address)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("goplus: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("goplus: token security HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("goplus: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("goplus: token security HTTP %d", resp.StatusCode)
	}

	var parsed tokenSecurityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("goplus: parse token security: %w", err)
	}

	if parsed.Code != 1 || len(parsed.Result) == 0 {
		return nil, fmt.Errorf("goplus: no security data for %s on chain %s", address, chainID)
	}

	// GoPlus keys the result by contract address, usually lowercased.
	res, ok := parsed.Result[strings.ToLower(address)]
	if !ok {
		res, ok = parsed.Result[address]
	}
	if !ok {
		return nil, fmt.Errorf("goplus: empty result for %s", address)
	}

	report := &security.Report{
		IsHoneypot:           res.IsHoneypot == "1",
		IsBlacklisted:        res.IsBlacklisted == "1",
		IsInDex:              res.IsInDEX == "1",
		CanTakeBackOwnership: res.CanTakeBackOwnership == "1",
		OwnerChangeBalance:   res.OwnerChangeBalance == "1",
		HiddenOwner:          res.HiddenOwner == "1",
		SelfDestruct:         res.SelfDestruct == "1",
		ExternalCall:         res.ExternalCall == "1",
	}
	report.TrustScoreImpact = report.ComputeImpact()

	log.Debug().
		Str("address", address).
		Str("chain_id", chainID).
		Bool("honeypot", report.IsHoneypot).
		Int("impact", report.TrustScoreImpact).
		Msg("goplus: security report received")

	return report, nil
}
