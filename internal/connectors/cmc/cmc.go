package cmc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/trust"
)

// ---------------------------------------------------------------------------
// CoinMarketCap Pro API client — token metadata and latest quotes
// https://coinmarketcap.com/api/documentation/v1/
// ---------------------------------------------------------------------------

const (
	defaultBaseURL = "https://pro-api.coinmarketcap.com"
	infoPath       = "/v2/cryptocurrency/info"
	quotesPath     = "/v1/cryptocurrency/quotes/latest"
	httpTimeout    = 10 * time.Second
)

// Client talks to the CoinMarketCap Pro API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// ContractDeployment is one platform a token is deployed on.
type ContractDeployment struct {
	Platform string `json:"platform"`
	Address  string `json:"contract_address"`
}

// TokenMetadata is the subset of CMC token info the verifier cares about.
type TokenMetadata struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name"`
	Symbol      string               `json:"symbol"`
	Description string               `json:"description"`
	DateAdded   string               `json:"date_added"`
	Contracts   []ContractDeployment `json:"contracts"`
}

type infoResponse struct {
	Data map[string][]struct {
		ID              int    `json:"id"`
		Name            string `json:"name"`
		Symbol          string `json:"symbol"`
		Description     string `json:"description"`
		DateAdded       string `json:"date_added"`
		ContractAddress []struct {
			ContractAddress string `json:"contract_address"`
			Platform        struct {
				Name string `json:"name"`
			} `json:"platform"`
		} `json:"contract_address"`
	} `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

// TokenInfo fetches token metadata for a symbol.
func (c *Client) TokenInfo(ctx context.Context, symbol string) (*TokenMetadata, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("cmc: api key not configured")
	}

	sym := strings.ToUpper(symbol)
	var parsed infoResponse
	if err := c.get(ctx, infoPath, url.Values{"symbol": {sym}}, &parsed); err != nil {
		return nil, err
	}
	if parsed.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("cmc: info error %d: %s", parsed.Status.ErrorCode, parsed.Status.ErrorMessage)
	}

	entries, ok := parsed.Data[sym]
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("cmc: token %s not found", sym)
	}
	entry := entries[0]

	meta := &TokenMetadata{
		ID:          entry.ID,
		Name:        entry.Name,
		Symbol:      entry.Symbol,
		Description: entry.Description,
		DateAdded:   entry.DateAdded,
	}
	for _, ca := range entry.ContractAddress {
		meta.Contracts = append(meta.Contracts, ContractDeployment{
			Platform: ca.Platform.Name,
			Address:  ca.ContractAddress,
		})
	}

	log.Debug().
		Str("symbol", sym).
		Int("contracts", len(meta.Contracts)).
		Msg("cmc: token metadata received")

	return meta, nil
}

type quotesResponse struct {
	Data map[string]struct {
		Quote map[string]struct {
			Volume24h float64 `json:"volume_24h"`
		} `json:"quote"`
	} `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

// Volume24h fetches the latest 24h USD volume for a symbol.
func (c *Client) Volume24h(ctx context.Context, symbol string) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("cmc: api key not configured")
	}

	sym := strings.ToUpper(symbol)
	var parsed quotesResponse
	if err := c.get(ctx, quotesPath, url.Values{"symbol": {sym}}, &parsed); err != nil {
		return 0, err
	}
	if parsed.Status.ErrorCode != 0 {
		return 0, fmt.Errorf("cmc: quotes error %d: %s", parsed.Status.ErrorCode, parsed.Status.ErrorMessage)
	}

	entry, ok := parsed.Data[sym]
	if !ok {
		return 0, fmt.Errorf("cmc: quote for %s not found", sym)
	}
	usd, ok := entry.Quote["USD"]
	if !ok {
		return 0, fmt.Errorf("cmc: USD quote for %s not found", sym)
	}
	return usd.Volume24h, nil
}

// Market combines metadata and the latest quote into a trust score input.
// A missing quote degrades to zero volume rather than failing the snapshot.
func (c *Client) Market(ctx context.Context, symbol string) (*trust.MarketSnapshot, *TokenMetadata, error) {
	meta, err := c.TokenInfo(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}

	volume, err := c.Volume24h(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("cmc: quote unavailable, assuming zero volume")
		volume = 0
	}

	return &trust.MarketSnapshot{
		Volume24h:     volume,
		DateAdded:     meta.DateAdded,
		ContractCount: len(meta.Contracts),
	}, meta, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("cmc: create request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cmc: HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cmc: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		return fmt.Errorf("cmc: HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("cmc: parse response: %w", err)
	}
	return nil
}
