package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/netcompat"
)

// ---------------------------------------------------------------------------
// Binance SAPI client — capital config (supported deposit/withdraw networks)
// https://binance-docs.github.io/apidocs/spot/en/#all-coins-39-information-user_data
// ---------------------------------------------------------------------------

const (
	defaultBaseURL    = "https://api.binance.com"
	capitalConfigPath = "/sapi/v1/capital/config/getall"
	requestRecvWindow = 5000
	httpTimeout       = 10 * time.Second
)

// Client talks to the signed Binance SAPI endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewClient creates a Binance SAPI client. Both key and secret are required
// for the capital config endpoint.
func NewClient(apiKey, apiSecret string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
	}
}

// coinInfo mirrors one entry of the capital config response.
type coinInfo struct {
	Coin        string `json:"coin"`
	NetworkList []struct {
		Network        string `json:"network"`
		IsDefault      bool   `json:"isDefault"`
		WithdrawEnable bool   `json:"withdrawEnable"`
		DepositEnable  bool   `json:"depositEnable"`
		Name           string `json:"name"`
	} `json:"networkList"`
}

// SupportedNetworks fetches the deposit/withdraw network list for one asset.
func (c *Client) SupportedNetworks(ctx context.Context, asset string) ([]netcompat.NetworkSupport, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("binance: api key or secret missing")
	}

	start := time.Now()

	params := url.Values{}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", fmt.Sprintf("%d", requestRecvWindow))
	// Signature covers the encoded query and must be appended last.
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, "GET",
		c.baseURL+capitalConfigPath+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("binance: capital config HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("binance: read response: %w", err)
	}

	if resp.StatusCode != 200 {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("binance: capital config HTTP %d: %s", resp.StatusCode, string(body))
	}

	var coins []coinInfo
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("binance: parse capital config: %w", err)
	}

	c.requestCount.Add(1)

	want := strings.ToUpper(asset)
	for _, coin := range coins {
		if coin.Coin != want {
			continue
		}
		networks := make([]netcompat.NetworkSupport, 0, len(coin.NetworkList))
		for _, net := range coin.NetworkList {
			networks = append(networks, netcompat.NetworkSupport{
				Network:         net.Network,
				WithdrawEnabled: net.WithdrawEnable,
				DepositEnabled:  net.DepositEnable,
				DisplayName:     net.Name,
			})
		}

		log.Debug().
			Str("asset", want).
			Int("networks", len(networks)).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("binance: network list received")

		return networks, nil
	}

	return nil, fmt.Errorf("binance: asset %s not found in capital config", want)
}

// sign computes the HMAC-SHA256 signature over the query string.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
