package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vector from the Binance API docs signed-endpoint example.
func TestSign_KnownVector(t *testing.T) {
	c := NewClient("key", "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j")
	query := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	assert.Equal(t,
		"c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71",
		c.sign(query))
}

func TestSupportedNetworks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, capitalConfigPath, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-MBX-APIKEY"))
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		w.Write([]byte(`[
			{"coin":"BTC","networkList":[{"network":"BTC","isDefault":true,"withdrawEnable":true,"depositEnable":true,"name":"Bitcoin"}]},
			{"coin":"USDT","networkList":[
				{"network":"TRX","isDefault":true,"withdrawEnable":true,"depositEnable":true,"name":"Tron (TRC20)"},
				{"network":"ETH","isDefault":false,"withdrawEnable":false,"depositEnable":true,"name":"Ethereum (ERC20)"}
			]}
		]`))
	}))
	defer srv.Close()

	c := NewClient("key", "secret")
	c.baseURL = srv.URL

	networks, err := c.SupportedNetworks(context.Background(), "usdt")
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "TRX", networks[0].Network)
	assert.True(t, networks[0].WithdrawEnabled)
	assert.Equal(t, "ETH", networks[1].Network)
	assert.False(t, networks[1].WithdrawEnabled)
}

func TestSupportedNetworks_AssetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient("key", "secret")
	c.baseURL = srv.URL

	_, err := c.SupportedNetworks(context.Background(), "NOPE")
	assert.ErrorContains(t, err, "not found")
}

func TestSupportedNetworks_MissingCredentials(t *testing.T) {
	c := NewClient("", "")
	_, err := c.SupportedNetworks(context.Background(), "USDT")
	assert.Error(t, err)
}
