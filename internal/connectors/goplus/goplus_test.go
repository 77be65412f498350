package goplus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

func TestSupported(t *testing.T) {
	assert.True(t, Supported("ERC20"))
	assert.True(t, Supported("bep20"))
	assert.True(t, Supported("ARBITRUM"))
	assert.False(t, Supported("TRC20"))
	assert.False(t, Supported("SOLANA"))
}

func TestCheckToken_ParsesFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/token_security/1")
		assert.Equal(t, wethAddr, r.URL.Query().Get("contract_addresses"))
		w.Write([]byte(`{"code":1,"message":"OK","result":{
			"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2":{
				"is_honeypot":"1","is_blacklisted":"0","is_in_dex":"1",
				"can_take_back_ownership":"0","hidden_owner":"1",
				"selfdestruct":"0","external_call":"0"
			}}}`))
	}))
	defer srv.Close()

	c := NewClient()
	c.baseURL = srv.URL

	report, err := c.CheckToken(context.Background(), wethAddr, "ETH")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.IsHoneypot)
	assert.False(t, report.IsBlacklisted)
	assert.True(t, report.IsInDex)
	assert.True(t, report.HiddenOwner)
	assert.Equal(t, 100, report.TrustScoreImpact)
}

func TestCheckToken_UncoveredNetworkSkips(t *testing.T) {
	c := NewClient()
	report, err := c.CheckToken(context.Background(), wethAddr, "TRC20")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestCheckToken_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"message":"error","result":{}}`))
	}))
	defer srv.Close()

	c := NewClient()
	c.baseURL = srv.URL

	_, err := c.CheckToken(context.Background(), wethAddr, "BSC")
	assert.ErrorContains(t, err, "no security data")
}
