package simulator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCovered(t *testing.T) {
	assert.True(t, Covered("ETH"))
	assert.True(t, Covered("polygon"))
	assert.False(t, Covered("TRC20"))
	assert.False(t, Covered("SOLANA"))
}

func TestSimulateTransfer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"gasUsed":"0x5208","changes":[
			{"changeType":"TRANSFER","symbol":"USDT","amount":"150.5","from":"0xaaa","to":"0xbbb"},
			{"changeType":"APPROVAL","symbol":"USDT","amount":"0","from":"0xaaa","to":"0xccc"}
		]}}`))
	}))
	defer srv.Close()

	s := New("test-key")
	s.endpointOverride = srv.URL

	res, err := s.SimulateTransfer(context.Background(), "0xaaa", "0xbbb", "ETH", "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "0x5208", res.GasUsed)
	// Approvals are filtered out, only transfers remain.
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "USDT", res.Changes[0].Asset)
	assert.True(t, res.Changes[0].Amount.Equal(decimal.RequireFromString("150.5")))
}

func TestSimulateTransfer_Reverted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`))
	}))
	defer srv.Close()

	s := New("test-key")
	s.endpointOverride = srv.URL

	res, err := s.SimulateTransfer(context.Background(), "0xaaa", "0xbbb", "ETH", "0x0")
	require.NoError(t, err)
	assert.Equal(t, StatusReverted, res.Status)
	assert.Equal(t, "execution reverted", res.Error)
}

func TestSimulateTransfer_UnsupportedNetwork(t *testing.T) {
	s := New("test-key")
	_, err := s.SimulateTransfer(context.Background(), "0xaaa", "0xbbb", "TRC20", "0x0")
	assert.ErrorContains(t, err, "not supported")
}

func TestSimulateTransfer_NoKey(t *testing.T) {
	s := New("")
	_, err := s.SimulateTransfer(context.Background(), "0xaaa", "0xbbb", "ETH", "0x0")
	assert.Error(t, err)
}
