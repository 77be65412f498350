package netcompat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BSC", "BEP20"},
		{"bsc", "BEP20"},
		{"BNB Smart Chain (BEP20)", "BEP20"},
		{"ETH", "ERC20"},
		{"Ethereum (ERC20)", "ERC20"},
		{"TRX", "TRC20"},
		{"Tron (TRC20)", "TRC20"},
		{"AVAXC", "AVAX-C"},
		{"MATIC", "Polygon"},
		{"ERC20", "ERC20"},
		{"NEAR", "NEAR"}, // unmapped passes through
		{"  SOL  ", "SOL"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Canonicalize(tc.in), "input %q", tc.in)
	}
}

func TestSame(t *testing.T) {
	assert.True(t, Same("BSC", "BEP20"))
	assert.True(t, Same("ETH", "erc20"))
	assert.True(t, Same("TRX", "Tron (TRC20)"))
	assert.True(t, Same("polygon", "MATIC"))
	assert.False(t, Same("ERC20", "BEP20"))
}

func usdtSnapshot() SupportSnapshot {
	return SupportSnapshot{
		"Binance": {
			{Network: "BSC", WithdrawEnabled: true, DepositEnabled: true, DisplayName: "BNB Smart Chain (BEP20)"},
			{Network: "ETH", WithdrawEnabled: true, DepositEnabled: true, DisplayName: "Ethereum (ERC20)"},
			{Network: "TRX", WithdrawEnabled: false, DepositEnabled: true, DisplayName: "Tron (TRC20)"},
			{Network: "SOL", WithdrawEnabled: true, DepositEnabled: false, DisplayName: "Solana"},
		},
	}
}

func TestCheckOrigin(t *testing.T) {
	snap := usdtSnapshot()

	assert.Equal(t, DecisionOK, CheckOrigin("Binance", "USDT", "BEP20", snap))
	assert.Equal(t, DecisionOK, CheckOrigin("binance", "USDT", "ERC20", snap))
	assert.Equal(t, DecisionWithdrawDisabled, CheckOrigin("Binance", "USDT", "TRC20", snap))
	assert.Equal(t, DecisionUnsupported, CheckOrigin("Binance", "USDT", "NEAR", snap))
	assert.Equal(t, DecisionUnknown, CheckOrigin("Kraken", "USDT", "ERC20", snap))
	assert.Equal(t, DecisionUnknown, CheckOrigin("Binance", "USDT", "ERC20", nil))
}

func TestCheckDestination(t *testing.T) {
	snap := usdtSnapshot()

	assert.Equal(t, DecisionOK, CheckDestination("Binance", "USDT", "ERC20", snap))
	assert.Equal(t, DecisionDepositDisabled, CheckDestination("Binance", "USDT", "Solana", snap))
	// Deposit side ignores withdraw flags.
	assert.Equal(t, DecisionOK, CheckDestination("Binance", "USDT", "TRC20", snap))
	assert.Equal(t, DecisionUnsupported, CheckDestination("Binance", "USDT", "NEAR", snap))
	assert.Equal(t, DecisionUnknown, CheckDestination("Bybit", "USDT", "ERC20", snap))
}
