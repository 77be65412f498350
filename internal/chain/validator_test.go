package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		network string
		want    Family
	}{
		{"ERC20", FamilyEVM},
		{"eth", FamilyEVM},
		{"Ethereum (ERC20)", FamilyEVM},
		{"BEP20", FamilyEVM},
		{"POLYGON", FamilyEVM},
		{"Arbitrum One", FamilyEVM},
		{"OPTIMISM", FamilyEVM},
		{"BASE", FamilyEVM},
		{"AVALANCHE", FamilyEVM},
		{"TRC20", FamilyTron},
		{"trx", FamilyTron},
		{"Tron (TRC20)", FamilyTron},
		{"SOL", FamilySolana},
		{"Solana", FamilySolana},
		{"SPL", FamilySolana},
		{"BTC", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.network), "network %q", tc.network)
	}
}

func TestValidate_EVM(t *testing.T) {
	valid, _ := Validate("0x1234567890123456789012345678901234567890", "ERC20")
	assert.True(t, valid)

	// Mixed case hex is fine.
	valid, _ = Validate("0x000000000000000000000000000000000000dEaD", "BEP20")
	assert.True(t, valid)

	for _, addr := range []string{
		"",
		"0x123",
		"1234567890123456789012345678901234567890",
		"0x12345678901234567890123456789012345678zz",
		"0x12345678901234567890123456789012345678901", // 41 hex chars
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
	} {
		valid, reason := Validate(addr, "ERC20")
		assert.False(t, valid, "address %q", addr)
		assert.Contains(t, reason, "42 characters")
	}
}

func TestValidate_Tron(t *testing.T) {
	// USDT contract on Tron: valid base58check, prefix 0x41.
	valid, _ := Validate("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", "TRC20")
	assert.True(t, valid)

	// Corrupted last character: checksum mismatch.
	valid, reason := Validate("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", "TRC20")
	assert.False(t, valid)
	assert.Contains(t, reason, "checksum")

	// Zero and lowercase L are outside the base58 alphabet.
	valid, reason = Validate("T0lll!!!", "TRX")
	assert.False(t, valid)
	assert.Contains(t, reason, "base58check")

	// Valid base58check but a Bitcoin version byte, not 0x41.
	valid, reason = Validate("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "TRON")
	assert.False(t, valid)
	assert.Contains(t, reason, "0x41")

	// An EVM address on a Tron network is rejected.
	valid, _ = Validate("0x1234567890123456789012345678901234567890", "TRC20")
	assert.False(t, valid)
}

func TestValidate_Solana(t *testing.T) {
	// System program: 32 zero bytes.
	valid, _ := Validate("11111111111111111111111111111111", "SOL")
	assert.True(t, valid)

	// Wrapped SOL mint.
	valid, _ = Validate("So11111111111111111111111111111111111111112", "SOLANA")
	assert.True(t, valid)

	// Too short: byte count in the reason.
	valid, reason := Validate("abc", "SOL")
	assert.False(t, valid)
	assert.Contains(t, reason, "want 32")

	valid, reason = Validate("0x1234567890123456789012345678901234567890", "SPL")
	assert.False(t, valid)
	assert.Contains(t, reason, "base58")
}

func TestValidate_UnknownNetworkFailsOpen(t *testing.T) {
	valid, reason := Validate("anything-at-all", "BTC")
	assert.True(t, valid)
	assert.Equal(t, "format not verified", reason)
}
