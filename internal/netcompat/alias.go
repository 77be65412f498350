package netcompat

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Network Alias Table
// Exchanges, market-data providers and users all name the same network
// differently ("BSC", "BEP20", "BNB Smart Chain (BEP20)"). Everything is
// normalized to one canonical vocabulary before matching.
// ---------------------------------------------------------------------------

// aliases maps provider-specific labels (uppercased) to canonical labels.
var aliases = map[string]string{
	"BSC":                     "BEP20",
	"BNB SMART CHAIN (BEP20)": "BEP20",
	"ETH":                     "ERC20",
	"ETHEREUM (ERC20)":        "ERC20",
	"TRX":                     "TRC20",
	"TRON (TRC20)":            "TRC20",
	"AVAXC":                   "AVAX-C",
	"MATIC":                   "Polygon",
}

// Canonicalize maps a network label to its canonical form. Unmapped labels
// pass through unchanged (trimmed only), so novel networks still compare
// equal to themselves.
func Canonicalize(network string) string {
	trimmed := strings.TrimSpace(network)
	if canonical, ok := aliases[strings.ToUpper(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Same reports whether two network labels refer to the same canonical
// network, case-insensitively.
func Same(a, b string) bool {
	return strings.EqualFold(Canonicalize(a), Canonicalize(b))
}
