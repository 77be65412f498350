package chain

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Chain family classification
// Every network label a user or exchange can throw at us maps to one of the
// address families below. Each family owns one validation rule.
// ---------------------------------------------------------------------------

// Family identifies the cryptographic address family of a network.
type Family string

const (
	FamilyEVM     Family = "EVM"
	FamilyTron    Family = "TRON"
	FamilySolana  Family = "SOLANA"
	FamilyUnknown Family = "UNKNOWN"
)

// evmMarkers are substrings that mark a network label as EVM-family.
var evmMarkers = []string{
	"ERC20", "BEP20", "POLYGON", "ARBITRUM", "OPTIMISM", "BASE", "AVALANCHE",
}

// Classify maps a network label to its address family.
// Unknown labels classify as FamilyUnknown, never as an error.
func Classify(network string) Family {
	net := strings.ToUpper(strings.TrimSpace(network))

	for _, marker := range evmMarkers {
		if strings.Contains(net, marker) {
			return FamilyEVM
		}
	}
	if net == "ETH" {
		return FamilyEVM
	}

	if strings.Contains(net, "TRC20") || strings.Contains(net, "TRON") || net == "TRX" {
		return FamilyTron
	}

	if strings.Contains(net, "SOLANA") || strings.Contains(net, "SPL") || net == "SOL" {
		return FamilySolana
	}

	return FamilyUnknown
}
