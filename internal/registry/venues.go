package registry

import (
	"strings"
)

// WalletInfo describes a known self-custody wallet product.
type WalletInfo struct {
	Type     string   `json:"type"` // browser_extension|mobile|hardware
	Networks []string `json:"networks,omitempty"`
	EVMOnly  bool     `json:"evm_only"`
}

// ExchangeInfo describes a known centralized exchange.
type ExchangeInfo struct {
	CCXTID string `json:"ccxt_id,omitempty"`
	URL    string `json:"url,omitempty"`
}

// VenueRegistry is the lookup table of known wallet products and exchange
// venues. The verification core only needs venue identity; the metadata is
// carried for the outer layers. Immutable after construction.
type VenueRegistry struct {
	wallets   map[string]WalletInfo // lowercase name -> info
	exchanges map[string]ExchangeInfo
	// canonical display names, keyed lowercase
	names map[string]string
}

// NewVenueRegistry builds a registry from the decoded registry file maps.
func NewVenueRegistry(wallets map[string]WalletInfo, exchanges map[string]ExchangeInfo) *VenueRegistry {
	r := &VenueRegistry{
		wallets:   make(map[string]WalletInfo, len(wallets)),
		exchanges: make(map[string]ExchangeInfo, len(exchanges)),
		names:     make(map[string]string, len(wallets)+len(exchanges)),
	}
	for name, info := range wallets {
		key := strings.ToLower(name)
		r.wallets[key] = info
		r.names[key] = name
	}
	for name, info := range exchanges {
		key := strings.ToLower(name)
		r.exchanges[key] = info
		r.names[key] = name
	}
	return r
}

// IsKnownExchange reports whether name identifies a known exchange venue,
// returning the canonical display name on a match. Case-insensitive.
func (r *VenueRegistry) IsKnownExchange(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := r.exchanges[key]; ok {
		return r.names[key], true
	}
	return "", false
}

// Wallet returns the wallet metadata for name, if known. Case-insensitive.
func (r *VenueRegistry) Wallet(name string) (WalletInfo, bool) {
	info, ok := r.wallets[strings.ToLower(strings.TrimSpace(name))]
	return info, ok
}

// IsEVMOnlyWallet reports whether name is a known wallet product that only
// supports EVM networks (e.g. MetaMask). Sending TRON-family funds to such
// a wallet loses them.
func (r *VenueRegistry) IsEVMOnlyWallet(name string) bool {
	info, ok := r.Wallet(name)
	return ok && info.EVMOnly
}

// WalletCount returns the number of known wallet products.
func (r *VenueRegistry) WalletCount() int { return len(r.wallets) }

// ExchangeCount returns the number of known exchange venues.
func (r *VenueRegistry) ExchangeCount() int { return len(r.exchanges) }
