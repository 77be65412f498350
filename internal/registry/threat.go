package registry

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Threat Registry — burn addresses, scam token symbols, address blacklist
// Static lookup sets, loaded once at startup. Read-only after construction;
// hot reload swaps the whole snapshot, never mutates in place.
// ---------------------------------------------------------------------------

// burnAddresses are canonical null/dead destinations with no known private
// key. Funds sent here are unrecoverable. Keys are lowercase.
var burnAddresses = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0x000000000000000000000000000000000000dead": true,
	// TRON black hole.
	strings.ToLower("T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb"): true,
	// Solana incinerator.
	strings.ToLower("1nc1nerator11111111111111111111111111111111"): true,
}

// scamTokenSymbols are token tickers distributed in known airdrop scams.
// Keys are uppercase.
var scamTokenSymbols = map[string]bool{
	"ZEPE":  true,
	"BNBW":  true,
	"MNE":   true,
	"SHIB2": true,
}

// BlacklistEntry is one known-malicious address with context.
type BlacklistEntry struct {
	Address     string `json:"address"`
	Description string `json:"description"`
	ThreatType  string `json:"threat_type"`
}

// ThreatRegistry holds the three static threat lookup sets.
// All lookups are case-insensitive. A ThreatRegistry is immutable after
// construction and safe for concurrent readers without locking.
type ThreatRegistry struct {
	burn      map[string]bool
	scam      map[string]bool
	blacklist []BlacklistEntry
}

// NewThreatRegistry builds a registry from the loaded blacklist entries,
// combined with the built-in burn and scam sets.
func NewThreatRegistry(blacklist []BlacklistEntry) *ThreatRegistry {
	entries := make([]BlacklistEntry, len(blacklist))
	copy(entries, blacklist)
	return &ThreatRegistry{
		burn:      burnAddresses,
		scam:      scamTokenSymbols,
		blacklist: entries,
	}
}

// IsBurnAddress reports whether addr is a canonical burn destination.
func (r *ThreatRegistry) IsBurnAddress(addr string) bool {
	return r.burn[strings.ToLower(strings.TrimSpace(addr))]
}

// IsScamToken reports whether the asset symbol is a known scam ticker.
func (r *ThreatRegistry) IsScamToken(symbol string) bool {
	return r.scam[strings.ToUpper(strings.TrimSpace(symbol))]
}

// FindBlacklistEntry returns the blacklist entry for addr, if any.
// The list is expected to stay small, so a linear scan is fine; index by
// lowercase address if it ever grows.
func (r *ThreatRegistry) FindBlacklistEntry(addr string) *BlacklistEntry {
	needle := strings.ToLower(strings.TrimSpace(addr))
	for i := range r.blacklist {
		if strings.ToLower(r.blacklist[i].Address) == needle {
			return &r.blacklist[i]
		}
	}
	return nil
}

// BlacklistSize returns the number of loaded blacklist entries.
func (r *ThreatRegistry) BlacklistSize() int {
	return len(r.blacklist)
}
