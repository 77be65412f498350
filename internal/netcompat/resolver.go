package netcompat

import (
	"strings"
)

// NetworkSupport is one venue-reported network entry for an asset, as
// supplied by the exchange-connectivity layer. The resolver only normalizes
// and matches; it never fetches.
type NetworkSupport struct {
	Network         string `json:"network"`
	WithdrawEnabled bool   `json:"withdraw_enable"`
	DepositEnabled  bool   `json:"deposit_enable"`
	DisplayName     string `json:"name"`
}

// SupportSnapshot maps a venue identifier (case-insensitive) to the network
// entries the venue reports for the asset under evaluation.
type SupportSnapshot map[string][]NetworkSupport

// Get returns the entries for a venue, case-insensitively.
func (s SupportSnapshot) Get(venue string) ([]NetworkSupport, bool) {
	if s == nil {
		return nil, false
	}
	for name, entries := range s {
		if strings.EqualFold(name, venue) {
			return entries, true
		}
	}
	return nil, false
}

// Decision is the outcome of a network compatibility check.
type Decision string

const (
	// DecisionOK: the venue supports the asset on the declared network.
	DecisionOK Decision = "OK"
	// DecisionUnsupported: the venue lists networks for the asset, and the
	// declared network is not among them.
	DecisionUnsupported Decision = "UNSUPPORTED"
	// DecisionWithdrawDisabled: the network exists but withdrawals are off.
	DecisionWithdrawDisabled Decision = "WITHDRAW_DISABLED"
	// DecisionDepositDisabled: the network exists but deposits are off.
	DecisionDepositDisabled Decision = "DEPOSIT_DISABLED"
	// DecisionUnknown: no support data was supplied for the venue. The
	// pipeline treats this as non-blocking (fail-open by policy).
	DecisionUnknown Decision = "UNKNOWN"
)

// CheckOrigin decides whether the origin venue can withdraw the asset over
// the declared network, given the caller-supplied support snapshot.
func CheckOrigin(venue, asset, declaredNetwork string, support SupportSnapshot) Decision {
	entries, ok := support.Get(venue)
	if !ok {
		return DecisionUnknown
	}

	match := findNetwork(entries, declaredNetwork)
	if match == nil {
		return DecisionUnsupported
	}
	if !match.WithdrawEnabled {
		return DecisionWithdrawDisabled
	}
	return DecisionOK
}

// CheckDestination decides whether the destination venue can receive the
// asset over the declared network (deposit-side semantics).
func CheckDestination(venue, asset, declaredNetwork string, support SupportSnapshot) Decision {
	entries, ok := support.Get(venue)
	if !ok {
		return DecisionUnknown
	}

	match := findNetwork(entries, declaredNetwork)
	if match == nil {
		return DecisionUnsupported
	}
	if !match.DepositEnabled {
		return DecisionDepositDisabled
	}
	return DecisionOK
}

func findNetwork(entries []NetworkSupport, declared string) *NetworkSupport {
	for i := range entries {
		if Same(entries[i].Network, declared) {
			return &entries[i]
		}
	}
	return nil
}
