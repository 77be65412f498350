package gatekeeper

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/chain"
	"github.com/safesentinel/sentinel/internal/netcompat"
	"github.com/safesentinel/sentinel/internal/registry"
	"github.com/safesentinel/sentinel/internal/security"
)

// ---------------------------------------------------------------------------
// Verification Pipeline (the Gatekeeper)
// One ordered list of rules, each returning a blocking Verdict or nil.
// The first hit wins; nothing here raises, fetches, or mutates.
// ---------------------------------------------------------------------------

// SnapshotProvider serves the active registry snapshot. registry.Store
// implements it; tests use a fixed snapshot.
type SnapshotProvider interface {
	Current() *registry.Snapshot
}

// expectedContractLabels are destination labels for which a contract
// destination is not surprising.
var expectedContractLabels = map[string]bool{
	"exchange": true,
	"contract": true,
	"dapp":     true,
}

// Gatekeeper evaluates transfer requests against the safety rule chain.
// It is stateless apart from the shared read-only registries and safe for
// concurrent use.
type Gatekeeper struct {
	registries SnapshotProvider
	rules      []rule
}

// rule is one prioritized safety check. check returns nil to pass.
type rule struct {
	name  string
	check func(req *TransferRequest, snap *registry.Snapshot) *Verdict
}

// New creates a Gatekeeper using the given registry provider.
func New(registries SnapshotProvider) *Gatekeeper {
	g := &Gatekeeper{registries: registries}
	// Priority order is fixed and non-configurable. Reordering is a
	// stakeholder decision, not a code tweak.
	g.rules = []rule{
		{"address_format", g.checkAddressFormat},
		{"security_audit", g.checkSecurityAudit},
		{"scam_token", g.checkScamToken},
		{"burn_address", g.checkBurnAddress},
		{"blacklist", g.checkBlacklist},
		{"contract_awareness", g.checkContractAwareness},
		{"origin_support", g.checkOriginSupport},
		{"network_mismatch", g.checkNetworkMismatch},
		{"destination_deposit", g.checkDestinationDeposit},
	}
	return g
}

// Evaluate runs the rule chain and returns the first blocking verdict, or
// the SAFE verdict when every rule passes. Evaluate is a total function of
// the request and the active registry snapshot.
func (g *Gatekeeper) Evaluate(req *TransferRequest) Verdict {
	snap := g.registries.Current()

	for _, r := range g.rules {
		if v := r.check(req, snap); v != nil {
			log.Info().
				Str("rule", r.name).
				Str("status", string(v.Status)).
				Str("risk", string(v.Risk)).
				Str("asset", req.Asset).
				Str("network", req.Network).
				Msg("gatekeeper: transfer blocked")
			return *v
		}
	}

	log.Debug().
		Str("asset", req.Asset).
		Str("origin", req.OriginVenue).
		Str("network", req.Network).
		Msg("gatekeeper: transfer cleared")

	return Verdict{
		Status:  StatusSafe,
		Risk:    RiskLow,
		Message: "Validation complete: no blocking risk found on this transfer path.",
	}
}

// RuleNames returns the rule chain in priority order.
func (g *Gatekeeper) RuleNames() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.name
	}
	return names
}

// 1. A malformed address makes all downstream venue/contract reasoning
// meaningless, so format runs first.
func (g *Gatekeeper) checkAddressFormat(req *TransferRequest, snap *registry.Snapshot) *Verdict {
	valid, reason := chain.Validate(req.Address, req.Network)
	if valid {
		return nil
	}

	// A well-formed EVM address declared over a Tron network, heading to a
	// wallet that only speaks EVM, is a wallet/network mismatch rather than
	// a typo. Let the mismatch rule name it; that rule is guaranteed to
	// fire for this combination.
	if chain.Classify(req.Network) == chain.FamilyTron && snap.Venues.IsEVMOnlyWallet(req.Destination) {
		if evmOK, _ := chain.Validate(req.Address, "ERC20"); evmOK {
			return nil
		}
	}

	return &Verdict{
		Status:  StatusInvalidAddressFormat,
		Risk:    RiskCritical,
		Message: reason,
	}
}

// 2. Security audit, when the caller supplied a report.
func (g *Gatekeeper) checkSecurityAudit(req *TransferRequest, _ *registry.Snapshot) *Verdict {
	block := security.Interpret(req.SecurityAudit)
	if block == nil {
		return nil
	}

	status := StatusHighRiskContract
	switch block.Code {
	case security.CodeHoneypot:
		status = StatusHoneypotDetected
	case security.CodeBlacklisted:
		status = StatusContractBlacklisted
	}

	risk := RiskHigh
	if block.Severity == security.SeverityCritical {
		risk = RiskCritical
	}

	return &Verdict{Status: status, Risk: risk, Message: block.Message}
}

// 3. Known scam token tickers.
func (g *Gatekeeper) checkScamToken(req *TransferRequest, snap *registry.Snapshot) *Verdict {
	if !snap.Threats.IsScamToken(req.Asset) {
		return nil
	}
	return &Verdict{
		Status:  StatusScamTokenDetected,
		Risk:    RiskCritical,
		Message: fmt.Sprintf("%s is a known scam token: do not transfer or interact with it", strings.ToUpper(req.Asset)),
	}
}

// 4. Burn addresses.
func (g *Gatekeeper) checkBurnAddress(req *TransferRequest, snap *registry.Snapshot) *Verdict {
	if !snap.Threats.IsBurnAddress(req.Address) {
		return nil
	}
	return &Verdict{
		Status:  StatusBurnAddressDetected,
		Risk:    RiskCritical,
		Message: "destination is a burn address: funds sent there are permanently unrecoverable",
	}
}

// 5. Blacklisted destinations. Highest severity tier in the system.
func (g *Gatekeeper) checkBlacklist(req *TransferRequest, snap *registry.Snapshot) *Verdict {
	entry := snap.Threats.FindBlacklistEntry(req.Address)
	if entry == nil {
		return nil
	}
	return &Verdict{
		Status:     StatusBlacklisted,
		Risk:       RiskDefcon1,
		Message:    fmt.Sprintf("SCAM ALERT: %s (%s)", entry.Description, entry.ThreatType),
		ThreatType: entry.ThreatType,
	}
}

// 6. Contract awareness: sending to a contract when the destination label
// does not announce one.
func (g *Gatekeeper) checkContractAwareness(req *TransferRequest, _ *registry.Snapshot) *Verdict {
	if req.OnChain == nil || !req.OnChain.IsContract {
		return nil
	}
	if expectedContractLabels[strings.ToLower(strings.TrimSpace(req.Destination))] {
		return nil
	}
	return &Verdict{
		Status:  StatusUnexpectedContract,
		Risk:    RiskMedium,
		Message: "destination address is a smart contract, not a personal wallet: confirm this is intended",
	}
}

// 7. Origin network support. UNKNOWN is non-blocking: no exchange data was
// supplied, and the policy is fail-open.
func (g *Gatekeeper) checkOriginSupport(req *TransferRequest, _ *registry.Snapshot) *Verdict {
	switch netcompat.CheckOrigin(req.OriginVenue, req.Asset, req.Network, req.NetworkSupport) {
	case netcompat.DecisionUnsupported:
		return &Verdict{
			Status:  StatusUnsupportedOnOrigin,
			Risk:    RiskHigh,
			Message: fmt.Sprintf("%s does not support %s via %s", req.OriginVenue, req.Asset, req.Network),
		}
	case netcompat.DecisionWithdrawDisabled:
		return &Verdict{
			Status:  StatusWithdrawDisabled,
			Risk:    RiskHigh,
			Message: fmt.Sprintf("withdrawals of %s over %s are currently suspended on %s", req.Asset, req.Network, req.OriginVenue),
		}
	default:
		return nil
	}
}

// 8. Known wallet/network mismatch: an EVM-only wallet cannot receive over
// a TRON-family network.
func (g *Gatekeeper) checkNetworkMismatch(req *TransferRequest, snap *registry.Snapshot) *Verdict {
	if !snap.Venues.IsEVMOnlyWallet(req.Destination) {
		return nil
	}
	if chain.Classify(req.Network) != chain.FamilyTron {
		return nil
	}
	return &Verdict{
		Status:  StatusMismatch,
		Risk:    RiskCritical,
		Message: fmt.Sprintf("%s does not support the Tron network (%s): you will lose your funds", req.Destination, req.Network),
	}
}

// 9. Destination exchange deposit support. Only runs when the destination
// is itself a known exchange venue. An UNKNOWN decision (no support data
// supplied for the venue) is skipped per the fail-open policy.
func (g *Gatekeeper) checkDestinationDeposit(req *TransferRequest, snap *registry.Snapshot) *Verdict {
	venue, ok := snap.Venues.IsKnownExchange(req.Destination)
	if !ok {
		return nil
	}

	switch netcompat.CheckDestination(req.Destination, req.Asset, req.Network, req.NetworkSupport) {
	case netcompat.DecisionUnsupported:
		return &Verdict{
			Status:  StatusDepositDisabled,
			Risk:    RiskCritical,
			Message: fmt.Sprintf("%s lists no %s deposits via %s: funds sent over it will not arrive", venue, req.Asset, req.Network),
		}
	case netcompat.DecisionDepositDisabled:
		return &Verdict{
			Status:  StatusDepositDisabled,
			Risk:    RiskCritical,
			Message: fmt.Sprintf("%s deposits of %s over %s are currently disabled", venue, req.Asset, req.Network),
		}
	default:
		return nil
	}
}
