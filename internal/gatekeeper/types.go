package gatekeeper

import (
	"github.com/safesentinel/sentinel/internal/netcompat"
	"github.com/safesentinel/sentinel/internal/security"
	"github.com/safesentinel/sentinel/internal/trust"
)

// Status is the closed set of verification outcomes.
type Status string

const (
	StatusSafe                 Status = "SAFE"
	StatusInvalidAddressFormat Status = "INVALID_ADDRESS_FORMAT"
	StatusHoneypotDetected     Status = "HONEYPOT_DETECTED"
	StatusContractBlacklisted  Status = "CONTRACT_BLACKLISTED"
	StatusHighRiskContract     Status = "HIGH_RISK_CONTRACT"
	StatusScamTokenDetected    Status = "SCAM_TOKEN_DETECTED"
	StatusBurnAddressDetected  Status = "BURN_ADDRESS_DETECTED"
	StatusBlacklisted          Status = "BLACK-LISTED"
	StatusUnexpectedContract   Status = "UNEXPECTED_CONTRACT"
	StatusUnsupportedOnOrigin  Status = "UNSUPPORTED_ON_ORIGIN"
	StatusWithdrawDisabled     Status = "WITHDRAW_DISABLED"
	StatusMismatch             Status = "MISMATCH"
	StatusDepositDisabled      Status = "DEPOSIT_DISABLED_AT_DESTINATION"
)

// Risk is the severity tier attached to a verdict.
type Risk string

const (
	RiskLow      Risk = "LOW"
	RiskMedium   Risk = "MEDIUM"
	RiskHigh     Risk = "HIGH"
	RiskCritical Risk = "CRITICAL"
	// RiskDefcon1 is reserved for confirmed blacklisted destinations.
	RiskDefcon1 Risk = "CRITICAL_DEFCON_1"
)

// Verdict is the outcome of one evaluation. Produced fresh per call and
// never cached: addresses and market data change under the same request.
type Verdict struct {
	Status     Status `json:"status"`
	Risk       Risk   `json:"risk"`
	Message    string `json:"message"`
	ThreatType string `json:"threat_type,omitempty"`
}

// Blocking reports whether the verdict blocks the transfer.
func (v Verdict) Blocking() bool {
	return v.Status != StatusSafe
}

// OnChainInfo is the optional pre-fetched on-chain classification of the
// destination address.
type OnChainInfo struct {
	IsContract     bool   `json:"is_contract"`
	Classification string `json:"type,omitempty"` // e.g. "Smart Contract", "Personal Wallet (EOA)"
}

// TransferRequest describes a proposed transfer plus whatever external
// signals the caller already fetched. Nil optional fields mean "signal
// absent" and skip the corresponding check. Immutable once constructed.
type TransferRequest struct {
	Asset       string `json:"asset"`
	OriginVenue string `json:"origin"`
	Destination string `json:"destination"`
	Network     string `json:"network"`
	Address     string `json:"address"`

	OnChain        *OnChainInfo             `json:"on_chain,omitempty"`
	SecurityAudit  *security.Report         `json:"security_audit,omitempty"`
	Market         *trust.MarketSnapshot    `json:"market,omitempty"`
	NetworkSupport netcompat.SupportSnapshot `json:"-"`
}
