package security

// highImpactThreshold blocks a transfer when the audit penalty exceeds it,
// even if no single flag is individually fatal.
const highImpactThreshold = 50

// Severity of a blocking audit finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
)

// Finding codes.
const (
	CodeHoneypot         = "HONEYPOT_DETECTED"
	CodeBlacklisted      = "CONTRACT_BLACKLISTED"
	CodeHighRiskContract = "HIGH_RISK_CONTRACT"
)

// Block is a blocking finding derived from an audit report.
type Block struct {
	Code     string
	Severity Severity
	Message  string
}

// Interpret maps an audit report to a blocking finding, or nil when the
// report does not justify blocking. Check order is fixed: honeypot, then
// blacklist, then aggregate impact.
func Interpret(r *Report) *Block {
	if r == nil {
		return nil
	}
	if r.IsHoneypot {
		return &Block{
			Code:     CodeHoneypot,
			Severity: SeverityCritical,
			Message:  "token contract is a honeypot: you can buy, but cannot sell",
		}
	}
	if r.IsBlacklisted {
		return &Block{
			Code:     CodeBlacklisted,
			Severity: SeverityCritical,
			Message:  "token contract is flagged as blacklisted by the security audit",
		}
	}
	if r.TrustScoreImpact > highImpactThreshold {
		return &Block{
			Code:     CodeHighRiskContract,
			Severity: SeverityHigh,
			Message:  "high-risk contract functions present",
		}
	}
	return nil
}
