package security

// ---------------------------------------------------------------------------
// Contract security audit report
// Shape follows the GoPlus token_security response after flag parsing.
// The report is supplied by the caller; the core never fetches it.
// ---------------------------------------------------------------------------

// Impact weights per flag. A maxed-out report scores 220 before the pipeline
// caps anything; honeypot alone already blocks.
const (
	impactHoneypot          = 80
	impactBlacklisted       = 40
	impactTakeBackOwnership = 30
	impactHiddenOwner       = 20
	impactSelfDestruct      = 50
)

// Report is a parsed third-party contract security audit.
type Report struct {
	IsHoneypot           bool `json:"is_honeypot"`
	IsBlacklisted        bool `json:"is_blacklisted"`
	IsInDex              bool `json:"is_in_dex"`
	CanTakeBackOwnership bool `json:"can_take_back_ownership"`
	OwnerChangeBalance   bool `json:"owner_change_balance"`
	HiddenOwner          bool `json:"hidden_owner"`
	SelfDestruct         bool `json:"self_destruct"`
	ExternalCall         bool `json:"external_call"`

	// TrustScoreImpact is the derived penalty applied to the trust score.
	// Callers that parse a raw audit fill it via ComputeImpact; a report
	// built elsewhere keeps whatever impact it declares.
	TrustScoreImpact int `json:"trust_score_impact"`
}

// ComputeImpact derives the trust score penalty from the report flags.
func (r *Report) ComputeImpact() int {
	impact := 0
	if r.IsHoneypot {
		impact += impactHoneypot
	}
	if r.IsBlacklisted {
		impact += impactBlacklisted
	}
	if r.CanTakeBackOwnership {
		impact += impactTakeBackOwnership
	}
	if r.HiddenOwner {
		impact += impactHiddenOwner
	}
	if r.SelfDestruct {
		impact += impactSelfDestruct
	}
	return impact
}
