package trust

import (
	"math"
	"time"

	"github.com/safesentinel/sentinel/internal/security"
)

// ---------------------------------------------------------------------------
// Trust Score — 0-100 composite of market liquidity, asset age and
// contract-verification presence, reduced by any security audit penalty.
// Score = volume (40) + age (30) + contracts (30) - audit impact.
// ---------------------------------------------------------------------------

// Normalization anchors: 10M USD daily volume and 2 years of age max out
// their components.
const (
	volumeWeight   = 40.0
	volumeLogCeil  = 7.0 // log10(10_000_000)
	ageWeight      = 30.0
	ageDaysCeil    = 730.0
	contractWeight = 30.0
)

// MarketSnapshot carries the market signals the score is computed from.
// DateAdded is an ISO-8601 timestamp and may be empty.
type MarketSnapshot struct {
	Volume24h     float64 `json:"volume_24h"`
	DateAdded     string  `json:"date_added,omitempty"`
	ContractCount int     `json:"contract_count"`
}

// Calculator computes trust scores. The clock is injectable for tests.
type Calculator struct {
	now func() time.Time
}

// NewCalculator returns a Calculator using the wall clock.
func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// Compute blends the market snapshot into a score in [0,100], applying the
// audit penalty when a report is supplied. It is a pure function of its
// inputs and the clock: absent or unparsable data contributes zero, and
// Compute never fails.
func (c *Calculator) Compute(market *MarketSnapshot, audit *security.Report) float64 {
	if market == nil {
		market = &MarketSnapshot{}
	}

	raw := c.volumeScore(market.Volume24h) +
		c.ageScore(market.DateAdded) +
		c.contractScore(market.ContractCount)
	raw = math.Round(raw*10) / 10

	if audit != nil {
		return math.Max(0, raw-float64(audit.TrustScoreImpact))
	}
	return raw
}

func (c *Calculator) volumeScore(volume24h float64) float64 {
	if volume24h <= 0 {
		return 0
	}
	return math.Min(volumeWeight, math.Log10(math.Max(1, volume24h))/volumeLogCeil*volumeWeight)
}

func (c *Calculator) ageScore(dateAdded string) float64 {
	if dateAdded == "" {
		return 0
	}
	added, err := time.Parse(time.RFC3339, dateAdded)
	if err != nil {
		// Unparsable timestamps are treated as "age unknown".
		return 0
	}
	ageDays := c.now().Sub(added).Hours() / 24
	if ageDays <= 0 {
		return 0
	}
	return math.Min(ageWeight, math.Floor(ageDays)/ageDaysCeil*ageWeight)
}

func (c *Calculator) contractScore(contractCount int) float64 {
	if contractCount > 0 {
		return contractWeight
	}
	return 0
}
