package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// Fixed factor weights for the additive risk heuristic. Four active
// factors sum to exactly 1.0.
const (
	WeightLowLiquidity       = 0.3
	WeightHighConcentration  = 0.3
	WeightSuspiciousActivity = 0.2
	WeightNewToken           = 0.2
)

// TokenMetrics is the complete on-chain metrics tuple required to
// score a token. The scorer has no partial-data mode; callers decide
// whether to abstain when metrics are unavailable.
type TokenMetrics struct {
	Liquidity   decimal.Decimal
	HolderCount int
	AgeDays     int
	Suspicious  bool
}

// RiskScorer maps token metrics to a bounded risk score.
type RiskScorer struct {
	cfg config.ScoringConfig
}

// NewRiskScorer creates a scorer with the given thresholds.
func NewRiskScorer(cfg config.ScoringConfig) *RiskScorer {
	return &RiskScorer{cfg: cfg}
}

// Score evaluates the four risk factors against their thresholds and
// returns an additive, saturating score in [0,1] plus the factor map.
// Pure function; no side effects.
func (s *RiskScorer) Score(m TokenMetrics) (float64, models.RiskFactors) {
	factors := models.RiskFactors{
		LowLiquidity:       m.Liquidity.LessThan(decimal.NewFromFloat(s.cfg.MinLiquiditySOL)),
		HighConcentration:  m.HolderCount < s.cfg.MinHolderCount,
		SuspiciousActivity: m.Suspicious,
		NewToken:           m.AgeDays < s.cfg.MinTokenAgeDays,
	}

	score := 0.0
	if factors.LowLiquidity {
		score += WeightLowLiquidity
	}
	if factors.HighConcentration {
		score += WeightHighConcentration
	}
	if factors.SuspiciousActivity {
		score += WeightSuspiciousActivity
	}
	if factors.NewToken {
		score += WeightNewToken
	}
	if score > 1.0 {
		score = 1.0
	}

	return score, factors
}
