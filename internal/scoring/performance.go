package scoring

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/unweightedai/kol-trust-service/internal/models"
)

// TokenSnapshot is a re-measured view of a token at evaluation time.
type TokenSnapshot struct {
	Price       decimal.Decimal
	Liquidity   decimal.Decimal
	HolderCount int
}

// PerformanceCalculator converts a call's subsequent price, liquidity
// and holder movement into a signed trust-score delta.
type PerformanceCalculator struct{}

// NewPerformanceCalculator creates a calculator.
func NewPerformanceCalculator() *PerformanceCalculator {
	return &PerformanceCalculator{}
}

// Evaluate computes the performance record for a call given its
// current snapshot. Pure function of the two measurement points.
func (c *PerformanceCalculator) Evaluate(call *models.TokenCall, current TokenSnapshot, now time.Time) *models.PerformanceRecord {
	roi := percentChange(call.InitialPrice, current.Price)
	liquidityChange := percentChange(call.InitialLiquidity, current.Liquidity)
	holderChange := percentChange(
		decimal.NewFromInt(int64(call.InitialHolderCount)),
		decimal.NewFromInt(int64(current.HolderCount)),
	)

	return &models.PerformanceRecord{
		ROIPercent:      roi,
		LiquidityChange: liquidityChange,
		HolderChange:    holderChange,
		TrustImpact:     trustImpact(roi, liquidityChange),
		EvaluatedAt:     now,
	}
}

// percentChange returns the percentage delta between two values,
// 0 when the initial value is 0 (guarded division).
func percentChange(initial, current decimal.Decimal) float64 {
	if initial.IsZero() {
		return 0
	}
	return current.Sub(initial).Div(initial).InexactFloat64() * 100
}

// trustImpact is a tiered additive function of ROI and liquidity
// change. The ROI band and the liquidity penalty are independent and
// can both apply in the same evaluation.
func trustImpact(roi, liquidityChange float64) int {
	impact := 0

	switch {
	case roi > 50:
		impact += 5
	case roi > 20:
		impact += 3
	case roi > 0:
		impact += 1
	case roi < -50:
		impact -= 5
	case roi < -20:
		impact -= 3
	}

	if liquidityChange < -50 {
		impact -= 5
	}

	return impact
}
