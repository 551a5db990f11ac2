package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/unweightedai/kol-trust-service/internal/config"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		MinLiquiditySOL: 10,
		MinTokenAgeDays: 3,
		MinHolderCount:  100,
		ScamThreshold:   0.7,
		ScamPenalty:     10,
	}
}

func healthyMetrics() TokenMetrics {
	return TokenMetrics{
		Liquidity:   decimal.NewFromInt(500),
		HolderCount: 2500,
		AgeDays:     120,
		Suspicious:  false,
	}
}

func TestRiskScorer_NoFactors(t *testing.T) {
	scorer := NewRiskScorer(testScoringConfig())

	score, factors := scorer.Score(healthyMetrics())

	assert.Equal(t, 0.0, score)
	assert.Equal(t, 0, factors.Count())
}

func TestRiskScorer_IndividualWeights(t *testing.T) {
	scorer := NewRiskScorer(testScoringConfig())

	tests := []struct {
		name   string
		mutate func(*TokenMetrics)
		weight float64
	}{
		{"low liquidity", func(m *TokenMetrics) { m.Liquidity = decimal.NewFromInt(5) }, 0.3},
		{"high concentration", func(m *TokenMetrics) { m.HolderCount = 42 }, 0.3},
		{"suspicious activity", func(m *TokenMetrics) { m.Suspicious = true }, 0.2},
		{"new token", func(m *TokenMetrics) { m.AgeDays = 1 }, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := healthyMetrics()
			tt.mutate(&m)

			score, factors := scorer.Score(m)

			assert.InDelta(t, tt.weight, score, 1e-9)
			assert.Equal(t, 1, factors.Count())
		})
	}
}

func TestRiskScorer_FirstTwoFactorsReachHighRisk(t *testing.T) {
	scorer := NewRiskScorer(testScoringConfig())

	m := healthyMetrics()
	m.Liquidity = decimal.NewFromInt(1)
	m.HolderCount = 10

	score, factors := scorer.Score(m)

	assert.InDelta(t, 0.6, score, 1e-9)
	assert.True(t, factors.LowLiquidity)
	assert.True(t, factors.HighConcentration)
	assert.False(t, factors.SuspiciousActivity)
	assert.False(t, factors.NewToken)
}

func TestRiskScorer_AllFactorsCapAtOne(t *testing.T) {
	scorer := NewRiskScorer(testScoringConfig())

	m := TokenMetrics{
		Liquidity:   decimal.Zero,
		HolderCount: 0,
		AgeDays:     0,
		Suspicious:  true,
	}

	score, factors := scorer.Score(m)

	assert.Equal(t, 1.0, score)
	assert.Equal(t, 4, factors.Count())
}

func TestRiskScorer_MonotonicInFactorCount(t *testing.T) {
	scorer := NewRiskScorer(testScoringConfig())

	steps := []func(*TokenMetrics){
		func(m *TokenMetrics) { m.Liquidity = decimal.NewFromInt(1) },
		func(m *TokenMetrics) { m.HolderCount = 10 },
		func(m *TokenMetrics) { m.Suspicious = true },
		func(m *TokenMetrics) { m.AgeDays = 0 },
	}

	m := healthyMetrics()
	prev, _ := scorer.Score(m)
	for _, step := range steps {
		step(&m)
		score, _ := scorer.Score(m)
		assert.Greater(t, score, prev)
		assert.LessOrEqual(t, score, 1.0)
		prev = score
	}
}

func TestRiskScorer_ThresholdBoundaries(t *testing.T) {
	scorer := NewRiskScorer(testScoringConfig())

	// Exactly at the threshold is not below it.
	m := healthyMetrics()
	m.Liquidity = decimal.NewFromInt(10)
	m.HolderCount = 100
	m.AgeDays = 3

	score, factors := scorer.Score(m)

	assert.Equal(t, 0.0, score)
	assert.Equal(t, 0, factors.Count())
}

func TestRiskScorer_AlternateThresholds(t *testing.T) {
	cfg := testScoringConfig()
	cfg.MinLiquiditySOL = 1000
	scorer := NewRiskScorer(cfg)

	score, factors := scorer.Score(healthyMetrics())

	assert.InDelta(t, 0.3, score, 1e-9)
	assert.True(t, factors.LowLiquidity)
}
