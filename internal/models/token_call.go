package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallStatus is the lifecycle state of a token call.
type CallStatus string

const (
	StatusMonitoring CallStatus = "monitoring"
	StatusResolved   CallStatus = "resolved"
)

// RiskFactors are the boolean red flags evaluated at call time.
type RiskFactors struct {
	LowLiquidity       bool `json:"low_liquidity"`
	HighConcentration  bool `json:"high_concentration"`
	SuspiciousActivity bool `json:"suspicious_activity"`
	NewToken           bool `json:"new_token"`
}

// Count returns the number of active risk factors.
func (f RiskFactors) Count() int {
	n := 0
	for _, active := range []bool{f.LowLiquidity, f.HighConcentration, f.SuspiciousActivity, f.NewToken} {
		if active {
			n++
		}
	}
	return n
}

// TokenCall is one promotion event by a KOL, with on-chain metrics
// captured at call time. Immutable except for the status/performance
// fields, which are set exactly once on resolution.
type TokenCall struct {
	ID                 int                `json:"id"`
	KOLHandle          string             `json:"kol_handle"`
	TokenAddress       string             `json:"token_address"`
	Timestamp          time.Time          `json:"timestamp"`
	InitialPrice       decimal.Decimal    `json:"initial_price"`
	InitialLiquidity   decimal.Decimal    `json:"initial_liquidity"`
	InitialHolderCount int                `json:"initial_holder_count"`
	RiskScore          float64            `json:"risk_score"`
	RiskFactors        RiskFactors        `json:"risk_factors"`
	Status             CallStatus         `json:"status"`
	Performance        *PerformanceRecord `json:"performance,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// PerformanceRecord holds the outcome of a resolved token call.
// Derived data; recomputable from metrics at call time and evaluation time.
type PerformanceRecord struct {
	ROIPercent      float64   `json:"roi_percent"`
	LiquidityChange float64   `json:"liquidity_change_percent"`
	HolderChange    float64   `json:"holder_change_percent"`
	TrustImpact     int       `json:"trust_impact"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}
