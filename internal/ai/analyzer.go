package ai

import (
	"context"

	"github.com/unweightedai/kol-trust-service/internal/chain"
	"github.com/unweightedai/kol-trust-service/internal/social"
)

// RiskLevelUnknown marks a signal the model could not extract.
// Numeric fields use nil pointers for the same purpose; fabricated
// defaults would bias the tier decision downstream.
const RiskLevelUnknown = "unknown"

// ContentAnalysis is the model's read of a KOL's recent posts.
type ContentAnalysis struct {
	Sentiment        *float64 `json:"sentiment"`
	RiskIndicators   []string `json:"risk_indicators"`
	CredibilityScore *float64 `json:"credibility_score"`
}

// TokenPatternAnalysis is the model's read of a token's metrics.
type TokenPatternAnalysis struct {
	RiskLevel      string   `json:"risk_level"`
	WarningFlags   []string `json:"warning_flags"`
	Recommendation string   `json:"recommendation"`
}

// KOLCredibility is the model's read of a KOL's track record.
type KOLCredibility struct {
	CredibilityScore *float64 `json:"credibility_score"`
	RiskFactors      []string `json:"risk_factors"`
	Assessment       string   `json:"overall_assessment"`
}

// CredibilityInput is the structured history handed to the model for
// a KOL credibility evaluation.
type CredibilityInput struct {
	Handle         string
	TotalCalls     int
	SuccessRate    float64
	AccountAgeDays int
	EngagementRate float64
}

// Analyzer defines the language-model analysis operations
type Analyzer interface {
	// AnalyzeContent evaluates post text for sentiment and risk patterns
	AnalyzeContent(ctx context.Context, posts []social.Post) (*ContentAnalysis, error)

	// AnalyzeTokenPattern evaluates token metrics for risk patterns
	AnalyzeTokenPattern(ctx context.Context, token *chain.TokenData) (*TokenPatternAnalysis, error)

	// EvaluateCredibility evaluates a KOL's historical credibility
	EvaluateCredibility(ctx context.Context, input CredibilityInput) (*KOLCredibility, error)
}
