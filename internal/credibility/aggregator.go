package credibility

import (
	"fmt"
	"time"

	"github.com/unweightedai/kol-trust-service/internal/ai"
	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/ledger"
	"github.com/unweightedai/kol-trust-service/internal/models"
	"github.com/unweightedai/kol-trust-service/internal/social"
)

// Signals are the externally supplied analysis results for one
// account. A nil pointer means that collaborator failed or returned
// nothing; the aggregator surfaces the gap instead of defaulting it.
type Signals struct {
	Content        *ai.ContentAnalysis
	TokenPattern   *ai.TokenPatternAnalysis
	KOL            *ai.KOLCredibility
	AccountAgeDays int
	EngagementRate float64
	GateFailure    string
}

// Aggregator combines ledger state with external credibility signals.
type Aggregator struct {
	threshold float64
}

// NewAggregator creates an aggregator with the configured credibility
// threshold.
func NewAggregator(cfg config.ScoringConfig) *Aggregator {
	return &Aggregator{threshold: cfg.MinCredibilityScore}
}

// Assess produces a composite assessment for a KOL. The ledger tier
// and the credibility status measure different things (historical call
// performance vs. current behavioral signals) and are reported side by
// side, never merged.
func (a *Aggregator) Assess(kol *models.KOL, sig Signals, now time.Time) *models.CredibilityAssessment {
	assessment := &models.CredibilityAssessment{
		Handle:         kol.Handle,
		TrustScore:     kol.TrustScore,
		LedgerTier:     ledger.Classify(kol.TrustScore),
		SuccessRate:    kol.SuccessRate(),
		AccountAgeDays: sig.AccountAgeDays,
		EngagementRate: sig.EngagementRate,
		AccountStatus:  models.AccountUnknown,
		RiskLevel:      ai.RiskLevelUnknown,
		GeneratedAt:    now,
	}

	if sig.KOL != nil && sig.KOL.CredibilityScore != nil {
		score := *sig.KOL.CredibilityScore
		assessment.CredibilityScore = &score
		if score > a.threshold {
			assessment.AccountStatus = models.AccountCredible
		} else {
			assessment.AccountStatus = models.AccountSuspicious
		}
	}

	if sig.TokenPattern != nil {
		assessment.RiskLevel = sig.TokenPattern.RiskLevel
		assessment.WarningFlags = len(sig.TokenPattern.WarningFlags)
	}

	if sig.Content != nil {
		assessment.Sentiment = sig.Content.Sentiment
		assessment.RiskIndicators = append(assessment.RiskIndicators, sig.Content.RiskIndicators...)
	}

	if sig.GateFailure != "" {
		assessment.RiskIndicators = append(assessment.RiskIndicators, sig.GateFailure)
	}

	return assessment
}

// AccountGate applies the platform-level credibility gates to account
// metrics: minimum age, minimum followers, and follower/following
// ratio. Returns an empty string when all gates pass, a reason
// otherwise. Missing metrics fail the gate rather than passing it.
func AccountGate(metrics *social.AccountMetrics, cfg config.ScoringConfig, now time.Time) string {
	if metrics == nil {
		return "account metrics unavailable"
	}
	if metrics.AgeDays(now) < cfg.MinAccountAgeDays {
		return "account too new"
	}
	if metrics.Followers < cfg.MinFollowers {
		return "too few followers"
	}
	if float64(metrics.Followers) < float64(metrics.Following)*0.1 {
		return fmt.Sprintf("suspicious follower ratio (%d/%d)", metrics.Followers, metrics.Following)
	}
	return ""
}
