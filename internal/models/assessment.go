package models

import "time"

// Account status labels produced by the credibility aggregator. These
// are independent of the ledger tier and are reported alongside it.
const (
	AccountCredible   = "Credible"
	AccountSuspicious = "Suspicious"
	AccountUnknown    = "unknown"
)

// CredibilityAssessment is an ephemeral composite snapshot combining
// ledger state with externally supplied behavioral/content signals.
// The ledger remains authoritative; this is never persisted.
type CredibilityAssessment struct {
	Handle     string `json:"handle"`
	TrustScore int    `json:"trust_score"`
	LedgerTier Tier   `json:"ledger_tier"`

	SuccessRate    float64 `json:"success_rate"`
	AccountAgeDays int     `json:"account_age_days"`
	EngagementRate float64 `json:"engagement_rate"`

	// AI-derived signals; nil score means the collaborator could not
	// produce one, in which case AccountStatus is "unknown".
	CredibilityScore *float64 `json:"credibility_score,omitempty"`
	AccountStatus    string   `json:"account_status"`
	Sentiment        *float64 `json:"sentiment,omitempty"`
	RiskLevel        string   `json:"risk_level"`
	WarningFlags     int      `json:"warning_flags"`
	RiskIndicators   []string `json:"risk_indicators,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Report is the stable per-account structure served by the report
// endpoint and the scheduled digests.
type Report struct {
	Handle         string                 `json:"handle"`
	TrustScore     int                    `json:"trust_score"`
	Tier           Tier                   `json:"tier"`
	SuccessRate    float64                `json:"success_rate"`
	Recommendation string                 `json:"recommendation"`
	RecentCalls    []*TokenCall           `json:"recent_calls"`
	Credibility    *CredibilityAssessment `json:"credibility,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
}
