package models

import "time"

// Tier is the ledger's trust classification for a tracked account.
type Tier string

const (
	TierTrusted   Tier = "Trusted"
	TierCaution   Tier = "Caution"
	TierUntrusted Tier = "Untrusted"
)

// KOL represents a tracked social-media account that promotes tokens.
// The trust score is owned by the ledger and only changes through
// signed-delta adjustments.
type KOL struct {
	ID              int       `json:"id"`
	Handle          string    `json:"handle"`
	TrustScore      int       `json:"trust_score"`
	TotalCalls      int       `json:"total_calls"`
	SuccessfulCalls int       `json:"successful_calls"`
	ScamCalls       int       `json:"scam_calls"`
	DateAdded       time.Time `json:"date_added"`
	LastUpdated     time.Time `json:"last_updated"`
}

// SuccessRate returns successful/total calls, 0 when there are no calls.
func (k *KOL) SuccessRate() float64 {
	if k.TotalCalls == 0 {
		return 0
	}
	return float64(k.SuccessfulCalls) / float64(k.TotalCalls)
}
