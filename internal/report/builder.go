package report

import (
	"time"

	"github.com/unweightedai/kol-trust-service/internal/ledger"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// Repository is the read surface the builder needs.
type Repository interface {
	GetKOL(handle string) (*models.KOL, error)
	GetRecentCalls(handle string, since time.Time) ([]*models.TokenCall, error)
}

// Builder assembles per-account reports from the ledger and recent
// call history. Pure composition; the scoring decisions are made
// elsewhere.
type Builder struct {
	repo   Repository
	window time.Duration
}

// NewBuilder creates a builder with the given lookback window.
func NewBuilder(repo Repository, windowDays int) *Builder {
	return &Builder{
		repo:   repo,
		window: time.Duration(windowDays) * 24 * time.Hour,
	}
}

// Build produces the report for one account, optionally enriched with
// a credibility assessment when the caller has one.
func (b *Builder) Build(handle string, credibility *models.CredibilityAssessment) (*models.Report, error) {
	kol, err := b.repo.GetKOL(handle)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	recentCalls, err := b.repo.GetRecentCalls(handle, now.Add(-b.window))
	if err != nil {
		return nil, err
	}
	if recentCalls == nil {
		recentCalls = []*models.TokenCall{}
	}

	tier := ledger.Classify(kol.TrustScore)
	return &models.Report{
		Handle:         kol.Handle,
		TrustScore:     kol.TrustScore,
		Tier:           tier,
		SuccessRate:    kol.SuccessRate(),
		Recommendation: string(tier),
		RecentCalls:    recentCalls,
		Credibility:    credibility,
		GeneratedAt:    now,
	}, nil
}
