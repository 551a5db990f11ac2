package tracker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/unweightedai/kol-trust-service/internal/ai"
	"github.com/unweightedai/kol-trust-service/internal/chain"
	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/credibility"
	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/ledger"
	"github.com/unweightedai/kol-trust-service/internal/metrics"
	"github.com/unweightedai/kol-trust-service/internal/models"
	"github.com/unweightedai/kol-trust-service/internal/report"
	"github.com/unweightedai/kol-trust-service/internal/scoring"
	"github.com/unweightedai/kol-trust-service/internal/social"
)

const (
	tokenCacheTTL  = 5 * time.Minute
	reportCacheTTL = 15 * time.Minute

	scanPostLimit    = 50
	scanLookbackDays = 2
)

// Repository defines the persistence operations the tracker needs
type Repository interface {
	CreateKOL(k *models.KOL) error
	GetKOL(handle string) (*models.KOL, error)
	GetAllKOLs() ([]*models.KOL, error)
	DeleteKOL(handle string) error
	IncrementCallCounters(handle string, total, successful, scam int) error

	CreateTokenCall(call *models.TokenCall) error
	GetRecentCalls(handle string, since time.Time) ([]*models.TokenCall, error)
	GetMonitoringCallsBefore(cutoff time.Time) ([]*models.TokenCall, error)
	CallExists(handle, tokenAddress string) (bool, error)
	ResolveCall(id int, perf *models.PerformanceRecord) error
}

// Cache holds token snapshots and built reports. Optional; a nil cache
// means every lookup goes to the collaborators.
type Cache interface {
	GetTokenData(ctx context.Context, address string) (*chain.TokenData, error)
	SetTokenData(ctx context.Context, data *chain.TokenData, ttl time.Duration) error
	GetReport(ctx context.Context, handle string) (*models.Report, error)
	SetReport(ctx context.Context, report *models.Report, ttl time.Duration) error
	InvalidateReport(ctx context.Context, handle string) error
}

// EventPublisher emits trust events for downstream consumers. Optional.
type EventPublisher interface {
	PublishScamAlert(ctx context.Context, call *models.TokenCall) error
	PublishTrustAdjusted(ctx context.Context, handle string, delta, newScore int, reason string) error
}

// Deps are the tracker's collaborators. Cache and Events may be nil.
type Deps struct {
	Repo     Repository
	Trust    *ledger.Ledger
	Scorer   *scoring.RiskScorer
	Perf     *scoring.PerformanceCalculator
	Chain    chain.Client
	Social   social.Client
	Analyzer ai.Analyzer
	Assessor *credibility.Aggregator
	Reports  *report.Builder
	Cache    Cache
	Events   EventPublisher
}

// Tracker orchestrates call recording, performance evaluation and
// report assembly. All trust-score mutations go through the ledger;
// external lookups happen before any ledger call so no account lock is
// held across I/O.
type Tracker struct {
	cfg      config.ScoringConfig
	repo     Repository
	trust    *ledger.Ledger
	scorer   *scoring.RiskScorer
	perf     *scoring.PerformanceCalculator
	chain    chain.Client
	social   social.Client
	analyzer ai.Analyzer
	assessor *credibility.Aggregator
	reports  *report.Builder
	cache    Cache
	events   EventPublisher
}

// New creates a tracker
func New(cfg config.ScoringConfig, d Deps) *Tracker {
	return &Tracker{
		cfg:      cfg,
		repo:     d.Repo,
		trust:    d.Trust,
		scorer:   d.Scorer,
		perf:     d.Perf,
		chain:    d.Chain,
		social:   d.Social,
		analyzer: d.Analyzer,
		assessor: d.Assessor,
		reports:  d.Reports,
		cache:    d.Cache,
		events:   d.Events,
	}
}

// Track starts monitoring a new account at the initial trust score.
// Re-tracking an existing handle is a state error.
func (t *Tracker) Track(handle string) (*models.KOL, error) {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, &errs.ValidationError{Field: "handle", Reason: "must not be empty"}
	}

	kol := &models.KOL{Handle: handle, TrustScore: ledger.MaxScore}
	if err := t.repo.CreateKOL(kol); err != nil {
		return nil, err
	}

	log.Printf("Now tracking %s (trust score %d)", kol.Handle, kol.TrustScore)
	return kol, nil
}

// Untrack stops monitoring an account and drops its call history.
func (t *Tracker) Untrack(ctx context.Context, handle string) error {
	handle = NormalizeHandle(handle)
	if err := t.repo.DeleteKOL(handle); err != nil {
		return err
	}
	if t.cache != nil {
		if err := t.cache.InvalidateReport(ctx, handle); err != nil {
			log.Printf("Failed to invalidate cached report for %s: %v", handle, err)
		}
	}
	return nil
}

// RecordCall registers one (account, token) recommendation: fetches the
// token's on-chain metrics, scores it, persists the call in monitoring
// state and applies the immediate scam penalty when the risk score
// crosses the threshold. A token the chain has never seen aborts the
// recording; no call row is written and no counter moves.
func (t *Tracker) RecordCall(ctx context.Context, handle, tokenAddress string) (*models.TokenCall, error) {
	handle = NormalizeHandle(handle)
	if err := chain.ValidateAddress(tokenAddress); err != nil {
		return nil, err
	}

	kol, err := t.repo.GetKOL(handle)
	if err != nil {
		return nil, err
	}

	exists, err := t.repo.CallExists(handle, tokenAddress)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &errs.StateError{
			Op:     "record call",
			Reason: fmt.Sprintf("%s already has a monitored call for %s", handle, tokenAddress),
		}
	}

	data, err := t.tokenData(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}

	riskScore, factors := t.scorer.Score(scoring.TokenMetrics{
		Liquidity:   data.Liquidity,
		HolderCount: data.HolderCount,
		AgeDays:     data.AgeDays,
		Suspicious:  data.Suspicious,
	})

	call := &models.TokenCall{
		KOLHandle:          handle,
		TokenAddress:       tokenAddress,
		Timestamp:          time.Now(),
		InitialPrice:       data.Price,
		InitialLiquidity:   data.Liquidity,
		InitialHolderCount: data.HolderCount,
		RiskScore:          riskScore,
		RiskFactors:        factors,
		Status:             models.StatusMonitoring,
	}
	if err := t.repo.CreateTokenCall(call); err != nil {
		return nil, err
	}
	metrics.CallsRecorded.Inc()

	scam := 0
	if riskScore > t.cfg.ScamThreshold {
		scam = 1
	}
	if err := t.repo.IncrementCallCounters(handle, 1, 0, scam); err != nil {
		return nil, err
	}

	if scam == 1 {
		t.applyScamPenalty(ctx, kol.Handle, call)
	}

	log.Printf("Recorded call by %s on %s (risk %.2f, %d factors)",
		handle, tokenAddress, riskScore, factors.Count())
	return call, nil
}

// EvaluateCall re-measures a monitored call's token and converts the
// movement into a trust adjustment. A call that has already been
// resolved is rejected; the database guard makes concurrent double
// resolution lose cleanly.
func (t *Tracker) EvaluateCall(ctx context.Context, call *models.TokenCall) (*models.PerformanceRecord, error) {
	if call.Status == models.StatusResolved {
		return nil, &errs.StateError{
			Op:     "evaluate call",
			Reason: fmt.Sprintf("call %d is already resolved", call.ID),
		}
	}

	data, err := t.tokenData(ctx, call.TokenAddress)
	if err != nil {
		return nil, err
	}

	record := t.perf.Evaluate(call, scoring.TokenSnapshot{
		Price:       data.Price,
		Liquidity:   data.Liquidity,
		HolderCount: data.HolderCount,
	}, time.Now())

	if err := t.repo.ResolveCall(call.ID, record); err != nil {
		return nil, err
	}
	call.Status = models.StatusResolved
	call.Performance = record

	if record.ROIPercent > 0 {
		if err := t.repo.IncrementCallCounters(call.KOLHandle, 0, 1, 0); err != nil {
			log.Printf("Failed to count successful call for %s: %v", call.KOLHandle, err)
		}
	}

	if record.TrustImpact != 0 {
		t.adjustTrust(ctx, call.KOLHandle, record.TrustImpact, "performance")
	} else if t.cache != nil {
		// Counters moved even without a score change.
		if err := t.cache.InvalidateReport(ctx, call.KOLHandle); err != nil {
			log.Printf("Failed to invalidate cached report for %s: %v", call.KOLHandle, err)
		}
	}

	log.Printf("Resolved call %d for %s: ROI %.1f%%, liquidity %.1f%%, trust impact %+d",
		call.ID, call.KOLHandle, record.ROIPercent, record.LiquidityChange, record.TrustImpact)
	return record, nil
}

// AnalyzeKOL assembles the full report for an account: ledger state,
// recent calls and the behavioral credibility assessment. Each external
// signal that fails is logged and surfaced as unknown rather than
// sinking the whole report.
func (t *Tracker) AnalyzeKOL(ctx context.Context, handle string) (*models.Report, error) {
	handle = NormalizeHandle(handle)

	if t.cache != nil {
		if cached, err := t.cache.GetReport(ctx, handle); err == nil {
			return cached, nil
		}
	}

	kol, err := t.repo.GetKOL(handle)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sig := t.collectSignals(ctx, kol, now)
	assessment := t.assessor.Assess(kol, sig, now)

	rep, err := t.reports.Build(handle, assessment)
	if err != nil {
		return nil, err
	}
	metrics.ReportsBuilt.Inc()

	if t.cache != nil {
		if err := t.cache.SetReport(ctx, rep, reportCacheTTL); err != nil {
			log.Printf("Failed to cache report for %s: %v", handle, err)
		}
	}
	return rep, nil
}

// ScanWatchlist walks every tracked account, pulls its recent posts and
// records any token calls found in them. One account failing does not
// stop the pass.
func (t *Tracker) ScanWatchlist(ctx context.Context) (int, error) {
	kols, err := t.repo.GetAllKOLs()
	if err != nil {
		return 0, fmt.Errorf("failed to load watchlist: %w", err)
	}

	recorded := 0
	for _, kol := range kols {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}

		posts, err := t.social.GetUserPosts(ctx, kol.Handle, scanPostLimit, scanLookbackDays)
		if err != nil {
			log.Printf("Failed to fetch posts for %s, skipping: %v", kol.Handle, err)
			metrics.ExternalServiceErrors.WithLabelValues("twitter").Inc()
			continue
		}

		for _, post := range posts {
			for _, address := range social.ExtractTokenAddresses(post.Text) {
				_, err := t.RecordCall(ctx, kol.Handle, address)
				switch {
				case err == nil:
					recorded++
				case errs.IsState(err):
					// Already monitoring this pair.
				default:
					log.Printf("Failed to record call by %s on %s: %v", kol.Handle, address, err)
				}
			}
		}
	}
	return recorded, nil
}

// EvaluatePending resolves every monitored call old enough to measure.
func (t *Tracker) EvaluatePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-time.Duration(t.cfg.MonitorMinAgeHours) * time.Hour)
	calls, err := t.repo.GetMonitoringCallsBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending calls: %w", err)
	}

	resolved := 0
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		if _, err := t.EvaluateCall(ctx, call); err != nil {
			if errs.IsState(err) {
				continue
			}
			log.Printf("Failed to evaluate call %d (%s on %s): %v",
				call.ID, call.KOLHandle, call.TokenAddress, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// collectSignals gathers the social and model signals for one account.
// Failures become nil signals and a gate failure string, never errors.
func (t *Tracker) collectSignals(ctx context.Context, kol *models.KOL, now time.Time) credibility.Signals {
	var sig credibility.Signals

	account, err := t.social.GetAccountMetrics(ctx, kol.Handle)
	if err != nil {
		log.Printf("Account metrics unavailable for %s: %v", kol.Handle, err)
		metrics.ExternalServiceErrors.WithLabelValues("twitter").Inc()
		account = nil
	}
	if account != nil {
		sig.AccountAgeDays = account.AgeDays(now)
	}
	sig.GateFailure = credibility.AccountGate(account, t.cfg, now)

	posts, err := t.social.GetUserPosts(ctx, kol.Handle, scanPostLimit, t.cfg.ReportWindowDays)
	if err != nil {
		log.Printf("Posts unavailable for %s: %v", kol.Handle, err)
		metrics.ExternalServiceErrors.WithLabelValues("twitter").Inc()
		posts = nil
	}
	sig.EngagementRate = social.AverageEngagement(posts)

	if len(posts) > 0 {
		content, err := t.analyzer.AnalyzeContent(ctx, posts)
		if err != nil {
			log.Printf("Content analysis failed for %s: %v", kol.Handle, err)
			metrics.ExternalServiceErrors.WithLabelValues("openai").Inc()
		} else {
			sig.Content = content
		}
	}

	if token := t.latestCallToken(ctx, kol.Handle, now); token != nil {
		pattern, err := t.analyzer.AnalyzeTokenPattern(ctx, token)
		if err != nil {
			log.Printf("Token pattern analysis failed for %s: %v", kol.Handle, err)
			metrics.ExternalServiceErrors.WithLabelValues("openai").Inc()
		} else {
			sig.TokenPattern = pattern
		}
	}

	kolCred, err := t.analyzer.EvaluateCredibility(ctx, ai.CredibilityInput{
		Handle:         kol.Handle,
		TotalCalls:     kol.TotalCalls,
		SuccessRate:    kol.SuccessRate(),
		AccountAgeDays: sig.AccountAgeDays,
		EngagementRate: sig.EngagementRate,
	})
	if err != nil {
		log.Printf("Credibility evaluation failed for %s: %v", kol.Handle, err)
		metrics.ExternalServiceErrors.WithLabelValues("openai").Inc()
	} else {
		sig.KOL = kolCred
	}

	return sig
}

// latestCallToken fetches the metrics of the account's most recent
// called token, nil when there is no recent call or the fetch fails.
func (t *Tracker) latestCallToken(ctx context.Context, handle string, now time.Time) *chain.TokenData {
	since := now.AddDate(0, 0, -t.cfg.ReportWindowDays)
	calls, err := t.repo.GetRecentCalls(handle, since)
	if err != nil || len(calls) == 0 {
		return nil
	}

	data, err := t.tokenData(ctx, calls[0].TokenAddress)
	if err != nil {
		log.Printf("Token lookup failed for %s: %v", calls[0].TokenAddress, err)
		return nil
	}
	return data
}

func (t *Tracker) applyScamPenalty(ctx context.Context, handle string, call *models.TokenCall) {
	metrics.ScamPenalties.Inc()
	t.adjustTrust(ctx, handle, -t.cfg.ScamPenalty, "scam threshold")

	if t.events != nil {
		if err := t.events.PublishScamAlert(ctx, call); err != nil {
			log.Printf("Failed to publish scam alert for %s: %v", handle, err)
		}
	}
}

func (t *Tracker) adjustTrust(ctx context.Context, handle string, delta int, reason string) {
	newScore, err := t.trust.Adjust(handle, delta)
	if err != nil {
		log.Printf("Failed to adjust trust for %s by %+d: %v", handle, delta, err)
		return
	}
	metrics.TrustAdjustments.WithLabelValues(reason).Inc()
	log.Printf("Trust for %s %+d (%s), now %d", handle, delta, reason, newScore)

	if t.events != nil {
		if err := t.events.PublishTrustAdjusted(ctx, handle, delta, newScore, reason); err != nil {
			log.Printf("Failed to publish trust adjustment for %s: %v", handle, err)
		}
	}
	if t.cache != nil {
		if err := t.cache.InvalidateReport(ctx, handle); err != nil {
			log.Printf("Failed to invalidate cached report for %s: %v", handle, err)
		}
	}
}

// NormalizeHandle lowercases a handle and strips a leading @.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(handle)), "@")
}

func (t *Tracker) tokenData(ctx context.Context, address string) (*chain.TokenData, error) {
	if t.cache != nil {
		if data, err := t.cache.GetTokenData(ctx, address); err == nil {
			return data, nil
		}
	}

	data, err := t.chain.GetTokenData(ctx, address)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		if err := t.cache.SetTokenData(ctx, data, tokenCacheTTL); err != nil {
			log.Printf("Failed to cache token data for %s: %v", address, err)
		}
	}
	return data, nil
}
