package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unweightedai/kol-trust-service/internal/ai"
	"github.com/unweightedai/kol-trust-service/internal/chain"
	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/credibility"
	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/ledger"
	"github.com/unweightedai/kol-trust-service/internal/models"
	"github.com/unweightedai/kol-trust-service/internal/report"
	"github.com/unweightedai/kol-trust-service/internal/scoring"
	"github.com/unweightedai/kol-trust-service/internal/social"
)

const (
	goodToken = "So11111111111111111111111111111111111111112"
	riskToken = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockRepo struct {
	mu     sync.Mutex
	kols   map[string]*models.KOL
	calls  []*models.TokenCall
	nextID int
}

func newMockRepo() *mockRepo {
	return &mockRepo{kols: make(map[string]*models.KOL)}
}

func (m *mockRepo) CreateKOL(k *models.KOL) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kols[k.Handle]; ok {
		return &errs.StateError{Op: "track kol", Reason: "already tracked"}
	}
	m.nextID++
	k.ID = m.nextID
	cp := *k
	m.kols[k.Handle] = &cp
	return nil
}

func (m *mockRepo) GetKOL(handle string) (*models.KOL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kol, ok := m.kols[handle]
	if !ok {
		return nil, &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	cp := *kol
	return &cp, nil
}

func (m *mockRepo) GetAllKOLs() ([]*models.KOL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.KOL, 0, len(m.kols))
	for _, kol := range m.kols {
		cp := *kol
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) DeleteKOL(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kols[handle]; !ok {
		return &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	delete(m.kols, handle)
	return nil
}

func (m *mockRepo) UpdateTrustScore(handle string, score int, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kol, ok := m.kols[handle]
	if !ok {
		return &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	kol.TrustScore = score
	return nil
}

func (m *mockRepo) IncrementCallCounters(handle string, total, successful, scam int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kol, ok := m.kols[handle]
	if !ok {
		return &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	kol.TotalCalls += total
	kol.SuccessfulCalls += successful
	kol.ScamCalls += scam
	return nil
}

func (m *mockRepo) CreateTokenCall(call *models.TokenCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	call.ID = m.nextID
	cp := *call
	m.calls = append(m.calls, &cp)
	return nil
}

func (m *mockRepo) GetRecentCalls(handle string, since time.Time) ([]*models.TokenCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TokenCall
	for i := len(m.calls) - 1; i >= 0; i-- {
		c := m.calls[i]
		if c.KOLHandle == handle && c.Timestamp.After(since) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) GetMonitoringCallsBefore(cutoff time.Time) ([]*models.TokenCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TokenCall
	for _, c := range m.calls {
		if c.Status == models.StatusMonitoring && c.Timestamp.Before(cutoff) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) CallExists(handle, tokenAddress string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.KOLHandle == handle && c.TokenAddress == tokenAddress {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ResolveCall(id int, perf *models.PerformanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.ID != id {
			continue
		}
		if c.Status == models.StatusResolved {
			return &errs.StateError{Op: "resolve call", Reason: "already resolved"}
		}
		c.Status = models.StatusResolved
		c.Performance = perf
		return nil
	}
	return &errs.NotFoundError{Kind: "token call", ID: "?"}
}

func (m *mockRepo) trustScore(t *testing.T, handle string) int {
	t.Helper()
	kol, err := m.GetKOL(handle)
	require.NoError(t, err)
	return kol.TrustScore
}

type mockChain struct {
	mu   sync.Mutex
	data map[string]*chain.TokenData
}

func (m *mockChain) GetTokenData(_ context.Context, address string) (*chain.TokenData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[address]
	if !ok {
		return nil, &errs.NotFoundError{Kind: "token", ID: address}
	}
	cp := *data
	return &cp, nil
}

func (m *mockChain) set(address string, data *chain.TokenData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data.Address = address
	m.data[address] = data
}

type mockSocial struct {
	posts      map[string][]social.Post
	metrics    map[string]*social.AccountMetrics
	postsErr   error
	metricsErr error
}

func (m *mockSocial) GetUserPosts(_ context.Context, handle string, _, _ int) ([]social.Post, error) {
	if m.postsErr != nil {
		return nil, m.postsErr
	}
	return m.posts[handle], nil
}

func (m *mockSocial) GetAccountMetrics(_ context.Context, handle string) (*social.AccountMetrics, error) {
	if m.metricsErr != nil {
		return nil, m.metricsErr
	}
	return m.metrics[handle], nil
}

type mockAnalyzer struct {
	credScore *float64
	err       error
}

func (m *mockAnalyzer) AnalyzeContent(context.Context, []social.Post) (*ai.ContentAnalysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	sentiment := 0.4
	return &ai.ContentAnalysis{Sentiment: &sentiment}, nil
}

func (m *mockAnalyzer) AnalyzeTokenPattern(context.Context, *chain.TokenData) (*ai.TokenPatternAnalysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ai.TokenPatternAnalysis{RiskLevel: "low"}, nil
}

func (m *mockAnalyzer) EvaluateCredibility(context.Context, ai.CredibilityInput) (*ai.KOLCredibility, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ai.KOLCredibility{CredibilityScore: m.credScore}, nil
}

type mockEvents struct {
	mu          sync.Mutex
	scamAlerts  []string
	adjustments []string
}

func (m *mockEvents) PublishScamAlert(_ context.Context, call *models.TokenCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scamAlerts = append(m.scamAlerts, call.TokenAddress)
	return nil
}

func (m *mockEvents) PublishTrustAdjusted(_ context.Context, handle string, _, _ int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments = append(m.adjustments, handle+":"+reason)
	return nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

func testConfig() config.ScoringConfig {
	return config.ScoringConfig{
		MinLiquiditySOL:     10,
		MinTokenAgeDays:     3,
		MinHolderCount:      100,
		ScamThreshold:       0.7,
		ScamPenalty:         10,
		MinCredibilityScore: 0.7,
		MinAccountAgeDays:   90,
		MinFollowers:        100,
		ReportWindowDays:    30,
		MonitorMinAgeHours:  24,
	}
}

type fixture struct {
	tracker *Tracker
	repo    *mockRepo
	chain   *mockChain
	social  *mockSocial
	ai      *mockAnalyzer
	events  *mockEvents
}

func newFixture() *fixture {
	cfg := testConfig()
	repo := newMockRepo()
	chainClient := &mockChain{data: make(map[string]*chain.TokenData)}
	socialClient := &mockSocial{
		posts:   make(map[string][]social.Post),
		metrics: make(map[string]*social.AccountMetrics),
	}
	analyzer := &mockAnalyzer{}
	events := &mockEvents{}

	tr := New(cfg, Deps{
		Repo:     repo,
		Trust:    ledger.New(repo),
		Scorer:   scoring.NewRiskScorer(cfg),
		Perf:     scoring.NewPerformanceCalculator(),
		Chain:    chainClient,
		Social:   socialClient,
		Analyzer: analyzer,
		Assessor: credibility.NewAggregator(cfg),
		Reports:  report.NewBuilder(repo, cfg.ReportWindowDays),
		Events:   events,
	})

	return &fixture{tracker: tr, repo: repo, chain: chainClient, social: socialClient, ai: analyzer, events: events}
}

func healthyToken() *chain.TokenData {
	return &chain.TokenData{
		Price:       decimal.NewFromInt(100),
		Liquidity:   decimal.NewFromInt(500),
		HolderCount: 2500,
		AgeDays:     400,
	}
}

func riskyToken() *chain.TokenData {
	return &chain.TokenData{
		Price:       decimal.NewFromFloat(0.001),
		Liquidity:   decimal.NewFromInt(2),
		HolderCount: 15,
		AgeDays:     1,
		Suspicious:  true,
	}
}

// ---------------------------------------------------------------------------
// Track / Untrack
// ---------------------------------------------------------------------------

func TestTrack(t *testing.T) {
	f := newFixture()

	kol, err := f.tracker.Track("@CryptoKol")
	require.NoError(t, err)

	assert.Equal(t, "cryptokol", kol.Handle)
	assert.Equal(t, 100, kol.TrustScore)
}

func TestTrack_Duplicate(t *testing.T) {
	f := newFixture()

	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	_, err = f.tracker.Track("cryptokol")
	assert.True(t, errs.IsState(err))
}

func TestTrack_EmptyHandle(t *testing.T) {
	f := newFixture()

	_, err := f.tracker.Track("  @ ")
	assert.True(t, errs.IsValidation(err))
}

// ---------------------------------------------------------------------------
// RecordCall
// ---------------------------------------------------------------------------

func TestRecordCall_LowRisk(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)
	f.chain.set(goodToken, healthyToken())

	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	assert.Equal(t, models.StatusMonitoring, call.Status)
	assert.Zero(t, call.RiskScore)
	assert.Zero(t, call.RiskFactors.Count())

	kol, err := f.repo.GetKOL("cryptokol")
	require.NoError(t, err)
	assert.Equal(t, 100, kol.TrustScore)
	assert.Equal(t, 1, kol.TotalCalls)
	assert.Zero(t, kol.ScamCalls)
	assert.Empty(t, f.events.scamAlerts)
}

func TestRecordCall_ScamPenaltyIsImmediate(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)
	f.chain.set(riskToken, riskyToken())

	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", riskToken)
	require.NoError(t, err)

	// All four factors fire; the penalty lands before any
	// performance evaluation happens.
	assert.InDelta(t, 1.0, call.RiskScore, 1e-9)
	assert.Equal(t, 90, f.repo.trustScore(t, "cryptokol"))

	kol, err := f.repo.GetKOL("cryptokol")
	require.NoError(t, err)
	assert.Equal(t, 1, kol.ScamCalls)
	assert.Equal(t, []string{riskToken}, f.events.scamAlerts)
}

func TestRecordCall_DuplicatePair(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)
	f.chain.set(goodToken, healthyToken())

	_, err = f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	_, err = f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	assert.True(t, errs.IsState(err))

	kol, err := f.repo.GetKOL("cryptokol")
	require.NoError(t, err)
	assert.Equal(t, 1, kol.TotalCalls)
}

func TestRecordCall_MalformedAddress(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	_, err = f.tracker.RecordCall(context.Background(), "cryptokol", "0xdeadbeef")
	assert.True(t, errs.IsValidation(err))
}

func TestRecordCall_UnknownTokenAbstains(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	_, err = f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	assert.True(t, errs.IsNotFound(err))

	// Nothing was recorded and no counter moved.
	kol, err := f.repo.GetKOL("cryptokol")
	require.NoError(t, err)
	assert.Zero(t, kol.TotalCalls)
	assert.Equal(t, 100, kol.TrustScore)
	assert.Empty(t, f.repo.calls)
}

func TestRecordCall_UntrackedHandle(t *testing.T) {
	f := newFixture()
	f.chain.set(goodToken, healthyToken())

	_, err := f.tracker.RecordCall(context.Background(), "ghost", goodToken)
	assert.True(t, errs.IsNotFound(err))
}

// ---------------------------------------------------------------------------
// EvaluateCall
// ---------------------------------------------------------------------------

func TestEvaluateCall_RewardsWinningCall(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(riskToken, riskyToken())
	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", riskToken)
	require.NoError(t, err)
	require.Equal(t, 90, f.repo.trustScore(t, "cryptokol"))

	// Price +30%, liquidity stable.
	updated := riskyToken()
	updated.Price = decimal.NewFromFloat(0.0013)
	f.chain.set(riskToken, updated)

	record, err := f.tracker.EvaluateCall(context.Background(), call)
	require.NoError(t, err)

	assert.InDelta(t, 30, record.ROIPercent, 0.01)
	assert.Equal(t, 3, record.TrustImpact)
	assert.Equal(t, 93, f.repo.trustScore(t, "cryptokol"))

	kol, err := f.repo.GetKOL("cryptokol")
	require.NoError(t, err)
	assert.Equal(t, 1, kol.SuccessfulCalls)
	assert.Equal(t, models.TierTrusted, ledger.Classify(kol.TrustScore))
}

func TestEvaluateCall_PunishesRugPull(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(goodToken, healthyToken())
	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	crashed := healthyToken()
	crashed.Price = decimal.NewFromInt(10)
	crashed.Liquidity = decimal.NewFromInt(5)
	f.chain.set(goodToken, crashed)

	record, err := f.tracker.EvaluateCall(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, -10, record.TrustImpact)
	assert.Equal(t, 90, f.repo.trustScore(t, "cryptokol"))

	kol, err := f.repo.GetKOL("cryptokol")
	require.NoError(t, err)
	assert.Zero(t, kol.SuccessfulCalls)
}

func TestEvaluateCall_AlreadyResolved(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(goodToken, healthyToken())
	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	_, err = f.tracker.EvaluateCall(context.Background(), call)
	require.NoError(t, err)
	scoreAfterFirst := f.repo.trustScore(t, "cryptokol")

	_, err = f.tracker.EvaluateCall(context.Background(), call)
	assert.True(t, errs.IsState(err))
	assert.Equal(t, scoreAfterFirst, f.repo.trustScore(t, "cryptokol"))
}

func TestEvaluateCall_DatabaseGuardStopsRace(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(goodToken, healthyToken())
	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	// Two workers pick up the same monitoring-state snapshot.
	stale := *call
	_, err = f.tracker.EvaluateCall(context.Background(), call)
	require.NoError(t, err)

	_, err = f.tracker.EvaluateCall(context.Background(), &stale)
	assert.True(t, errs.IsState(err))
}

// ---------------------------------------------------------------------------
// Scheduled passes
// ---------------------------------------------------------------------------

func TestEvaluatePending(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(goodToken, healthyToken())
	call, err := f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	// Age the call past the monitoring window.
	f.repo.mu.Lock()
	for _, c := range f.repo.calls {
		if c.ID == call.ID {
			c.Timestamp = time.Now().Add(-48 * time.Hour)
		}
	}
	f.repo.mu.Unlock()

	resolved, err := f.tracker.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	// A second pass finds nothing pending.
	resolved, err = f.tracker.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resolved)
}

func TestEvaluatePending_SkipsFreshCalls(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(goodToken, healthyToken())
	_, err = f.tracker.RecordCall(context.Background(), "cryptokol", goodToken)
	require.NoError(t, err)

	resolved, err := f.tracker.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resolved)
}

func TestScanWatchlist(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	f.chain.set(goodToken, healthyToken())
	f.social.posts["cryptokol"] = []social.Post{
		{ID: "1", Text: "ape into " + goodToken + " now"},
		{ID: "2", Text: "gm, no calls today"},
	}

	recorded, err := f.tracker.ScanWatchlist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)

	// Re-scanning the same posts records nothing new.
	recorded, err = f.tracker.ScanWatchlist(context.Background())
	require.NoError(t, err)
	assert.Zero(t, recorded)
}

func TestScanWatchlist_AccountFailureIsIsolated(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)
	f.social.postsErr = &errs.ExternalServiceError{Service: "twitter", Err: context.DeadlineExceeded}

	recorded, err := f.tracker.ScanWatchlist(context.Background())
	require.NoError(t, err)
	assert.Zero(t, recorded)
}

// ---------------------------------------------------------------------------
// AnalyzeKOL
// ---------------------------------------------------------------------------

func TestAnalyzeKOL(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)

	score := 0.85
	f.ai.credScore = &score
	f.social.metrics["cryptokol"] = &social.AccountMetrics{
		Handle:    "cryptokol",
		Followers: 5000,
		Following: 300,
		CreatedAt: time.Now().AddDate(-2, 0, 0),
	}
	f.social.posts["cryptokol"] = []social.Post{{ID: "1", Text: "gm", Likes: 10}}

	rep, err := f.tracker.AnalyzeKOL(context.Background(), "@CryptoKol")
	require.NoError(t, err)

	assert.Equal(t, "cryptokol", rep.Handle)
	assert.Equal(t, models.TierTrusted, rep.Tier)
	require.NotNil(t, rep.Credibility)
	assert.Equal(t, models.AccountCredible, rep.Credibility.AccountStatus)
	assert.Empty(t, rep.Credibility.RiskIndicators)
}

func TestAnalyzeKOL_ModelFailureYieldsUnknown(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)
	f.ai.err = &errs.ExternalServiceError{Service: "openai", Err: context.DeadlineExceeded}

	rep, err := f.tracker.AnalyzeKOL(context.Background(), "cryptokol")
	require.NoError(t, err)

	require.NotNil(t, rep.Credibility)
	assert.Equal(t, models.AccountUnknown, rep.Credibility.AccountStatus)
	assert.Nil(t, rep.Credibility.CredibilityScore)
}

func TestAnalyzeKOL_GateFailureSurfaces(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Track("cryptokol")
	require.NoError(t, err)
	// No account metrics at all: the gate fails closed.
	f.social.metricsErr = &errs.ExternalServiceError{Service: "twitter", Err: context.DeadlineExceeded}

	rep, err := f.tracker.AnalyzeKOL(context.Background(), "cryptokol")
	require.NoError(t, err)

	require.NotNil(t, rep.Credibility)
	assert.Contains(t, rep.Credibility.RiskIndicators, "account metrics unavailable")
}

func TestAnalyzeKOL_UnknownHandle(t *testing.T) {
	f := newFixture()

	_, err := f.tracker.AnalyzeKOL(context.Background(), "ghost")
	assert.True(t, errs.IsNotFound(err))
}

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "cryptokol", NormalizeHandle(" @CryptoKol "))
	assert.Equal(t, "cryptokol", NormalizeHandle("cryptokol"))
	assert.Equal(t, "", NormalizeHandle("@"))
}
