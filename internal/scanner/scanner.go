package scanner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/metrics"
	"github.com/unweightedai/kol-trust-service/internal/tracker"
)

const (
	passTimeout  = 30 * time.Minute
	passRetries  = 2
	retryBackoff = 30 * time.Second
)

// Scanner drives the two scheduled passes: the watchlist scan that
// finds new token calls in tracked accounts' posts, and the performance
// pass that resolves calls old enough to measure.
type Scanner struct {
	cron    *cron.Cron
	tracker *tracker.Tracker
	cfg     config.ScoringConfig
}

// New creates a scanner. Overlapping runs of the same pass are skipped
// rather than queued.
func New(cfg config.ScoringConfig, tr *tracker.Tracker) *Scanner {
	return &Scanner{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		tracker: tr,
		cfg:     cfg,
	}
}

// Start registers both passes and starts the scheduler. The context
// bounds every pass; cancel it before Stop to interrupt a running pass.
func (s *Scanner) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.WatchScanSchedule, func() {
		s.runPass(ctx, "watchlist", s.tracker.ScanWatchlist)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule watchlist scan: %w", err)
	}

	_, err = s.cron.AddFunc(s.cfg.PerformanceSchedule, func() {
		s.runPass(ctx, "performance", s.tracker.EvaluatePending)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule performance pass: %w", err)
	}

	s.cron.Start()
	log.Printf("Scanner started (watchlist %s, performance %s)",
		s.cfg.WatchScanSchedule, s.cfg.PerformanceSchedule)
	return nil
}

// Stop stops scheduling new passes and returns a context that is done
// once running passes have finished.
func (s *Scanner) Stop() context.Context {
	return s.cron.Stop()
}

// runPass executes one pass with a bounded retry: a failed pass is
// retried with doubling delay, then left for the next scheduled run.
func (s *Scanner) runPass(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(ctx, passTimeout)
	defer cancel()

	backoff := retryBackoff
	for attempt := 0; ; attempt++ {
		start := time.Now()
		processed, err := fn(ctx)
		if err == nil {
			log.Printf("%s pass done: %d items in %s", name, processed, time.Since(start).Round(time.Millisecond))
			metrics.ScanPasses.WithLabelValues(name, "ok").Inc()
			return
		}

		log.Printf("%s pass failed after %d items: %v", name, processed, err)
		metrics.ScanPasses.WithLabelValues(name, "error").Inc()

		if attempt >= passRetries || ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
