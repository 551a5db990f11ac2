package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/unweightedai/kol-trust-service/internal/models"
)

// Trust score bounds and tier boundaries.
const (
	MinScore = 0
	MaxScore = 100

	trustedFloor = 70
	cautionFloor = 40
)

// AccountRepository defines the persistence operations the ledger
// relies on. Single-row updates must be atomic.
type AccountRepository interface {
	GetKOL(handle string) (*models.KOL, error)
	UpdateTrustScore(handle string, score int, updatedAt time.Time) error
}

// Ledger is the only authorized mutator of a KOL's trust score. Every
// adjustment for a given handle is serialized through a per-handle
// lock so interleaved read-modify-write sequences cannot lose updates.
type Ledger struct {
	repo AccountRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a ledger backed by the given repository.
func New(repo AccountRepository) *Ledger {
	return &Ledger{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// Adjust applies a signed delta to the account's trust score, clamped
// into [0,100], and returns the new score. An unknown handle fails
// with a NotFoundError from the repository and no mutation occurs.
//
// Callers must not hold the account lock across external I/O: deltas
// are computed from already-fetched data before Adjust is called.
func (l *Ledger) Adjust(handle string, delta int) (int, error) {
	lock := l.accountLock(handle)
	lock.Lock()
	defer lock.Unlock()

	kol, err := l.repo.GetKOL(handle)
	if err != nil {
		return 0, err
	}

	newScore := Clamp(kol.TrustScore + delta)
	if err := l.repo.UpdateTrustScore(handle, newScore, time.Now()); err != nil {
		return 0, fmt.Errorf("failed to adjust trust score for %s: %w", handle, err)
	}

	return newScore, nil
}

// Classify maps a trust score to its tier. Total over [0,100]:
// 70 itself is Caution, 40 itself is Untrusted.
func Classify(score int) models.Tier {
	switch {
	case score > trustedFloor:
		return models.TierTrusted
	case score > cautionFloor:
		return models.TierCaution
	default:
		return models.TierUntrusted
	}
}

// Clamp bounds a score into [0,100].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func (l *Ledger) accountLock(handle string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[handle]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[handle] = lock
	}
	return lock
}
