package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// CreateKOL inserts a newly tracked account. Tracking starts at trust
// score 100 with zeroed counters; re-tracking an existing handle is a
// state error.
func (db *DB) CreateKOL(k *models.KOL) error {
	query := `
		INSERT INTO kols (handle, trust_score, total_calls, successful_calls, scam_calls, date_added, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now()
	if k.TrustScore == 0 {
		k.TrustScore = 100
	}
	err := db.conn.QueryRow(query,
		k.Handle, k.TrustScore, k.TotalCalls, k.SuccessfulCalls, k.ScamCalls, now, now,
	).Scan(&k.ID)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return &errs.StateError{Op: "track kol", Reason: fmt.Sprintf("%s is already tracked", k.Handle)}
	}
	if err != nil {
		return fmt.Errorf("failed to create kol %s: %w", k.Handle, err)
	}

	k.DateAdded = now
	k.LastUpdated = now
	return nil
}

// GetKOL retrieves a tracked account by handle
func (db *DB) GetKOL(handle string) (*models.KOL, error) {
	query := `
		SELECT id, handle, trust_score, total_calls, successful_calls, scam_calls, date_added, last_updated
		FROM kols
		WHERE handle = $1
	`

	var k models.KOL
	err := db.conn.QueryRow(query, handle).Scan(
		&k.ID, &k.Handle, &k.TrustScore, &k.TotalCalls, &k.SuccessfulCalls, &k.ScamCalls,
		&k.DateAdded, &k.LastUpdated,
	)

	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kol %s: %w", handle, err)
	}

	return &k, nil
}

// GetAllKOLs returns every tracked account ordered by handle
func (db *DB) GetAllKOLs() ([]*models.KOL, error) {
	query := `
		SELECT id, handle, trust_score, total_calls, successful_calls, scam_calls, date_added, last_updated
		FROM kols
		ORDER BY handle
	`
	return db.queryKOLs(query)
}

// GetTopKOLs returns the highest-trust accounts with enough call
// history to be ranked.
func (db *DB) GetTopKOLs(limit int) ([]*models.KOL, error) {
	query := `
		SELECT id, handle, trust_score, total_calls, successful_calls, scam_calls, date_added, last_updated
		FROM kols
		WHERE total_calls > 5
		ORDER BY trust_score DESC
		LIMIT $1
	`
	return db.queryKOLs(query, limit)
}

// GetSuspiciousKOLs returns low-trust accounts with enough calls to be
// considered.
func (db *DB) GetSuspiciousKOLs(threshold int) ([]*models.KOL, error) {
	query := `
		SELECT id, handle, trust_score, total_calls, successful_calls, scam_calls, date_added, last_updated
		FROM kols
		WHERE trust_score < $1 AND total_calls > 2
		ORDER BY trust_score
	`
	return db.queryKOLs(query, threshold)
}

// UpdateTrustScore sets the already-clamped score for a handle. The
// single-row update is the atomicity granularity the ledger relies on.
func (db *DB) UpdateTrustScore(handle string, score int, updatedAt time.Time) error {
	query := `UPDATE kols SET trust_score = $2, last_updated = $3 WHERE handle = $1`
	result, err := db.conn.Exec(query, handle, score, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update trust score for %s: %w", handle, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	return nil
}

// IncrementCallCounters bumps the call bookkeeping columns for a handle
func (db *DB) IncrementCallCounters(handle string, total, successful, scam int) error {
	query := `
		UPDATE kols
		SET total_calls = total_calls + $2,
		    successful_calls = successful_calls + $3,
		    scam_calls = scam_calls + $4,
		    last_updated = NOW()
		WHERE handle = $1
	`
	result, err := db.conn.Exec(query, handle, total, successful, scam)
	if err != nil {
		return fmt.Errorf("failed to increment call counters for %s: %w", handle, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	return nil
}

// DeleteKOL removes a tracked account by handle
func (db *DB) DeleteKOL(handle string) error {
	query := `DELETE FROM kols WHERE handle = $1`
	result, err := db.conn.Exec(query, handle)
	if err != nil {
		return fmt.Errorf("failed to delete kol %s: %w", handle, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &errs.NotFoundError{Kind: "kol", ID: handle}
	}
	return nil
}

func (db *DB) queryKOLs(query string, args ...interface{}) ([]*models.KOL, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kols: %w", err)
	}
	defer rows.Close()

	var kols []*models.KOL
	for rows.Next() {
		var k models.KOL
		err := rows.Scan(
			&k.ID, &k.Handle, &k.TrustScore, &k.TotalCalls, &k.SuccessfulCalls, &k.ScamCalls,
			&k.DateAdded, &k.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kol: %w", err)
		}
		kols = append(kols, &k)
	}

	return kols, rows.Err()
}
