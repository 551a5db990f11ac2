package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// CreateTokenCall records a new promotion event in monitoring state
func (db *DB) CreateTokenCall(call *models.TokenCall) error {
	factors, err := json.Marshal(call.RiskFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal risk factors: %w", err)
	}

	query := `
		INSERT INTO token_calls (
			kol_handle, token_address, called_at, initial_price, initial_liquidity,
			initial_holder_count, risk_score, risk_factors, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	now := time.Now()
	if call.Status == "" {
		call.Status = models.StatusMonitoring
	}
	err = db.conn.QueryRow(query,
		call.KOLHandle, call.TokenAddress, call.Timestamp, call.InitialPrice, call.InitialLiquidity,
		call.InitialHolderCount, call.RiskScore, factors, call.Status, now,
	).Scan(&call.ID)

	if err != nil {
		return fmt.Errorf("failed to create token call for %s: %w", call.KOLHandle, err)
	}
	call.CreatedAt = now
	return nil
}

// GetTokenCall retrieves a call by ID
func (db *DB) GetTokenCall(id int) (*models.TokenCall, error) {
	query := selectCallColumns + ` WHERE id = $1`

	row := db.conn.QueryRow(query, id)
	call, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "token call", ID: strconv.Itoa(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token call %d: %w", id, err)
	}
	return call, nil
}

// GetRecentCalls returns a handle's calls inside the lookback window,
// newest first.
func (db *DB) GetRecentCalls(handle string, since time.Time) ([]*models.TokenCall, error) {
	query := selectCallColumns + `
		WHERE kol_handle = $1 AND called_at >= $2
		ORDER BY called_at DESC
	`
	return db.queryCalls(query, handle, since)
}

// GetMonitoringCallsBefore returns unresolved calls recorded at or
// before the cutoff, oldest first, so the performance pass evaluates
// calls that have had time to play out.
func (db *DB) GetMonitoringCallsBefore(cutoff time.Time) ([]*models.TokenCall, error) {
	query := selectCallColumns + `
		WHERE status = 'monitoring' AND called_at <= $1
		ORDER BY called_at
	`
	return db.queryCalls(query, cutoff)
}

// CallExists checks whether a handle already has a recorded call for a
// token address.
func (db *DB) CallExists(handle, tokenAddress string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM token_calls WHERE kol_handle = $1 AND token_address = $2)`
	var exists bool
	err := db.conn.QueryRow(query, handle, tokenAddress).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check call existence: %w", err)
	}
	return exists, nil
}

// ResolveCall transitions a call from monitoring to resolved and
// attaches its performance record. The status guard in the WHERE
// clause makes the transition happen at most once.
func (db *DB) ResolveCall(id int, perf *models.PerformanceRecord) error {
	query := `
		UPDATE token_calls
		SET status = 'resolved',
		    roi_percent = $2,
		    liquidity_change_percent = $3,
		    holder_change_percent = $4,
		    trust_impact = $5,
		    evaluated_at = $6
		WHERE id = $1 AND status = 'monitoring'
	`
	result, err := db.conn.Exec(query,
		id, perf.ROIPercent, perf.LiquidityChange, perf.HolderChange, perf.TrustImpact, perf.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve token call %d: %w", id, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		// Distinguish an absent call from a double resolution.
		var status string
		err := db.conn.QueryRow(`SELECT status FROM token_calls WHERE id = $1`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return &errs.NotFoundError{Kind: "token call", ID: strconv.Itoa(id)}
		}
		if err != nil {
			return fmt.Errorf("failed to check token call %d: %w", id, err)
		}
		return &errs.StateError{Op: "resolve call", Reason: fmt.Sprintf("call %d is already resolved", id)}
	}
	return nil
}

const selectCallColumns = `
	SELECT id, kol_handle, token_address, called_at, initial_price, initial_liquidity,
	       initial_holder_count, risk_score, risk_factors, status,
	       roi_percent, liquidity_change_percent, holder_change_percent, trust_impact, evaluated_at,
	       created_at
	FROM token_calls`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCall(row rowScanner) (*models.TokenCall, error) {
	var call models.TokenCall
	var factors []byte
	var roi, liquidityChange, holderChange sql.NullFloat64
	var trustImpact sql.NullInt64
	var evaluatedAt sql.NullTime

	err := row.Scan(
		&call.ID, &call.KOLHandle, &call.TokenAddress, &call.Timestamp,
		&call.InitialPrice, &call.InitialLiquidity, &call.InitialHolderCount,
		&call.RiskScore, &factors, &call.Status,
		&roi, &liquidityChange, &holderChange, &trustImpact, &evaluatedAt,
		&call.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &call.RiskFactors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk factors: %w", err)
		}
	}

	if evaluatedAt.Valid {
		call.Performance = &models.PerformanceRecord{
			ROIPercent:      roi.Float64,
			LiquidityChange: liquidityChange.Float64,
			HolderChange:    holderChange.Float64,
			TrustImpact:     int(trustImpact.Int64),
			EvaluatedAt:     evaluatedAt.Time,
		}
	}

	return &call, nil
}

func (db *DB) queryCalls(query string, args ...interface{}) ([]*models.TokenCall, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query token calls: %w", err)
	}
	defer rows.Close()

	var calls []*models.TokenCall
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token call: %w", err)
		}
		calls = append(calls, call)
	}

	return calls, rows.Err()
}
