// ./internal/state/harvest_store.go
package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/openyield/svm/internal/types"
)

// HarvestRow is one persisted per-strategy harvest receipt.
type HarvestRow struct {
	Timestamp time.Time     `json:"timestamp"`
	Strategy  types.Address `json:"strategy"`
	Rewards   sdkmath.Int   `json:"rewards"`
	Success   bool          `json:"success"`
	Message   string        `json:"message,omitempty"`
}

// AppendHarvestReport persists every receipt from a completed harvest pass.
func AppendHarvestReport(report types.HarvestReport) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	stmt := `
		INSERT INTO harvest_receipts (harvest_timestamp, strategy, rewards, success, message)
		VALUES ($1, $2, $3, $4, $5);`
	for _, receipt := range report.Receipts {
		_, err = tx.Exec(stmt,
			report.Timestamp,
			string(receipt.Strategy),
			receipt.Rewards.String(),
			receipt.Success,
			receipt.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert harvest receipt for %s: %w", receipt.Strategy, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit harvest receipts: %w", err)
	}

	log.Debug().
		Int("receipts", len(report.Receipts)).
		Str("total_rewards", report.TotalRewards.String()).
		Msg("Persisted harvest report")
	return nil
}

// LoadRecentHarvests returns the most recent harvest receipts, newest first.
func LoadRecentHarvests(limit int) ([]HarvestRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT harvest_timestamp, strategy, rewards, success, COALESCE(message, '')
		FROM harvest_receipts
		ORDER BY harvest_timestamp DESC, receipt_id DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvest receipts: %w", err)
	}
	defer rows.Close()

	var out []HarvestRow
	for rows.Next() {
		var row HarvestRow
		var strategy, raw string
		if err := rows.Scan(&row.Timestamp, &strategy, &raw, &row.Success, &row.Message); err != nil {
			return nil, fmt.Errorf("failed to scan harvest receipt row: %w", err)
		}
		rewards, err := parseNumeric(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt rewards for %s: %w", strategy, err)
		}
		row.Strategy = types.Address(strategy)
		row.Rewards = rewards
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating harvest receipt rows: %w", err)
	}
	return out, nil
}
