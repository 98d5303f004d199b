// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openyield/svm/internal/config"
	"github.com/openyield/svm/internal/types"
)

// SaveVaultParameters writes the single-row vault configuration, including
// the pause flag and the last-harvest timestamp for the rate-limit gate.
func SaveVaultParameters(params config.VaultParameters, paused bool, lastHarvest time.Time) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	var last sql.NullTime
	if !lastHarvest.IsZero() {
		last = sql.NullTime{Time: lastHarvest, Valid: true}
	}

	stmt := `
		INSERT INTO vault_parameters (
			id, min_deposit, max_total_assets, withdrawal_fee_bps,
			fee_recipient, harvest_interval_seconds, paused, last_harvest, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			min_deposit = EXCLUDED.min_deposit,
			max_total_assets = EXCLUDED.max_total_assets,
			withdrawal_fee_bps = EXCLUDED.withdrawal_fee_bps,
			fee_recipient = EXCLUDED.fee_recipient,
			harvest_interval_seconds = EXCLUDED.harvest_interval_seconds,
			paused = EXCLUDED.paused,
			last_harvest = EXCLUDED.last_harvest,
			updated_at = CURRENT_TIMESTAMP;`
	_, err := DB.Exec(stmt,
		params.MinDeposit.String(),
		params.MaxTotalAssets.String(),
		int64(params.WithdrawalFeeBps),
		string(params.FeeRecipient),
		int64(params.HarvestInterval/time.Second),
		paused,
		last,
	)
	if err != nil {
		return fmt.Errorf("failed to save vault parameters: %w", err)
	}
	return nil
}

// LoadVaultParameters reads the persisted vault configuration. Returns nil
// parameters with no error when nothing has been persisted yet.
func LoadVaultParameters() (*config.VaultParameters, bool, time.Time, error) {
	if DB == nil {
		return nil, false, time.Time{}, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT min_deposit, max_total_assets, withdrawal_fee_bps,
		       fee_recipient, harvest_interval_seconds, paused, last_harvest
		FROM vault_parameters
		WHERE id = 1;`

	var (
		minDepositRaw, maxTotalRaw, feeRecipient string
		feeBps, intervalSeconds                  int64
		paused                                   bool
		last                                     sql.NullTime
	)
	err := DB.QueryRow(query).Scan(
		&minDepositRaw, &maxTotalRaw, &feeBps,
		&feeRecipient, &intervalSeconds, &paused, &last,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug().Msg("No persisted vault parameters found")
			return nil, false, time.Time{}, nil
		}
		return nil, false, time.Time{}, fmt.Errorf("failed to scan vault parameters: %w", err)
	}

	minDeposit, err := parseNumeric(minDepositRaw)
	if err != nil {
		return nil, false, time.Time{}, fmt.Errorf("corrupt min_deposit: %w", err)
	}
	maxTotal, err := parseNumeric(maxTotalRaw)
	if err != nil {
		return nil, false, time.Time{}, fmt.Errorf("corrupt max_total_assets: %w", err)
	}

	params := &config.VaultParameters{
		MinDeposit:       minDeposit,
		MaxTotalAssets:   maxTotal,
		WithdrawalFeeBps: uint32(feeBps),
		FeeRecipient:     types.Address(feeRecipient),
		HarvestInterval:  time.Duration(intervalSeconds) * time.Second,
	}

	lastHarvest := time.Time{}
	if last.Valid {
		lastHarvest = last.Time
	}

	log.Info().Msg("Loaded persisted vault parameters")
	return params, paused, lastHarvest, nil
}
