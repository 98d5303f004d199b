// ./internal/state/registry_store.go
package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openyield/svm/internal/types"
)

// StrategyRecord is a persisted strategy registration. Position preserves
// registry order across restarts so deterministic iteration survives a boot.
type StrategyRecord struct {
	Address  types.Address
	Weight   uint32
	Position int
}

// SaveStrategyWeight upserts a strategy's weight and registry position.
func SaveStrategyWeight(addr types.Address, weight uint32, position int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO strategies (address, weight, position, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE
		SET weight = EXCLUDED.weight, position = EXCLUDED.position, updated_at = CURRENT_TIMESTAMP;`
	_, err := DB.Exec(stmt, string(addr), int64(weight), position)
	if err != nil {
		return fmt.Errorf("failed to save strategy %s: %w", addr, err)
	}
	return nil
}

// DeleteStrategy removes a strategy registration.
func DeleteStrategy(addr types.Address) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`DELETE FROM strategies WHERE address = $1;`, string(addr))
	if err != nil {
		return fmt.Errorf("failed to delete strategy %s: %w", addr, err)
	}
	return nil
}

// LoadStrategyWeights returns all persisted strategy registrations in
// registry order.
func LoadStrategyWeights() ([]StrategyRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT address, weight, position FROM strategies ORDER BY position ASC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var records []StrategyRecord
	for rows.Next() {
		var rec StrategyRecord
		var addr string
		var weight int64
		if err := rows.Scan(&addr, &weight, &rec.Position); err != nil {
			return nil, fmt.Errorf("failed to scan strategy row: %w", err)
		}
		rec.Address = types.Address(addr)
		rec.Weight = uint32(weight)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy rows: %w", err)
	}

	log.Info().Int("strategies", len(records)).Msg("Loaded strategy registrations")
	return records, nil
}
