// ./internal/state/ledger_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/openyield/svm/internal/types"
)

// parseNumeric converts a NUMERIC(78, 0) column read as text into an Int.
func parseNumeric(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}

// SaveShareBalance upserts a holder's share balance. A zero balance deletes
// the row so the table mirrors the in-memory holder set.
func SaveShareBalance(holder types.Address, balance sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if balance.IsZero() {
		_, err := DB.Exec(`DELETE FROM share_balances WHERE holder = $1;`, string(holder))
		if err != nil {
			return fmt.Errorf("failed to delete share balance for %s: %w", holder, err)
		}
		return nil
	}

	stmt := `
		INSERT INTO share_balances (holder, balance, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (holder) DO UPDATE
		SET balance = EXCLUDED.balance, updated_at = CURRENT_TIMESTAMP;`
	_, err := DB.Exec(stmt, string(holder), balance.String())
	if err != nil {
		return fmt.Errorf("failed to save share balance for %s: %w", holder, err)
	}
	return nil
}

// LoadShareBalances returns every persisted holder balance.
func LoadShareBalances() (map[types.Address]sdkmath.Int, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT holder, balance FROM share_balances;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query share balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[types.Address]sdkmath.Int)
	for rows.Next() {
		var holder, raw string
		if err := rows.Scan(&holder, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan share balance row: %w", err)
		}
		balance, err := parseNumeric(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt balance for %s: %w", holder, err)
		}
		balances[types.Address(holder)] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share balance rows: %w", err)
	}

	log.Info().Int("holders", len(balances)).Msg("Loaded share balances")
	return balances, nil
}

// SaveAllowance upserts a share allowance. A zero allowance deletes the row.
func SaveAllowance(owner, spender types.Address, remaining sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if remaining.IsZero() {
		_, err := DB.Exec(`DELETE FROM share_allowances WHERE owner_addr = $1 AND spender = $2;`,
			string(owner), string(spender))
		if err != nil {
			return fmt.Errorf("failed to delete allowance %s -> %s: %w", owner, spender, err)
		}
		return nil
	}

	stmt := `
		INSERT INTO share_allowances (owner_addr, spender, allowance, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (owner_addr, spender) DO UPDATE
		SET allowance = EXCLUDED.allowance, updated_at = CURRENT_TIMESTAMP;`
	_, err := DB.Exec(stmt, string(owner), string(spender), remaining.String())
	if err != nil {
		return fmt.Errorf("failed to save allowance %s -> %s: %w", owner, spender, err)
	}
	return nil
}

// LoadAllowances returns every persisted allowance keyed by owner then spender.
func LoadAllowances() (map[types.Address]map[types.Address]sdkmath.Int, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT owner_addr, spender, allowance FROM share_allowances;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query share allowances: %w", err)
	}
	defer rows.Close()

	allowances := make(map[types.Address]map[types.Address]sdkmath.Int)
	count := 0
	for rows.Next() {
		var owner, spender, raw string
		if err := rows.Scan(&owner, &spender, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan allowance row: %w", err)
		}
		remaining, err := parseNumeric(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt allowance %s -> %s: %w", owner, spender, err)
		}
		ownerAddr := types.Address(owner)
		if allowances[ownerAddr] == nil {
			allowances[ownerAddr] = make(map[types.Address]sdkmath.Int)
		}
		allowances[ownerAddr][types.Address(spender)] = remaining
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allowance rows: %w", err)
	}

	log.Info().Int("allowances", count).Msg("Loaded share allowances")
	return allowances, nil
}
