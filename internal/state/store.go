// ./internal/state/store.go
package state

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openyield/svm/internal/config"
	"github.com/openyield/svm/internal/types"
)

// VaultStore adapts the package-level store functions into the write-through
// persistence interface the vault controller expects. The zero value is ready
// to use once InitDB has run.
type VaultStore struct{}

func (VaultStore) SaveShareBalance(holder types.Address, balance sdkmath.Int) error {
	return SaveShareBalance(holder, balance)
}

func (VaultStore) SaveAllowance(owner, spender types.Address, remaining sdkmath.Int) error {
	return SaveAllowance(owner, spender, remaining)
}

func (VaultStore) SaveStrategyWeight(addr types.Address, weight uint32, position int) error {
	return SaveStrategyWeight(addr, weight, position)
}

func (VaultStore) DeleteStrategy(addr types.Address) error {
	return DeleteStrategy(addr)
}

func (VaultStore) SaveParameters(params config.VaultParameters, paused bool, lastHarvest time.Time) error {
	return SaveVaultParameters(params, paused, lastHarvest)
}

func (VaultStore) AppendHarvest(report types.HarvestReport) error {
	return AppendHarvestReport(report)
}
