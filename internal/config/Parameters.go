/*

This file contains the mutable vault parameters and their defaults.

These values gate deposits, cap the vault's size, and price withdrawals.
They can be changed at runtime through the owner-gated setters and are
persisted so a restart picks up where the last configuration left off.

*/

package config

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openyield/svm/internal/types"
)

// VaultParameters holds the configuration scalars read by the vault
// controller on every operation. The controller owns the authoritative copy;
// components read it through the controller, never through ambient state.
type VaultParameters struct {
	// MinDeposit is the smallest accepted deposit in asset base units.
	MinDeposit sdkmath.Int `json:"min_deposit"`

	// MaxTotalAssets caps total managed assets. Zero means uncapped.
	MaxTotalAssets sdkmath.Int `json:"max_total_assets"`

	// WithdrawalFeeBps is charged on withdraw and redeem, never on
	// emergency exit. Hard-capped at types.MaxWithdrawalFeeBps.
	WithdrawalFeeBps uint32 `json:"withdrawal_fee_bps"`

	// FeeRecipient receives withdrawal fees. Empty means fees stay in the
	// vault and accrue to remaining holders.
	FeeRecipient types.Address `json:"fee_recipient"`

	// HarvestInterval is the minimum time between harvest passes.
	HarvestInterval time.Duration `json:"harvest_interval"`
}

// DefaultVaultParameters provides a baseline used when no persisted
// parameters exist yet.
var DefaultVaultParameters = VaultParameters{
	// 1 whole token at 6 decimals. Small enough not to exclude anyone,
	// large enough to stop dust griefing the holder set.
	MinDeposit: sdkmath.NewInt(1_000_000),

	// Uncapped by default; operators of new vaults are expected to set a
	// ceiling before opening deposits widely.
	MaxTotalAssets: sdkmath.ZeroInt(),

	// 10 bps exit fee.
	WithdrawalFeeBps: 10,

	FeeRecipient: "",

	HarvestInterval: 12 * time.Hour,
}

// Validate checks the parameter record for out-of-range values.
func (p VaultParameters) Validate() error {
	if p.MinDeposit.IsNil() || p.MinDeposit.IsNegative() {
		return errors.Join(types.ErrValidation, errors.New("min deposit cannot be negative"))
	}
	if p.MaxTotalAssets.IsNil() || p.MaxTotalAssets.IsNegative() {
		return errors.Join(types.ErrValidation, errors.New("max total assets cannot be negative"))
	}
	if p.WithdrawalFeeBps > types.MaxWithdrawalFeeBps {
		return errors.Join(types.ErrValidation, types.ErrFeeTooHigh,
			fmt.Errorf("%d bps exceeds cap of %d bps", p.WithdrawalFeeBps, types.MaxWithdrawalFeeBps))
	}
	if p.HarvestInterval < time.Hour || p.HarvestInterval > 7*24*time.Hour {
		return errors.Join(types.ErrValidation, types.ErrBadHarvestInterval,
			fmt.Errorf("interval %s outside [1h, 168h]", p.HarvestInterval))
	}
	return nil
}
