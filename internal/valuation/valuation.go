/*

This package computes total managed assets and the asset/share exchange rate.
Total assets is always recomputed on demand, never cached across calls,
because strategy-reported balances can change between calls as interest
accrues. Conversion arithmetic uses floor division in both directions, which
rounds in favor of the vault's existing holders.

*/

package valuation

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/registry"
	"github.com/openyield/svm/internal/types"
)

// IdleBalanceSource reports the assets the vault holds directly, not yet
// deployed to any strategy.
type IdleBalanceSource interface {
	IdleBalance() sdkmath.Int
}

// SupplySource reports the current share supply.
type SupplySource interface {
	TotalSupply() sdkmath.Int
}

// Engine values the vault and converts between assets and shares.
type Engine struct {
	registry *registry.Registry
	idle     IdleBalanceSource
	supply   SupplySource
	logger   zerolog.Logger
}

// New creates a valuation engine over the given registry and sources.
func New(reg *registry.Registry, idle IdleBalanceSource, supply SupplySource) *Engine {
	return &Engine{
		registry: reg,
		idle:     idle,
		supply:   supply,
		logger:   logger.GetForComponent("valuation"),
	}
}

// StrategyAssets sums each registered strategy's self-reported assets.
// A strategy's TotalAssets may mutate its accrual state; a failure here is
// fatal to the caller because pricing shares against a partial sum would
// misprice every holder.
func (e *Engine) StrategyAssets() (sdkmath.Int, error) {
	total := sdkmath.ZeroInt()
	for _, entry := range e.registry.Entries() {
		assets, err := entry.Strategy.TotalAssets()
		if err != nil {
			return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
				fmt.Errorf("valuing strategy %s: %w", entry.Strategy.Address(), err))
		}
		total = total.Add(assets)
	}
	return total, nil
}

// TotalAssets returns idle balance plus the sum of all strategy assets.
func (e *Engine) TotalAssets() (sdkmath.Int, error) {
	deployed, err := e.StrategyAssets()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return e.idle.IdleBalance().Add(deployed), nil
}

// ConvertToShares returns the shares a deposit of assets is worth at the
// current exchange rate: assets when supply is zero (bootstrap), otherwise
// assets * supply / totalAssets with floor division.
func (e *Engine) ConvertToShares(assets sdkmath.Int) (sdkmath.Int, error) {
	if assets.IsNil() || assets.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}

	supply := e.supply.TotalSupply()
	if supply.IsZero() {
		return assets, nil
	}

	total, err := e.TotalAssets()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if total.IsZero() {
		// Supply exists but backing is gone; 1:1 keeps deposits possible
		// without minting unbounded shares.
		return assets, nil
	}
	return assets.Mul(supply).Quo(total), nil
}

// ConvertToAssets returns the assets a redemption of shares is worth:
// shares when supply is zero, otherwise shares * totalAssets / supply with
// floor division, so redemption never exceeds backing.
func (e *Engine) ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error) {
	if shares.IsNil() || shares.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}

	supply := e.supply.TotalSupply()
	if supply.IsZero() {
		return shares, nil
	}

	total, err := e.TotalAssets()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return shares.Mul(total).Quo(supply), nil
}
