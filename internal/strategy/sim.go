/*

This file contains an in-memory strategy used by the simulation mode and the
test suite. It keeps its position on the shared asset book, accrues injected
yield lazily inside TotalAssets (mirroring protocols whose valuation call
refreshes an interest index), and can be configured to fail or under-deliver
on any operation.

*/

package strategy

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/ledger"
	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/types"
	"github.com/openyield/svm/internal/utils"
)

// Sim is a simulated yield strategy backed by the in-process asset book.
type Sim struct {
	addr   types.Address
	asset  types.AssetID
	vault  types.Address
	funds  *ledger.Ledger
	apyBps uint32
	active bool
	logger zerolog.Logger

	pendingYield   sdkmath.Int
	pendingRewards sdkmath.Int

	// liquidityCap limits how much a single Withdraw returns, simulating
	// protocol liquidity limits. Zero means unlimited.
	liquidityCap sdkmath.Int

	failDeposit   bool
	failWithdraw  bool
	failHarvest   bool
	failValuation bool

	// onDeposit, when set, runs before the deposit is booked. Tests use it
	// to drive callbacks into the vault mid-operation.
	onDeposit func()
}

// NewSim creates a simulated strategy bound to the given vault and asset book.
func NewSim(addr types.Address, asset types.AssetID, vault types.Address, funds *ledger.Ledger, apyBps uint32) *Sim {
	return &Sim{
		addr:           addr,
		asset:          asset,
		vault:          vault,
		funds:          funds,
		apyBps:         apyBps,
		active:         true,
		logger:         logger.GetForComponent("strategy_" + string(addr)),
		pendingYield:   sdkmath.ZeroInt(),
		pendingRewards: sdkmath.ZeroInt(),
		liquidityCap:   sdkmath.ZeroInt(),
	}
}

func (s *Sim) Address() types.Address         { return s.addr }
func (s *Sim) UnderlyingAsset() types.AssetID { return s.asset }
func (s *Sim) VaultAddress() types.Address    { return s.vault }
func (s *Sim) CurrentAPY() uint32             { return s.apyBps }
func (s *Sim) IsActive() bool                 { return s.active }
func (s *Sim) Pause()                         { s.active = false }
func (s *Sim) Unpause()                       { s.active = true }

// TotalAssets folds pending yield into the position before reporting it.
// The fold makes the call non-pure on purpose.
func (s *Sim) TotalAssets() (sdkmath.Int, error) {
	if s.failValuation {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
			fmt.Errorf("strategy %s: valuation unavailable", s.addr))
	}
	if s.pendingYield.IsPositive() {
		if err := s.funds.Mint(s.addr, s.pendingYield); err != nil {
			return sdkmath.ZeroInt(), errors.Join(types.ErrExternal, err)
		}
		s.logger.Debug().
			Str("yield", s.pendingYield.String()).
			Msg("Accrued pending yield into position")
		s.pendingYield = sdkmath.ZeroInt()
	}
	return s.funds.BalanceOf(s.addr), nil
}

func (s *Sim) BalanceOf() sdkmath.Int {
	return s.funds.BalanceOf(s.addr)
}

// Deposit takes amount from the vault's idle balance into the position.
func (s *Sim) Deposit(amount sdkmath.Int) (sdkmath.Int, error) {
	if s.onDeposit != nil {
		s.onDeposit()
	}
	if s.failDeposit {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
			fmt.Errorf("strategy %s: deposit rejected", s.addr))
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}
	if err := s.funds.Transfer(s.vault, s.addr, amount); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal, err)
	}
	return amount, nil
}

// Withdraw returns up to amount to the vault, capped by the position and the
// configured liquidity cap.
func (s *Sim) Withdraw(amount sdkmath.Int) (sdkmath.Int, error) {
	if s.failWithdraw {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
			fmt.Errorf("strategy %s: withdraw rejected", s.addr))
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	available := s.funds.BalanceOf(s.addr)
	out := utils.MinInt(amount, available)
	if !s.liquidityCap.IsZero() {
		out = utils.MinInt(out, s.liquidityCap)
	}
	if out.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if err := s.funds.Transfer(s.addr, s.vault, out); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal, err)
	}
	return out, nil
}

// WithdrawAll liquidates the whole position, ignoring the liquidity cap.
func (s *Sim) WithdrawAll() (sdkmath.Int, error) {
	if s.failWithdraw {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
			fmt.Errorf("strategy %s: withdraw rejected", s.addr))
	}
	position := s.funds.BalanceOf(s.addr)
	if position.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if err := s.funds.Transfer(s.addr, s.vault, position); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal, err)
	}
	return position, nil
}

// Harvest realizes pending rewards into the position and reports the amount.
func (s *Sim) Harvest() (sdkmath.Int, error) {
	if s.failHarvest {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
			fmt.Errorf("strategy %s: harvest rejected", s.addr))
	}
	rewards := s.pendingRewards
	if rewards.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if err := s.funds.Mint(s.addr, rewards); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal, err)
	}
	s.pendingRewards = sdkmath.ZeroInt()
	s.logger.Debug().Str("rewards", rewards.String()).Msg("Harvested rewards into position")
	return rewards, nil
}

// AccrueYield queues yield that materializes on the next TotalAssets call.
func (s *Sim) AccrueYield(amount sdkmath.Int) {
	s.pendingYield = s.pendingYield.Add(amount)
}

// AddRewards queues rewards realized by the next Harvest call.
func (s *Sim) AddRewards(amount sdkmath.Int) {
	s.pendingRewards = s.pendingRewards.Add(amount)
}

// SetLiquidityCap limits how much a single Withdraw call returns.
func (s *Sim) SetLiquidityCap(limit sdkmath.Int) { s.liquidityCap = limit }

// FailDeposit, FailWithdraw, FailHarvest and FailValuation toggle failure
// injection.
func (s *Sim) FailDeposit(fail bool)   { s.failDeposit = fail }
func (s *Sim) FailWithdraw(fail bool)  { s.failWithdraw = fail }
func (s *Sim) FailHarvest(fail bool)   { s.failHarvest = fail }
func (s *Sim) FailValuation(fail bool) { s.failValuation = fail }

// OnDeposit installs a callback that runs at the start of every Deposit.
func (s *Sim) OnDeposit(hook func()) { s.onDeposit = hook }
