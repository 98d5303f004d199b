/*

This package orchestrates deposits, withdrawals, strategy administration,
rebalancing and harvesting against the share ledger, the funds router and the
valuation engine. It owns the pause state machine, the reentrancy guard and
the mutable vault parameters. Every state-mutating entry point runs to
completion before the next one starts; the guard additionally rejects a
strategy calling back into the vault while an outer call is in flight.

*/

package vault

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/config"
	"github.com/openyield/svm/internal/harvest"
	"github.com/openyield/svm/internal/ledger"
	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/registry"
	"github.com/openyield/svm/internal/router"
	"github.com/openyield/svm/internal/strategy"
	"github.com/openyield/svm/internal/types"
	"github.com/openyield/svm/internal/utils"
	"github.com/openyield/svm/internal/valuation"
)

// Persister receives write-through notifications after every successful
// mutation so vault state survives restarts. A nil Persister disables
// persistence (tests, dry runs). Persist failures are logged, not fatal:
// the in-memory state remains the source of truth for the running process.
type Persister interface {
	SaveShareBalance(holder types.Address, balance sdkmath.Int) error
	SaveAllowance(owner, spender types.Address, remaining sdkmath.Int) error
	SaveStrategyWeight(addr types.Address, weight uint32, position int) error
	DeleteStrategy(addr types.Address) error
	SaveParameters(params config.VaultParameters, paused bool, lastHarvest time.Time) error
	AppendHarvest(report types.HarvestReport) error
}

// Controller is the top-level vault state machine.
type Controller struct {
	mu     sync.Mutex
	inCall bool

	addr    types.Address
	owner   types.Address
	assetID types.AssetID

	asset  *ledger.Ledger
	shares *ledger.Ledger

	registry  *registry.Registry
	valuation *valuation.Engine
	router    *router.Router
	harvester *harvest.Coordinator

	params config.VaultParameters
	paused bool

	store  Persister
	logger zerolog.Logger
}

// Config holds the dependencies for creating a new Controller.
type Config struct {
	Address     types.Address
	Owner       types.Address
	AssetID     types.AssetID
	AssetLedger *ledger.Ledger
	Params      config.VaultParameters
	Store       Persister
}

// New creates a vault controller and wires its internal components.
func New(cfg Config) (*Controller, error) {
	if err := validateControllerConfig(cfg); err != nil {
		return nil, fmt.Errorf("vault controller configuration validation failed: %w", err)
	}

	c := &Controller{
		addr:    cfg.Address,
		owner:   cfg.Owner,
		assetID: cfg.AssetID,
		asset:   cfg.AssetLedger,
		shares:  ledger.New("shares"),
		params:  cfg.Params,
		store:   cfg.Store,
		logger:  logger.GetForComponent("vault_controller"),
	}
	c.registry = registry.New(cfg.Address, cfg.AssetID)
	c.valuation = valuation.New(c.registry, c, c.shares)
	c.router = router.New(c.registry)
	c.harvester = harvest.New(c.registry)
	if err := c.harvester.SetInterval(cfg.Params.HarvestInterval); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("vault", string(c.addr)).
		Str("owner", string(c.owner)).
		Str("asset", string(c.assetID)).
		Msg("Vault controller created")
	return c, nil
}

func validateControllerConfig(cfg Config) error {
	if cfg.Address == "" {
		return errors.New("vault address cannot be empty")
	}
	if cfg.Owner == "" {
		return errors.New("owner address cannot be empty")
	}
	if cfg.AssetID == "" {
		return errors.New("asset ID cannot be empty")
	}
	if cfg.AssetLedger == nil {
		return errors.New("asset ledger cannot be nil")
	}
	return cfg.Params.Validate()
}

// ---------------------------------------------------------------------------
// Reentrancy guard

// begin acquires the call-scoped guard. A second entry while a guarded call
// is in flight, whether from another caller or from a strategy calling back
// into the vault, fails immediately instead of corrupting in-flight state.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inCall {
		return types.ErrReentrantCall
	}
	c.inCall = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.inCall = false
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// User operations

// Deposit pulls assets from caller, mints shares to receiver at the current
// exchange rate, and deploys the new cash across the active strategies.
func (c *Controller) Deposit(caller, receiver types.Address, assets sdkmath.Int) (sdkmath.Int, error) {
	if err := c.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer c.end()

	opLog := c.opLogger("deposit", caller)

	if c.paused {
		return sdkmath.ZeroInt(), errors.Join(types.ErrState, types.ErrPaused)
	}
	if err := c.validateDeposit(receiver, assets); err != nil {
		return sdkmath.ZeroInt(), err
	}

	// Exchange rate is taken before the transfer in so the new cash cannot
	// dilute the shares it buys.
	shares, err := c.valuation.ConvertToShares(assets)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroShares)
	}

	if err := c.asset.TransferFrom(c.addr, caller, c.addr, assets); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := c.shares.Mint(receiver, shares); err != nil {
		return sdkmath.ZeroInt(), err
	}
	c.persistShares(receiver)

	receipts := c.router.Deploy(assets)

	opLog.Info().
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Str("receiver", string(receiver)).
		Int("deployments", len(receipts)).
		Msg("Deposit complete")
	return shares, nil
}

// Mint is the dual of Deposit: the caller names the share amount and the
// controller computes the assets to pull, then follows the same path.
func (c *Controller) Mint(caller, receiver types.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := c.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer c.end()

	opLog := c.opLogger("mint", caller)

	if c.paused {
		return sdkmath.ZeroInt(), errors.Join(types.ErrState, types.ErrPaused)
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}

	assets, err := c.valuation.ConvertToAssets(shares)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := c.validateDeposit(receiver, assets); err != nil {
		return sdkmath.ZeroInt(), err
	}

	if err := c.asset.TransferFrom(c.addr, caller, c.addr, assets); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := c.shares.Mint(receiver, shares); err != nil {
		return sdkmath.ZeroInt(), err
	}
	c.persistShares(receiver)

	c.router.Deploy(assets)

	opLog.Info().
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Str("receiver", string(receiver)).
		Msg("Mint complete")
	return assets, nil
}

// Withdraw burns shares from owner worth the requested assets, recalls any
// shortfall from the strategies, and pays receiver net of the withdrawal
// fee. Withdrawals stay available while paused so holders can always exit.
func (c *Controller) Withdraw(caller, receiver, owner types.Address, assets sdkmath.Int) (sdkmath.Int, error) {
	if err := c.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer c.end()

	opLog := c.opLogger("withdraw", caller)

	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}
	if receiver == "" {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrNilReceiver)
	}

	shares, err := c.valuation.ConvertToShares(assets)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroShares)
	}

	if err := c.payOut(opLog, caller, receiver, owner, shares, assets, true); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return shares, nil
}

// Redeem is the dual of Withdraw: the caller names the share amount and the
// controller computes the asset value, then follows the same path.
func (c *Controller) Redeem(caller, receiver, owner types.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := c.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer c.end()

	opLog := c.opLogger("redeem", caller)

	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}
	if receiver == "" {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrNilReceiver)
	}
	if c.shares.BalanceOf(owner).LT(shares) {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrInsufficientBalance)
	}

	assets, err := c.valuation.ConvertToAssets(shares)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if assets.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount,
			errors.New("shares are worth zero assets"))
	}

	if err := c.payOut(opLog, caller, receiver, owner, shares, assets, true); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return assets, nil
}

// EmergencyWithdraw redeems the caller's entire share balance fee-free.
// It is available only while the vault is paused.
func (c *Controller) EmergencyWithdraw(caller, receiver types.Address) (sdkmath.Int, error) {
	if err := c.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer c.end()

	opLog := c.opLogger("emergency_withdraw", caller)

	if !c.paused {
		return sdkmath.ZeroInt(), errors.Join(types.ErrState, types.ErrNotPaused)
	}
	if receiver == "" {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrNilReceiver)
	}

	shares := c.shares.BalanceOf(caller)
	if shares.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount,
			errors.New("caller holds no shares"))
	}

	assets, err := c.valuation.ConvertToAssets(shares)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if assets.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrZeroAmount,
			errors.New("shares are worth zero assets"))
	}

	if err := c.payOut(opLog, caller, receiver, caller, shares, assets, false); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return assets, nil
}

// payOut runs the shared burn/recall/fee/transfer tail of withdraw, redeem
// and emergency exit. Shares are burned first; if the strategies cannot
// return enough liquidity to cover the payout the burn and any spent
// allowance are rolled back and the whole call fails, honoring all-or-nothing
// cancellation.
func (c *Controller) payOut(opLog zerolog.Logger, caller, receiver, owner types.Address, shares, assets sdkmath.Int, charge bool) error {
	spentAllowance := sdkmath.ZeroInt()
	if caller != owner {
		granted := c.shares.Allowance(owner, caller)
		if err := c.shares.SpendAllowance(owner, caller, shares); err != nil {
			return err
		}
		if !types.IsInfiniteAllowance(granted) {
			spentAllowance = shares
		}
	}

	if err := c.shares.Burn(owner, shares); err != nil {
		if spentAllowance.IsPositive() {
			c.restoreAllowance(owner, caller, spentAllowance)
		}
		return err
	}

	idle := c.IdleBalance()
	if idle.LT(assets) {
		shortfall := assets.Sub(idle)
		recalled, receipts := c.router.Recall(shortfall)
		opLog.Debug().
			Str("shortfall", shortfall.String()).
			Str("recalled", recalled.String()).
			Int("receipts", len(receipts)).
			Msg("Recalled strategy funds for payout")
	}

	if c.IdleBalance().LT(assets) {
		// Nothing but the burn has moved yet.
		c.rollBackBurn(opLog, owner, caller, shares, spentAllowance)
		return errors.Join(types.ErrExternal, types.ErrShortRecall,
			fmt.Errorf("need %s, idle %s after recall", assets, c.IdleBalance()))
	}

	fee := sdkmath.ZeroInt()
	if charge {
		fee = utils.MulBps(assets, c.params.WithdrawalFeeBps)
		if fee.IsPositive() && c.params.FeeRecipient != "" {
			if err := c.asset.Transfer(c.addr, c.params.FeeRecipient, fee); err != nil {
				c.rollBackBurn(opLog, owner, caller, shares, spentAllowance)
				return err
			}
		}
	}

	if err := c.asset.Transfer(c.addr, receiver, assets.Sub(fee)); err != nil {
		if fee.IsPositive() && c.params.FeeRecipient != "" {
			if clawErr := c.asset.Transfer(c.params.FeeRecipient, c.addr, fee); clawErr != nil {
				opLog.Error().Err(clawErr).Msg("Fee claw-back failed during payout rollback")
			}
		}
		c.rollBackBurn(opLog, owner, caller, shares, spentAllowance)
		return err
	}
	c.persistShares(owner)
	c.persistAllowance(owner, caller)

	opLog.Info().
		Str("owner", string(owner)).
		Str("receiver", string(receiver)).
		Str("shares", shares.String()).
		Str("assets", assets.String()).
		Str("fee", fee.String()).
		Msg("Payout complete")
	return nil
}

// rollBackBurn re-mints burned shares and restores any spent finite allowance
// after a failed payout, keeping exits all-or-nothing.
func (c *Controller) rollBackBurn(opLog zerolog.Logger, owner, spender types.Address, shares, spentAllowance sdkmath.Int) {
	if err := c.shares.Mint(owner, shares); err != nil {
		opLog.Error().Err(err).Msg("Rollback mint failed after aborted payout")
	}
	if spentAllowance.IsPositive() {
		c.restoreAllowance(owner, spender, spentAllowance)
	}
	c.persistShares(owner)
}

func (c *Controller) restoreAllowance(owner, spender types.Address, spent sdkmath.Int) {
	granted := c.shares.Allowance(owner, spender)
	if err := c.shares.Approve(owner, spender, granted.Add(spent)); err != nil {
		c.logger.Error().Err(err).Msg("Rollback of spent allowance failed")
	}
}

func (c *Controller) validateDeposit(receiver types.Address, assets sdkmath.Int) error {
	if assets.IsNil() || !assets.IsPositive() {
		return errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}
	if assets.LT(c.params.MinDeposit) {
		return errors.Join(types.ErrValidation, types.ErrBelowMinimumDeposit,
			fmt.Errorf("deposit %s, minimum %s", assets, c.params.MinDeposit))
	}
	if receiver == "" {
		return errors.Join(types.ErrValidation, types.ErrNilReceiver)
	}
	if c.params.MaxTotalAssets.IsPositive() {
		total, err := c.valuation.TotalAssets()
		if err != nil {
			return err
		}
		if total.Add(assets).GT(c.params.MaxTotalAssets) {
			return errors.Join(types.ErrValidation, types.ErrDepositCeiling,
				fmt.Errorf("total %s + %s exceeds ceiling %s", total, assets, c.params.MaxTotalAssets))
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Share surface

// TransferShares moves shares between holders on behalf of caller.
func (c *Controller) TransferShares(caller, to types.Address, amount sdkmath.Int) error {
	if err := c.shares.Transfer(caller, to, amount); err != nil {
		return err
	}
	c.persistShares(caller)
	c.persistShares(to)
	return nil
}

// ApproveShares sets spender's allowance over caller's shares.
func (c *Controller) ApproveShares(caller, spender types.Address, amount sdkmath.Int) error {
	if err := c.shares.Approve(caller, spender, amount); err != nil {
		return err
	}
	c.persistAllowance(caller, spender)
	return nil
}

// ---------------------------------------------------------------------------
// Privileged operations

// Pause stops deposits and minting and arms emergency withdrawal.
func (c *Controller) Pause(caller types.Address) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if c.paused {
		return errors.Join(types.ErrState, types.ErrPaused)
	}
	c.paused = true
	c.persistParams()
	c.logger.Warn().Str("caller", string(caller)).Msg("Vault paused")
	return nil
}

// Unpause restores normal operation.
func (c *Controller) Unpause(caller types.Address) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if !c.paused {
		return errors.Join(types.ErrState, types.ErrNotPaused)
	}
	c.paused = false
	c.persistParams()
	c.logger.Info().Str("caller", string(caller)).Msg("Vault unpaused")
	return nil
}

// AddStrategy registers a strategy with the given allocation weight.
func (c *Controller) AddStrategy(caller types.Address, s strategy.Strategy, weight uint32) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if err := c.registry.Add(s, weight); err != nil {
		return err
	}
	c.persistStrategy(s.Address())
	return nil
}

// RemoveStrategy deregisters a strategy after recalling all its assets.
func (c *Controller) RemoveStrategy(caller, addr types.Address) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if _, err := c.registry.Remove(addr); err != nil {
		return err
	}
	if c.store != nil {
		if err := c.store.DeleteStrategy(addr); err != nil {
			c.logger.Error().Err(err).Str("strategy", string(addr)).Msg("Failed to persist strategy removal")
		}
	}
	return nil
}

// UpdateAllocation changes a strategy's weight.
func (c *Controller) UpdateAllocation(caller, addr types.Address, weight uint32) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if err := c.registry.UpdateWeight(addr, weight); err != nil {
		return err
	}
	c.persistStrategy(addr)
	return nil
}

// Rebalance recalls every strategy position and redeploys all idle funds
// using the current weights. Deliberately not incremental: a full cycle
// cannot leave drift between the old and new allocation.
func (c *Controller) Rebalance(caller types.Address) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if c.registry.Len() == 0 {
		return errors.Join(types.ErrState, types.ErrNoStrategies)
	}
	total, err := c.valuation.TotalAssets()
	if err != nil {
		return err
	}
	if total.IsZero() {
		return errors.Join(types.ErrState, errors.New("no assets to rebalance"))
	}

	recalled, _ := c.router.RecallAll()
	receipts := c.router.Deploy(c.IdleBalance())

	c.logger.Info().
		Str("caller", string(caller)).
		Str("recalled", recalled.String()).
		Int("deployments", len(receipts)).
		Msg("Rebalance complete")
	return nil
}

// HarvestAll triggers a harvest pass across all strategies.
func (c *Controller) HarvestAll(caller types.Address) (types.HarvestReport, error) {
	if err := c.requireOwner(caller); err != nil {
		return types.HarvestReport{}, err
	}

	report, err := c.harvester.HarvestAll()
	if err != nil {
		return types.HarvestReport{}, err
	}
	c.persistParams()
	if c.store != nil {
		if err := c.store.AppendHarvest(report); err != nil {
			c.logger.Error().Err(err).Msg("Failed to persist harvest report")
		}
	}
	return report, nil
}

// ---------------------------------------------------------------------------
// Configuration setters

// SetMinDeposit updates the deposit floor.
func (c *Controller) SetMinDeposit(caller types.Address, minDeposit sdkmath.Int) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if minDeposit.IsNil() || minDeposit.IsNegative() {
		return errors.Join(types.ErrValidation, errors.New("min deposit cannot be negative"))
	}
	c.params.MinDeposit = minDeposit
	c.persistParams()
	return nil
}

// SetMaxTotalAssets updates the managed-assets ceiling. Zero removes it.
func (c *Controller) SetMaxTotalAssets(caller types.Address, maxTotal sdkmath.Int) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if maxTotal.IsNil() || maxTotal.IsNegative() {
		return errors.Join(types.ErrValidation, errors.New("max total assets cannot be negative"))
	}
	c.params.MaxTotalAssets = maxTotal
	c.persistParams()
	return nil
}

// SetWithdrawalFee updates the withdrawal fee, bounded by the hard cap.
func (c *Controller) SetWithdrawalFee(caller types.Address, feeBps uint32) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if feeBps > types.MaxWithdrawalFeeBps {
		return errors.Join(types.ErrValidation, types.ErrFeeTooHigh,
			fmt.Errorf("%d bps exceeds cap of %d bps", feeBps, types.MaxWithdrawalFeeBps))
	}
	c.params.WithdrawalFeeBps = feeBps
	c.persistParams()
	return nil
}

// SetFeeRecipient updates where withdrawal fees are paid. Empty leaves fees
// in the vault.
func (c *Controller) SetFeeRecipient(caller, recipient types.Address) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	c.params.FeeRecipient = recipient
	c.persistParams()
	return nil
}

// SetHarvestInterval updates the minimum time between harvest passes.
func (c *Controller) SetHarvestInterval(caller types.Address, interval time.Duration) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if err := c.harvester.SetInterval(interval); err != nil {
		return err
	}
	c.params.HarvestInterval = interval
	c.persistParams()
	return nil
}

// ---------------------------------------------------------------------------
// Read-only queries

// IdleBalance returns the assets held directly by the vault. Implements
// valuation.IdleBalanceSource.
func (c *Controller) IdleBalance() sdkmath.Int { return c.asset.BalanceOf(c.addr) }

// TotalAssets returns idle balance plus all strategy-reported assets.
func (c *Controller) TotalAssets() (sdkmath.Int, error) { return c.valuation.TotalAssets() }

// ConvertToShares quotes shares for an asset amount at the current rate.
func (c *Controller) ConvertToShares(assets sdkmath.Int) (sdkmath.Int, error) {
	return c.valuation.ConvertToShares(assets)
}

// ConvertToAssets quotes assets for a share amount at the current rate.
func (c *Controller) ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error) {
	return c.valuation.ConvertToAssets(shares)
}

// BalanceOf returns a holder's share balance.
func (c *Controller) BalanceOf(holder types.Address) sdkmath.Int { return c.shares.BalanceOf(holder) }

// ShareAllowance returns spender's remaining allowance over owner's shares.
func (c *Controller) ShareAllowance(owner, spender types.Address) sdkmath.Int {
	return c.shares.Allowance(owner, spender)
}

// TotalSupply returns the share supply.
func (c *Controller) TotalSupply() sdkmath.Int { return c.shares.TotalSupply() }

// CurrentAPY returns the allocation-weighted average APY in bps.
func (c *Controller) CurrentAPY() uint32 { return c.registry.WeightedAPY() }

// Strategies returns the read-only view of every registered strategy.
func (c *Controller) Strategies() []types.StrategyInfo {
	entries := c.registry.Entries()
	infos := make([]types.StrategyInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, types.StrategyInfo{
			Address: entry.Strategy.Address(),
			Weight:  entry.Weight,
			Assets:  entry.Strategy.BalanceOf(),
			APYBps:  entry.Strategy.CurrentAPY(),
			Active:  entry.Strategy.IsActive(),
		})
	}
	return infos
}

// Allocation returns a strategy's weight in bps, zero if not registered.
func (c *Controller) Allocation(addr types.Address) uint32 {
	entry, ok := c.registry.Get(addr)
	if !ok {
		return 0
	}
	return entry.Weight
}

// Paused reports the pause state.
func (c *Controller) Paused() bool { return c.paused }

// Params returns a copy of the current vault parameters.
func (c *Controller) Params() config.VaultParameters { return c.params }

// Address returns the vault's account on the asset book.
func (c *Controller) Address() types.Address { return c.addr }

// Owner returns the administrator address.
func (c *Controller) Owner() types.Address { return c.owner }

// LastHarvest returns the timestamp of the last completed harvest pass.
func (c *Controller) LastHarvest() time.Time { return c.harvester.LastHarvest() }

// ---------------------------------------------------------------------------
// State restore

// RestoreShareBalance seeds a holder balance during boot.
func (c *Controller) RestoreShareBalance(holder types.Address, balance sdkmath.Int) error {
	return c.shares.RestoreBalance(holder, balance)
}

// RestoreShareAllowance seeds an allowance during boot.
func (c *Controller) RestoreShareAllowance(owner, spender types.Address, remaining sdkmath.Int) error {
	return c.shares.RestoreAllowance(owner, spender, remaining)
}

// RestoreState seeds the pause flag and harvest gate during boot.
func (c *Controller) RestoreState(paused bool, lastHarvest time.Time) error {
	c.paused = paused
	return c.harvester.Restore(lastHarvest, c.params.HarvestInterval)
}

// ---------------------------------------------------------------------------
// Internal helpers

func (c *Controller) requireOwner(caller types.Address) error {
	if caller != c.owner {
		return errors.Join(types.ErrUnauthorized,
			fmt.Errorf("caller %s is not the vault owner", caller))
	}
	return nil
}

func (c *Controller) opLogger(op string, caller types.Address) zerolog.Logger {
	return c.logger.With().
		Str("op", op).
		Str("op_id", uuid.New().String()).
		Str("caller", string(caller)).
		Logger()
}

func (c *Controller) persistShares(holder types.Address) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveShareBalance(holder, c.shares.BalanceOf(holder)); err != nil {
		c.logger.Error().Err(err).Str("holder", string(holder)).Msg("Failed to persist share balance")
	}
}

func (c *Controller) persistAllowance(owner, spender types.Address) {
	if c.store == nil || owner == spender {
		return
	}
	if err := c.store.SaveAllowance(owner, spender, c.shares.Allowance(owner, spender)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist share allowance")
	}
}

func (c *Controller) persistStrategy(addr types.Address) {
	if c.store == nil {
		return
	}
	entry, ok := c.registry.Get(addr)
	if !ok {
		return
	}
	position := 0
	for i, e := range c.registry.Entries() {
		if e.Strategy.Address() == addr {
			position = i
			break
		}
	}
	if err := c.store.SaveStrategyWeight(addr, entry.Weight, position); err != nil {
		c.logger.Error().Err(err).Str("strategy", string(addr)).Msg("Failed to persist strategy weight")
	}
}

func (c *Controller) persistParams() {
	if c.store == nil {
		return
	}
	if err := c.store.SaveParameters(c.params, c.paused, c.harvester.LastHarvest()); err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist vault parameters")
	}
}
