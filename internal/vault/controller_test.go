package vault

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openyield/svm/internal/config"
	"github.com/openyield/svm/internal/ledger"
	"github.com/openyield/svm/internal/strategy"
	"github.com/openyield/svm/internal/types"
)

const (
	vaultAddr = types.Address("vault")
	ownerAddr = types.Address("owner")
	assetID   = types.AssetID("uusdc")

	alice   = types.Address("alice")
	bob     = types.Address("bob")
	feeSink = types.Address("treasury")
)

func testParams() config.VaultParameters {
	return config.VaultParameters{
		MinDeposit:       sdkmath.NewInt(100),
		MaxTotalAssets:   sdkmath.ZeroInt(),
		WithdrawalFeeBps: 0,
		FeeRecipient:     "",
		HarvestInterval:  12 * time.Hour,
	}
}

func newTestVault(t *testing.T, params config.VaultParameters) (*Controller, *ledger.Ledger) {
	t.Helper()
	book := ledger.New("uusdc")
	c, err := New(Config{
		Address:     vaultAddr,
		Owner:       ownerAddr,
		AssetID:     assetID,
		AssetLedger: book,
		Params:      params,
	})
	require.NoError(t, err)
	return c, book
}

func fund(t *testing.T, book *ledger.Ledger, holder types.Address, amount int64) {
	t.Helper()
	require.NoError(t, book.Mint(holder, sdkmath.NewInt(amount)))
	require.NoError(t, book.Approve(holder, vaultAddr, types.MaxAllowance))
}

func addSim(t *testing.T, c *Controller, book *ledger.Ledger, addr types.Address, weight uint32) *strategy.Sim {
	t.Helper()
	sim := strategy.NewSim(addr, assetID, vaultAddr, book, 500)
	require.NoError(t, c.AddStrategy(ownerAddr, sim, weight))
	return sim
}

func TestDepositBootstrapOneToOne(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	shares, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), shares)
	require.Equal(t, sdkmath.NewInt(1_000), c.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(1_000), c.TotalSupply())
	require.Equal(t, sdkmath.NewInt(1_000), c.IdleBalance())
	require.Equal(t, sdkmath.NewInt(9_000), book.BalanceOf(alice))
}

func TestDepositValidation(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = c.Deposit(alice, alice, sdkmath.NewInt(99))
	require.ErrorIs(t, err, types.ErrBelowMinimumDeposit)

	_, err = c.Deposit(alice, "", sdkmath.NewInt(1_000))
	require.ErrorIs(t, err, types.ErrNilReceiver)

	require.NoError(t, c.Pause(ownerAddr))
	_, err = c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.ErrorIs(t, err, types.ErrState)
	require.ErrorIs(t, err, types.ErrPaused)
}

func TestDepositCeiling(t *testing.T) {
	params := testParams()
	params.MaxTotalAssets = sdkmath.NewInt(1_500)
	c, book := newTestVault(t, params)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	_, err = c.Deposit(alice, alice, sdkmath.NewInt(600))
	require.ErrorIs(t, err, types.ErrDepositCeiling)

	_, err = c.Deposit(alice, alice, sdkmath.NewInt(500))
	require.NoError(t, err)
}

func TestDepositDeploysAcrossStrategies(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 6_000)
	s2 := addSim(t, c, book, "s2", 4_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	require.Equal(t, sdkmath.NewInt(600), s1.BalanceOf())
	require.Equal(t, sdkmath.NewInt(400), s2.BalanceOf())
	require.True(t, c.IdleBalance().IsZero())

	total, err := c.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), total)
}

func TestMintIsDualOfDeposit(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	assets, err := c.Mint(alice, alice, sdkmath.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), assets)
	require.Equal(t, sdkmath.NewInt(500), c.BalanceOf(alice))

	// The computed asset cost is still subject to the deposit floor.
	_, err = c.Mint(alice, alice, sdkmath.NewInt(50))
	require.ErrorIs(t, err, types.ErrBelowMinimumDeposit)
}

func TestWithdrawRoundTrip(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	shares, err := c.Withdraw(alice, alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), shares)
	require.True(t, c.BalanceOf(alice).IsZero())
	require.True(t, c.TotalSupply().IsZero())
	require.Equal(t, sdkmath.NewInt(10_000), book.BalanceOf(alice))
}

func TestWithdrawRecallsFromStrategies(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), s1.BalanceOf())

	_, err = c.Withdraw(alice, alice, alice, sdkmath.NewInt(400))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(9_400), book.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(600), s1.BalanceOf())
}

func TestWithdrawalFeeExactness(t *testing.T) {
	params := testParams()
	params.WithdrawalFeeBps = 50
	params.FeeRecipient = feeSink
	c, book := newTestVault(t, params)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(10_000))
	require.NoError(t, err)

	_, err = c.Withdraw(alice, bob, alice, sdkmath.NewInt(10_000))
	require.NoError(t, err)

	// 10000 * 50 / 10000 = 50 to the recipient, remainder to the receiver.
	require.Equal(t, sdkmath.NewInt(50), book.BalanceOf(feeSink))
	require.Equal(t, sdkmath.NewInt(9_950), book.BalanceOf(bob))
	require.True(t, c.IdleBalance().IsZero())
}

func TestFeeStaysInVaultWithoutRecipient(t *testing.T) {
	params := testParams()
	params.WithdrawalFeeBps = 50
	c, book := newTestVault(t, params)
	fund(t, book, alice, 10_000)
	fund(t, book, bob, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(5_000))
	require.NoError(t, err)
	_, err = c.Deposit(bob, bob, sdkmath.NewInt(5_000))
	require.NoError(t, err)

	_, err = c.Withdraw(alice, alice, alice, sdkmath.NewInt(5_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(9_975), book.BalanceOf(alice))

	// The retained 25 accrues to the remaining holder.
	total, err := c.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(5_025), total)
	value, err := c.ConvertToAssets(c.BalanceOf(bob))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(5_025), value)
}

func TestYieldAccrualRaisesSharePrice(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)
	fund(t, book, bob, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	s1.AccrueYield(sdkmath.NewInt(100))

	// Post-yield the rate is 1.1, so 1100 assets buy exactly 1000 shares.
	shares, err := c.Deposit(bob, bob, sdkmath.NewInt(1_100))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), shares)

	// Alice's original shares now redeem for her principal plus the yield.
	assets, err := c.Redeem(alice, alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_100), assets)
}

func TestRedeemWithFiniteAllowance(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.NoError(t, c.ApproveShares(alice, bob, sdkmath.NewInt(500)))

	_, err = c.Redeem(bob, bob, alice, sdkmath.NewInt(500))
	require.NoError(t, err)
	require.True(t, c.ShareAllowance(alice, bob).IsZero())
	require.Equal(t, sdkmath.NewInt(500), book.BalanceOf(bob))

	_, err = c.Redeem(bob, bob, alice, sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)
}

func TestRedeemWithInfiniteAllowance(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.NoError(t, c.ApproveShares(alice, bob, types.MaxAllowance))

	_, err = c.Redeem(bob, bob, alice, sdkmath.NewInt(600))
	require.NoError(t, err)
	require.True(t, types.IsInfiniteAllowance(c.ShareAllowance(alice, bob)))
}

func TestEmergencyWithdraw(t *testing.T) {
	params := testParams()
	params.WithdrawalFeeBps = 500
	params.FeeRecipient = feeSink
	c, book := newTestVault(t, params)
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	_, err = c.EmergencyWithdraw(alice, alice)
	require.ErrorIs(t, err, types.ErrNotPaused)

	require.NoError(t, c.Pause(ownerAddr))

	_, err = c.EmergencyWithdraw(bob, bob)
	require.ErrorIs(t, err, types.ErrZeroAmount)

	assets, err := c.EmergencyWithdraw(alice, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), assets)

	// No fee on the emergency path, whatever the configured rate.
	require.True(t, book.BalanceOf(feeSink).IsZero())
	require.Equal(t, sdkmath.NewInt(10_000), book.BalanceOf(alice))
	require.True(t, c.BalanceOf(alice).IsZero())
	require.True(t, s1.BalanceOf().IsZero())
}

func TestEmergencyWithdrawTotalLossKeepsShares(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	// Wipe the strategy's position to simulate a total loss: supply is live
	// but the shares are worth zero assets.
	require.NoError(t, book.Burn("s1", s1.BalanceOf()))
	require.NoError(t, c.Pause(ownerAddr))

	_, err = c.EmergencyWithdraw(alice, alice)
	require.ErrorIs(t, err, types.ErrValidation)
	require.ErrorIs(t, err, types.ErrZeroAmount)

	// The worthless exit is rejected outright; the shares survive to claim
	// any future recovery.
	require.Equal(t, sdkmath.NewInt(1_000), c.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(1_000), c.TotalSupply())
}

func TestShortRecallRollsBack(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	// Each withdrawal from the strategy returns at most 10, so two recall
	// passes cannot come close to covering the payout.
	s1.SetLiquidityCap(sdkmath.NewInt(10))

	_, err = c.Withdraw(alice, alice, alice, sdkmath.NewInt(1_000))
	require.ErrorIs(t, err, types.ErrExternal)
	require.ErrorIs(t, err, types.ErrShortRecall)

	// The burn is rolled back; nothing left the vault.
	require.Equal(t, sdkmath.NewInt(1_000), c.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(9_000), book.BalanceOf(alice))

	// Whatever the recall managed to pull back stays idle.
	require.Equal(t, sdkmath.NewInt(20), c.IdleBalance())
	total, err := c.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), total)
}

func TestShortRecallRestoresSpentAllowance(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.NoError(t, c.ApproveShares(alice, bob, sdkmath.NewInt(1_000)))
	s1.SetLiquidityCap(sdkmath.NewInt(10))

	_, err = c.Redeem(bob, bob, alice, sdkmath.NewInt(1_000))
	require.ErrorIs(t, err, types.ErrShortRecall)
	require.Equal(t, sdkmath.NewInt(1_000), c.ShareAllowance(alice, bob))
	require.Equal(t, sdkmath.NewInt(1_000), c.BalanceOf(alice))
}

func TestReentrantCallbackRejected(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	var reentrantErr error
	s1.OnDeposit(func() {
		_, reentrantErr = c.Deposit(alice, alice, sdkmath.NewInt(500))
	})

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.ErrorIs(t, reentrantErr, types.ErrReentrantCall)

	// Only the outer deposit took effect.
	require.Equal(t, sdkmath.NewInt(1_000), c.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(1_000), s1.BalanceOf())
}

func TestPauseLifecycle(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)
	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	require.ErrorIs(t, c.Pause(alice), types.ErrUnauthorized)
	require.NoError(t, c.Pause(ownerAddr))
	require.True(t, c.Paused())
	require.ErrorIs(t, c.Pause(ownerAddr), types.ErrPaused)

	// Exits stay open while paused.
	_, err = c.Withdraw(alice, alice, alice, sdkmath.NewInt(500))
	require.NoError(t, err)

	require.ErrorIs(t, c.Unpause(alice), types.ErrUnauthorized)
	require.NoError(t, c.Unpause(ownerAddr))
	require.False(t, c.Paused())
	require.ErrorIs(t, c.Unpause(ownerAddr), types.ErrNotPaused)
}

func TestRebalanceAppliesNewWeights(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 8_000)
	s2 := addSim(t, c, book, "s2", 2_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(800), s1.BalanceOf())
	require.Equal(t, sdkmath.NewInt(200), s2.BalanceOf())

	require.NoError(t, c.UpdateAllocation(ownerAddr, "s1", 2_000))
	require.NoError(t, c.UpdateAllocation(ownerAddr, "s2", 8_000))

	require.ErrorIs(t, c.Rebalance(alice), types.ErrUnauthorized)
	require.NoError(t, c.Rebalance(ownerAddr))

	require.Equal(t, sdkmath.NewInt(200), s1.BalanceOf())
	require.Equal(t, sdkmath.NewInt(800), s2.BalanceOf())
	require.True(t, c.IdleBalance().IsZero())
}

func TestRebalanceStateChecks(t *testing.T) {
	c, _ := newTestVault(t, testParams())
	require.ErrorIs(t, c.Rebalance(ownerAddr), types.ErrNoStrategies)
}

func TestRemoveStrategyRecallsFunds(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	require.ErrorIs(t, c.RemoveStrategy(alice, "s1"), types.ErrUnauthorized)
	require.NoError(t, c.RemoveStrategy(ownerAddr, "s1"))
	require.True(t, s1.BalanceOf().IsZero())
	require.Equal(t, sdkmath.NewInt(1_000), c.IdleBalance())
	require.Empty(t, c.Strategies())

	// Holders are unaffected by the removal.
	total, err := c.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), total)
}

func TestHarvestAllOwnerGated(t *testing.T) {
	c, book := newTestVault(t, testParams())
	s1 := addSim(t, c, book, "s1", 10_000)
	s1.AddRewards(sdkmath.NewInt(77))

	_, err := c.HarvestAll(alice)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	report, err := c.HarvestAll(ownerAddr)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(77), report.TotalRewards)
	require.False(t, c.LastHarvest().IsZero())
}

func TestParameterSetters(t *testing.T) {
	c, _ := newTestVault(t, testParams())

	require.ErrorIs(t, c.SetWithdrawalFee(alice, 10), types.ErrUnauthorized)

	err := c.SetWithdrawalFee(ownerAddr, types.MaxWithdrawalFeeBps+1)
	require.ErrorIs(t, err, types.ErrFeeTooHigh)
	require.NoError(t, c.SetWithdrawalFee(ownerAddr, types.MaxWithdrawalFeeBps))

	err = c.SetHarvestInterval(ownerAddr, 30*time.Minute)
	require.ErrorIs(t, err, types.ErrBadHarvestInterval)
	require.NoError(t, c.SetHarvestInterval(ownerAddr, 2*time.Hour))

	require.ErrorIs(t, c.SetMinDeposit(ownerAddr, sdkmath.NewInt(-1)), types.ErrValidation)
	require.NoError(t, c.SetMinDeposit(ownerAddr, sdkmath.NewInt(250)))
	require.NoError(t, c.SetMaxTotalAssets(ownerAddr, sdkmath.NewInt(1_000_000)))
	require.NoError(t, c.SetFeeRecipient(ownerAddr, feeSink))

	params := c.Params()
	require.Equal(t, uint32(types.MaxWithdrawalFeeBps), params.WithdrawalFeeBps)
	require.Equal(t, 2*time.Hour, params.HarvestInterval)
	require.Equal(t, sdkmath.NewInt(250), params.MinDeposit)
	require.Equal(t, sdkmath.NewInt(1_000_000), params.MaxTotalAssets)
	require.Equal(t, feeSink, params.FeeRecipient)
}

func TestShareTransfers(t *testing.T) {
	c, book := newTestVault(t, testParams())
	fund(t, book, alice, 10_000)

	_, err := c.Deposit(alice, alice, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	require.NoError(t, c.TransferShares(alice, bob, sdkmath.NewInt(400)))
	require.Equal(t, sdkmath.NewInt(600), c.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(400), c.BalanceOf(bob))

	require.ErrorIs(t, c.TransferShares(alice, bob, sdkmath.NewInt(601)), types.ErrInsufficientBalance)
}

func TestRestoreState(t *testing.T) {
	c, _ := newTestVault(t, testParams())

	require.NoError(t, c.RestoreShareBalance(alice, sdkmath.NewInt(700)))
	require.NoError(t, c.RestoreShareBalance(bob, sdkmath.NewInt(300)))
	require.NoError(t, c.RestoreShareAllowance(alice, bob, sdkmath.NewInt(100)))

	last := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	require.NoError(t, c.RestoreState(true, last))

	require.Equal(t, sdkmath.NewInt(1_000), c.TotalSupply())
	require.Equal(t, sdkmath.NewInt(100), c.ShareAllowance(alice, bob))
	require.True(t, c.Paused())
	require.Equal(t, last, c.LastHarvest())
}
