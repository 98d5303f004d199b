package ledger

import (
	"testing"
	"testing/quick"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openyield/svm/internal/types"
)

const (
	alice = types.Address("alice")
	bob   = types.Address("bob")
	carol = types.Address("carol")
)

func TestMintAndBurn(t *testing.T) {
	l := New("test")

	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1_000)))
	require.Equal(t, sdkmath.NewInt(1_000), l.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(1_000), l.TotalSupply())

	require.NoError(t, l.Burn(alice, sdkmath.NewInt(400)))
	require.Equal(t, sdkmath.NewInt(600), l.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(600), l.TotalSupply())

	err := l.Burn(alice, sdkmath.NewInt(601))
	require.ErrorIs(t, err, types.ErrValidation)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	require.ErrorIs(t, l.Mint("", sdkmath.NewInt(1)), types.ErrNilHolder)
	require.ErrorIs(t, l.Mint(alice, sdkmath.ZeroInt()), types.ErrZeroAmount)
	require.ErrorIs(t, l.Mint(alice, sdkmath.NewInt(-5)), types.ErrZeroAmount)
}

func TestTransfer(t *testing.T) {
	l := New("test")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(500)))

	require.NoError(t, l.Transfer(alice, bob, sdkmath.NewInt(200)))
	require.Equal(t, sdkmath.NewInt(300), l.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(200), l.BalanceOf(bob))
	require.Equal(t, sdkmath.NewInt(500), l.TotalSupply())

	require.ErrorIs(t, l.Transfer(alice, bob, sdkmath.NewInt(301)), types.ErrInsufficientBalance)
	require.ErrorIs(t, l.Transfer(alice, "", sdkmath.NewInt(1)), types.ErrNilHolder)
}

func TestZeroBalancesDropFromHolderSet(t *testing.T) {
	l := New("test")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(100)))
	require.NoError(t, l.Mint(bob, sdkmath.NewInt(100)))

	require.NoError(t, l.Transfer(alice, bob, sdkmath.NewInt(100)))
	require.Equal(t, []types.Address{bob}, l.Holders())

	require.NoError(t, l.Burn(bob, sdkmath.NewInt(200)))
	require.Empty(t, l.Holders())
}

func TestHoldersSorted(t *testing.T) {
	l := New("test")
	require.NoError(t, l.Mint(carol, sdkmath.NewInt(1)))
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1)))
	require.NoError(t, l.Mint(bob, sdkmath.NewInt(1)))
	require.Equal(t, []types.Address{alice, bob, carol}, l.Holders())
}

func TestFiniteAllowance(t *testing.T) {
	l := New("test")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1_000)))
	require.NoError(t, l.Approve(alice, bob, sdkmath.NewInt(300)))
	require.Equal(t, sdkmath.NewInt(300), l.Allowance(alice, bob))

	require.NoError(t, l.TransferFrom(bob, alice, carol, sdkmath.NewInt(200)))
	require.Equal(t, sdkmath.NewInt(100), l.Allowance(alice, bob))
	require.Equal(t, sdkmath.NewInt(200), l.BalanceOf(carol))

	err := l.TransferFrom(bob, alice, carol, sdkmath.NewInt(101))
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	// The failed spend must not move funds.
	require.Equal(t, sdkmath.NewInt(800), l.BalanceOf(alice))
}

func TestInfiniteAllowanceNeverDecrements(t *testing.T) {
	l := New("test")
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1_000)))
	require.NoError(t, l.Approve(alice, bob, types.MaxAllowance))

	require.NoError(t, l.TransferFrom(bob, alice, carol, sdkmath.NewInt(600)))
	require.True(t, types.IsInfiniteAllowance(l.Allowance(alice, bob)))

	require.NoError(t, l.TransferFrom(bob, alice, carol, sdkmath.NewInt(400)))
	require.True(t, types.IsInfiniteAllowance(l.Allowance(alice, bob)))
}

func TestZeroApprovalClearsAllowance(t *testing.T) {
	l := New("test")
	require.NoError(t, l.Approve(alice, bob, sdkmath.NewInt(300)))
	require.NoError(t, l.Approve(alice, bob, sdkmath.ZeroInt()))
	require.True(t, l.Allowance(alice, bob).IsZero())
	require.Empty(t, l.Allowances()[alice])
}

func TestRestoreBalanceRebuildsSupply(t *testing.T) {
	l := New("test")
	require.NoError(t, l.RestoreBalance(alice, sdkmath.NewInt(700)))
	require.NoError(t, l.RestoreBalance(bob, sdkmath.NewInt(300)))
	require.Equal(t, sdkmath.NewInt(1_000), l.TotalSupply())

	// Re-restoring the same holder replaces, not adds.
	require.NoError(t, l.RestoreBalance(alice, sdkmath.NewInt(100)))
	require.Equal(t, sdkmath.NewInt(400), l.TotalSupply())
}

// Total supply always equals the sum of all balances, whatever sequence of
// mints and burns is applied.
func TestSupplyMatchesBalances(t *testing.T) {
	holders := []types.Address{alice, bob, carol}
	f := func(ops []uint16) bool {
		l := New("test")
		for i, op := range ops {
			holder := holders[i%len(holders)]
			amount := sdkmath.NewInt(int64(op%999) + 1)
			if op%2 == 0 {
				if err := l.Mint(holder, amount); err != nil {
					return false
				}
			} else {
				// Burns may legitimately fail on insufficient balance.
				_ = l.Burn(holder, amount)
			}
		}
		sum := sdkmath.ZeroInt()
		for _, holder := range l.Holders() {
			sum = sum.Add(l.BalanceOf(holder))
		}
		return sum.Equal(l.TotalSupply())
	}
	require.NoError(t, quick.Check(f, nil))
}
