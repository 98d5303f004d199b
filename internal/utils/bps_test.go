package utils

import (
	"testing"
	"testing/quick"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestMulBps(t *testing.T) {
	require.Equal(t, sdkmath.NewInt(50), MulBps(sdkmath.NewInt(10_000), 50))
	require.Equal(t, sdkmath.NewInt(5), MulBps(sdkmath.NewInt(1_000), 50))

	// 999 * 50 / 10000 = 4.995, floor to 4.
	require.Equal(t, sdkmath.NewInt(4), MulBps(sdkmath.NewInt(999), 50))

	require.True(t, MulBps(sdkmath.NewInt(1_000), 0).IsZero())
	require.True(t, MulBps(sdkmath.ZeroInt(), 50).IsZero())
	require.True(t, MulBps(sdkmath.Int{}, 50).IsZero())
}

func TestProportional(t *testing.T) {
	require.Equal(t, sdkmath.NewInt(300), Proportional(sdkmath.NewInt(500), sdkmath.NewInt(600), sdkmath.NewInt(1_000)))

	// 500 * 1 / 3 floors to 166.
	require.Equal(t, sdkmath.NewInt(166), Proportional(sdkmath.NewInt(500), sdkmath.NewInt(1), sdkmath.NewInt(3)))

	require.True(t, Proportional(sdkmath.NewInt(500), sdkmath.NewInt(600), sdkmath.ZeroInt()).IsZero())
	require.True(t, Proportional(sdkmath.ZeroInt(), sdkmath.NewInt(600), sdkmath.NewInt(1_000)).IsZero())
	require.True(t, Proportional(sdkmath.NewInt(500), sdkmath.Int{}, sdkmath.NewInt(1_000)).IsZero())
}

// A proportional slice of an amount can never exceed the amount itself when
// the numerator is at most the denominator.
func TestProportionalNeverExceedsAmount(t *testing.T) {
	f := func(amount uint32, part uint16, total uint16) bool {
		if total == 0 || part > total {
			return true
		}
		a := sdkmath.NewInt(int64(amount))
		got := Proportional(a, sdkmath.NewInt(int64(part)), sdkmath.NewInt(int64(total)))
		return got.LTE(a)
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestMinInt(t *testing.T) {
	require.Equal(t, sdkmath.NewInt(3), MinInt(sdkmath.NewInt(3), sdkmath.NewInt(7)))
	require.Equal(t, sdkmath.NewInt(3), MinInt(sdkmath.NewInt(7), sdkmath.NewInt(3)))
	require.Equal(t, sdkmath.NewInt(3), MinInt(sdkmath.NewInt(3), sdkmath.NewInt(3)))
}

func TestValidateBps(t *testing.T) {
	require.NoError(t, ValidateBps(0))
	require.NoError(t, ValidateBps(10_000))
	require.ErrorIs(t, ValidateBps(10_001), ErrBpsOutOfRange)
}
