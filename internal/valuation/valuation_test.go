package valuation

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openyield/svm/internal/ledger"
	"github.com/openyield/svm/internal/registry"
	"github.com/openyield/svm/internal/strategy"
	"github.com/openyield/svm/internal/types"
)

type staticIdle struct{ amount sdkmath.Int }

func (s staticIdle) IdleBalance() sdkmath.Int { return s.amount }

type staticSupply struct{ amount sdkmath.Int }

func (s staticSupply) TotalSupply() sdkmath.Int { return s.amount }

func newEngine(idle, supply int64, reg *registry.Registry) *Engine {
	if reg == nil {
		reg = registry.New("vault", "uusdc")
	}
	return New(reg, staticIdle{sdkmath.NewInt(idle)}, staticSupply{sdkmath.NewInt(supply)})
}

func TestBootstrapConversionIsOneToOne(t *testing.T) {
	e := newEngine(0, 0, nil)

	shares, err := e.ConvertToShares(sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), shares)

	assets, err := e.ConvertToAssets(sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), assets)
}

func TestConversionUsesFloorDivision(t *testing.T) {
	// 1100 assets backing 1000 shares: rate is 1.1 assets per share.
	e := newEngine(1_100, 1_000, nil)

	// 100 * 1000 / 1100 = 90.9..., floors to 90.
	shares, err := e.ConvertToShares(sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(90), shares)

	// 100 * 1100 / 1000 = 110.
	assets, err := e.ConvertToAssets(sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(110), assets)

	// 9 * 1100 / 1000 = 9.9, floors to 9.
	assets, err = e.ConvertToAssets(sdkmath.NewInt(9))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(9), assets)
}

func TestZeroBackingWithLiveSupply(t *testing.T) {
	e := newEngine(0, 1_000, nil)

	shares, err := e.ConvertToShares(sdkmath.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), shares)

	assets, err := e.ConvertToAssets(sdkmath.NewInt(500))
	require.NoError(t, err)
	require.True(t, assets.IsZero())
}

func TestTotalAssetsIncludesStrategies(t *testing.T) {
	funds := ledger.New("uusdc")
	reg := registry.New("vault", "uusdc")
	s1 := strategy.NewSim("s1", "uusdc", "vault", funds, 500)
	require.NoError(t, reg.Add(s1, 5_000))

	require.NoError(t, funds.Mint("s1", sdkmath.NewInt(400)))
	s1.AccrueYield(sdkmath.NewInt(50))

	e := newEngine(300, 0, reg)
	total, err := e.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(750), total)
}

func TestStrategyValuationFailureIsFatal(t *testing.T) {
	funds := ledger.New("uusdc")
	reg := registry.New("vault", "uusdc")
	s1 := strategy.NewSim("s1", "uusdc", "vault", funds, 500)
	require.NoError(t, reg.Add(s1, 5_000))
	s1.FailValuation(true)

	e := newEngine(300, 1_000, reg)

	_, err := e.TotalAssets()
	require.ErrorIs(t, err, types.ErrExternal)

	_, err = e.ConvertToShares(sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrExternal)

	_, err = e.ConvertToAssets(sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrExternal)
}

func TestNegativeAmountsRejected(t *testing.T) {
	e := newEngine(0, 0, nil)
	_, err := e.ConvertToShares(sdkmath.NewInt(-1))
	require.ErrorIs(t, err, types.ErrValidation)
	_, err = e.ConvertToAssets(sdkmath.NewInt(-1))
	require.ErrorIs(t, err, types.ErrValidation)
}
