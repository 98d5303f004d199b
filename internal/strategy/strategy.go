package strategy

import (
	sdkmath "cosmossdk.io/math"

	"github.com/openyield/svm/internal/types"
)

// Strategy is the capability contract every yield adapter must satisfy.
// Holding a Strategy reference is the capability: only the owning vault (and
// its administrator, for pause and withdraw-all) is ever handed one, so the
// mutating operations carry no caller argument. Adapters for specific
// protocols live behind this interface and the core never learns which
// protocol backs an entry.
type Strategy interface {
	// Address identifies the strategy's own account on the asset book.
	Address() types.Address

	// UnderlyingAsset returns the asset the strategy accepts. It must match
	// the vault's asset or registration fails.
	UnderlyingAsset() types.AssetID

	// VaultAddress returns the vault this strategy was built for. It must
	// equal the registering vault.
	VaultAddress() types.Address

	// TotalAssets reports the assets under the strategy's management. The
	// call may mutate internal accrual state (interest-index refresh), so
	// results are not idempotent across calls separated by accrual.
	TotalAssets() (sdkmath.Int, error)

	// CurrentAPY returns the strategy's advertised yield in basis points.
	CurrentAPY() uint32

	// Deposit pushes amount from the vault into the strategy and returns the
	// amount actually taken.
	Deposit(amount sdkmath.Int) (sdkmath.Int, error)

	// Withdraw pulls up to amount back to the vault and returns the amount
	// actually returned, which may be less than requested.
	Withdraw(amount sdkmath.Int) (sdkmath.Int, error)

	// WithdrawAll liquidates the entire position back to the vault.
	WithdrawAll() (sdkmath.Int, error)

	// Harvest realizes accrued rewards and returns the reward amount.
	Harvest() (sdkmath.Int, error)

	// BalanceOf returns the strategy's booked position without accrual.
	BalanceOf() sdkmath.Int

	// IsActive reports whether the strategy accepts new deposits.
	IsActive() bool

	// Pause and Unpause toggle acceptance of new deposits.
	Pause()
	Unpause()
}
