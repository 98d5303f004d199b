/*

This file contains the primitive identifier and amount types shared by the
share-accounting core.

*/

package types

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Address identifies an account: a share holder, a strategy, the vault
// itself, or the fee recipient. Empty string means "no address".
type Address string

// AssetID identifies the single underlying fungible asset a vault manages.
type AssetID string

const (
	// BpsDenominator is the basis-point denominator; 100 bps = 1%.
	BpsDenominator = 10_000

	// MaxWithdrawalFeeBps is the hard cap on the configurable withdrawal fee.
	MaxWithdrawalFeeBps = 500
)

// MaxAllowance is the infinite-allowance sentinel (2^256 - 1). An allowance
// equal to this value is never decremented on transfer-from.
var MaxAllowance = sdkmath.NewIntFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
)

// IsInfiniteAllowance reports whether the given allowance is the infinite
// sentinel.
func IsInfiniteAllowance(allowance sdkmath.Int) bool {
	return allowance.Equal(MaxAllowance)
}
