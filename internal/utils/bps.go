/*
This file contains common helpers for basis-point and proportional amount
arithmetic. All division is truncating (floor for non-negative operands),
which rounds in favor of the vault everywhere it is used.
*/

package utils

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/openyield/svm/internal/types"
)

var (
	ErrNegativeAmount = errors.New("amount is negative")
	ErrBpsOutOfRange  = errors.New("basis points out of range")
)

// MulBps returns amount * bps / 10000 with floor division.
func MulBps(amount sdkmath.Int, bps uint32) sdkmath.Int {
	if bps == 0 || amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return amount.MulRaw(int64(bps)).QuoRaw(types.BpsDenominator)
}

// Proportional returns amount * numerator / denominator with floor division.
// A zero or nil denominator yields zero rather than dividing by zero; callers
// that need a different policy must check the denominator themselves.
func Proportional(amount, numerator, denominator sdkmath.Int) sdkmath.Int {
	if amount.IsNil() || numerator.IsNil() || denominator.IsNil() {
		return sdkmath.ZeroInt()
	}
	if denominator.IsZero() || !amount.IsPositive() || !numerator.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return amount.Mul(numerator).Quo(denominator)
}

// MinInt returns the smaller of two amounts.
func MinInt(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}

// ValidateBps checks that a basis-point value does not exceed the denominator.
func ValidateBps(bps uint32) error {
	if bps > types.BpsDenominator {
		return ErrBpsOutOfRange
	}
	return nil
}
