/*

This file defines the error taxonomy for the vault core. Every failure surfaced
by a public operation belongs to one of the four category errors; specific
sentinels are joined onto their category at the call site so callers can match
either level with errors.Is.

*/

package types

import "errors"

// Error categories.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrState        = errors.New("invalid vault state")
	ErrExternal     = errors.New("external strategy call failed")
)

// Specific sentinels, joined onto a category where they are raised.
var (
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrBelowMinimumDeposit   = errors.New("deposit below configured minimum")
	ErrDepositCeiling        = errors.New("deposit exceeds maximum total assets")
	ErrZeroShares            = errors.New("computed share amount is zero")
	ErrNilReceiver           = errors.New("receiver address is empty")
	ErrNilHolder             = errors.New("holder address is empty")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrStrategyExists        = errors.New("strategy already registered")
	ErrStrategyNotFound      = errors.New("strategy not registered")
	ErrZeroWeight            = errors.New("allocation weight cannot be zero")
	ErrWeightCeiling         = errors.New("total allocation weight exceeds 10000 bps")
	ErrAssetMismatch         = errors.New("strategy underlying asset does not match vault")
	ErrVaultMismatch         = errors.New("strategy vault reference does not match vault")
	ErrPaused                = errors.New("vault is paused")
	ErrNotPaused             = errors.New("vault is not paused")
	ErrHarvestTooSoon        = errors.New("harvest interval has not elapsed")
	ErrNoStrategies          = errors.New("no active strategies")
	ErrReentrantCall         = errors.New("reentrant call rejected")
	ErrFeeTooHigh            = errors.New("withdrawal fee exceeds hard cap")
	ErrBadHarvestInterval    = errors.New("harvest interval out of bounds")
	ErrShortRecall           = errors.New("strategies returned less than the requested amount")
)
