/*

This package implements fungible balance accounting with approve/allowance
semantics. The same type serves two roles: the vault's ownership-share ledger
and the in-process book for the underlying asset. Mutations are not
synchronized here; the vault controller serializes every state-mutating call.

*/

package ledger

import (
	"errors"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/types"
)

// Ledger tracks per-holder balances, per-owner allowances, and total supply.
// Invariant: the sum of all balances equals the total supply at all times,
// and no balance is ever negative.
type Ledger struct {
	name       string
	balances   map[types.Address]sdkmath.Int
	allowances map[types.Address]map[types.Address]sdkmath.Int
	supply     sdkmath.Int
	logger     zerolog.Logger
}

// New creates an empty ledger. The name appears in log lines only.
func New(name string) *Ledger {
	return &Ledger{
		name:       name,
		balances:   make(map[types.Address]sdkmath.Int),
		allowances: make(map[types.Address]map[types.Address]sdkmath.Int),
		supply:     sdkmath.ZeroInt(),
		logger:     logger.GetForComponent("ledger_" + name),
	}
}

// Mint credits amount to holder and grows the total supply.
func (l *Ledger) Mint(holder types.Address, amount sdkmath.Int) error {
	if holder == "" {
		return errors.Join(types.ErrValidation, types.ErrNilHolder)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	l.balances[holder] = l.BalanceOf(holder).Add(amount)
	l.supply = l.supply.Add(amount)

	l.logger.Debug().
		Str("holder", string(holder)).
		Str("amount", amount.String()).
		Str("supply", l.supply.String()).
		Msg("Minted")
	return nil
}

// Burn debits amount from holder and shrinks the total supply.
func (l *Ledger) Burn(holder types.Address, amount sdkmath.Int) error {
	if holder == "" {
		return errors.Join(types.ErrValidation, types.ErrNilHolder)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	balance := l.BalanceOf(holder)
	if balance.LT(amount) {
		return errors.Join(types.ErrValidation, types.ErrInsufficientBalance,
			fmt.Errorf("burn %s from %s with balance %s", amount, holder, balance))
	}

	l.setBalance(holder, balance.Sub(amount))
	l.supply = l.supply.Sub(amount)

	l.logger.Debug().
		Str("holder", string(holder)).
		Str("amount", amount.String()).
		Str("supply", l.supply.String()).
		Msg("Burned")
	return nil
}

// Transfer moves amount between holders without touching allowances.
func (l *Ledger) Transfer(from, to types.Address, amount sdkmath.Int) error {
	if from == "" || to == "" {
		return errors.Join(types.ErrValidation, types.ErrNilHolder)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	balance := l.BalanceOf(from)
	if balance.LT(amount) {
		return errors.Join(types.ErrValidation, types.ErrInsufficientBalance,
			fmt.Errorf("transfer %s from %s with balance %s", amount, from, balance))
	}

	l.setBalance(from, balance.Sub(amount))
	l.balances[to] = l.BalanceOf(to).Add(amount)
	return nil
}

// Approve sets spender's allowance over owner's balance. types.MaxAllowance
// marks the allowance as infinite.
func (l *Ledger) Approve(owner, spender types.Address, amount sdkmath.Int) error {
	if owner == "" || spender == "" {
		return errors.Join(types.ErrValidation, types.ErrNilHolder)
	}
	if amount.IsNil() || amount.IsNegative() {
		return errors.Join(types.ErrValidation, types.ErrZeroAmount,
			errors.New("allowance cannot be negative"))
	}

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[types.Address]sdkmath.Int)
	}
	if amount.IsZero() {
		delete(l.allowances[owner], spender)
	} else {
		l.allowances[owner][spender] = amount
	}
	return nil
}

// Allowance returns spender's remaining allowance over owner's balance.
func (l *Ledger) Allowance(owner, spender types.Address) sdkmath.Int {
	if granted, ok := l.allowances[owner][spender]; ok {
		return granted
	}
	return sdkmath.ZeroInt()
}

// SpendAllowance consumes amount from spender's allowance over owner's
// balance. The infinite sentinel is never decremented.
func (l *Ledger) SpendAllowance(owner, spender types.Address, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	granted := l.Allowance(owner, spender)
	if types.IsInfiniteAllowance(granted) {
		return nil
	}
	if granted.LT(amount) {
		return errors.Join(types.ErrUnauthorized, types.ErrInsufficientAllowance,
			fmt.Errorf("spend %s of %s granted by %s to %s", amount, granted, owner, spender))
	}

	return l.Approve(owner, spender, granted.Sub(amount))
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming a finite allowance first.
func (l *Ledger) TransferFrom(spender, owner, to types.Address, amount sdkmath.Int) error {
	if err := l.SpendAllowance(owner, spender, amount); err != nil {
		return err
	}
	return l.Transfer(owner, to, amount)
}

// BalanceOf returns holder's balance, zero for unknown holders.
func (l *Ledger) BalanceOf(holder types.Address) sdkmath.Int {
	if balance, ok := l.balances[holder]; ok {
		return balance
	}
	return sdkmath.ZeroInt()
}

// TotalSupply returns the ledger's total supply.
func (l *Ledger) TotalSupply() sdkmath.Int {
	return l.supply
}

// Holders returns every address with a nonzero balance, sorted for
// deterministic iteration.
func (l *Ledger) Holders() []types.Address {
	holders := make([]types.Address, 0, len(l.balances))
	for holder := range l.balances {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
	return holders
}

// Allowances returns a copy of every recorded (owner, spender, remaining)
// triple, used for persistence.
func (l *Ledger) Allowances() map[types.Address]map[types.Address]sdkmath.Int {
	out := make(map[types.Address]map[types.Address]sdkmath.Int, len(l.allowances))
	for owner, spenders := range l.allowances {
		out[owner] = make(map[types.Address]sdkmath.Int, len(spenders))
		for spender, granted := range spenders {
			out[owner][spender] = granted
		}
	}
	return out
}

// RestoreBalance seeds a holder balance during state restore. It bypasses
// mint gating and must only be called before the ledger is in service.
func (l *Ledger) RestoreBalance(holder types.Address, balance sdkmath.Int) error {
	if holder == "" {
		return errors.Join(types.ErrValidation, types.ErrNilHolder)
	}
	if balance.IsNil() || balance.IsNegative() {
		return errors.Join(types.ErrValidation, types.ErrZeroAmount,
			errors.New("restored balance cannot be negative"))
	}

	previous := l.BalanceOf(holder)
	l.supply = l.supply.Sub(previous).Add(balance)
	l.setBalance(holder, balance)
	return nil
}

// RestoreAllowance seeds an allowance during state restore.
func (l *Ledger) RestoreAllowance(owner, spender types.Address, remaining sdkmath.Int) error {
	return l.Approve(owner, spender, remaining)
}

func (l *Ledger) setBalance(holder types.Address, balance sdkmath.Int) {
	if balance.IsZero() {
		delete(l.balances, holder)
		return
	}
	l.balances[holder] = balance
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errors.Join(types.ErrValidation, types.ErrZeroAmount)
	}
	return nil
}
