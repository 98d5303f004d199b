/*

This package moves funds between the vault's idle balance and its strategies.
Deployment splits an amount across strategies proportionally to their weights;
recall runs a proportional pass against a single valuation snapshot followed
by a greedy fallback pass. Per-strategy failures are recorded and skipped in
both directions: one broken integration must not block capital from reaching,
or returning from, the healthy ones.

*/

package router

import (
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/registry"
	"github.com/openyield/svm/internal/types"
	"github.com/openyield/svm/internal/utils"
)

// Router deploys and recalls vault capital across the registry.
type Router struct {
	registry *registry.Registry
	logger   zerolog.Logger
}

// New creates a router over the given registry.
func New(reg *registry.Registry) *Router {
	return &Router{
		registry: reg,
		logger:   logger.GetForComponent("funds_router"),
	}
}

// Deploy pushes amount into the active strategies proportionally to their
// weights. With no strategies or zero total weight the funds stay idle.
// A failing or inactive strategy's portion stays idle too; deployment to the
// remaining strategies continues.
func (r *Router) Deploy(amount sdkmath.Int) []types.DeployReceipt {
	if amount.IsNil() || !amount.IsPositive() {
		return nil
	}

	entries := r.registry.Entries()
	totalWeight := r.registry.TotalWeight()
	if len(entries) == 0 || totalWeight == 0 {
		r.logger.Debug().Str("amount", amount.String()).Msg("No deployable strategies, funds stay idle")
		return nil
	}

	receipts := make([]types.DeployReceipt, 0, len(entries))
	for _, entry := range entries {
		addr := entry.Strategy.Address()
		want := amount.MulRaw(int64(entry.Weight)).QuoRaw(int64(totalWeight))
		if want.IsZero() {
			continue
		}
		if !entry.Strategy.IsActive() {
			receipts = append(receipts, types.DeployReceipt{
				Strategy:  addr,
				Requested: want,
				Deposited: sdkmath.ZeroInt(),
				Success:   false,
				Message:   "strategy inactive",
			})
			continue
		}

		deposited, err := entry.Strategy.Deposit(want)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("strategy", string(addr)).
				Str("requested", want.String()).
				Msg("Strategy deposit failed, funds stay idle")
			receipts = append(receipts, types.DeployReceipt{
				Strategy:  addr,
				Requested: want,
				Deposited: sdkmath.ZeroInt(),
				Success:   false,
				Message:   err.Error(),
			})
			continue
		}

		receipts = append(receipts, types.DeployReceipt{
			Strategy:  addr,
			Requested: want,
			Deposited: deposited,
			Success:   true,
		})
	}

	r.logger.Info().
		Str("amount", amount.String()).
		Int("strategies", len(receipts)).
		Msg("Deployment pass complete")
	return receipts
}

// Recall pulls amount back from the strategies. Pass 1 requests each
// strategy's proportional share against a snapshot of per-strategy assets
// taken once at the start; pass 2 greedily requests the remaining shortfall
// from each strategy in registry order. Strategies may return less than
// requested; failures are skipped. If total strategy assets are zero the
// recall is a no-op.
func (r *Router) Recall(amount sdkmath.Int) (sdkmath.Int, []types.RecallReceipt) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	entries := r.registry.Entries()
	if len(entries) == 0 {
		return sdkmath.ZeroInt(), nil
	}

	// Snapshot valuations once so the proportions cannot drift as
	// per-strategy accrual mutates state mid-pass.
	snapshot := make([]sdkmath.Int, len(entries))
	totalHeld := sdkmath.ZeroInt()
	for i, entry := range entries {
		assets, err := entry.Strategy.TotalAssets()
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("strategy", string(entry.Strategy.Address())).
				Msg("Valuation failed during recall snapshot, treating as empty")
			assets = sdkmath.ZeroInt()
		}
		snapshot[i] = assets
		totalHeld = totalHeld.Add(assets)
	}
	if totalHeld.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	recalled := sdkmath.ZeroInt()
	remaining := amount
	receipts := make([]types.RecallReceipt, 0, len(entries))

	// Pass 1: proportional to each strategy's share of total held assets.
	for i, entry := range entries {
		if !remaining.IsPositive() {
			break
		}
		request := utils.MinInt(utils.Proportional(amount, snapshot[i], totalHeld), remaining)
		if request.IsZero() {
			continue
		}
		got, receipt := r.withdrawFrom(entry, 1, request)
		receipts = append(receipts, receipt)
		recalled = recalled.Add(got)
		remaining = remaining.Sub(got)
	}

	// Pass 2: greedy fallback for any shortfall, in registry order.
	for _, entry := range entries {
		if !remaining.IsPositive() {
			break
		}
		got, receipt := r.withdrawFrom(entry, 2, remaining)
		receipts = append(receipts, receipt)
		recalled = recalled.Add(got)
		remaining = remaining.Sub(got)
	}

	r.logger.Info().
		Str("requested", amount.String()).
		Str("recalled", recalled.String()).
		Str("shortfall", remaining.String()).
		Msg("Recall complete")
	return recalled, receipts
}

// RecallAll withdraws the entirety of every strategy's position
// unconditionally. Failures are skipped like any other recall.
func (r *Router) RecallAll() (sdkmath.Int, []types.RecallReceipt) {
	recalled := sdkmath.ZeroInt()
	entries := r.registry.Entries()
	receipts := make([]types.RecallReceipt, 0, len(entries))

	for _, entry := range entries {
		addr := entry.Strategy.Address()
		position := entry.Strategy.BalanceOf()
		got, err := entry.Strategy.WithdrawAll()
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("strategy", string(addr)).
				Msg("Withdraw-all failed, position left in place")
			receipts = append(receipts, types.RecallReceipt{
				Strategy:  addr,
				Pass:      1,
				Requested: position,
				Returned:  sdkmath.ZeroInt(),
				Success:   false,
				Message:   err.Error(),
			})
			continue
		}
		receipts = append(receipts, types.RecallReceipt{
			Strategy:  addr,
			Pass:      1,
			Requested: position,
			Returned:  got,
			Success:   true,
		})
		recalled = recalled.Add(got)
	}

	r.logger.Info().Str("recalled", recalled.String()).Msg("Full recall complete")
	return recalled, receipts
}

func (r *Router) withdrawFrom(entry registry.Entry, pass int, request sdkmath.Int) (sdkmath.Int, types.RecallReceipt) {
	addr := entry.Strategy.Address()
	got, err := entry.Strategy.Withdraw(request)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Int("pass", pass).
			Str("strategy", string(addr)).
			Str("requested", request.String()).
			Msg("Strategy withdrawal failed, continuing with next strategy")
		return sdkmath.ZeroInt(), types.RecallReceipt{
			Strategy:  addr,
			Pass:      pass,
			Requested: request,
			Returned:  sdkmath.ZeroInt(),
			Success:   false,
			Message:   err.Error(),
		}
	}
	return got, types.RecallReceipt{
		Strategy:  addr,
		Pass:      pass,
		Requested: request,
		Returned:  got,
		Success:   true,
	}
}
