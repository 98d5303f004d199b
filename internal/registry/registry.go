/*

This package maintains the ordered set of active strategies and their
allocation weights. The ordering is the deployment and recall order; removal
swaps with the last entry to stay O(1) while the index map keeps every
remaining entry addressable.

*/

package registry

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/strategy"
	"github.com/openyield/svm/internal/types"
)

// Entry pairs a registered strategy with its allocation weight in bps.
type Entry struct {
	Strategy strategy.Strategy
	Weight   uint32
}

// Registry holds the active strategies in registry order.
// Invariant: the sum of weights never exceeds 10000 bps, no strategy appears
// twice, and no active entry has a zero weight.
type Registry struct {
	vaultAddr   types.Address
	asset       types.AssetID
	entries     []Entry
	index       map[types.Address]int
	totalWeight uint32
	logger      zerolog.Logger
}

// New creates an empty registry for the given vault and underlying asset.
func New(vaultAddr types.Address, asset types.AssetID) *Registry {
	return &Registry{
		vaultAddr: vaultAddr,
		asset:     asset,
		index:     make(map[types.Address]int),
		logger:    logger.GetForComponent("strategy_registry"),
	}
}

// Add registers a strategy with the given weight. The strategy's declared
// underlying asset and vault back-reference must match this vault; this
// cross-check prevents wiring an adapter built for a different asset or a
// different vault.
func (r *Registry) Add(s strategy.Strategy, weight uint32) error {
	if s == nil {
		return errors.Join(types.ErrValidation, errors.New("strategy is nil"))
	}
	if _, exists := r.index[s.Address()]; exists {
		return errors.Join(types.ErrValidation, types.ErrStrategyExists,
			fmt.Errorf("strategy %s", s.Address()))
	}
	if weight == 0 {
		return errors.Join(types.ErrValidation, types.ErrZeroWeight)
	}
	if r.totalWeight+weight > types.BpsDenominator {
		return errors.Join(types.ErrValidation, types.ErrWeightCeiling,
			fmt.Errorf("total %d + %d bps", r.totalWeight, weight))
	}
	if s.UnderlyingAsset() != r.asset {
		return errors.Join(types.ErrValidation, types.ErrAssetMismatch,
			fmt.Errorf("strategy asset %s, vault asset %s", s.UnderlyingAsset(), r.asset))
	}
	if s.VaultAddress() != r.vaultAddr {
		return errors.Join(types.ErrValidation, types.ErrVaultMismatch,
			fmt.Errorf("strategy vault %s, this vault %s", s.VaultAddress(), r.vaultAddr))
	}

	r.index[s.Address()] = len(r.entries)
	r.entries = append(r.entries, Entry{Strategy: s, Weight: weight})
	r.totalWeight += weight

	r.logger.Info().
		Str("strategy", string(s.Address())).
		Uint32("weight_bps", weight).
		Uint32("total_weight_bps", r.totalWeight).
		Msg("Strategy registered")
	return nil
}

// Remove deregisters a strategy, forcing a full asset recall from it first.
// The recalled amount is returned for the caller's accounting.
func (r *Registry) Remove(addr types.Address) (sdkmath.Int, error) {
	pos, exists := r.index[addr]
	if !exists {
		return sdkmath.ZeroInt(), errors.Join(types.ErrValidation, types.ErrStrategyNotFound,
			fmt.Errorf("strategy %s", addr))
	}

	entry := r.entries[pos]
	recalled, err := entry.Strategy.WithdrawAll()
	if err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternal,
			fmt.Errorf("withdraw all from %s: %w", addr, err))
	}

	// Swap with last and pop; fix up the index of the moved entry.
	last := len(r.entries) - 1
	if pos != last {
		r.entries[pos] = r.entries[last]
		r.index[r.entries[pos].Strategy.Address()] = pos
	}
	r.entries = r.entries[:last]
	delete(r.index, addr)
	r.totalWeight -= entry.Weight

	r.logger.Info().
		Str("strategy", string(addr)).
		Str("recalled", recalled.String()).
		Uint32("total_weight_bps", r.totalWeight).
		Msg("Strategy removed")
	return recalled, nil
}

// UpdateWeight changes a strategy's allocation weight, revalidating the
// 10000 bps ceiling against the recomputed total.
func (r *Registry) UpdateWeight(addr types.Address, weight uint32) error {
	pos, exists := r.index[addr]
	if !exists {
		return errors.Join(types.ErrValidation, types.ErrStrategyNotFound,
			fmt.Errorf("strategy %s", addr))
	}
	if weight == 0 {
		return errors.Join(types.ErrValidation, types.ErrZeroWeight)
	}

	old := r.entries[pos].Weight
	updated := r.totalWeight - old + weight
	if updated > types.BpsDenominator {
		return errors.Join(types.ErrValidation, types.ErrWeightCeiling,
			fmt.Errorf("total would be %d bps", updated))
	}

	r.entries[pos].Weight = weight
	r.totalWeight = updated

	r.logger.Info().
		Str("strategy", string(addr)).
		Uint32("old_weight_bps", old).
		Uint32("new_weight_bps", weight).
		Uint32("total_weight_bps", r.totalWeight).
		Msg("Allocation weight updated")
	return nil
}

// Get returns the entry for addr if registered.
func (r *Registry) Get(addr types.Address) (Entry, bool) {
	pos, exists := r.index[addr]
	if !exists {
		return Entry{}, false
	}
	return r.entries[pos], true
}

// Entries returns a copy of the entries in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int { return len(r.entries) }

// TotalWeight returns the sum of all active weights in bps.
func (r *Registry) TotalWeight() uint32 { return r.totalWeight }

// Asset returns the underlying asset every registered strategy must declare.
func (r *Registry) Asset() types.AssetID { return r.asset }

// WeightedAPY returns the allocation-weighted average APY of the active
// strategies in bps, zero when there are none. Inactive strategies drop out
// of both the numerator and the denominator.
func (r *Registry) WeightedAPY() uint32 {
	var weighted, activeWeight uint64
	for _, entry := range r.entries {
		if !entry.Strategy.IsActive() {
			continue
		}
		weighted += uint64(entry.Strategy.CurrentAPY()) * uint64(entry.Weight)
		activeWeight += uint64(entry.Weight)
	}
	if activeWeight == 0 {
		return 0
	}
	return uint32(weighted / activeWeight)
}
