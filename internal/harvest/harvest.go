/*

This package iterates the registered strategies and triggers reward harvests.
Harvesting is rate-limited by a minimum interval; a failing strategy
contributes zero and the pass continues. The interval gate is a stateless
comparison against the stored last-harvest timestamp, there is no background
scheduling here.

*/

package harvest

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/registry"
	"github.com/openyield/svm/internal/types"
)

const (
	// MinInterval and MaxInterval bound the configurable harvest interval.
	MinInterval = time.Hour
	MaxInterval = 7 * 24 * time.Hour

	// DefaultInterval applies until configuration overrides it.
	DefaultInterval = 12 * time.Hour
)

// Coordinator runs harvest passes over the registry.
type Coordinator struct {
	registry *registry.Registry
	interval time.Duration
	last     time.Time
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a coordinator with the default interval. The zero last-harvest
// time means the first pass is never gated.
func New(reg *registry.Registry) *Coordinator {
	return &Coordinator{
		registry: reg,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   logger.GetForComponent("harvest_coordinator"),
	}
}

// SetInterval changes the minimum time between harvest passes, bounded to
// [MinInterval, MaxInterval].
func (c *Coordinator) SetInterval(interval time.Duration) error {
	if interval < MinInterval || interval > MaxInterval {
		return errors.Join(types.ErrValidation, types.ErrBadHarvestInterval,
			fmt.Errorf("interval %s outside [%s, %s]", interval, MinInterval, MaxInterval))
	}
	c.interval = interval
	return nil
}

// Interval returns the configured minimum interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// LastHarvest returns the timestamp of the last completed pass.
func (c *Coordinator) LastHarvest() time.Time { return c.last }

// Restore seeds the gate state from persistence.
func (c *Coordinator) Restore(last time.Time, interval time.Duration) error {
	if interval != 0 {
		if err := c.SetInterval(interval); err != nil {
			return err
		}
	}
	c.last = last
	return nil
}

// SetClock overrides the time source, used by tests.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// HarvestAll triggers every strategy's harvest and aggregates the rewards.
// It fails with ErrHarvestTooSoon before the interval has elapsed. A failing
// strategy contributes zero; the last-harvest timestamp advances
// unconditionally once the pass completes, even if some strategies failed.
func (c *Coordinator) HarvestAll() (types.HarvestReport, error) {
	now := c.now()
	if !c.last.IsZero() && now.Sub(c.last) < c.interval {
		return types.HarvestReport{}, errors.Join(types.ErrState, types.ErrHarvestTooSoon,
			fmt.Errorf("next harvest at %s", c.last.Add(c.interval).Format(time.RFC3339)))
	}

	entries := c.registry.Entries()
	report := types.HarvestReport{
		TotalRewards: sdkmath.ZeroInt(),
		Receipts:     make([]types.HarvestReceipt, 0, len(entries)),
		Timestamp:    now,
	}

	for _, entry := range entries {
		addr := entry.Strategy.Address()
		rewards, err := entry.Strategy.Harvest()
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("strategy", string(addr)).
				Msg("Strategy harvest failed, contributes zero")
			report.Receipts = append(report.Receipts, types.HarvestReceipt{
				Strategy: addr,
				Rewards:  sdkmath.ZeroInt(),
				Success:  false,
				Message:  err.Error(),
			})
			continue
		}
		report.Receipts = append(report.Receipts, types.HarvestReceipt{
			Strategy: addr,
			Rewards:  rewards,
			Success:  true,
		})
		report.TotalRewards = report.TotalRewards.Add(rewards)
	}

	c.last = now

	c.logger.Info().
		Str("total_rewards", report.TotalRewards.String()).
		Int("strategies", len(report.Receipts)).
		Time("timestamp", now).
		Msg("Harvest pass complete")
	return report, nil
}
