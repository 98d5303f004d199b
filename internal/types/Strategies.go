/*

This file contains the receipt and summary types produced by fund routing and
harvesting. Receipts make the "continue on failure" policy explicit: every
per-strategy outcome is recorded, successful or not, instead of being hidden
inside a swallowed error.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// StrategyInfo is the read-only view of one registered strategy.
type StrategyInfo struct {
	Address Address     `json:"address"`
	Weight  uint32      `json:"weight_bps"`
	Assets  sdkmath.Int `json:"assets"`
	APYBps  uint32      `json:"apy_bps"`
	Active  bool        `json:"active"`
}

// DeployReceipt records one strategy's outcome during a deployment pass.
type DeployReceipt struct {
	Strategy  Address     `json:"strategy"`
	Requested sdkmath.Int `json:"requested"`
	Deposited sdkmath.Int `json:"deposited"`
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
}

// RecallReceipt records one strategy's outcome during a recall pass.
// Pass is 1 for the proportional pass and 2 for the greedy fallback.
type RecallReceipt struct {
	Strategy  Address     `json:"strategy"`
	Pass      int         `json:"pass"`
	Requested sdkmath.Int `json:"requested"`
	Returned  sdkmath.Int `json:"returned"`
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
}

// HarvestReceipt records one strategy's outcome during a harvest pass.
// A failed harvest contributes zero rewards and does not stop the pass.
type HarvestReceipt struct {
	Strategy Address     `json:"strategy"`
	Rewards  sdkmath.Int `json:"rewards"`
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
}

// HarvestReport aggregates a full harvest pass.
type HarvestReport struct {
	TotalRewards sdkmath.Int      `json:"total_rewards"`
	Receipts     []HarvestReceipt `json:"receipts"`
	Timestamp    time.Time        `json:"timestamp"`
}
