/*

This file contains the reward recycling types. A reward batch is single-call state:
it is built from harvest output and fully consumed by the recycler in the same call.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

// RecycleResult reports how a harvested reward batch was decomposed.
type RecycleResult struct {
	// Forwarded is aligned to the input reward-token list; each entry is the amount,
	// in the reward token's own denomination, handed to the forwarder.
	Forwarded []sdkmath.Int `json:"forwarded"`

	// PerformanceFee is the aggregate main-asset amount carved out for the
	// performance/insurance bucket.
	PerformanceFee sdkmath.Int `json:"performance_fee"`

	// Compounded is the aggregate main-asset amount credited back to the strategy
	// balance from liquidated reward tokens. Pool-asset rewards compound in place
	// and are not included here.
	Compounded sdkmath.Int `json:"compounded"`
}

// RecycleReceipt is the persisted record of one recycle pass.
type RecycleReceipt struct {
	ReceiptID      int64          `json:"receipt_id,omitempty"`
	CycleID        string         `json:"cycle_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Rewards        sdktypes.Coins `json:"rewards"`
	Forwarded      sdktypes.Coins `json:"forwarded"`
	PerformanceFee sdkmath.Int    `json:"performance_fee"`
	Compounded     sdkmath.Int    `json:"compounded"`
}
