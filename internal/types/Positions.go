/*

This file contains the types describing borrow positions and the results of opening,
closing and rebalancing them.

*/

package types

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

var ErrWrongLengths = errors.New("parallel arrays have mismatched lengths")

// MaxAmount encodes an "as much as possible" request. Any requested amount at or
// above this value is treated as unbounded.
var MaxAmount = sdkmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 200))

// BorrowPlan is the ranked list of lending venues the converter returns for a
// prospective borrow. The ordering is the converter's; best venue first. The plan
// is ephemeral and must never be re-sorted or mutated by the consumer.
type BorrowPlan struct {
	Venues               []string            `json:"venues"`
	CollateralCapacities []sdkmath.Int       `json:"collateral_capacities"` // max collateral each venue accepts
	BorrowCapacities     []sdkmath.Int       `json:"borrow_capacities"`     // amount lendable against that collateral
	APRs                 []sdkmath.LegacyDec `json:"aprs"`                  // signed; lower is cheaper
}

// Len returns the number of venues in the plan.
func (p BorrowPlan) Len() int {
	return len(p.Venues)
}

// Validate checks the parallel arrays line up.
func (p BorrowPlan) Validate() error {
	n := len(p.Venues)
	if len(p.CollateralCapacities) != n || len(p.BorrowCapacities) != n || len(p.APRs) != n {
		return fmt.Errorf("%w: venues=%d collateral=%d borrow=%d apr=%d",
			ErrWrongLengths, n, len(p.CollateralCapacities), len(p.BorrowCapacities), len(p.APRs))
	}
	return nil
}

// PositionEntry selects how a new position's collateral/borrow split is computed.
// It is a closed set of variants so each mode's parameters are type checked.
type PositionEntry interface {
	isPositionEntry()
}

// EntryExactCollateral spends up to the given collateral amount and borrows as much
// as the ranked venues allow.
type EntryExactCollateral struct{}

// EntryProportional divides the input between an unconverted remainder and an amount
// supplied as collateral, such that the value ratio of the kept balance to the
// borrowed balance equals PropCollateral:PropBorrow.
type EntryProportional struct {
	PropCollateral sdkmath.LegacyDec
	PropBorrow     sdkmath.LegacyDec
}

// EntryExactBorrow acquires a target amount of the borrow asset; the opener derives
// the collateral required.
type EntryExactBorrow struct{}

func (EntryExactCollateral) isPositionEntry() {}
func (EntryProportional) isPositionEntry()    {}
func (EntryExactBorrow) isPositionEntry()     {}

// OpenedPosition reports what an open actually achieved. Both fields are zero when
// no venue offered usable capacity.
type OpenedPosition struct {
	CollateralSpent sdkmath.Int `json:"collateral_spent"`
	Borrowed        sdkmath.Int `json:"borrowed"`
}

// CloseResult reports what a repay actually achieved.
type CloseResult struct {
	Repaid             sdkmath.Int `json:"repaid"`
	CollateralReturned sdkmath.Int `json:"collateral_returned"`
}

// RebalanceAction names the action a rebalance pass took.
type RebalanceAction string

const (
	RebalanceActionNone    RebalanceAction = "NONE"    // already within tolerance or below thresholds
	RebalanceActionOpen    RebalanceAction = "OPEN"    // opened a new position
	RebalanceActionEnlarge RebalanceAction = "ENLARGE" // borrowed more in the existing direction
	RebalanceActionShrink  RebalanceAction = "SHRINK"  // partially repaid the existing position
	RebalanceActionFlip    RebalanceAction = "FLIP"    // closed fully and opened the opposite direction
)

// RebalanceReceipt is the record of one rebalance pass, persisted for the cycle log.
type RebalanceReceipt struct {
	ReceiptID   int64           `json:"receipt_id,omitempty"` // auto-incremented by the store
	CycleID     string          `json:"cycle_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Action      RebalanceAction `json:"action"`
	Balanced    bool            `json:"balanced"`
	AssetX      string          `json:"asset_x"`
	AssetY      string          `json:"asset_y"`
	Proportion  string          `json:"proportion"`   // target value share of X
	ShareBefore string          `json:"share_before"` // observed value share of X before the pass
	ShareAfter  string          `json:"share_after"`  // observed value share of X after the pass
	Repaid      sdkmath.Int     `json:"repaid"`
	Borrowed    sdkmath.Int     `json:"borrowed"`
	Swapped     sdkmath.Int     `json:"swapped"`
	Balances    sdktypes.Coins  `json:"balances"` // post-pass liquid balances
}
