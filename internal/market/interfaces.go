package market

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/types"
)

// Error definitions shared by all market collaborators.
var (
	// ErrZeroPrice is returned when the oracle has no usable price for an asset.
	// Callers must treat this as fatal; a zero price is never substituted.
	ErrZeroPrice = errors.New("oracle returned zero price")

	// ErrNoRoute is returned when the liquidator cannot find a conversion route.
	ErrNoRoute = errors.New("no liquidation route")
)

// PriceOracle provides per-asset prices in 18-decimal fixed point.
// Prices are read on demand and must never be cached across calls that can
// change them.
type PriceOracle interface {
	// GetPrice returns the price of one whole unit of the asset.
	// Fails with ErrZeroPrice if no valid price is available.
	GetPrice(asset types.Asset) (sdkmath.LegacyDec, error)
}

// Converter is the multi-venue debt marketplace abstraction. It ranks lending
// venues, executes borrows and repays, and validates proposed conversions.
type Converter interface {
	// FindBorrowPlans returns a ranked venue list for a prospective borrow of
	// borrowAsset against up to amountIn of collateralAsset. The entry selects
	// the conversion mode; periodDays is the ranking horizon. Ordering is the
	// converter's responsibility: best venue first.
	FindBorrowPlans(entry types.PositionEntry, collateralAsset types.Asset, amountIn sdkmath.Int,
		borrowAsset types.Asset, periodDays int) (types.BorrowPlan, error)

	// Borrow executes a borrow against a single venue from the latest plan and
	// returns the amount actually lent.
	Borrow(venue string, collateralAsset types.Asset, collateralAmount sdkmath.Int,
		borrowAsset types.Asset, amountToBorrow sdkmath.Int) (sdkmath.Int, error)

	// Repay sends amountToRepay of the borrow asset and returns the collateral
	// released plus any excess borrow asset refunded. The amount sent may include
	// a debt-gap margin; the unused part of the margin comes back as excess.
	Repay(collateralAsset, borrowAsset types.Asset, amountToRepay sdkmath.Int) (collateralOut, excessReturned sdkmath.Int, err error)

	// QuoteRepay predicts the collateral released by a repay without state change.
	QuoteRepay(collateralAsset, borrowAsset types.Asset, amountToRepay sdkmath.Int) (sdkmath.Int, error)

	// GetAggregateDebt returns the aggregate collateral and debt between two
	// assets across all venues. With withDebtGap the reported debt includes the
	// interest-accrual margin that must be over-sent on repay.
	GetAggregateDebt(collateralAsset, borrowAsset types.Asset, withDebtGap bool) (totalCollateral, totalDebt sdkmath.Int, err error)

	// IsSwapValid reports whether a proposed conversion is acceptably priced.
	IsSwapValid(tokenIn types.Asset, amountIn sdkmath.Int, tokenOut types.Asset, amountOut sdkmath.Int) (bool, error)
}

// Liquidator is the swap-aggregation abstraction. Every conversion is bounded by
// the caller's slippage tolerance; there is no unbounded execution path.
type Liquidator interface {
	// Liquidate converts amountIn of tokenIn into tokenOut and returns the amount
	// received. Fails with ErrNoRoute if no route exists.
	Liquidate(tokenIn, tokenOut types.Asset, amountIn sdkmath.Int, maxSlippageBps int64) (sdkmath.Int, error)
}
