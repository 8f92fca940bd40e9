/*

This file contains the position opener: the only place leverage is created. It
consumes the converter's ranked borrow plan strictly in order, takes from each venue
the smaller of its capacity and the remaining need, skips venues whose usable take
is below the minimum-meaningful threshold, and stops when the request is satisfied
or venues are exhausted. A request no venue can serve yields a zero/zero result,
not an error: a position below a workable size is simply not opened.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// OpenPosition builds a collateralized borrow position, possibly split across
// several venues. The entry selects how amountIn is interpreted:
//
//   - EntryExactCollateral: spend up to amountIn collateral, borrow what liquidity
//     allows.
//   - EntryProportional: split amountIn between a kept remainder and supplied
//     collateral so the kept:borrowed value ratio hits the entry's proportion.
//   - EntryExactBorrow: amountIn is the target amount of the borrow asset; the
//     collateral required is derived per venue.
//
// Collateral leaves the ledger as it is supplied; borrowed amounts are credited as
// they arrive.
func OpenPosition(
	conv market.Converter,
	oracle market.PriceOracle,
	ledger *types.Ledger,
	entry types.PositionEntry,
	collateralAsset, borrowAsset types.Asset,
	amountIn sdkmath.Int,
	threshold sdkmath.Int,
	periodDays int,
) (types.OpenedPosition, error) {
	openLogger := logger.GetForComponent("position_opener")

	result := types.OpenedPosition{
		CollateralSpent: sdkmath.ZeroInt(),
		Borrowed:        sdkmath.ZeroInt(),
	}
	if !amountIn.IsPositive() {
		return result, nil
	}

	plan, err := conv.FindBorrowPlans(entry, collateralAsset, amountIn, borrowAsset, periodDays)
	if err != nil {
		return result, fmt.Errorf("borrow plan lookup failed: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return result, err
	}
	if plan.Len() == 0 {
		openLogger.Debug().
			Str("collateral", collateralAsset.Symbol).
			Str("borrow", borrowAsset.Symbol).
			Msg("Converter returned no venues, nothing to open")
		return result, nil
	}

	switch e := entry.(type) {
	case types.EntryExactCollateral:
		err = openExactCollateral(conv, ledger, plan, collateralAsset, borrowAsset, amountIn, threshold, &result)
	case types.EntryProportional:
		err = openProportional(conv, oracle, ledger, plan, e, collateralAsset, borrowAsset, amountIn, threshold, &result)
	case types.EntryExactBorrow:
		err = openExactBorrow(conv, ledger, plan, collateralAsset, borrowAsset, amountIn, threshold, &result)
	default:
		err = fmt.Errorf("unknown position entry %T", entry)
	}
	if err != nil {
		return result, err
	}

	openLogger.Info().
		Str("collateral", collateralAsset.Symbol).
		Str("borrow", borrowAsset.Symbol).
		Str("collateralSpent", result.CollateralSpent.String()).
		Str("borrowed", result.Borrowed.String()).
		Msg("Position open pass complete")
	return result, nil
}

// executeBorrow moves collateral out, runs the borrow, and credits the proceeds.
func executeBorrow(
	conv market.Converter,
	ledger *types.Ledger,
	venue string,
	collateralAsset, borrowAsset types.Asset,
	collateralAmount, amountToBorrow sdkmath.Int,
	result *types.OpenedPosition,
) error {
	if err := ledger.Sub(collateralAsset, collateralAmount); err != nil {
		return err
	}
	borrowed, err := conv.Borrow(venue, collateralAsset, collateralAmount, borrowAsset, amountToBorrow)
	if err != nil {
		return fmt.Errorf("borrow against venue %s failed: %w", venue, err)
	}
	if err := ledger.Add(borrowAsset, borrowed); err != nil {
		return err
	}
	result.CollateralSpent = result.CollateralSpent.Add(collateralAmount)
	result.Borrowed = result.Borrowed.Add(borrowed)
	return nil
}

// openExactCollateral spends up to amountIn of collateral across the ranked venues.
func openExactCollateral(
	conv market.Converter,
	ledger *types.Ledger,
	plan types.BorrowPlan,
	collateralAsset, borrowAsset types.Asset,
	amountIn, threshold sdkmath.Int,
	result *types.OpenedPosition,
) error {
	remaining := minInt(amountIn, ledger.Get(collateralAsset))

	for i := 0; i < plan.Len() && remaining.IsPositive(); i++ {
		capacity := plan.CollateralCapacities[i]
		if !capacity.IsPositive() || !plan.BorrowCapacities[i].IsPositive() {
			continue
		}
		take := minInt(capacity, remaining)
		if take.LT(threshold) {
			// Treated as "no liquidity", not an error; the venue is not consumed.
			continue
		}
		toBorrow := plan.BorrowCapacities[i].Mul(take).Quo(capacity)
		if !toBorrow.IsPositive() {
			continue
		}
		if err := executeBorrow(conv, ledger, plan.Venues[i], collateralAsset, borrowAsset, take, toBorrow, result); err != nil {
			return err
		}
		remaining = remaining.Sub(take)
	}
	return nil
}

// openExactBorrow acquires up to amountIn of the borrow asset, deriving the
// collateral each venue requires from its own capacity ratio.
func openExactBorrow(
	conv market.Converter,
	ledger *types.Ledger,
	plan types.BorrowPlan,
	collateralAsset, borrowAsset types.Asset,
	amountIn, threshold sdkmath.Int,
	result *types.OpenedPosition,
) error {
	remaining := amountIn

	for i := 0; i < plan.Len() && remaining.IsPositive(); i++ {
		capacity := plan.CollateralCapacities[i]
		borrowCapacity := plan.BorrowCapacities[i]
		if !capacity.IsPositive() || !borrowCapacity.IsPositive() {
			continue
		}
		take := minInt(borrowCapacity, remaining)
		if take.LT(threshold) {
			continue
		}
		// Round the collateral requirement up so the venue's ratio is respected.
		collateralNeeded := capacity.Mul(take).Add(borrowCapacity).Sub(sdkmath.OneInt()).Quo(borrowCapacity)
		available := ledger.Get(collateralAsset)
		if collateralNeeded.GT(available) {
			// Scale the take down to what the held collateral can secure.
			collateralNeeded = available
			take = borrowCapacity.Mul(collateralNeeded).Quo(capacity)
			if take.LT(threshold) {
				continue
			}
		}
		if !collateralNeeded.IsPositive() || !take.IsPositive() {
			continue
		}
		if err := executeBorrow(conv, ledger, plan.Venues[i], collateralAsset, borrowAsset, collateralNeeded, take, result); err != nil {
			return err
		}
		remaining = remaining.Sub(take)
	}
	return nil
}

// openProportional allocates amountIn so the value kept on balance and the value
// borrowed end up in the entry's proportion. The split is solved per venue in value
// space: kept * unitValueC = R * beta * taken * unitValueB, where beta is the
// venue's borrow units per collateral unit and R the target ratio.
func openProportional(
	conv market.Converter,
	oracle market.PriceOracle,
	ledger *types.Ledger,
	plan types.BorrowPlan,
	entry types.EntryProportional,
	collateralAsset, borrowAsset types.Asset,
	amountIn, threshold sdkmath.Int,
	result *types.OpenedPosition,
) error {
	if entry.PropCollateral.IsNil() || entry.PropBorrow.IsNil() ||
		!entry.PropCollateral.IsPositive() || !entry.PropBorrow.IsPositive() {
		return fmt.Errorf("%w: proportional entry requires positive proportions", ErrInvalidRatio)
	}
	priceCollateral, err := fetchPrice(oracle, collateralAsset)
	if err != nil {
		return err
	}
	priceBorrow, err := fetchPrice(oracle, borrowAsset)
	if err != nil {
		return err
	}

	ratio := entry.PropCollateral.Quo(entry.PropBorrow)
	unitValueC := priceCollateral.Quo(types.Pow10Dec(collateralAsset.Decimals))
	unitValueB := priceBorrow.Quo(types.Pow10Dec(borrowAsset.Decimals))

	remaining := minInt(amountIn, ledger.Get(collateralAsset))

	for i := 0; i < plan.Len() && remaining.IsPositive(); i++ {
		capacity := plan.CollateralCapacities[i]
		borrowCapacity := plan.BorrowCapacities[i]
		if !capacity.IsPositive() || !borrowCapacity.IsPositive() {
			continue
		}
		beta := sdkmath.LegacyNewDecFromInt(borrowCapacity).Quo(sdkmath.LegacyNewDecFromInt(capacity))

		// take = remaining * uC / (uC + R*beta*uB), the collateral share of the
		// remaining input that yields the target kept:borrowed value ratio.
		denom := unitValueC.Add(ratio.Mul(beta).Mul(unitValueB))
		take := sdkmath.LegacyNewDecFromInt(remaining).Mul(unitValueC).Quo(denom).TruncateInt()

		consumed := remaining
		if take.GT(capacity) {
			// Venue-bound: collateralize its full capacity and keep the matching
			// share; the rest of the input moves on to the next venue.
			take = capacity
			kept := ratio.Mul(beta).Mul(unitValueB).MulInt(take).Quo(unitValueC).TruncateInt()
			consumed = take.Add(kept)
		}
		if take.LT(threshold) {
			continue
		}
		toBorrow := beta.MulInt(take).TruncateInt()
		if !toBorrow.IsPositive() {
			continue
		}
		if err := executeBorrow(conv, ledger, plan.Venues[i], collateralAsset, borrowAsset, take, toBorrow, result); err != nil {
			return err
		}
		remaining = remaining.Sub(minInt(consumed, remaining))
	}
	return nil
}
