/*

This file contains the amount-to-sell calculator: given an outstanding debt between
two assets, how much collateral must be swapped into the borrow asset so that the
repayment frees the requested amount of collateral.

The calculation rests on the multiplier

	alpha = price(collateral)/price(borrow) * totalCollateral/totalDebt

which is how much collateral each unit of repaid debt frees beyond break-even. A 1%
safety margin counters price and slippage drift between the calculation and the
execution, and the result is capped so the sale never exceeds what full repayment
needs net of the borrow asset already on hand.

*/

package strategy

import (
	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/types"
)

// safetyMargin is the 1% drift buffer applied to the amount to sell and its cap.
var safetyMargin = sdkmath.LegacyMustNewDecFromStr("1.01")

// CalculateAmountToSell computes the amount of the collateral asset that must be
// sold into the borrow asset so that repaying the proceeds frees
// remainingRequested of collateral. It is pure: deterministic, no external calls.
//
// Returns zero when there is nothing to free (no debt, no collateral, or a
// position at or below break-even) or when the held borrow balance already covers
// the debt.
func CalculateAmountToSell(
	remainingRequested sdkmath.Int, // collateral units still needed
	totalDebt sdkmath.Int, // borrow units owed
	totalCollateral sdkmath.Int, // collateral units locked
	priceCollateral, priceBorrow sdkmath.LegacyDec,
	collateralAsset, borrowAsset types.Asset,
	borrowBalance sdkmath.Int, // borrow units already held
) sdkmath.Int {
	if totalDebt.IsZero() || totalCollateral.IsZero() {
		return sdkmath.ZeroInt()
	}
	if !remainingRequested.IsPositive() {
		return sdkmath.ZeroInt()
	}
	if !priceCollateral.IsPositive() || !priceBorrow.IsPositive() {
		return sdkmath.ZeroInt()
	}

	collateralValue := assetValue(totalCollateral, priceCollateral, collateralAsset.Decimals)
	debtValue := assetValue(totalDebt, priceBorrow, borrowAsset.Decimals)
	if !debtValue.IsPositive() {
		return sdkmath.ZeroInt()
	}

	alpha := collateralValue.Quo(debtValue)
	if alpha.LTE(sdkmath.LegacyOneDec()) {
		// At or below break-even a sale frees nothing.
		return sdkmath.ZeroInt()
	}

	amountToSell := sdkmath.LegacyNewDecFromInt(remainingRequested).
		Quo(alpha.Sub(sdkmath.LegacyOneDec())).
		Mul(safetyMargin)

	// Cap at full repayment of the debt not already covered by the held balance.
	debtShortfall := totalDebt.Sub(borrowBalance)
	if !debtShortfall.IsPositive() {
		return sdkmath.ZeroInt()
	}
	cap := sdkmath.LegacyNewDecFromInt(debtShortfall).
		Mul(safetyMargin).
		Mul(priceBorrow).Quo(priceCollateral).
		Mul(types.Pow10Dec(collateralAsset.Decimals)).Quo(types.Pow10Dec(borrowAsset.Decimals))

	if amountToSell.GT(cap) {
		amountToSell = cap
	}
	return amountToSell.TruncateInt()
}
