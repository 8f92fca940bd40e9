/*

This file contains the position closer. Two variants exist: an exact close that
repays precisely the requested amount and treats over-repay as caller misuse, and a
clamped close that repays min(request, outstanding debt, held balance) and reports
what it actually did so callers can react to partial fulfilment.

Both variants honor the converter's debt gap: the interest-accrual margin that must
be over-sent with a repay and is refunded if unused. A required send that exceeds
the held balance beyond that margin means the external state is inconsistent, which
is fatal and never retried.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// ClosePositionExact repays exactly amountToRepay of the borrow asset. Fails with
// ErrOverRepay if the request exceeds the outstanding debt, and with
// ErrRepayExceedsBalance if the gap-adjusted send cannot be funded from the held
// balance.
func ClosePositionExact(
	conv market.Converter,
	ledger *types.Ledger,
	collateralAsset, borrowAsset types.Asset,
	amountToRepay sdkmath.Int,
) (types.CloseResult, error) {
	result := zeroCloseResult()
	if !amountToRepay.IsPositive() {
		return result, nil
	}

	_, totalDebt, err := conv.GetAggregateDebt(collateralAsset, borrowAsset, false)
	if err != nil {
		return result, fmt.Errorf("aggregate debt lookup failed: %w", err)
	}
	if amountToRepay.GT(totalDebt) {
		return result, fmt.Errorf("%w: requested %s, owed %s %s",
			ErrOverRepay, amountToRepay, totalDebt, borrowAsset.Symbol)
	}

	return executeRepay(conv, ledger, collateralAsset, borrowAsset, amountToRepay, totalDebt)
}

// ClosePositionToTarget repays min(amountToRepay, outstanding debt, held balance).
// It never fails merely because the request was too ambitious; it clamps and
// reports the repaid amount and the collateral released.
func ClosePositionToTarget(
	conv market.Converter,
	ledger *types.Ledger,
	collateralAsset, borrowAsset types.Asset,
	amountToRepay sdkmath.Int,
) (types.CloseResult, error) {
	result := zeroCloseResult()
	if !amountToRepay.IsPositive() {
		return result, nil
	}

	_, totalDebt, err := conv.GetAggregateDebt(collateralAsset, borrowAsset, false)
	if err != nil {
		return result, fmt.Errorf("aggregate debt lookup failed: %w", err)
	}
	toRepay := minInt(minInt(amountToRepay, totalDebt), ledger.Get(borrowAsset))
	if !toRepay.IsPositive() {
		return result, nil
	}

	return executeRepay(conv, ledger, collateralAsset, borrowAsset, toRepay, totalDebt)
}

// executeRepay sends the gap-adjusted repay amount, credits the released collateral
// and the refunded excess, and reports the net amount repaid.
func executeRepay(
	conv market.Converter,
	ledger *types.Ledger,
	collateralAsset, borrowAsset types.Asset,
	amountToRepay, totalDebt sdkmath.Int,
) (types.CloseResult, error) {
	closeLogger := logger.GetForComponent("position_closer")
	result := zeroCloseResult()

	_, debtWithGap, err := conv.GetAggregateDebt(collateralAsset, borrowAsset, true)
	if err != nil {
		return result, fmt.Errorf("debt-gap lookup failed: %w", err)
	}

	// Scale the send by the converter's gap so accrued-interest rounding cannot
	// leave residue; the unused margin comes back as excess.
	toSend := amountToRepay
	if totalDebt.IsPositive() && debtWithGap.GT(totalDebt) {
		toSend = amountToRepay.Mul(debtWithGap).Quo(totalDebt)
	}
	balance := ledger.Get(borrowAsset)
	if toSend.GT(balance) {
		if amountToRepay.GT(balance) {
			return result, fmt.Errorf("%w: need %s, hold %s %s",
				ErrRepayExceedsBalance, amountToRepay, balance, borrowAsset.Symbol)
		}
		// The gap margin alone overshoots the balance; send what is held. The
		// converter refunds whatever the margin did not need.
		toSend = balance
	}

	if err := ledger.Sub(borrowAsset, toSend); err != nil {
		return result, err
	}
	collateralOut, excess, err := conv.Repay(collateralAsset, borrowAsset, toSend)
	if err != nil {
		return result, fmt.Errorf("repay failed: %w", err)
	}
	if err := ledger.Add(borrowAsset, excess); err != nil {
		return result, err
	}
	if err := ledger.Add(collateralAsset, collateralOut); err != nil {
		return result, err
	}

	result.Repaid = toSend.Sub(excess)
	result.CollateralReturned = collateralOut

	closeLogger.Info().
		Str("collateral", collateralAsset.Symbol).
		Str("borrow", borrowAsset.Symbol).
		Str("repaid", result.Repaid.String()).
		Str("collateralReturned", collateralOut.String()).
		Msg("Repay executed")
	return result, nil
}

func zeroCloseResult() types.CloseResult {
	return types.CloseResult{
		Repaid:             sdkmath.ZeroInt(),
		CollateralReturned: sdkmath.ZeroInt(),
	}
}
