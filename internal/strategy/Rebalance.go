/*

This file contains the debt rebalancer. One pass moves the value split of a
two-asset balance toward a target proportion by opening, enlarging, shrinking or
flipping a borrow position, with a direct market swap as the residual fallback.

A pass is not exact: rounding and the 1% sale safety margin are accepted error
sources, so the pass aims inside the tolerance band and repeated passes converge.

*/

package strategy

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// RebalanceRequest carries the inputs of one rebalance pass.
type RebalanceRequest struct {
	AssetX, AssetY types.Asset
	Proportion     sdkmath.LegacyDec // target value share of AssetX, strictly in (0,1)
	Tolerance      sdkmath.LegacyDec // acceptable deviation of the observed share
	Thresholds     *types.ThresholdRegistry
	MaxSlippageBps int64
	PeriodDays     int
}

// pairState is the per-pass snapshot of prices and values the rebalancer works on.
type pairState struct {
	rich, poor           types.Asset
	priceRich, pricePoor sdkmath.LegacyDec
	vRich, vPoor         sdkmath.LegacyDec
	ratio                sdkmath.LegacyDec // target rich:poor value ratio
	propRich, propPoor   sdkmath.LegacyDec
}

// Rebalance runs a single rebalancing pass and reports what it did. When both
// balances are below their thresholds or the observed share is already within
// tolerance, the pass is a no-op and the receipt reports balanced.
func Rebalance(
	conv market.Converter,
	oracle market.PriceOracle,
	liq market.Liquidator,
	ledger *types.Ledger,
	req RebalanceRequest,
) (types.RebalanceReceipt, error) {
	rebalLogger := logger.GetForComponent("debt_rebalancer")

	receipt := types.RebalanceReceipt{
		Timestamp:  time.Now().UTC(),
		Action:     types.RebalanceActionNone,
		AssetX:     req.AssetX.Symbol,
		AssetY:     req.AssetY.Symbol,
		Proportion: req.Proportion.String(),
		Repaid:     sdkmath.ZeroInt(),
		Borrowed:   sdkmath.ZeroInt(),
		Swapped:    sdkmath.ZeroInt(),
	}

	if req.Proportion.IsNil() || !req.Proportion.IsPositive() || req.Proportion.GTE(sdkmath.LegacyOneDec()) {
		return receipt, ErrInvalidProportion
	}
	if req.Tolerance.IsNil() || req.Tolerance.IsNegative() {
		return receipt, fmt.Errorf("%w: tolerance", ErrInvalidRatio)
	}

	balX := ledger.Get(req.AssetX)
	balY := ledger.Get(req.AssetY)
	if balX.LT(req.Thresholds.Get(req.AssetX)) && balY.LT(req.Thresholds.Get(req.AssetY)) {
		// Both sides are dust; acting would waste execution budget.
		receipt.Balanced = true
		receipt.Balances = ledger.Coins([]types.Asset{req.AssetX, req.AssetY})
		return receipt, nil
	}

	priceX, err := fetchPrice(oracle, req.AssetX)
	if err != nil {
		return receipt, err
	}
	priceY, err := fetchPrice(oracle, req.AssetY)
	if err != nil {
		return receipt, err
	}

	shareBefore := valueShareX(ledger, req, priceX, priceY)
	receipt.ShareBefore = shareBefore.String()

	if shareBefore.Sub(req.Proportion).Abs().LTE(req.Tolerance) {
		receipt.Balanced = true
		receipt.ShareAfter = receipt.ShareBefore
		receipt.Balances = ledger.Coins([]types.Asset{req.AssetX, req.AssetY})
		return receipt, nil
	}

	st := newPairState(ledger, req, priceX, priceY, shareBefore)

	// A position whose debt side is the rich asset works against the target and
	// must shrink (and possibly flip) before anything is opened.
	_, reverseDebt, err := conv.GetAggregateDebt(st.poor, st.rich, false)
	if err != nil {
		return receipt, fmt.Errorf("aggregate debt lookup failed: %w", err)
	}

	if reverseDebt.IsPositive() {
		if err := shrinkPosition(conv, oracle, liq, ledger, req, &st, &receipt); err != nil {
			return receipt, err
		}
	} else {
		if err := growPosition(conv, oracle, liq, ledger, req, &st, &receipt); err != nil {
			return receipt, err
		}
	}

	shareAfter := valueShareX(ledger, req, priceX, priceY)
	receipt.ShareAfter = shareAfter.String()
	receipt.Balanced = shareAfter.Sub(req.Proportion).Abs().LTE(req.Tolerance)
	receipt.Balances = ledger.Coins([]types.Asset{req.AssetX, req.AssetY})

	rebalLogger.Info().
		Str("assetX", req.AssetX.Symbol).
		Str("assetY", req.AssetY.Symbol).
		Str("action", string(receipt.Action)).
		Str("shareBefore", receipt.ShareBefore).
		Str("shareAfter", receipt.ShareAfter).
		Bool("balanced", receipt.Balanced).
		Msg("Rebalance pass complete")
	return receipt, nil
}

// valueShareX computes the observed value share of AssetX.
func valueShareX(ledger *types.Ledger, req RebalanceRequest, priceX, priceY sdkmath.LegacyDec) sdkmath.LegacyDec {
	vX := assetValue(ledger.Get(req.AssetX), priceX, req.AssetX.Decimals)
	vY := assetValue(ledger.Get(req.AssetY), priceY, req.AssetY.Decimals)
	total := vX.Add(vY)
	if !total.IsPositive() {
		return req.Proportion
	}
	return vX.Quo(total)
}

// newPairState orients the pair so "rich" is the side whose value share exceeds
// its target.
func newPairState(ledger *types.Ledger, req RebalanceRequest, priceX, priceY sdkmath.LegacyDec, shareX sdkmath.LegacyDec) pairState {
	vX := assetValue(ledger.Get(req.AssetX), priceX, req.AssetX.Decimals)
	vY := assetValue(ledger.Get(req.AssetY), priceY, req.AssetY.Decimals)
	propY := sdkmath.LegacyOneDec().Sub(req.Proportion)

	if shareX.GT(req.Proportion) {
		return pairState{
			rich: req.AssetX, poor: req.AssetY,
			priceRich: priceX, pricePoor: priceY,
			vRich: vX, vPoor: vY,
			ratio:    req.Proportion.Quo(propY),
			propRich: req.Proportion, propPoor: propY,
		}
	}
	return pairState{
		rich: req.AssetY, poor: req.AssetX,
		priceRich: priceY, pricePoor: priceX,
		vRich: vY, vPoor: vX,
		ratio:    propY.Quo(req.Proportion),
		propRich: propY, propPoor: req.Proportion,
	}
}

// refresh re-reads balances into the state after an action mutated the ledger.
func (st *pairState) refresh(ledger *types.Ledger) {
	st.vRich = assetValue(ledger.Get(st.rich), st.priceRich, st.rich.Decimals)
	st.vPoor = assetValue(ledger.Get(st.poor), st.pricePoor, st.poor.Decimals)
}

// excessValue is how much rich-side value must move for the split to hit target,
// before accounting for how the move itself is executed.
func (st *pairState) excessValue() sdkmath.LegacyDec {
	return st.vRich.Sub(st.ratio.Mul(st.vPoor))
}

// growPosition opens or enlarges a position with the rich asset as collateral.
// A proportional entry sized at (vRich - ratio*vPoor) lands the post-borrow
// balances on the target split. When no venue offers usable capacity, the residual
// is moved by a direct market swap instead.
func growPosition(
	conv market.Converter,
	oracle market.PriceOracle,
	liq market.Liquidator,
	ledger *types.Ledger,
	req RebalanceRequest,
	st *pairState,
	receipt *types.RebalanceReceipt,
) error {
	_, directDebt, err := conv.GetAggregateDebt(st.rich, st.poor, false)
	if err != nil {
		return fmt.Errorf("aggregate debt lookup failed: %w", err)
	}

	amountIn := unitsFromValue(st.excessValue(), st.priceRich, st.rich.Decimals)
	amountIn = minInt(amountIn, ledger.Get(st.rich))
	if amountIn.LT(req.Thresholds.Get(st.rich)) {
		return nil
	}

	entry := types.EntryProportional{PropCollateral: st.propRich, PropBorrow: st.propPoor}
	opened, err := OpenPosition(conv, oracle, ledger, entry, st.rich, st.poor, amountIn,
		req.Thresholds.Get(st.rich), req.PeriodDays)
	if err != nil {
		return err
	}
	if opened.Borrowed.IsPositive() {
		if directDebt.IsPositive() {
			receipt.Action = types.RebalanceActionEnlarge
		} else {
			receipt.Action = types.RebalanceActionOpen
		}
		receipt.Borrowed = receipt.Borrowed.Add(opened.Borrowed)
		st.refresh(ledger)
		return nil
	}

	// No venue could serve the open; fall back to swapping the residual directly.
	return swapResidual(liq, ledger, req, st, receipt)
}

// shrinkPosition repays a position whose debt side is the rich asset. When the
// rich balance cannot fund the target repay, the amount-to-sell calculation tells
// how much of the poor asset to sell into the debt asset; each repaid unit then
// frees more collateral value than the sale consumed. When the debt clears and the
// imbalance persists, the direction flips and a fresh position is opened.
func shrinkPosition(
	conv market.Converter,
	oracle market.PriceOracle,
	liq market.Liquidator,
	ledger *types.Ledger,
	req RebalanceRequest,
	st *pairState,
	receipt *types.RebalanceReceipt,
) error {
	totalCollateral, totalDebt, err := conv.GetAggregateDebt(st.poor, st.rich, false)
	if err != nil {
		return fmt.Errorf("aggregate debt lookup failed: %w", err)
	}

	collateralValue := assetValue(totalCollateral, st.pricePoor, st.poor.Decimals)
	debtValue := assetValue(totalDebt, st.priceRich, st.rich.Decimals)
	if !debtValue.IsPositive() {
		return fmt.Errorf("%w: reverse debt", ErrZeroBalanceOrPrice)
	}
	release := collateralValue.Quo(debtValue)

	// Repaying rv of rich value releases rv*release of poor value; solve for the
	// repay that lands on the target split.
	repayValue := st.excessValue().Quo(sdkmath.LegacyOneDec().Add(st.ratio.Mul(release)))
	repayUnits := unitsFromValue(repayValue, st.priceRich, st.rich.Decimals)
	desired := minInt(repayUnits, totalDebt)

	if desired.GT(ledger.Get(st.rich)) {
		// Short of debt asset: sell poor balance into it, sized by the calculator
		// so the repayment still frees value on net.
		remainingPoor := unitsFromValue(st.ratio.Mul(st.vPoor).Sub(st.vRich).Abs(), st.pricePoor, st.poor.Decimals)
		toSell := CalculateAmountToSell(remainingPoor, totalDebt, totalCollateral,
			st.pricePoor, st.priceRich, st.poor, st.rich, ledger.Get(st.rich))
		toSell = minInt(toSell, ledger.Get(st.poor))
		if toSell.GTE(req.Thresholds.Get(st.poor)) {
			if err := executeSwap(liq, ledger, st.poor, st.rich, toSell, req.MaxSlippageBps); err != nil {
				return err
			}
			receipt.Swapped = receipt.Swapped.Add(toSell)
		}
		desired = minInt(minInt(repayUnits, totalDebt), ledger.Get(st.rich))
	}

	closed, err := ClosePositionToTarget(conv, ledger, st.poor, st.rich, desired)
	if err != nil {
		return err
	}
	receipt.Action = types.RebalanceActionShrink
	receipt.Repaid = receipt.Repaid.Add(closed.Repaid)
	st.refresh(ledger)

	_, debtLeft, err := conv.GetAggregateDebt(st.poor, st.rich, false)
	if err != nil {
		return fmt.Errorf("aggregate debt lookup failed: %w", err)
	}
	if debtLeft.IsZero() && st.excessValue().IsPositive() {
		// Fully closed and still rich: the position must reverse direction.
		if err := growPosition(conv, oracle, liq, ledger, req, st, receipt); err != nil {
			return err
		}
		if receipt.Borrowed.IsPositive() {
			receipt.Action = types.RebalanceActionFlip
		}
		return nil
	}

	// Residue left by rounding and the repay clamp is settled at market.
	return swapResidual(liq, ledger, req, st, receipt)
}

// swapResidual moves any remaining imbalance with a direct liquidation. A swap
// shifts value one-for-one, so the amount solves vRich - s = ratio*(vPoor + s).
func swapResidual(
	liq market.Liquidator,
	ledger *types.Ledger,
	req RebalanceRequest,
	st *pairState,
	receipt *types.RebalanceReceipt,
) error {
	residual := st.excessValue().Quo(sdkmath.LegacyOneDec().Add(st.ratio))
	units := unitsFromValue(residual, st.priceRich, st.rich.Decimals)
	units = minInt(units, ledger.Get(st.rich))
	if units.LT(req.Thresholds.Get(st.rich)) {
		return nil
	}
	if err := executeSwap(liq, ledger, st.rich, st.poor, units, req.MaxSlippageBps); err != nil {
		return err
	}
	receipt.Swapped = receipt.Swapped.Add(units)
	st.refresh(ledger)
	return nil
}

// executeSwap debits the input, runs the liquidation, and credits the proceeds.
func executeSwap(
	liq market.Liquidator,
	ledger *types.Ledger,
	tokenIn, tokenOut types.Asset,
	amountIn sdkmath.Int,
	maxSlippageBps int64,
) error {
	if err := ledger.Sub(tokenIn, amountIn); err != nil {
		return err
	}
	out, err := liq.Liquidate(tokenIn, tokenOut, amountIn, maxSlippageBps)
	if err != nil {
		return fmt.Errorf("liquidation %s->%s failed: %w", tokenIn.Symbol, tokenOut.Symbol, err)
	}
	return ledger.Add(tokenOut, out)
}
