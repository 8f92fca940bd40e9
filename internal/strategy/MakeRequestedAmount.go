/*

This file contains the requested-amount synthesizer: it accumulates a target amount
of the main asset out of a multi-asset, multi-debt balance sheet. Debts are settled
before free balances are swapped, so swap costs are never paid on amounts that a
repayment would have consumed anyway. Legs below an asset's liquidation threshold
are skipped silently; their value stays stranded rather than being forced through
an uneconomical trade.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// MakeRequestedAmountRequest carries the inputs of one synthesis pass.
type MakeRequestedAmountRequest struct {
	Assets         []types.Asset // ordered; positions are visited in this order
	MainIndex      int
	Requested      sdkmath.Int // amounts at or above types.MaxAmount mean "as much as possible"
	Thresholds     *types.ThresholdRegistry
	MaxSlippageBps int64
}

// MakeRequestedAmount synthesizes the requested amount of the main asset by
// interleaving repayments and swaps across all held assets, and returns the main
// asset balance now available. Secondary balances are drained toward zero modulo
// dust.
func MakeRequestedAmount(
	conv market.Converter,
	oracle market.PriceOracle,
	liq market.Liquidator,
	ledger *types.Ledger,
	req MakeRequestedAmountRequest,
) (sdkmath.Int, error) {
	synthLogger := logger.GetForComponent("amount_synthesizer")

	if req.MainIndex < 0 || req.MainIndex >= len(req.Assets) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: main index %d out of %d assets",
			types.ErrWrongLengths, req.MainIndex, len(req.Assets))
	}
	main := req.Assets[req.MainIndex]
	drainAll := req.Requested.GTE(types.MaxAmount)

	if !drainAll && ledger.Get(main).GTE(req.Requested) {
		// Already satisfied; no external calls are spent.
		return ledger.Get(main), nil
	}

	priceMain, err := fetchPrice(oracle, main)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	// First pass: settle debts borrowed against the main asset.
	for i, asset := range req.Assets {
		if i == req.MainIndex {
			continue
		}
		if satisfied(ledger, main, req.Requested, drainAll) {
			break
		}
		totalCollateral, totalDebt, err := conv.GetAggregateDebt(main, asset, false)
		if err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("aggregate debt lookup for %s failed: %w", asset.Symbol, err)
		}
		if totalDebt.IsZero() {
			continue
		}
		priceAsset, err := fetchPrice(oracle, asset)
		if err != nil {
			return sdkmath.ZeroInt(), err
		}

		if ledger.Get(asset).LT(totalDebt) {
			// The asset's own balance cannot clear the debt; sell just enough of
			// the main asset that the extra repayment frees more collateral than
			// the sale consumed.
			remaining := remainingNeed(ledger, main, req.Requested, drainAll, totalCollateral)
			toSell := CalculateAmountToSell(remaining, totalDebt, totalCollateral,
				priceMain, priceAsset, main, asset, ledger.Get(asset))
			toSell = minInt(toSell, ledger.Get(main))
			if toSell.GTE(req.Thresholds.Get(main)) {
				if err := executeSwap(liq, ledger, main, asset, toSell, req.MaxSlippageBps); err != nil {
					return sdkmath.ZeroInt(), err
				}
			}
		}

		toRepay := minInt(ledger.Get(asset), totalDebt)
		if toRepay.IsPositive() {
			if _, err := ClosePositionToTarget(conv, ledger, main, asset, toRepay); err != nil {
				return sdkmath.ZeroInt(), err
			}
		}
	}

	// Second pass: free balances with no debt behind them are swapped directly.
	for i, asset := range req.Assets {
		if i == req.MainIndex {
			continue
		}
		if satisfied(ledger, main, req.Requested, drainAll) {
			break
		}
		balance := ledger.Get(asset)
		if balance.LT(req.Thresholds.Get(asset)) {
			// Dust stays stranded on the asset's balance.
			continue
		}
		_, totalDebt, err := conv.GetAggregateDebt(main, asset, false)
		if err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("aggregate debt lookup for %s failed: %w", asset.Symbol, err)
		}
		if totalDebt.IsPositive() {
			// Still owed after the repay pass; its balance backs the debt.
			continue
		}
		if err := executeSwap(liq, ledger, asset, main, balance, req.MaxSlippageBps); err != nil {
			return sdkmath.ZeroInt(), err
		}
	}

	total := ledger.Get(main)
	synthLogger.Info().
		Str("main", main.Symbol).
		Str("requested", req.Requested.String()).
		Str("available", total.String()).
		Msg("Requested-amount synthesis complete")
	return total, nil
}

// satisfied reports whether the main balance already covers the request.
func satisfied(ledger *types.Ledger, main types.Asset, requested sdkmath.Int, drainAll bool) bool {
	return !drainAll && ledger.Get(main).GTE(requested)
}

// remainingNeed is the main-asset shortfall used to size a funding sale, bounded by
// the collateral that could possibly be freed.
func remainingNeed(ledger *types.Ledger, main types.Asset, requested sdkmath.Int, drainAll bool, totalCollateral sdkmath.Int) sdkmath.Int {
	if drainAll {
		return totalCollateral
	}
	shortfall := requested.Sub(ledger.Get(main))
	if shortfall.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return minInt(shortfall, totalCollateral)
}
