/*

This file contains the reward recycler: each harvested reward token is split into a
compounded portion, a forwarder payout and (for tokens that must be liquidated) a
performance/insurance carve-out. Amounts at or below the token's liquidation
threshold are dust and contribute zero to every bucket.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// RecycleRequest carries the inputs of one recycle pass.
type RecycleRequest struct {
	RewardAssets  []types.Asset
	RewardAmounts []sdkmath.Int

	// CompoundRatio is the fraction of each reward that is compounded; the rest is
	// forwarded. PerformanceFeeRatio is carved out of liquidated compound proceeds.
	CompoundRatio       sdkmath.LegacyDec
	PerformanceFeeRatio sdkmath.LegacyDec

	PoolAssets []types.Asset // assets already part of the deposit, main asset included
	MainIndex  int           // index of the main asset within PoolAssets

	Thresholds     *types.ThresholdRegistry
	MaxSlippageBps int64

	// SkipValidation bypasses the converter's conversion-validity check. Only for
	// callers that have already de-risked the route.
	SkipValidation bool
}

// RecycleRewards consumes a harvested reward batch. It returns the forward amounts
// aligned to the input token list and the aggregate main-asset performance fee.
// The sums distributed never exceed the batch minus liquidation slippage.
func RecycleRewards(
	conv market.Converter,
	liq market.Liquidator,
	ledger *types.Ledger,
	req RecycleRequest,
) (types.RecycleResult, error) {
	recycleLogger := logger.GetForComponent("reward_recycler")

	result := types.RecycleResult{
		Forwarded:      make([]sdkmath.Int, len(req.RewardAssets)),
		PerformanceFee: sdkmath.ZeroInt(),
		Compounded:     sdkmath.ZeroInt(),
	}
	for i := range result.Forwarded {
		result.Forwarded[i] = sdkmath.ZeroInt()
	}

	if len(req.RewardAssets) != len(req.RewardAmounts) {
		return result, fmt.Errorf("%w: %d reward assets, %d amounts",
			types.ErrWrongLengths, len(req.RewardAssets), len(req.RewardAmounts))
	}
	if err := validateRatio(req.CompoundRatio, "compound ratio"); err != nil {
		return result, err
	}
	if err := validateRatio(req.PerformanceFeeRatio, "performance fee ratio"); err != nil {
		return result, err
	}
	if req.MainIndex < 0 || req.MainIndex >= len(req.PoolAssets) {
		return result, fmt.Errorf("%w: main index %d out of %d pool assets",
			types.ErrWrongLengths, req.MainIndex, len(req.PoolAssets))
	}
	main := req.PoolAssets[req.MainIndex]

	for i, token := range req.RewardAssets {
		amount := req.RewardAmounts[i]
		if amount.IsNil() || !amount.IsPositive() {
			continue
		}
		if amount.LTE(req.Thresholds.Get(token)) {
			// Dust: left untouched on the balance, zero to every bucket.
			recycleLogger.Debug().
				Str("token", token.Symbol).
				Str("amount", amount.String()).
				Msg("Reward below liquidation threshold, skipping")
			continue
		}

		compound := req.CompoundRatio.MulInt(amount).TruncateInt()
		forward := amount.Sub(compound)
		result.Forwarded[i] = forward
		if err := ledger.Sub(token, forward); err != nil {
			return result, err
		}

		if !compound.IsPositive() {
			continue
		}
		if isPoolAsset(token, req.PoolAssets) {
			// Pool assets compound in place: the portion stays on the balance and
			// is picked up by the next deposit cycle. No swap, no fee.
			continue
		}

		if err := ledger.Sub(token, compound); err != nil {
			return result, err
		}
		proceeds, err := liq.Liquidate(token, main, compound, req.MaxSlippageBps)
		if err != nil {
			return result, fmt.Errorf("reward liquidation %s->%s failed: %w", token.Symbol, main.Symbol, err)
		}
		if !req.SkipValidation {
			ok, err := conv.IsSwapValid(token, compound, main, proceeds)
			if err != nil {
				return result, fmt.Errorf("conversion validity check failed: %w", err)
			}
			if !ok {
				return result, fmt.Errorf("%w: %s -> %s", ErrPriceImpactTooHigh, token.Symbol, main.Symbol)
			}
		}

		fee := req.PerformanceFeeRatio.MulInt(proceeds).TruncateInt()
		compounded := proceeds.Sub(fee)
		if err := ledger.Add(main, compounded); err != nil {
			return result, err
		}
		result.PerformanceFee = result.PerformanceFee.Add(fee)
		result.Compounded = result.Compounded.Add(compounded)
	}

	recycleLogger.Info().
		Int("tokens", len(req.RewardAssets)).
		Str("performanceFee", result.PerformanceFee.String()).
		Str("compounded", result.Compounded.String()).
		Msg("Reward recycle complete")
	return result, nil
}

func validateRatio(ratio sdkmath.LegacyDec, name string) error {
	if ratio.IsNil() || ratio.IsNegative() || ratio.GT(sdkmath.LegacyOneDec()) {
		return fmt.Errorf("%w: %s", ErrInvalidRatio, name)
	}
	return nil
}

func isPoolAsset(token types.Asset, poolAssets []types.Asset) bool {
	for _, a := range poolAssets {
		if a.Equal(token) {
			return true
		}
	}
	return false
}
