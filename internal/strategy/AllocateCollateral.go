/*

This file contains the collateral allocator: it splits a deposit amount across the
pool assets by configured integer weights, nets out balances already held, and
reports the per-asset shortfall that must still be acquired.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// AllocateCollateral computes, for each pool asset, the amount still needed so the
// deposit lands on the configured weights. depositAmount is in main-asset units;
// the returned shortfalls are in each asset's native units, clamped at zero where
// the held balance already covers the target share.
func AllocateCollateral(
	oracle market.PriceOracle,
	ledger *types.Ledger,
	depositAmount sdkmath.Int,
	assets []types.Asset,
	weights []int64,
	mainIndex int,
) ([]sdkmath.Int, error) {
	if len(assets) != len(weights) {
		return nil, fmt.Errorf("%w: %d assets, %d weights", types.ErrWrongLengths, len(assets), len(weights))
	}
	if mainIndex < 0 || mainIndex >= len(assets) {
		return nil, fmt.Errorf("%w: main index %d out of %d assets", types.ErrWrongLengths, mainIndex, len(assets))
	}

	var totalWeight int64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weight for %s is negative: %d", assets[i].Symbol, w)
		}
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil, fmt.Errorf("%w: total weight", ErrZeroBalanceOrPrice)
	}

	main := assets[mainIndex]
	priceMain, err := fetchPrice(oracle, main)
	if err != nil {
		return nil, err
	}

	shortfalls := make([]sdkmath.Int, len(assets))
	for i, asset := range assets {
		targetMainUnits := depositAmount.Mul(sdkmath.NewInt(weights[i])).Quo(sdkmath.NewInt(totalWeight))
		if !targetMainUnits.IsPositive() {
			shortfalls[i] = sdkmath.ZeroInt()
			continue
		}

		target := targetMainUnits
		if !asset.Equal(main) {
			priceAsset, err := fetchPrice(oracle, asset)
			if err != nil {
				return nil, err
			}
			target = convertUnits(targetMainUnits, main, asset, priceMain, priceAsset)
		}

		shortfall := target.Sub(ledger.Get(asset))
		if shortfall.IsNegative() {
			shortfall = sdkmath.ZeroInt()
		}
		shortfalls[i] = shortfall
	}
	return shortfalls, nil
}
