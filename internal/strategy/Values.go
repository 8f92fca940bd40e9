/*

This file contains the value-normalization helpers shared by the strategy package.
Amounts are Ints in native decimals; prices are 18-decimal fixed point per whole
unit; values are 18-decimal fixed point in the oracle's common unit.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

// assetValue converts an amount in native decimals to its oracle value.
func assetValue(amount sdkmath.Int, price sdkmath.LegacyDec, decimals int) sdkmath.LegacyDec {
	if amount.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	return price.MulInt(amount).Quo(types.Pow10Dec(decimals))
}

// unitsFromValue converts an oracle value back to native units of an asset,
// truncating toward zero.
func unitsFromValue(value, price sdkmath.LegacyDec, decimals int) sdkmath.Int {
	if !value.IsPositive() || !price.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return value.Quo(price).Mul(types.Pow10Dec(decimals)).TruncateInt()
}

// convertUnits re-denominates an amount of one asset into the equivalent amount of
// another at oracle prices.
func convertUnits(amount sdkmath.Int, from, to types.Asset, priceFrom, priceTo sdkmath.LegacyDec) sdkmath.Int {
	return unitsFromValue(assetValue(amount, priceFrom, from.Decimals), priceTo, to.Decimals)
}

// fetchPrice reads a price and rejects degenerate results.
func fetchPrice(oracle market.PriceOracle, asset types.Asset) (sdkmath.LegacyDec, error) {
	price, err := oracle.GetPrice(asset)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("price lookup for %s failed: %w", asset.Symbol, err)
	}
	if price.IsNil() || !price.IsPositive() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrZeroBalanceOrPrice, asset.Symbol)
	}
	return price, nil
}

// minInt returns the smaller of two Ints.
func minInt(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}
