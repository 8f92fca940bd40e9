/*

This file contains the liquidation threshold registry. A threshold is the minimum
transaction size, in an asset's native decimals, below which a swap or compounding
step is skipped as dust.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// DefaultLiquidationThreshold is the protocol-wide minimum used when no per-asset
// threshold has been configured.
const DefaultLiquidationThreshold = 100_000

// ThresholdRegistry holds per-asset liquidation thresholds with a protocol-wide
// fallback.
type ThresholdRegistry struct {
	overrides map[string]sdkmath.Int
	fallback  sdkmath.Int
}

// NewThresholdRegistry creates a registry with the given protocol-wide fallback.
// A nil or non-positive fallback falls back to DefaultLiquidationThreshold.
func NewThresholdRegistry(fallback sdkmath.Int) *ThresholdRegistry {
	if fallback.IsNil() || !fallback.IsPositive() {
		fallback = sdkmath.NewInt(DefaultLiquidationThreshold)
	}
	return &ThresholdRegistry{
		overrides: make(map[string]sdkmath.Int),
		fallback:  fallback,
	}
}

// Set configures a per-asset threshold. Non-positive values clear the override so
// the asset reverts to the protocol-wide fallback.
func (r *ThresholdRegistry) Set(asset Asset, threshold sdkmath.Int) {
	if threshold.IsNil() || !threshold.IsPositive() {
		delete(r.overrides, asset.Address)
		return
	}
	r.overrides[asset.Address] = threshold
}

// Get returns the threshold for the asset, falling back to the protocol default.
func (r *ThresholdRegistry) Get(asset Asset) sdkmath.Int {
	if t, ok := r.overrides[asset.Address]; ok {
		return t
	}
	return r.fallback
}
