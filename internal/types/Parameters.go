/*

This file contains the strategy parameter set. Defaults live in the config package;
the active set is persisted in the database so it survives restarts and can be tuned
without redeploying.

*/

package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// StrategyParameters holds every tunable of the rebalancing engine.
type StrategyParameters struct {
	// TargetProportion is the target value share of asset X in the managed pair,
	// strictly between 0 and 1.
	TargetProportion sdkmath.LegacyDec `json:"target_proportion"`

	// RebalanceTolerance is the acceptable deviation of the observed value share
	// from the target before a pass takes action, e.g. 0.01 for 1%.
	RebalanceTolerance sdkmath.LegacyDec `json:"rebalance_tolerance"`

	// CompoundRatio is the fraction of each harvested reward that is compounded;
	// the remainder is forwarded. Range [0,1].
	CompoundRatio sdkmath.LegacyDec `json:"compound_ratio"`

	// PerformanceFeeRatio is the fraction of liquidated reward proceeds carved out
	// for the performance/insurance bucket. Range [0,1].
	PerformanceFeeRatio sdkmath.LegacyDec `json:"performance_fee_ratio"`

	// MaxSlippageBps bounds every liquidator swap the engine requests.
	MaxSlippageBps int64 `json:"max_slippage_bps"`

	// BorrowPeriodDays is the horizon passed to the converter when it ranks venues.
	BorrowPeriodDays int `json:"borrow_period_days"`

	// DefaultLiquidationThreshold is the protocol-wide dust floor applied to assets
	// without a per-asset override.
	DefaultLiquidationThreshold sdkmath.Int `json:"default_liquidation_threshold"`
}

// Validate checks the parameter set is internally coherent. It is called on load so
// a bad row in the parameter store cannot reach the engine.
func (p StrategyParameters) Validate() error {
	if p.TargetProportion.IsNil() || !p.TargetProportion.IsPositive() || p.TargetProportion.GTE(sdkmath.LegacyOneDec()) {
		return errors.New("target proportion must be strictly between 0 and 1")
	}
	if p.RebalanceTolerance.IsNil() || p.RebalanceTolerance.IsNegative() {
		return errors.New("rebalance tolerance cannot be negative")
	}
	if p.CompoundRatio.IsNil() || p.CompoundRatio.IsNegative() || p.CompoundRatio.GT(sdkmath.LegacyOneDec()) {
		return errors.New("compound ratio must be between 0 and 1")
	}
	if p.PerformanceFeeRatio.IsNil() || p.PerformanceFeeRatio.IsNegative() || p.PerformanceFeeRatio.GT(sdkmath.LegacyOneDec()) {
		return errors.New("performance fee ratio must be between 0 and 1")
	}
	if p.MaxSlippageBps <= 0 || p.MaxSlippageBps > 10_000 {
		return fmt.Errorf("max slippage must be between 1 and 10000 bps, got %d", p.MaxSlippageBps)
	}
	if p.BorrowPeriodDays <= 0 {
		return fmt.Errorf("borrow period must be positive, got %d", p.BorrowPeriodDays)
	}
	if p.DefaultLiquidationThreshold.IsNil() || !p.DefaultLiquidationThreshold.IsPositive() {
		return errors.New("default liquidation threshold must be positive")
	}
	return nil
}
