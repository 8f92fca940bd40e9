/*

This file contains the default strategy parameters. These values are used if no
active parameter set is found in the database during initialization.

They are calibrated for unattended operation: every external call costs execution
budget, so the defaults prefer skipping a marginal trade over forcing one.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/types"
)

// DefaultStrategyParameters provides the baseline tuning for the rebalancing engine.
var DefaultStrategyParameters = types.StrategyParameters{
	TargetProportion: sdkmath.LegacyMustNewDecFromStr("0.5"),
	// Rationale: symmetric two-sided pools are the common deployment; asymmetric
	// pools override this per instance via the parameter store.

	RebalanceTolerance: sdkmath.LegacyMustNewDecFromStr("0.01"),
	// Rationale: the sale sizing already carries a 1% drift margin, so acting on
	// deviations inside that band only burns budget chasing rounding noise.

	CompoundRatio: sdkmath.LegacyMustNewDecFromStr("0.9"),
	// Rationale: compounding dominates long-run returns; the 10% forwarded keeps
	// the external distribution flowing without starving the principal.

	PerformanceFeeRatio: sdkmath.LegacyMustNewDecFromStr("0.1"),
	// Rationale: the insurance bucket is funded only from liquidated reward
	// proceeds, never from principal, so a flat 10% stays predictable.

	MaxSlippageBps: 300,
	// Rationale: 3% is the widest acceptable execution for reward-sized trades.
	// Better to leave a leg stranded than to cross a thin book.

	BorrowPeriodDays: 30,
	// Rationale: venue APRs are ranked over the expected holding horizon of a
	// position; 30 days matches the rebalancing cadence of the deployments.

	DefaultLiquidationThreshold: sdkmath.NewInt(types.DefaultLiquidationThreshold),
	// Rationale: protocol-wide dust floor. Amounts below it cost more to convert
	// than they return; per-asset overrides handle expensive or cheap tokens.
}
