// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/veldra-labs/lsm/internal/types"
)

// SaveStrategyParameters saves a new version of strategy parameters.
func SaveStrategyParameters(params types.StrategyParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to save invalid parameters: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE strategy_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO strategy_parameters (
            version, config_name, is_active, activated_at, created_at,
            target_proportion, rebalance_tolerance,
            compound_ratio, performance_fee_ratio,
            max_slippage_bps, borrow_period_days, default_liquidation_threshold
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7,
            $8, $9,
            $10, $11, $12
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.TargetProportion.String(), params.RebalanceTolerance.String(),
		params.CompoundRatio.String(), params.PerformanceFeeRatio.String(),
		params.MaxSlippageBps, params.BorrowPeriodDays, params.DefaultLiquidationThreshold.String(),
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert strategy parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved strategy parameters")
	return paramsID, nil
}

// LoadActiveStrategyParameters loads the currently active strategy parameters for
// the given config name. Returns sql.ErrNoRows if no active set exists.
func LoadActiveStrategyParameters(configName string) (*types.StrategyParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
        SELECT target_proportion, rebalance_tolerance,
               compound_ratio, performance_fee_ratio,
               max_slippage_bps, borrow_period_days, default_liquidation_threshold
        FROM strategy_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var (
		targetProportion, rebalanceTolerance   string
		compoundRatio, performanceFeeRatio     string
		maxSlippageBps                         int64
		borrowPeriodDays                       int
		defaultLiquidationThreshold            string
	)
	err := DB.QueryRow(stmt, configName).Scan(
		&targetProportion, &rebalanceTolerance,
		&compoundRatio, &performanceFeeRatio,
		&maxSlippageBps, &borrowPeriodDays, &defaultLiquidationThreshold,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load active strategy parameters for %s: %w", configName, err)
	}

	params := types.StrategyParameters{
		MaxSlippageBps:   maxSlippageBps,
		BorrowPeriodDays: borrowPeriodDays,
	}
	if params.TargetProportion, err = sdkmath.LegacyNewDecFromStr(targetProportion); err != nil {
		return nil, fmt.Errorf("bad target_proportion %q: %w", targetProportion, err)
	}
	if params.RebalanceTolerance, err = sdkmath.LegacyNewDecFromStr(rebalanceTolerance); err != nil {
		return nil, fmt.Errorf("bad rebalance_tolerance %q: %w", rebalanceTolerance, err)
	}
	if params.CompoundRatio, err = sdkmath.LegacyNewDecFromStr(compoundRatio); err != nil {
		return nil, fmt.Errorf("bad compound_ratio %q: %w", compoundRatio, err)
	}
	if params.PerformanceFeeRatio, err = sdkmath.LegacyNewDecFromStr(performanceFeeRatio); err != nil {
		return nil, fmt.Errorf("bad performance_fee_ratio %q: %w", performanceFeeRatio, err)
	}
	threshold, ok := sdkmath.NewIntFromString(defaultLiquidationThreshold)
	if !ok {
		return nil, fmt.Errorf("bad default_liquidation_threshold %q", defaultLiquidationThreshold)
	}
	params.DefaultLiquidationThreshold = threshold

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("stored parameters for %s are invalid: %w", configName, err)
	}

	log.Debug().Str("config", configName).Msg("Loaded active strategy parameters")
	return &params, nil
}
