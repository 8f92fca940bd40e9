/*

This file contains the strategy engine: the orchestrator that owns the collaborator
handles and the balance ledger, exposes the lifecycle entry points, and runs the
periodic rebalance cycle. All state-mutating calls against one engine instance are
serialized by the caller; the engine itself holds no locks.

*/

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/strategy"
	"github.com/veldra-labs/lsm/internal/types"
)

// ReceiptSink persists cycle receipts. A nil sink disables persistence.
type ReceiptSink interface {
	SaveRebalanceReceipt(receipt types.RebalanceReceipt) (int64, error)
	SaveRecycleReceipt(receipt types.RecycleReceipt) (int64, error)
}

// CycleCounter hands out cycle numbers that survive restarts. A nil counter
// falls back to in-memory numbering starting from 1.
type CycleCounter interface {
	Increment() (int, error)
}

// Engine drives the leveraged strategy over its collaborator interfaces.
type Engine struct {
	logger     zerolog.Logger
	oracle     market.PriceOracle
	converter  market.Converter
	liquidator market.Liquidator
	ledger     *types.Ledger
	params     *types.StrategyParameters
	assets     []types.Asset
	mainIndex  int
	thresholds *types.ThresholdRegistry
	receipts   ReceiptSink
	cycles     CycleCounter

	cycleCount int
}

// Config holds the dependencies for creating a new Engine instance.
type Config struct {
	Oracle     market.PriceOracle
	Converter  market.Converter
	Liquidator market.Liquidator
	Ledger     *types.Ledger
	Params     *types.StrategyParameters
	Assets     []types.Asset // pool assets; the first two form the rebalanced pair
	MainIndex  int
	Thresholds *types.ThresholdRegistry
	Receipts   ReceiptSink  // optional
	Cycles     CycleCounter // optional
}

// NewEngine creates an engine instance with dependency injection.
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:     logger.GetForComponent("engine_core"),
		oracle:     cfg.Oracle,
		converter:  cfg.Converter,
		liquidator: cfg.Liquidator,
		ledger:     cfg.Ledger,
		params:     cfg.Params,
		assets:     cfg.Assets,
		mainIndex:  cfg.MainIndex,
		thresholds: cfg.Thresholds,
		receipts:   cfg.Receipts,
		cycles:     cfg.Cycles,
	}

	e.logger.Info().
		Int("assets", len(e.assets)).
		Str("main", e.assets[e.mainIndex].Symbol).
		Msg("Engine instance created")
	return e, nil
}

func validateEngineConfig(cfg Config) error {
	if cfg.Oracle == nil {
		return fmt.Errorf("price oracle cannot be nil")
	}
	if cfg.Converter == nil {
		return fmt.Errorf("converter cannot be nil")
	}
	if cfg.Liquidator == nil {
		return fmt.Errorf("liquidator cannot be nil")
	}
	if cfg.Ledger == nil {
		return fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Params == nil {
		return fmt.Errorf("strategy parameters cannot be nil")
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	if len(cfg.Assets) < 2 {
		return fmt.Errorf("at least two assets are required, got %d", len(cfg.Assets))
	}
	if cfg.MainIndex < 0 || cfg.MainIndex >= len(cfg.Assets) {
		return fmt.Errorf("main index %d out of range", cfg.MainIndex)
	}
	if cfg.Thresholds == nil {
		return fmt.Errorf("threshold registry cannot be nil")
	}
	return nil
}

// RunLoop starts the main cycle loop with the specified interval. The first cycle
// runs immediately.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().Dur("interval", interval).Msg("Starting engine main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.runCycleLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.runCycleLogged(ctx)
		}
	}
}

func (e *Engine) runCycleLogged(ctx context.Context) {
	cycle := e.nextCycleNumber()
	e.logger.Info().Int("cycle", cycle).Msg("Initiating engine cycle")
	if err := e.RunCycle(ctx); err != nil {
		e.logger.Error().Err(err).Int("cycle", cycle).Msg("Engine cycle failed")
		return
	}
	e.logger.Info().Int("cycle", cycle).Msg("Engine cycle completed")
}

// nextCycleNumber advances the persistent counter when one is configured. A
// counter failure degrades to in-memory numbering rather than skipping the cycle.
func (e *Engine) nextCycleNumber() int {
	if e.cycles != nil {
		n, err := e.cycles.Increment()
		if err == nil {
			e.cycleCount = n
			return n
		}
		e.logger.Error().Err(err).Msg("Failed to advance persistent cycle counter")
	}
	e.cycleCount++
	return e.cycleCount
}

// RunCycle executes one rebalance pass and records its receipt. A failed pass
// aborts the cycle; nothing is retried.
func (e *Engine) RunCycle(_ context.Context) error {
	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Logger()
	cycleLogger.Info().Msg("--- Starting rebalance cycle ---")

	receipt, err := e.Rebalance()
	if err != nil {
		return err
	}
	receipt.CycleID = cycleID

	if e.receipts != nil {
		if _, err := e.receipts.SaveRebalanceReceipt(receipt); err != nil {
			cycleLogger.Error().Err(err).Msg("Failed to persist rebalance receipt")
		}
	}

	cycleLogger.Info().
		Str("action", string(receipt.Action)).
		Bool("balanced", receipt.Balanced).
		Msg("--- Rebalance cycle finished ---")
	return nil
}

// Rebalance runs one debt-rebalancing pass over the managed pair.
func (e *Engine) Rebalance() (types.RebalanceReceipt, error) {
	return strategy.Rebalance(e.converter, e.oracle, e.liquidator, e.ledger, strategy.RebalanceRequest{
		AssetX:         e.assets[0],
		AssetY:         e.assets[1],
		Proportion:     e.params.TargetProportion,
		Tolerance:      e.params.RebalanceTolerance,
		Thresholds:     e.thresholds,
		MaxSlippageBps: e.params.MaxSlippageBps,
		PeriodDays:     e.params.BorrowPeriodDays,
	})
}

// MakeRequestedAmount synthesizes the requested amount of the main asset from the
// whole balance sheet. Pass types.MaxAmount to drain everything.
func (e *Engine) MakeRequestedAmount(requested sdkmath.Int) (sdkmath.Int, error) {
	return strategy.MakeRequestedAmount(e.converter, e.oracle, e.liquidator, e.ledger,
		strategy.MakeRequestedAmountRequest{
			Assets:         e.assets,
			MainIndex:      e.mainIndex,
			Requested:      requested,
			Thresholds:     e.thresholds,
			MaxSlippageBps: e.params.MaxSlippageBps,
		})
}

// Recycle consumes a harvested reward batch and records the receipt.
func (e *Engine) Recycle(rewardAssets []types.Asset, rewardAmounts []sdkmath.Int, skipValidation bool) (types.RecycleResult, error) {
	result, err := strategy.RecycleRewards(e.converter, e.liquidator, e.ledger, strategy.RecycleRequest{
		RewardAssets:        rewardAssets,
		RewardAmounts:       rewardAmounts,
		CompoundRatio:       e.params.CompoundRatio,
		PerformanceFeeRatio: e.params.PerformanceFeeRatio,
		PoolAssets:          e.assets,
		MainIndex:           e.mainIndex,
		Thresholds:          e.thresholds,
		MaxSlippageBps:      e.params.MaxSlippageBps,
		SkipValidation:      skipValidation,
	})
	if err != nil {
		return result, err
	}

	if e.receipts != nil {
		receipt := types.RecycleReceipt{
			CycleID:        uuid.New().String(),
			Timestamp:      time.Now().UTC(),
			Rewards:        coinsFrom(rewardAssets, rewardAmounts),
			Forwarded:      coinsFrom(rewardAssets, result.Forwarded),
			PerformanceFee: result.PerformanceFee,
			Compounded:     result.Compounded,
		}
		if _, err := e.receipts.SaveRecycleReceipt(receipt); err != nil {
			e.logger.Error().Err(err).Msg("Failed to persist recycle receipt")
		}
	}
	return result, nil
}

// coinsFrom pairs parallel asset and amount slices into a Coins snapshot.
func coinsFrom(assets []types.Asset, amounts []sdkmath.Int) sdktypes.Coins {
	coins := make(sdktypes.Coins, 0, len(assets))
	for i, a := range assets {
		if i >= len(amounts) || amounts[i].IsNil() {
			continue
		}
		coins = append(coins, sdktypes.Coin{Denom: strings.ToLower(a.Symbol), Amount: amounts[i]})
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i].Denom < coins[j].Denom })
	return coins
}

// AllocateCollateral reports the per-asset shortfalls for a deposit of the given
// main-asset amount, split by the configured weights.
func (e *Engine) AllocateCollateral(depositAmount sdkmath.Int, weights []int64) ([]sdkmath.Int, error) {
	return strategy.AllocateCollateral(e.oracle, e.ledger, depositAmount, e.assets, weights, e.mainIndex)
}

// Ledger exposes the balance ledger for funding and inspection.
func (e *Engine) Ledger() *types.Ledger {
	return e.ledger
}
