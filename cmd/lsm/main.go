package main

import (
	"context"
	"os"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/veldra-labs/lsm/internal/config"
	"github.com/veldra-labs/lsm/internal/engine"
	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/simmarket"
	"github.com/veldra-labs/lsm/internal/state"
	"github.com/veldra-labs/lsm/internal/types"
	"github.com/veldra-labs/lsm/internal/web"
)

const (
	DEFAULT_CONFIG_NAME    = "default"
	DEFAULT_CONFIG_VERSION = 1
)

// main is the entry point for the strategy engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("LSM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Strategy Parameters
	strategyParams, err := state.LoadActiveStrategyParameters(DEFAULT_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active strategy parameters, using defaults and saving.")
		defaultParams := config.DefaultStrategyParameters
		if _, err := state.SaveStrategyParameters(defaultParams, DEFAULT_CONFIG_NAME, DEFAULT_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default strategy parameters.")
		}
		strategyParams = &defaultParams
	}
	log.Info().Msg("Strategy parameters loaded successfully.")

	// --- Start Web Server ---
	webServer := web.NewWebServer(config.WebPort)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting LSM status API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 2. Market Initialization (with Safety Switch) ---
	// Only the deterministic sim market exists in this build. Anything else halts
	// rather than risking a half-wired live surface.
	if config.Mode != "sim" {
		log.Fatal().Msg("LSM_MODE is not set to 'sim'. Halting to prevent accidental execution. Set LSM_MODE=sim to run.")
	}
	log.Info().Msg("Initializing LSM in SIM mode. All market calls are in-memory.")

	assetX := types.Asset{Address: "uatom", Symbol: "ATOM", Decimals: 6}
	assetY := types.Asset{Address: "uusdc", Symbol: "USDC", Decimals: 6}

	market := simmarket.New()
	market.SetPrice(assetX, sdkmath.LegacyMustNewDecFromStr("10"))
	market.SetPrice(assetY, sdkmath.LegacyOneDec())
	market.AddVenue(simmarket.Venue{
		Name:             "prime",
		APR:              sdkmath.LegacyMustNewDecFromStr("0.05"),
		MaxCollateral:    sdkmath.NewInt(1_000_000_000_000),
		CollateralFactor: sdkmath.LegacyMustNewDecFromStr("0.8"),
	})

	ledger := types.NewLedger()
	if err := ledger.Add(assetX, sdkmath.NewInt(1_000_000_000)); err != nil {
		log.Fatal().Err(err).Msg("Failed to fund initial sim balance")
	}
	if err := ledger.Add(assetY, sdkmath.NewInt(10_000_000_000)); err != nil {
		log.Fatal().Err(err).Msg("Failed to fund initial sim balance")
	}

	// --- 3. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating engine instance with dependency injection...")

	engineConfig := engine.Config{
		Oracle:     market,
		Converter:  market,
		Liquidator: market,
		Ledger:     ledger,
		Params:     strategyParams,
		Assets:     []types.Asset{assetX, assetY},
		MainIndex:  1,
		Thresholds: types.NewThresholdRegistry(strategyParams.DefaultLiquidationThreshold),
		Receipts:   state.ReceiptStore{},
		Cycles:     state.CycleStore{},
	}

	engineInstance, err := engine.NewEngine(engineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Engine Main Loop ---
	interval := time.Duration(config.CycleIntervalMinutes) * time.Minute
	log.Info().Str("interval", interval.String()).Msg("Starting engine main loop")

	// Create context for graceful shutdown
	ctx := context.Background()

	// Start the engine loop (this will run indefinitely)
	engineInstance.RunLoop(ctx, interval)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
