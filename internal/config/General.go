package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// StrategyID is the identifier of the strategy instance this process manages.
	StrategyID uint64

	// Mode gates execution. Only "sim" is accepted by this build; there is no live
	// execution surface in this repository.
	Mode string

	// WebPort is the port the JSON status API listens on.
	WebPort string

	// CycleIntervalMinutes is the rebalance loop interval.
	CycleIntervalMinutes uint64
)

// LoadConfig loads configuration from environment variables and sets the global
// config vars. All listed environment variables are required.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	StrategyID, err = getEnvAsUint64("LSM_STRATEGY_ID")
	if err != nil {
		return err
	}

	Mode, err = getEnv("LSM_MODE")
	if err != nil {
		return err
	}

	CycleIntervalMinutes, err = getEnvAsUint64("LSM_CYCLE_INTERVAL_MINUTES")
	if err != nil {
		return err
	}

	WebPort = os.Getenv("WEB_PORT")
	if WebPort == "" {
		WebPort = "8080"
	}

	log.Debug().
		Uint64("StrategyID", StrategyID).
		Str("Mode", Mode).
		Uint64("CycleIntervalMinutes", CycleIntervalMinutes).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
