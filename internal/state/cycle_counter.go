// ./internal/state/cycle_counter.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CycleStore is the persistent cycle counter. It satisfies the engine's
// CycleCounter interface over the package-level connection pool, so cycle
// numbering survives restarts. The single-row table is created by EnsureSchema.
type CycleStore struct{}

// Current returns the cycle number of the most recently completed cycle.
func (CycleStore) Current() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var currentCycle int
	err := DB.QueryRow(`SELECT current_cycle FROM cycle_counter WHERE id = 1;`).Scan(&currentCycle)
	if err != nil {
		if err == sql.ErrNoRows {
			// EnsureSchema seeds the row; a missing row means it never ran.
			return 0, fmt.Errorf("cycle counter row missing, schema not ensured")
		}
		return 0, fmt.Errorf("failed to get current cycle number: %w", err)
	}
	return currentCycle, nil
}

// Increment advances the counter atomically and returns the new cycle number.
func (CycleStore) Increment() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	stmt := `
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;`

	var newCycle int
	if err := DB.QueryRow(stmt).Scan(&newCycle); err != nil {
		return 0, fmt.Errorf("failed to increment cycle number: %w", err)
	}

	log.Debug().Int("cycle", newCycle).Msg("Incremented cycle counter")
	return newCycle, nil
}

// Reset overwrites the counter. For maintenance only; the engine never calls it.
func (CycleStore) Reset(cycleNumber int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if cycleNumber < 0 {
		return fmt.Errorf("cycle number cannot be negative: %d", cycleNumber)
	}

	stmt := `
		UPDATE cycle_counter
		SET current_cycle = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(stmt, cycleNumber)
	if err != nil {
		return fmt.Errorf("failed to reset cycle number to %d: %w", cycleNumber, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting cycle number")
	}

	log.Warn().Int("cycle", cycleNumber).Msg("Reset cycle counter")
	return nil
}
