// ./internal/state/receipts.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/veldra-labs/lsm/internal/types"
)

// ReceiptStore persists cycle receipts to PostgreSQL. It satisfies the engine's
// ReceiptSink interface over the package-level connection pool.
type ReceiptStore struct{}

// SaveRebalanceReceipt inserts one rebalance receipt and returns its row id.
func (ReceiptStore) SaveRebalanceReceipt(receipt types.RebalanceReceipt) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	balancesJSON, err := json.Marshal(receipt.Balances)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal balances: %w", err)
	}

	ts := receipt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	stmt := `
        INSERT INTO rebalance_receipts (
            cycle_id, receipt_timestamp, action, balanced,
            asset_x, asset_y, proportion, share_before, share_after,
            repaid, borrowed, swapped, balances
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING receipt_id;`

	var receiptID int64
	err = DB.QueryRow(stmt,
		receipt.CycleID, ts, string(receipt.Action), receipt.Balanced,
		receipt.AssetX, receipt.AssetY, receipt.Proportion, receipt.ShareBefore, receipt.ShareAfter,
		receipt.Repaid.String(), receipt.Borrowed.String(), receipt.Swapped.String(), balancesJSON,
	).Scan(&receiptID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert rebalance receipt: %w", err)
	}

	log.Debug().
		Int64("receipt_id", receiptID).
		Str("cycle_id", receipt.CycleID).
		Str("action", string(receipt.Action)).
		Msg("Saved rebalance receipt")
	return receiptID, nil
}

// SaveRecycleReceipt inserts one reward-recycling receipt and returns its row id.
func (ReceiptStore) SaveRecycleReceipt(receipt types.RecycleReceipt) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	rewardsJSON, err := json.Marshal(receipt.Rewards)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal rewards: %w", err)
	}
	forwardedJSON, err := json.Marshal(receipt.Forwarded)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal forwarded amounts: %w", err)
	}

	ts := receipt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	stmt := `
        INSERT INTO recycle_receipts (
            cycle_id, receipt_timestamp, rewards, forwarded, performance_fee, compounded
        ) VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING receipt_id;`

	var receiptID int64
	err = DB.QueryRow(stmt,
		receipt.CycleID, ts, rewardsJSON, forwardedJSON,
		receipt.PerformanceFee.String(), receipt.Compounded.String(),
	).Scan(&receiptID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert recycle receipt: %w", err)
	}

	log.Debug().
		Int64("receipt_id", receiptID).
		Str("cycle_id", receipt.CycleID).
		Msg("Saved recycle receipt")
	return receiptID, nil
}

// GetRecentRebalanceReceipts returns the most recent rebalance receipts, newest
// first, up to the given limit.
func GetRecentRebalanceReceipts(limit int) ([]types.RebalanceReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	stmt := `
        SELECT receipt_id, cycle_id, receipt_timestamp, action, balanced,
               asset_x, asset_y, proportion, share_before, share_after,
               repaid, borrowed, swapped, balances
        FROM rebalance_receipts
        ORDER BY receipt_timestamp DESC
        LIMIT $1;`

	rows, err := DB.Query(stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalance receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.RebalanceReceipt
	for rows.Next() {
		var (
			r                         types.RebalanceReceipt
			action                    string
			repaid, borrowed, swapped string
			balancesJSON              []byte
		)
		if err := rows.Scan(&r.ReceiptID, &r.CycleID, &r.Timestamp, &action, &r.Balanced,
			&r.AssetX, &r.AssetY, &r.Proportion, &r.ShareBefore, &r.ShareAfter,
			&repaid, &borrowed, &swapped, &balancesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance receipt: %w", err)
		}
		r.Action = types.RebalanceAction(action)
		if r.Repaid, err = intFromColumn(repaid, "repaid"); err != nil {
			return nil, err
		}
		if r.Borrowed, err = intFromColumn(borrowed, "borrowed"); err != nil {
			return nil, err
		}
		if r.Swapped, err = intFromColumn(swapped, "swapped"); err != nil {
			return nil, err
		}
		if len(balancesJSON) > 0 {
			if err := json.Unmarshal(balancesJSON, &r.Balances); err != nil {
				return nil, fmt.Errorf("failed to unmarshal balances: %w", err)
			}
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func intFromColumn(value, column string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(value)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("bad %s value %q", column, value)
	}
	return v, nil
}
