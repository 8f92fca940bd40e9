package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestCalculateAmountToSellWorkedExample(t *testing.T) {
	// 3000 collateral at price 1 against 1000 debt at price 0.5: alpha = 6, so
	// freeing 800 requires selling 800/5 * 1.01 = 161.6, truncated to 161.
	got := CalculateAmountToSell(
		sdkmath.NewInt(800),
		sdkmath.NewInt(1000), sdkmath.NewInt(3000),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.Equal(t, sdkmath.NewInt(161), got)
}

func TestCalculateAmountToSellZeroDebtOrCollateral(t *testing.T) {
	got := CalculateAmountToSell(
		sdkmath.NewInt(800),
		sdkmath.ZeroInt(), sdkmath.NewInt(3000),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.True(t, got.IsZero())

	got = CalculateAmountToSell(
		sdkmath.NewInt(800),
		sdkmath.NewInt(1000), sdkmath.ZeroInt(),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.True(t, got.IsZero())
}

func TestCalculateAmountToSellAtBreakEven(t *testing.T) {
	// Collateral value equals debt value: each repaid unit frees exactly its own
	// cost, so no sale can free anything.
	got := CalculateAmountToSell(
		sdkmath.NewInt(800),
		sdkmath.NewInt(1000), sdkmath.NewInt(500),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.True(t, got.IsZero())
}

func TestCalculateAmountToSellBalanceAlreadyCoversDebt(t *testing.T) {
	got := CalculateAmountToSell(
		sdkmath.NewInt(800),
		sdkmath.NewInt(1000), sdkmath.NewInt(3000),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.NewInt(1000),
	)
	require.True(t, got.IsZero())
}

func TestCalculateAmountToSellCappedAtFullRepay(t *testing.T) {
	// An outsized request is capped at selling enough to repay the whole debt
	// with the 1% margin: 1000 * 1.01 * 0.5 = 505.
	got := CalculateAmountToSell(
		sdkmath.NewInt(1_000_000),
		sdkmath.NewInt(1000), sdkmath.NewInt(3000),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.Equal(t, sdkmath.NewInt(505), got)
}

func TestCalculateAmountToSellNonPositiveInputs(t *testing.T) {
	got := CalculateAmountToSell(
		sdkmath.ZeroInt(),
		sdkmath.NewInt(1000), sdkmath.NewInt(3000),
		dec("1"), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.True(t, got.IsZero())

	got = CalculateAmountToSell(
		sdkmath.NewInt(800),
		sdkmath.NewInt(1000), sdkmath.NewInt(3000),
		sdkmath.LegacyZeroDec(), dec("0.5"),
		coinA, coinB,
		sdkmath.ZeroInt(),
	)
	require.True(t, got.IsZero())
}
