package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/veldra-labs/lsm/internal/types"
)

func TestAllocateCollateralNetsOutHeldBalances(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(100_000)))

	shortfalls, err := AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{1, 1}, 0)
	require.NoError(t, err)
	require.Len(t, shortfalls, 2)

	require.Equal(t, sdkmath.NewInt(500_000), shortfalls[0])
	require.Equal(t, sdkmath.NewInt(400_000), shortfalls[1])
}

func TestAllocateCollateralConvertsAcrossPrices(t *testing.T) {
	m := newTestMarket()
	m.SetPrice(atom, dec("2"))
	ledger := types.NewLedger()

	shortfalls, err := AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{1, 1}, 0)
	require.NoError(t, err)

	// Half the deposit's value in an asset worth twice as much needs half the units.
	require.Equal(t, sdkmath.NewInt(500_000), shortfalls[0])
	require.Equal(t, sdkmath.NewInt(250_000), shortfalls[1])
}

func TestAllocateCollateralClampsCoveredAssets(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(9_000_000)))

	shortfalls, err := AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{1, 1}, 0)
	require.NoError(t, err)
	require.True(t, shortfalls[1].IsZero())
}

func TestAllocateCollateralZeroWeightGetsNothing(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()

	shortfalls, err := AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{1, 0}, 0)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000_000), shortfalls[0])
	require.True(t, shortfalls[1].IsZero())
}

func TestAllocateCollateralValidation(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()

	_, err := AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{1}, 0)
	require.ErrorIs(t, err, types.ErrWrongLengths)

	_, err = AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{0, 0}, 0)
	require.ErrorIs(t, err, ErrZeroBalanceOrPrice)

	_, err = AllocateCollateral(m, ledger, sdkmath.NewInt(1_000_000),
		[]types.Asset{usdc, atom}, []int64{1, -1}, 0)
	require.Error(t, err)
}
