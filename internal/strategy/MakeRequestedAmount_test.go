package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/veldra-labs/lsm/internal/simmarket"
	"github.com/veldra-labs/lsm/internal/types"
)

func TestMakeRequestedAmountAlreadySatisfied(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))

	got, err := MakeRequestedAmount(m, m, m, ledger, MakeRequestedAmountRequest{
		Assets:         []types.Asset{atom, usdc},
		MainIndex:      0,
		Requested:      sdkmath.NewInt(800_000),
		Thresholds:     types.NewThresholdRegistry(sdkmath.NewInt(100_000)),
		MaxSlippageBps: 300,
	})
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000_000), got)
	// A covered request spends no execution budget at all.
	require.Zero(t, m.CallCount("getPrice"))
	require.Zero(t, m.CallCount("getAggregateDebt"))
}

func TestMakeRequestedAmountRepaysDebtFirst(t *testing.T) {
	m := newTestMarket()
	// 2.0M of the main asset is locked behind 1.0M of usdc debt.
	_, err := m.Borrow("prime", atom, sdkmath.NewInt(2_000_000), usdc, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(usdc, sdkmath.NewInt(1_000_000)))

	got, err := MakeRequestedAmount(m, m, m, ledger, MakeRequestedAmountRequest{
		Assets:         []types.Asset{atom, usdc},
		MainIndex:      0,
		Requested:      sdkmath.NewInt(1_500_000),
		Thresholds:     types.NewThresholdRegistry(sdkmath.NewInt(100_000)),
		MaxSlippageBps: 300,
	})
	require.NoError(t, err)

	// The usdc balance clears the debt outright; no funding sale was needed and
	// the released collateral covers the request.
	require.Equal(t, sdkmath.NewInt(2_000_000), got)
	require.True(t, ledger.Get(usdc).IsZero())
	require.Zero(t, m.CallCount("liquidate"))
}

func TestMakeRequestedAmountFundsRepayWithSale(t *testing.T) {
	m := simmarket.New()
	m.DebtGap = sdkmath.LegacyOneDec()
	m.SetPrice(coinA, dec("1"))
	m.SetPrice(coinB, dec("0.5"))
	m.AddVenue(simmarket.Venue{
		Name: "prime", APR: dec("0.05"),
		MaxCollateral: sdkmath.NewInt(1_000_000), CollateralFactor: dec("0.8"),
	})
	// 3000 collateral locked behind 1000 of B debt, nothing of B on hand.
	_, err := m.Borrow("prime", coinA, sdkmath.NewInt(3000), coinB, sdkmath.NewInt(1000))
	require.NoError(t, err)

	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(coinA, sdkmath.NewInt(200)))

	got, err := MakeRequestedAmount(m, m, m, ledger, MakeRequestedAmountRequest{
		Assets:         []types.Asset{coinA, coinB},
		MainIndex:      0,
		Requested:      sdkmath.NewInt(1000),
		Thresholds:     smallThresholds(),
		MaxSlippageBps: 300,
	})
	require.NoError(t, err)

	// The 800 shortfall prices a 161-unit funding sale (the 1% margin included);
	// its proceeds repay 322 of debt, which frees 966 of collateral.
	require.Equal(t, 1, m.CallCount("liquidate"))
	require.Equal(t, 1, m.CallCount("repay"))
	require.Equal(t, sdkmath.NewInt(1005), got)
	require.True(t, got.GTE(sdkmath.NewInt(1000)))
}

func TestMakeRequestedAmountDrainAll(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))
	require.NoError(t, ledger.Add(usdc, sdkmath.NewInt(500_000)))

	got, err := MakeRequestedAmount(m, m, m, ledger, MakeRequestedAmountRequest{
		Assets:         []types.Asset{atom, usdc},
		MainIndex:      0,
		Requested:      types.MaxAmount,
		Thresholds:     types.NewThresholdRegistry(sdkmath.NewInt(100_000)),
		MaxSlippageBps: 300,
	})
	require.NoError(t, err)

	// Everything debt-free is swapped into the main asset.
	require.Equal(t, sdkmath.NewInt(1_500_000), got)
	require.True(t, ledger.Get(usdc).IsZero())
}

func TestMakeRequestedAmountStrandsDust(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(usdc, sdkmath.NewInt(50_000)))

	got, err := MakeRequestedAmount(m, m, m, ledger, MakeRequestedAmountRequest{
		Assets:         []types.Asset{atom, usdc},
		MainIndex:      0,
		Requested:      sdkmath.NewInt(1_000_000),
		Thresholds:     types.NewThresholdRegistry(sdkmath.NewInt(100_000)),
		MaxSlippageBps: 300,
	})
	require.NoError(t, err)

	// Below-threshold value stays stranded rather than being forced through an
	// uneconomical swap.
	require.True(t, got.IsZero())
	require.Equal(t, sdkmath.NewInt(50_000), ledger.Get(usdc))
	require.Zero(t, m.CallCount("liquidate"))
}

func TestMakeRequestedAmountBadMainIndex(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()

	_, err := MakeRequestedAmount(m, m, m, ledger, MakeRequestedAmountRequest{
		Assets:         []types.Asset{atom, usdc},
		MainIndex:      2,
		Requested:      sdkmath.NewInt(1),
		Thresholds:     types.NewThresholdRegistry(sdkmath.NewInt(100_000)),
		MaxSlippageBps: 300,
	})
	require.ErrorIs(t, err, types.ErrWrongLengths)
}
