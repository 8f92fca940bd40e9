package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/veldra-labs/lsm/internal/simmarket"
	"github.com/veldra-labs/lsm/internal/types"
)

func TestOpenPositionExactCollateralSingleVenue(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))

	opened, err := OpenPosition(m, m, ledger, types.EntryExactCollateral{},
		atom, usdc, sdkmath.NewInt(1_000_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)

	require.Equal(t, sdkmath.NewInt(1_000_000), opened.CollateralSpent)
	require.Equal(t, sdkmath.NewInt(800_000), opened.Borrowed)
	require.True(t, ledger.Get(atom).IsZero())
	require.Equal(t, sdkmath.NewInt(800_000), ledger.Get(usdc))
}

func TestOpenPositionBelowThresholdIsNoOp(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(50_000)))

	opened, err := OpenPosition(m, m, ledger, types.EntryExactCollateral{},
		atom, usdc, sdkmath.NewInt(50_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)

	// Below-threshold venues count as "no liquidity": zero result, no error, and
	// no borrow was attempted.
	require.True(t, opened.CollateralSpent.IsZero())
	require.True(t, opened.Borrowed.IsZero())
	require.Zero(t, m.CallCount("borrow"))
	require.Equal(t, sdkmath.NewInt(50_000), ledger.Get(atom))
}

func TestOpenPositionExactCollateralSpillsToSecondVenue(t *testing.T) {
	m := simmarket.New()
	m.DebtGap = sdkmath.LegacyOneDec()
	m.SetPrice(atom, sdkmath.LegacyOneDec())
	m.SetPrice(usdc, sdkmath.LegacyOneDec())
	m.AddVenue(simmarket.Venue{
		Name: "alpha", APR: dec("0.03"),
		MaxCollateral: sdkmath.NewInt(600_000), CollateralFactor: dec("0.8"),
	})
	m.AddVenue(simmarket.Venue{
		Name: "beta", APR: dec("0.07"),
		MaxCollateral: sdkmath.NewInt(1_000_000_000_000), CollateralFactor: dec("0.8"),
	})

	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))

	opened, err := OpenPosition(m, m, ledger, types.EntryExactCollateral{},
		atom, usdc, sdkmath.NewInt(1_000_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)

	// 600k into the first venue, the remaining 400k into the second, in plan order.
	require.Equal(t, sdkmath.NewInt(1_000_000), opened.CollateralSpent)
	require.Equal(t, sdkmath.NewInt(800_000), opened.Borrowed)
	require.Equal(t, 2, m.CallCount("borrow"))
}

func TestOpenPositionProportionalHitsTargetRatio(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_800_000)))

	entry := types.EntryProportional{PropCollateral: dec("0.5"), PropBorrow: dec("0.5")}
	opened, err := OpenPosition(m, m, ledger, entry,
		atom, usdc, sdkmath.NewInt(1_800_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)

	// With equal prices and beta 0.8, the 1:1 split supplies 1.0M as collateral
	// and keeps 0.8M so the kept value equals the borrowed value.
	require.Equal(t, sdkmath.NewInt(1_000_000), opened.CollateralSpent)
	require.Equal(t, sdkmath.NewInt(800_000), opened.Borrowed)
	require.Equal(t, sdkmath.NewInt(800_000), ledger.Get(atom))
	require.Equal(t, sdkmath.NewInt(800_000), ledger.Get(usdc))
}

func TestOpenPositionProportionalRejectsBadProportions(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))

	entry := types.EntryProportional{PropCollateral: dec("0.5"), PropBorrow: sdkmath.LegacyZeroDec()}
	_, err := OpenPosition(m, m, ledger, entry,
		atom, usdc, sdkmath.NewInt(1_000_000), sdkmath.NewInt(100_000), 30)
	require.ErrorIs(t, err, ErrInvalidRatio)
}

func TestOpenPositionExactBorrow(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))

	opened, err := OpenPosition(m, m, ledger, types.EntryExactBorrow{},
		atom, usdc, sdkmath.NewInt(800_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)

	require.Equal(t, sdkmath.NewInt(1_000_000), opened.CollateralSpent)
	require.Equal(t, sdkmath.NewInt(800_000), opened.Borrowed)
}

func TestOpenPositionExactBorrowScalesToHeldCollateral(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(500_000)))

	opened, err := OpenPosition(m, m, ledger, types.EntryExactBorrow{},
		atom, usdc, sdkmath.NewInt(800_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)

	// Only 500k collateral is held, which secures 400k of the 800k target.
	require.Equal(t, sdkmath.NewInt(500_000), opened.CollateralSpent)
	require.Equal(t, sdkmath.NewInt(400_000), opened.Borrowed)
}

func TestOpenPositionNoVenues(t *testing.T) {
	m := simmarket.New()
	m.SetPrice(atom, sdkmath.LegacyOneDec())
	m.SetPrice(usdc, sdkmath.LegacyOneDec())

	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000_000)))

	opened, err := OpenPosition(m, m, ledger, types.EntryExactCollateral{},
		atom, usdc, sdkmath.NewInt(1_000_000), sdkmath.NewInt(100_000), 30)
	require.NoError(t, err)
	require.True(t, opened.CollateralSpent.IsZero())
	require.True(t, opened.Borrowed.IsZero())
}
