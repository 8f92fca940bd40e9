package strategy

import (
	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/simmarket"
	"github.com/veldra-labs/lsm/internal/types"
)

var (
	atom = types.Asset{Address: "uatom", Symbol: "ATOM", Decimals: 6}
	usdc = types.Asset{Address: "uusdc", Symbol: "USDC", Decimals: 6}

	// Zero-decimal assets keep the arithmetic in worked examples legible.
	coinA = types.Asset{Address: "coina", Symbol: "A", Decimals: 0}
	coinB = types.Asset{Address: "coinb", Symbol: "B", Decimals: 0}
)

func dec(s string) sdkmath.LegacyDec {
	return sdkmath.LegacyMustNewDecFromStr(s)
}

// newTestMarket builds a sim market with both six-decimal assets priced at one,
// one lending venue at an 0.8 collateral factor, free swaps and no debt gap.
func newTestMarket() *simmarket.SimMarket {
	m := simmarket.New()
	m.DebtGap = sdkmath.LegacyOneDec()
	m.SetPrice(atom, sdkmath.LegacyOneDec())
	m.SetPrice(usdc, sdkmath.LegacyOneDec())
	m.AddVenue(simmarket.Venue{
		Name:             "prime",
		APR:              dec("0.05"),
		MaxCollateral:    sdkmath.NewInt(1_000_000_000_000),
		CollateralFactor: dec("0.8"),
	})
	return m
}

// smallThresholds is a registry suited to zero-decimal worked examples.
func smallThresholds() *types.ThresholdRegistry {
	return types.NewThresholdRegistry(sdkmath.OneInt())
}
