/*

This file contains a deterministic in-memory implementation of the market
collaborators: a static price oracle, a ranked venue book with debt-gap accrual,
and a fee-charging swap router. It backs the sim run mode and the test suites.
Every external call is counted so tests can assert execution-cost bounds.

*/

package simmarket

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/veldra-labs/lsm/internal/market"
	"github.com/veldra-labs/lsm/internal/types"
)

type pairKey struct {
	collateral string
	borrow     string
}

// Venue is one configured lending market. Venues are returned in configuration
// order, which the sim treats as "best first".
type Venue struct {
	Name             string
	APR              sdkmath.LegacyDec
	MaxCollateral    sdkmath.Int       // collateral capacity in native units of the collateral asset
	CollateralFactor sdkmath.LegacyDec // borrowable value per unit of collateral value
}

type debtPosition struct {
	collateral sdkmath.Int
	debt       sdkmath.Int
}

// SimMarket implements market.PriceOracle, market.Converter and market.Liquidator.
type SimMarket struct {
	prices map[string]sdkmath.LegacyDec
	venues []Venue
	debts  map[pairKey]*debtPosition

	// SwapFeeBps is charged on every liquidation.
	SwapFeeBps int64
	// DebtGap is the accrual margin multiplier reported on gap-adjusted debt reads.
	DebtGap sdkmath.LegacyDec
	// PriceImpactLimit bounds what IsSwapValid accepts, e.g. 0.02 for 2%.
	PriceImpactLimit sdkmath.LegacyDec

	blockedRoutes map[pairKey]bool
	calls         map[string]int
}

var (
	_ market.PriceOracle = (*SimMarket)(nil)
	_ market.Converter   = (*SimMarket)(nil)
	_ market.Liquidator  = (*SimMarket)(nil)
)

// New creates a sim market with a 1% debt gap and a 2% price-impact limit.
func New() *SimMarket {
	return &SimMarket{
		prices:           make(map[string]sdkmath.LegacyDec),
		debts:            make(map[pairKey]*debtPosition),
		DebtGap:          sdkmath.LegacyMustNewDecFromStr("1.01"),
		PriceImpactLimit: sdkmath.LegacyMustNewDecFromStr("0.02"),
		blockedRoutes:    make(map[pairKey]bool),
		calls:            make(map[string]int),
	}
}

// SetPrice configures the oracle price for one whole unit of the asset.
func (m *SimMarket) SetPrice(asset types.Asset, price sdkmath.LegacyDec) {
	m.prices[asset.Address] = price
}

// AddVenue appends a lending venue to the ranked book.
func (m *SimMarket) AddVenue(v Venue) {
	m.venues = append(m.venues, v)
}

// BlockRoute makes Liquidate report no route for the given direction.
func (m *SimMarket) BlockRoute(tokenIn, tokenOut types.Asset) {
	m.blockedRoutes[pairKey{tokenIn.Address, tokenOut.Address}] = true
}

// CallCount returns how often the named external call has run.
func (m *SimMarket) CallCount(name string) int {
	return m.calls[name]
}

// ResetCalls zeroes the call counters.
func (m *SimMarket) ResetCalls() {
	m.calls = make(map[string]int)
}

func (m *SimMarket) count(name string) {
	m.calls[name]++
}

// GetPrice implements market.PriceOracle.
func (m *SimMarket) GetPrice(asset types.Asset) (sdkmath.LegacyDec, error) {
	m.count("getPrice")
	price, ok := m.prices[asset.Address]
	if !ok || price.IsNil() || !price.IsPositive() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", market.ErrZeroPrice, asset.Symbol)
	}
	return price, nil
}

// FindBorrowPlans implements market.Converter. Capacities are quoted per venue
// from its collateral limit and collateral factor at current oracle prices.
func (m *SimMarket) FindBorrowPlans(_ types.PositionEntry, collateralAsset types.Asset, _ sdkmath.Int,
	borrowAsset types.Asset, _ int) (types.BorrowPlan, error) {
	m.count("findBorrowPlans")

	priceC, err := m.GetPrice(collateralAsset)
	if err != nil {
		return types.BorrowPlan{}, err
	}
	priceB, err := m.GetPrice(borrowAsset)
	if err != nil {
		return types.BorrowPlan{}, err
	}

	plan := types.BorrowPlan{}
	for _, v := range m.venues {
		collateralValue := priceC.MulInt(v.MaxCollateral).Quo(types.Pow10Dec(collateralAsset.Decimals))
		borrowCap := collateralValue.Mul(v.CollateralFactor).
			Quo(priceB).Mul(types.Pow10Dec(borrowAsset.Decimals)).TruncateInt()
		plan.Venues = append(plan.Venues, v.Name)
		plan.CollateralCapacities = append(plan.CollateralCapacities, v.MaxCollateral)
		plan.BorrowCapacities = append(plan.BorrowCapacities, borrowCap)
		plan.APRs = append(plan.APRs, v.APR)
	}
	return plan, nil
}

// Borrow implements market.Converter.
func (m *SimMarket) Borrow(venue string, collateralAsset types.Asset, collateralAmount sdkmath.Int,
	borrowAsset types.Asset, amountToBorrow sdkmath.Int) (sdkmath.Int, error) {
	m.count("borrow")

	if !m.venueExists(venue) {
		return sdkmath.ZeroInt(), fmt.Errorf("unknown venue %q", venue)
	}
	if !collateralAmount.IsPositive() || !amountToBorrow.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("borrow amounts must be positive")
	}

	key := pairKey{collateralAsset.Address, borrowAsset.Address}
	pos, ok := m.debts[key]
	if !ok {
		pos = &debtPosition{collateral: sdkmath.ZeroInt(), debt: sdkmath.ZeroInt()}
		m.debts[key] = pos
	}
	pos.collateral = pos.collateral.Add(collateralAmount)
	pos.debt = pos.debt.Add(amountToBorrow)
	return amountToBorrow, nil
}

// GetAggregateDebt implements market.Converter.
func (m *SimMarket) GetAggregateDebt(collateralAsset, borrowAsset types.Asset, withDebtGap bool) (sdkmath.Int, sdkmath.Int, error) {
	m.count("getAggregateDebt")

	pos, ok := m.debts[pairKey{collateralAsset.Address, borrowAsset.Address}]
	if !ok {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), nil
	}
	debt := pos.debt
	if withDebtGap {
		debt = m.DebtGap.MulInt(debt).Ceil().TruncateInt()
	}
	return pos.collateral, debt, nil
}

// Repay implements market.Converter. Anything sent beyond the outstanding debt is
// refunded as excess; collateral is released pro rata to the amount repaid.
func (m *SimMarket) Repay(collateralAsset, borrowAsset types.Asset, amountToRepay sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	m.count("repay")

	pos, ok := m.debts[pairKey{collateralAsset.Address, borrowAsset.Address}]
	if !ok || pos.debt.IsZero() {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("no outstanding debt %s/%s",
			collateralAsset.Symbol, borrowAsset.Symbol)
	}

	repaid := amountToRepay
	if repaid.GT(pos.debt) {
		repaid = pos.debt
	}
	excess := amountToRepay.Sub(repaid)
	collateralOut := pos.collateral.Mul(repaid).Quo(pos.debt)

	pos.debt = pos.debt.Sub(repaid)
	pos.collateral = pos.collateral.Sub(collateralOut)
	if pos.debt.IsZero() {
		// A zero-debt position is closed; any rounding residue of collateral is
		// released with the final repay.
		collateralOut = collateralOut.Add(pos.collateral)
		delete(m.debts, pairKey{collateralAsset.Address, borrowAsset.Address})
	}
	return collateralOut, excess, nil
}

// QuoteRepay implements market.Converter.
func (m *SimMarket) QuoteRepay(collateralAsset, borrowAsset types.Asset, amountToRepay sdkmath.Int) (sdkmath.Int, error) {
	m.count("quoteRepay")

	pos, ok := m.debts[pairKey{collateralAsset.Address, borrowAsset.Address}]
	if !ok || pos.debt.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	repaid := minInt(amountToRepay, pos.debt)
	return pos.collateral.Mul(repaid).Quo(pos.debt), nil
}

// IsSwapValid implements market.Converter: the output value must not fall short of
// the input value by more than the price-impact limit.
func (m *SimMarket) IsSwapValid(tokenIn types.Asset, amountIn sdkmath.Int, tokenOut types.Asset, amountOut sdkmath.Int) (bool, error) {
	m.count("isSwapValid")

	priceIn, err := m.GetPrice(tokenIn)
	if err != nil {
		return false, err
	}
	priceOut, err := m.GetPrice(tokenOut)
	if err != nil {
		return false, err
	}
	valueIn := priceIn.MulInt(amountIn).Quo(types.Pow10Dec(tokenIn.Decimals))
	valueOut := priceOut.MulInt(amountOut).Quo(types.Pow10Dec(tokenOut.Decimals))
	if !valueIn.IsPositive() {
		return false, nil
	}
	floor := sdkmath.LegacyOneDec().Sub(m.PriceImpactLimit)
	return valueOut.Quo(valueIn).GTE(floor), nil
}

// Liquidate implements market.Liquidator: a value-for-value swap at oracle prices
// minus the configured fee. Fails when the route is blocked or the fee exceeds the
// caller's slippage tolerance.
func (m *SimMarket) Liquidate(tokenIn, tokenOut types.Asset, amountIn sdkmath.Int, maxSlippageBps int64) (sdkmath.Int, error) {
	m.count("liquidate")

	if m.blockedRoutes[pairKey{tokenIn.Address, tokenOut.Address}] {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s -> %s", market.ErrNoRoute, tokenIn.Symbol, tokenOut.Symbol)
	}
	if m.SwapFeeBps > maxSlippageBps {
		return sdkmath.ZeroInt(), fmt.Errorf("swap fee %d bps exceeds tolerance %d bps", m.SwapFeeBps, maxSlippageBps)
	}
	priceIn, err := m.GetPrice(tokenIn)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s -> %s", market.ErrNoRoute, tokenIn.Symbol, tokenOut.Symbol)
	}
	priceOut, err := m.GetPrice(tokenOut)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s -> %s", market.ErrNoRoute, tokenIn.Symbol, tokenOut.Symbol)
	}

	valueIn := priceIn.MulInt(amountIn).Quo(types.Pow10Dec(tokenIn.Decimals))
	fee := sdkmath.LegacyNewDec(m.SwapFeeBps).Quo(sdkmath.LegacyNewDec(10_000))
	valueOut := valueIn.Mul(sdkmath.LegacyOneDec().Sub(fee))
	return valueOut.Quo(priceOut).Mul(types.Pow10Dec(tokenOut.Decimals)).TruncateInt(), nil
}

func (m *SimMarket) venueExists(name string) bool {
	for _, v := range m.venues {
		if v.Name == name {
			return true
		}
	}
	return false
}

func minInt(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}
