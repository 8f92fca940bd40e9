/*

This file contains the asset type and the balance ledger the strategy keeps for every
asset it holds. All amounts are integers in the asset's native decimals.

*/

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("amount is negative")
)

// Asset is a fungible token the strategy can hold, borrow or swap.
type Asset struct {
	Address  string `json:"address"`  // stable identifier, e.g. "0x833589fCD6..."
	Symbol   string `json:"symbol"`   // e.g. "usdc"
	Decimals int    `json:"decimals"` // e.g. 6
}

// One returns one whole unit of the asset in native decimals.
func (a Asset) One() sdkmath.Int {
	return Pow10(a.Decimals)
}

func (a Asset) String() string {
	return a.Symbol
}

// Equal compares assets by address.
func (a Asset) Equal(other Asset) bool {
	return a.Address == other.Address
}

// Pow10 returns 10^n as an Int. Panics on negative n, which is a caller bug.
func Pow10(n int) sdkmath.Int {
	if n < 0 {
		panic(fmt.Sprintf("negative power of ten: %d", n))
	}
	return sdkmath.NewIntWithDecimal(1, n)
}

// Pow10Dec returns 10^n as a LegacyDec.
func Pow10Dec(n int) sdkmath.LegacyDec {
	return sdkmath.LegacyNewDecFromInt(Pow10(n))
}

// Ledger tracks the strategy's liquid balance per asset. It is the single place
// balances are mutated, and it refuses to let any balance go negative.
type Ledger struct {
	balances map[string]sdkmath.Int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]sdkmath.Int)}
}

// Get returns the current balance of the asset, zero if never credited.
func (l *Ledger) Get(asset Asset) sdkmath.Int {
	if bal, ok := l.balances[asset.Address]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// Add credits the asset balance.
func (l *Ledger) Add(asset Asset, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: cannot credit %s %s", ErrNegativeAmount, amount, asset.Symbol)
	}
	l.balances[asset.Address] = l.Get(asset).Add(amount)
	return nil
}

// Sub debits the asset balance. Fails if the debit would make the balance negative.
func (l *Ledger) Sub(asset Asset, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: cannot debit %s %s", ErrNegativeAmount, amount, asset.Symbol)
	}
	bal := l.Get(asset)
	if bal.LT(amount) {
		return fmt.Errorf("%w: have %s %s, need %s", ErrInsufficientBalance, bal, asset.Symbol, amount)
	}
	l.balances[asset.Address] = bal.Sub(amount)
	return nil
}

// Set overwrites the asset balance. Intended for initial funding and tests.
func (l *Ledger) Set(asset Asset, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: cannot set %s %s", ErrNegativeAmount, amount, asset.Symbol)
	}
	l.balances[asset.Address] = amount
	return nil
}

// Coins returns a snapshot of the given assets' balances as sdk.Coins, suitable
// for receipts and the web API. Zero balances are included so snapshots always
// carry the full asset set.
func (l *Ledger) Coins(assets []Asset) sdktypes.Coins {
	coins := make(sdktypes.Coins, 0, len(assets))
	for _, a := range assets {
		coins = append(coins, sdktypes.Coin{
			Denom:  strings.ToLower(a.Symbol),
			Amount: l.Get(a),
		})
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i].Denom < coins[j].Denom })
	return coins
}
