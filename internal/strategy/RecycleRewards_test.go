package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/veldra-labs/lsm/internal/types"
)

func recycleRequest(rewards []types.Asset, amounts []sdkmath.Int) RecycleRequest {
	return RecycleRequest{
		RewardAssets:        rewards,
		RewardAmounts:       amounts,
		CompoundRatio:       dec("0.9"),
		PerformanceFeeRatio: dec("0.1"),
		PoolAssets:          []types.Asset{atom, usdc},
		MainIndex:           1,
		Thresholds:          types.NewThresholdRegistry(sdkmath.NewInt(1_000)),
		MaxSlippageBps:      300,
	}
}

func TestRecycleRewardsPoolAssetCompoundsInPlace(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(100_000)))

	result, err := RecycleRewards(m, m, ledger,
		recycleRequest([]types.Asset{atom}, []sdkmath.Int{sdkmath.NewInt(100_000)}))
	require.NoError(t, err)

	// 10% forwarded, 90% stays on the balance; a pool asset is never swapped and
	// never pays the performance fee.
	require.Equal(t, sdkmath.NewInt(10_000), result.Forwarded[0])
	require.Equal(t, sdkmath.NewInt(90_000), ledger.Get(atom))
	require.True(t, result.PerformanceFee.IsZero())
	require.Zero(t, m.CallCount("liquidate"))
}

func TestRecycleRewardsForeignTokenPaysFee(t *testing.T) {
	reward := types.Asset{Address: "ureward", Symbol: "RWD", Decimals: 6}

	m := newTestMarket()
	m.SetPrice(reward, sdkmath.LegacyOneDec())
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(reward, sdkmath.NewInt(1_000_000)))

	result, err := RecycleRewards(m, m, ledger,
		recycleRequest([]types.Asset{reward}, []sdkmath.Int{sdkmath.NewInt(1_000_000)}))
	require.NoError(t, err)

	// 100k forwarded, 900k liquidated into the main asset, 10% of the proceeds
	// carved out as the performance fee.
	require.Equal(t, sdkmath.NewInt(100_000), result.Forwarded[0])
	require.Equal(t, sdkmath.NewInt(90_000), result.PerformanceFee)
	require.Equal(t, sdkmath.NewInt(810_000), result.Compounded)
	require.Equal(t, sdkmath.NewInt(810_000), ledger.Get(usdc))
	require.True(t, ledger.Get(reward).IsZero())
}

func TestRecycleRewardsDustContributesNothing(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(atom, sdkmath.NewInt(1_000)))

	result, err := RecycleRewards(m, m, ledger,
		recycleRequest([]types.Asset{atom}, []sdkmath.Int{sdkmath.NewInt(1_000)}))
	require.NoError(t, err)

	require.True(t, result.Forwarded[0].IsZero())
	require.True(t, result.PerformanceFee.IsZero())
	require.True(t, result.Compounded.IsZero())
	// The dust stays untouched on the balance.
	require.Equal(t, sdkmath.NewInt(1_000), ledger.Get(atom))
}

func TestRecycleRewardsPriceImpactGuard(t *testing.T) {
	reward := types.Asset{Address: "ureward", Symbol: "RWD", Decimals: 6}

	m := newTestMarket()
	m.SetPrice(reward, sdkmath.LegacyOneDec())
	m.SwapFeeBps = 300 // above the 2% validity limit
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(reward, sdkmath.NewInt(1_000_000)))

	req := recycleRequest([]types.Asset{reward}, []sdkmath.Int{sdkmath.NewInt(1_000_000)})
	_, err := RecycleRewards(m, m, ledger, req)
	require.ErrorIs(t, err, ErrPriceImpactTooHigh)

	// The same batch passes when the caller explicitly accepts the route.
	ledger2 := types.NewLedger()
	require.NoError(t, ledger2.Add(reward, sdkmath.NewInt(1_000_000)))
	req.SkipValidation = true
	result, err := RecycleRewards(m, m, ledger2, req)
	require.NoError(t, err)
	require.True(t, result.Compounded.IsPositive())
}

func TestRecycleRewardsWrongLengths(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()

	_, err := RecycleRewards(m, m, ledger,
		recycleRequest([]types.Asset{atom, usdc}, []sdkmath.Int{sdkmath.NewInt(1)}))
	require.ErrorIs(t, err, types.ErrWrongLengths)
}

func TestRecycleRewardsRejectsBadRatios(t *testing.T) {
	m := newTestMarket()
	ledger := types.NewLedger()

	req := recycleRequest([]types.Asset{atom}, []sdkmath.Int{sdkmath.NewInt(10_000)})
	req.CompoundRatio = dec("1.5")
	_, err := RecycleRewards(m, m, ledger, req)
	require.ErrorIs(t, err, ErrInvalidRatio)
}
