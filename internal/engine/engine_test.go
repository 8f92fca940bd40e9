package engine

import (
	"context"
	"fmt"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/veldra-labs/lsm/internal/config"
	"github.com/veldra-labs/lsm/internal/simmarket"
	"github.com/veldra-labs/lsm/internal/types"
)

var (
	testATOM = types.Asset{Address: "uatom", Symbol: "ATOM", Decimals: 6}
	testUSDC = types.Asset{Address: "uusdc", Symbol: "USDC", Decimals: 6}
)

type recordingSink struct {
	rebalances []types.RebalanceReceipt
	recycles   []types.RecycleReceipt
}

func (s *recordingSink) SaveRebalanceReceipt(r types.RebalanceReceipt) (int64, error) {
	s.rebalances = append(s.rebalances, r)
	return int64(len(s.rebalances)), nil
}

func (s *recordingSink) SaveRecycleReceipt(r types.RecycleReceipt) (int64, error) {
	s.recycles = append(s.recycles, r)
	return int64(len(s.recycles)), nil
}

type recordingCounter struct {
	current int
	fail    bool
}

func (c *recordingCounter) Increment() (int, error) {
	if c.fail {
		return 0, fmt.Errorf("counter unavailable")
	}
	c.current++
	return c.current, nil
}

func testConfig(m *simmarket.SimMarket, ledger *types.Ledger, sink ReceiptSink) Config {
	params := config.DefaultStrategyParameters
	return Config{
		Oracle:     m,
		Converter:  m,
		Liquidator: m,
		Ledger:     ledger,
		Params:     &params,
		Assets:     []types.Asset{testATOM, testUSDC},
		MainIndex:  1,
		Thresholds: types.NewThresholdRegistry(params.DefaultLiquidationThreshold),
		Receipts:   sink,
	}
}

func testMarket() *simmarket.SimMarket {
	m := simmarket.New()
	m.DebtGap = sdkmath.LegacyOneDec()
	m.SetPrice(testATOM, sdkmath.LegacyOneDec())
	m.SetPrice(testUSDC, sdkmath.LegacyOneDec())
	m.AddVenue(simmarket.Venue{
		Name:             "prime",
		APR:              sdkmath.LegacyMustNewDecFromStr("0.05"),
		MaxCollateral:    sdkmath.NewInt(1_000_000_000_000),
		CollateralFactor: sdkmath.LegacyMustNewDecFromStr("0.8"),
	})
	return m
}

func TestNewEngineValidatesConfig(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()

	cfg := testConfig(m, ledger, nil)
	cfg.Oracle = nil
	_, err := NewEngine(cfg)
	require.Error(t, err)

	cfg = testConfig(m, ledger, nil)
	cfg.Assets = []types.Asset{testATOM}
	_, err = NewEngine(cfg)
	require.Error(t, err)

	cfg = testConfig(m, ledger, nil)
	cfg.MainIndex = 7
	_, err = NewEngine(cfg)
	require.Error(t, err)

	_, err = NewEngine(testConfig(m, ledger, nil))
	require.NoError(t, err)
}

func TestRunCyclePersistsReceipt(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(testATOM, sdkmath.NewInt(10_000_000)))

	sink := &recordingSink{}
	e, err := NewEngine(testConfig(m, ledger, sink))
	require.NoError(t, err)

	require.NoError(t, e.RunCycle(context.Background()))
	require.Len(t, sink.rebalances, 1)
	require.NotEmpty(t, sink.rebalances[0].CycleID)
	require.Equal(t, types.RebalanceActionOpen, sink.rebalances[0].Action)

	// The second cycle finds a balanced book.
	require.NoError(t, e.RunCycle(context.Background()))
	require.Len(t, sink.rebalances, 2)
	require.True(t, sink.rebalances[1].Balanced)
	require.Equal(t, types.RebalanceActionNone, sink.rebalances[1].Action)
}

func TestCycleNumbersComeFromPersistentCounter(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(testATOM, sdkmath.NewInt(10_000_000)))

	// A restarted engine picks up where the stored counter left off.
	counter := &recordingCounter{current: 41}
	cfg := testConfig(m, ledger, nil)
	cfg.Cycles = counter
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	e.runCycleLogged(context.Background())
	require.Equal(t, 42, counter.current)
	require.Equal(t, 42, e.cycleCount)

	e.runCycleLogged(context.Background())
	require.Equal(t, 43, counter.current)
	require.Equal(t, 43, e.cycleCount)
}

func TestCycleNumberFallsBackWhenCounterFails(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(testATOM, sdkmath.NewInt(10_000_000)))

	counter := &recordingCounter{current: 7}
	cfg := testConfig(m, ledger, nil)
	cfg.Cycles = counter
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	e.runCycleLogged(context.Background())
	require.Equal(t, 8, e.cycleCount)

	// A counter outage degrades to in-memory numbering from the last known value.
	counter.fail = true
	e.runCycleLogged(context.Background())
	require.Equal(t, 8, counter.current)
	require.Equal(t, 9, e.cycleCount)
}

func TestCycleNumberInMemoryWithoutCounter(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(testATOM, sdkmath.NewInt(10_000_000)))

	e, err := NewEngine(testConfig(m, ledger, nil))
	require.NoError(t, err)

	e.runCycleLogged(context.Background())
	e.runCycleLogged(context.Background())
	require.Equal(t, 2, e.cycleCount)
}

func TestRunCycleWithoutSink(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(testATOM, sdkmath.NewInt(10_000_000)))

	e, err := NewEngine(testConfig(m, ledger, nil))
	require.NoError(t, err)
	require.NoError(t, e.RunCycle(context.Background()))
}

func TestEngineRecycleRecordsReceipt(t *testing.T) {
	m := testMarket()
	reward := types.Asset{Address: "ureward", Symbol: "RWD", Decimals: 6}
	m.SetPrice(reward, sdkmath.LegacyOneDec())

	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(reward, sdkmath.NewInt(1_000_000)))

	sink := &recordingSink{}
	e, err := NewEngine(testConfig(m, ledger, sink))
	require.NoError(t, err)

	result, err := e.Recycle([]types.Asset{reward}, []sdkmath.Int{sdkmath.NewInt(1_000_000)}, false)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100_000), result.Forwarded[0])
	require.Len(t, sink.recycles, 1)
	require.Equal(t, result.PerformanceFee, sink.recycles[0].PerformanceFee)
}

func TestEngineMakeRequestedAmount(t *testing.T) {
	m := testMarket()
	ledger := types.NewLedger()
	require.NoError(t, ledger.Add(testATOM, sdkmath.NewInt(1_000_000)))

	e, err := NewEngine(testConfig(m, ledger, nil))
	require.NoError(t, err)

	got, err := e.MakeRequestedAmount(sdkmath.NewInt(500_000))
	require.NoError(t, err)
	require.True(t, got.GTE(sdkmath.NewInt(500_000)))
}
