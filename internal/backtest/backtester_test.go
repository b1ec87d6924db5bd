package backtest_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/backtest"
	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/replay"
	"matchcore/internal/strategy"
)

func restingOrder(id string, side common.Side, price, qty string, ts int64) *common.Order {
	return &common.Order{
		OrderID:     id,
		Side:        side,
		Type:        common.Limit,
		Price:       decimal.RequireFromString(price),
		Quantity:    decimal.RequireFromString(qty),
		TimeInForce: common.GTC,
		Timestamp:   ts,
	}
}

// heartbeat is a no-op cancel of a nonexistent order, used only to advance
// the replay's simulated clock past the resting liquidity it seeds.
func heartbeat(elapsed float64) replay.TimedEvent {
	return replay.TimedEvent{
		ElapsedSeconds: elapsed,
		Event:          replay.Event{Kind: replay.CancelOrderEvent, CancelID: "heartbeat"},
	}
}

func TestBacktester_TWAPMarketSweepsRestingLiquidity(t *testing.T) {
	book := engine.New("TEST")
	events := []replay.TimedEvent{
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: restingOrder("SEED-ASK", common.Sell, "100", "1000", 0)}},
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: restingOrder("SEED-BID", common.Buy, "99", "1000", 0)}},
		heartbeat(5),
		heartbeat(15),
		heartbeat(25),
		heartbeat(35),
	}
	source := replay.NewSliceSource(events)

	twap := strategy.NewTWAP(decimal.NewFromInt(300), common.Buy, 3, 30, 0.9)
	cfg := backtest.Config{Replay: replay.Config{SpeedMultiplier: 0, SnapshotIntervalSeconds: 10}}
	bt := backtest.New(book, twap, source, cfg)

	results, err := bt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, results.ChildOrderCount)
	assert.Equal(t, 3, results.FillCount)
	assert.True(t, results.ExecutedQuantity.Equal(decimal.NewFromInt(300)))
	assert.InDelta(t, 1.0, results.FillRate, 1e-9)
	assert.True(t, results.StrategyVWAP.Equal(decimal.NewFromInt(100)))
	assert.True(t, results.ArrivalPrice.Equal(decimal.RequireFromString("99.5")))
	assert.True(t, results.Slippage.Equal(decimal.RequireFromString("0.5")))
	assert.InDelta(t, 50.25, results.SlippageBps, 0.01)
	assert.Equal(t, 3, results.Market.TradeCount)
}

// TestBacktester_PostingRestingChildFilledByLaterFlow exercises the path
// where a strategy's child order rests instead of crossing at submission —
// Posting always posts a passive limit — and is later hit by a background
// order that arrives through the replay engine, not through submitChild.
func TestBacktester_PostingRestingChildFilledByLaterFlow(t *testing.T) {
	book := engine.New("TEST")
	events := []replay.TimedEvent{
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: restingOrder("SEED-ASK", common.Sell, "102", "1000", 0)}},
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: restingOrder("SEED-BID", common.Buy, "100", "1000", 0)}},
		heartbeat(5),
		{ElapsedSeconds: 10, Event: replay.Event{Kind: replay.NewOrderEvent, Order: restingOrder("TAKER", common.Sell, "100", "50", 10)}},
	}
	source := replay.NewSliceSource(events)

	posting := strategy.NewPosting(decimal.NewFromInt(50), common.Buy, 0.5, decimal.Zero)
	cfg := backtest.Config{Replay: replay.Config{SpeedMultiplier: 0, SnapshotIntervalSeconds: 5}}
	bt := backtest.New(book, posting, source, cfg)

	results, err := bt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, results.ChildOrderCount)
	assert.Equal(t, 1, results.FillCount)
	assert.True(t, results.ExecutedQuantity.Equal(decimal.NewFromInt(50)))
	assert.InDelta(t, 1.0, results.FillRate, 1e-9)
	assert.True(t, results.StrategyVWAP.Equal(decimal.NewFromInt(101)))
	assert.True(t, results.ArrivalPrice.Equal(decimal.NewFromInt(101)))
	assert.True(t, results.Slippage.IsZero())
	assert.Equal(t, 1, results.Market.TradeCount)
}

func TestBacktester_NoArrivalPriceWhenBookNeverTwoSided(t *testing.T) {
	book := engine.New("TEST")
	events := []replay.TimedEvent{
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: restingOrder("SEED-ASK", common.Sell, "100", "1000", 0)}},
		heartbeat(1),
	}
	source := replay.NewSliceSource(events)

	pov := strategy.NewPOV(decimal.NewFromInt(10), common.Buy, 0.5)
	cfg := backtest.Config{Replay: replay.Config{SpeedMultiplier: 0, SnapshotIntervalSeconds: 0}}
	bt := backtest.New(book, pov, source, cfg)

	results, err := bt.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, results.ArrivalPrice.IsZero())
	assert.Equal(t, 0, results.ChildOrderCount)
}
