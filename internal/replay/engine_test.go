package replay_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/replay"
)

func order(id string, side common.Side, p, q string, ts int64) *common.Order {
	return &common.Order{
		OrderID:     id,
		Side:        side,
		Type:        common.Limit,
		Price:       decimal.RequireFromString(p),
		Quantity:    decimal.RequireFromString(q),
		TimeInForce: common.GTC,
		Timestamp:   ts,
	}
}

func TestEngine_DrivesEventsAndFiresCallbacks(t *testing.T) {
	book := engine.New("TEST")
	events := []replay.TimedEvent{
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: order("S1", common.Sell, "100", "10", 0)}},
		{ElapsedSeconds: 1, Event: replay.Event{Kind: replay.NewOrderEvent, Order: order("B1", common.Buy, "100", "10", 1)}},
		{ElapsedSeconds: 2, Event: replay.Event{Kind: replay.CancelOrderEvent, CancelID: "nonexistent"}},
	}
	source := replay.NewSliceSource(events)

	var tradeBatches [][]common.Trade
	var snapshots []common.Snapshot
	completed := false

	eng := replay.New(book, source, replay.Config{SpeedMultiplier: 0, SnapshotIntervalSeconds: 1})
	eng.OnTrade(func(trades []common.Trade) { tradeBatches = append(tradeBatches, trades) })
	eng.OnSnapshot(func(s common.Snapshot) { snapshots = append(snapshots, s) })
	eng.OnComplete(func() { completed = true })

	require.NoError(t, eng.Run(context.Background()))

	require.Len(t, tradeBatches, 1)
	assert.Len(t, tradeBatches[0], 1)
	assert.True(t, completed)
	assert.NotEmpty(t, snapshots)
}

func TestEngine_StopHaltsBeforeExhaustion(t *testing.T) {
	book := engine.New("TEST")
	events := []replay.TimedEvent{
		{ElapsedSeconds: 0, Event: replay.Event{Kind: replay.NewOrderEvent, Order: order("A", common.Buy, "10", "1", 0)}},
		{ElapsedSeconds: 1, Event: replay.Event{Kind: replay.NewOrderEvent, Order: order("B", common.Buy, "10", "1", 1)}},
	}
	source := replay.NewSliceSource(events)
	eng := replay.New(book, source, replay.Config{})
	eng.Stop()

	require.NoError(t, eng.Run(context.Background()))
	_, ok := book.BestBid()
	assert.False(t, ok)
}
