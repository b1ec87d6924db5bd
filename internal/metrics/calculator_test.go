package metrics_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"matchcore/internal/common"
	"matchcore/internal/metrics"
)

func mkSnap(bid, ask float64) common.Snapshot {
	b := decimal.NewFromFloat(bid)
	a := decimal.NewFromFloat(ask)
	mid := b.Add(a).Div(decimal.NewFromInt(2))
	spread := a.Sub(b)
	return common.Snapshot{
		BestBid:  &b,
		BestAsk:  &a,
		MidPrice: &mid,
		Spread:   &spread,
		Bids:     []common.PriceLevelView{{Price: b, Quantity: decimal.NewFromInt(10)}},
		Asks:     []common.PriceLevelView{{Price: a, Quantity: decimal.NewFromInt(20)}},
	}
}

func TestCompute_SpreadAndDepth(t *testing.T) {
	snaps := []common.Snapshot{mkSnap(99, 101), mkSnap(98, 102)}
	result := metrics.Compute(snaps, nil, 0)

	assert.InDelta(t, 3.0, result.MeanSpread, 1e-9)
	assert.InDelta(t, 10.0, result.MeanBidDepth, 1e-9)
	assert.InDelta(t, 20.0, result.MeanAskDepth, 1e-9)
	assert.InDelta(t, -1.0/3.0, result.MeanDepthImbalance, 1e-9)
}

func TestCompute_TradeStats(t *testing.T) {
	trades := []common.Trade{
		{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(10), Aggressor: common.Buy},
		{Price: decimal.NewFromInt(102), Quantity: decimal.NewFromInt(5), Aggressor: common.Sell},
	}
	result := metrics.Compute(nil, trades, 0)

	assert.Equal(t, 2, result.TradeCount)
	assert.InDelta(t, 15.0, result.TotalVolume, 1e-9)
	assert.InDelta(t, (1000.0+510.0)/15.0, result.VWAP, 1e-9)
	assert.InDelta(t, 5.0/15.0, result.OrderFlowImbalance, 1e-9)
}

func TestFillProbability_BuyAboveAskAlwaysMarketable(t *testing.T) {
	snaps := []common.Snapshot{mkSnap(99, 100), mkSnap(99, 100)}
	// offset large enough that mid*(1+offset) crosses the ask.
	p := metrics.FillProbability(snaps, 200, common.Buy)
	assert.Equal(t, 1.0, p)
}

func TestFillProbability_ZeroOffsetNeverCrosses(t *testing.T) {
	snaps := []common.Snapshot{mkSnap(99, 101)}
	p := metrics.FillProbability(snaps, 0, common.Buy)
	assert.Equal(t, 0.0, p)
}
