package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/common"
	"matchcore/internal/engine"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func qty(s string) decimal.Decimal   { return decimal.RequireFromString(s) }

func limitOrder(id string, side common.Side, p, q string, tif common.TimeInForce, ts int64) *common.Order {
	return &common.Order{
		OrderID:     id,
		Side:        side,
		Type:        common.Limit,
		Price:       price(p),
		Quantity:    qty(q),
		TimeInForce: tif,
		Timestamp:   ts,
	}
}

func marketOrder(id string, side common.Side, q string, ts int64) *common.Order {
	return &common.Order{
		OrderID:     id,
		Side:        side,
		Type:        common.Market,
		Quantity:    qty(q),
		TimeInForce: common.IOC,
		Timestamp:   ts,
	}
}

// Scenario 1: no match rests.
func TestAddOrder_NoMatchRests(t *testing.T) {
	book := engine.New("TEST")

	order := limitOrder("o1", common.Buy, "99.00", "100", common.GTC, 1)
	trades := book.AddOrder(order)

	assert.Empty(t, trades)
	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(price("99.00")))
	assert.Equal(t, common.New, order.Status)
}

// Scenario 2: two-level sweep with FIFO.
func TestAddOrder_TwoLevelSweepFIFO(t *testing.T) {
	book := engine.New("TEST")

	require.NotNil(t, book.AddOrder(limitOrder("A", common.Sell, "150.50", "100", common.GTC, 1)))
	require.NotNil(t, book.AddOrder(limitOrder("B", common.Sell, "150.50", "50", common.GTC, 2)))
	require.NotNil(t, book.AddOrder(limitOrder("C", common.Sell, "150.51", "150", common.GTC, 3)))

	incoming := limitOrder("D", common.Buy, "150.51", "180", common.GTC, 4)
	trades := book.AddOrder(incoming)

	require.Len(t, trades, 3)
	assert.Equal(t, "A", trades[0].SellOrderID)
	assert.True(t, trades[0].Quantity.Equal(qty("100")))
	assert.True(t, trades[0].Price.Equal(price("150.50")))

	assert.Equal(t, "B", trades[1].SellOrderID)
	assert.True(t, trades[1].Quantity.Equal(qty("50")))
	assert.True(t, trades[1].Price.Equal(price("150.50")))

	assert.Equal(t, "C", trades[2].SellOrderID)
	assert.True(t, trades[2].Quantity.Equal(qty("30")))
	assert.True(t, trades[2].Price.Equal(price("150.51")))

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(price("150.51")))
}

// Scenario 3: IOC leaves no residue.
func TestAddOrder_IOCNoResidue(t *testing.T) {
	book := engine.New("TEST")
	require.NotNil(t, book.AddOrder(limitOrder("S1", common.Sell, "100", "50", common.GTC, 1)))

	incoming := limitOrder("B1", common.Buy, "100", "200", common.IOC, 2)
	trades := book.AddOrder(incoming)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(qty("50")))
	assert.Equal(t, common.Cancelled, incoming.Status)
	assert.True(t, incoming.FilledQuantity.Equal(qty("50")))

	_, ok := book.BestAsk()
	assert.False(t, ok)
}

// Scenario 4: FOK rejection is atomic.
func TestAddOrder_FOKAtomicRejection(t *testing.T) {
	book := engine.New("TEST")
	require.NotNil(t, book.AddOrder(limitOrder("S1", common.Sell, "100", "50", common.GTC, 1)))

	before := book.GetSnapshot(10)

	incoming := limitOrder("B1", common.Buy, "100", "200", common.FOK, 2)
	trades := book.AddOrder(incoming)

	assert.Empty(t, trades)
	assert.Equal(t, common.Rejected, incoming.Status)
	assert.True(t, incoming.FilledQuantity.IsZero())

	after := book.GetSnapshot(10)
	assert.Equal(t, before.Asks, after.Asks)
	assert.Equal(t, before.Bids, after.Bids)
}

// Scenario 5: cancel restores priority.
func TestCancelOrder_PriorityRestored(t *testing.T) {
	book := engine.New("TEST")
	require.NotNil(t, book.AddOrder(limitOrder("X", common.Buy, "99", "100", common.GTC, 1)))
	require.NotNil(t, book.AddOrder(limitOrder("Y", common.Buy, "99", "100", common.GTC, 2)))

	assert.True(t, book.CancelOrder("X"))

	incoming := marketOrder("M1", common.Sell, "100", 3)
	trades := book.AddOrder(incoming)

	require.Len(t, trades, 1)
	assert.Equal(t, "Y", trades[0].BuyOrderID)
	assert.True(t, trades[0].Quantity.Equal(qty("100")))
}

// Cancel idempotence: second cancel is a no-op.
func TestCancelOrder_Idempotent(t *testing.T) {
	book := engine.New("TEST")
	require.NotNil(t, book.AddOrder(limitOrder("A", common.Buy, "10", "1", common.GTC, 1)))

	assert.True(t, book.CancelOrder("A"))
	assert.False(t, book.CancelOrder("A"))
	assert.False(t, book.CancelOrder("unknown"))
}

// Price improvement: aggressive buy at P against a better ask executes at
// the ask price, not P.
func TestAddOrder_PriceImprovement(t *testing.T) {
	book := engine.New("TEST")
	require.NotNil(t, book.AddOrder(limitOrder("S1", common.Sell, "99.00", "10", common.GTC, 1)))

	incoming := limitOrder("B1", common.Buy, "100.00", "10", common.GTC, 2)
	trades := book.AddOrder(incoming)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(price("99.00")))
}

// Market order against an empty opposite side cancels without a trade.
func TestAddOrder_MarketAgainstEmptySide(t *testing.T) {
	book := engine.New("TEST")
	incoming := marketOrder("M1", common.Buy, "10", 1)
	trades := book.AddOrder(incoming)

	assert.Empty(t, trades)
	assert.Equal(t, common.Cancelled, incoming.Status)
}

// Validation: non-positive quantity and duplicate ids reject without
// mutating state.
func TestAddOrder_ValidationRejections(t *testing.T) {
	book := engine.New("TEST")

	zeroQty := limitOrder("A", common.Buy, "10", "0", common.GTC, 1)
	assert.Empty(t, book.AddOrder(zeroQty))
	assert.Equal(t, common.Rejected, zeroQty.Status)

	ok := limitOrder("A2", common.Buy, "10", "5", common.GTC, 1)
	require.Empty(t, book.AddOrder(ok))

	dup := limitOrder("A2", common.Buy, "10", "5", common.GTC, 2)
	assert.Empty(t, book.AddOrder(dup))
	assert.Equal(t, common.Rejected, dup.Status)
}

// Conservation of shares: total traded quantity equals total filled
// quantity across all participating orders.
func TestAddOrder_ConservationOfShares(t *testing.T) {
	book := engine.New("TEST")
	require.NotNil(t, book.AddOrder(limitOrder("S1", common.Sell, "10", "40", common.GTC, 1)))
	require.NotNil(t, book.AddOrder(limitOrder("S2", common.Sell, "10", "60", common.GTC, 2)))

	incoming := limitOrder("B1", common.Buy, "10", "70", common.GTC, 3)
	trades := book.AddOrder(incoming)

	total := decimal.Zero
	for _, tr := range trades {
		total = total.Add(tr.Quantity)
	}
	assert.True(t, total.Equal(incoming.FilledQuantity))
}
