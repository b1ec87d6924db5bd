// Package engine implements the price-time priority limit order book: the
// matching core described in spec.md §4.1-4.2. A Book is single-threaded
// cooperative — AddOrder, CancelOrder, and GetSnapshot run to completion and
// never suspend; callers must serialize concurrent access externally.
package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"matchcore/internal/common"
)

// Sentinel errors for infrastructure-level failures. Business-logic
// rejections never surface as errors — they are reported via Order.Status
// and an empty trade list, per spec.md §7.
var (
	ErrDuplicateOrder = errors.New("engine: duplicate order id")
	ErrInvariant      = errors.New("engine: invariant violation")
)

// location tracks where a resting order lives so Cancel can find it in
// O(1) without scanning every level.
type location struct {
	side  common.Side
	level *PriceLevel
}

// Counters are the book's read-only aggregate statistics.
type Counters struct {
	TotalOrdersReceived uint64
	TotalTrades         uint64
	TotalVolume         decimal.Decimal
}

// Book owns one symbol's bid and ask sides, the order-id index, last-trade
// state, and aggregate counters. It is the sole mutator of its levels,
// index, and counters (spec.md §5).
type Book struct {
	Symbol string

	bids *btree.BTreeG[*PriceLevel] // ordered best (highest) price first
	asks *btree.BTreeG[*PriceLevel] // ordered best (lowest) price first

	index map[string]location

	lastTradePrice *decimal.Decimal
	counters       Counters

	tradeSeq uint64
}

// New constructs an empty book for symbol.
func New(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		bids: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price.GreaterThan(b.Price)
		}),
		asks: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price.LessThan(b.Price)
		}),
		index:    make(map[string]location),
		counters: Counters{TotalVolume: decimal.Zero},
	}
}

func (b *Book) sideTree(side common.Side) *btree.BTreeG[*PriceLevel] {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest resting bid price, if any.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	lvl, ok := b.bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting ask price, if any.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := b.asks.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

// Spread is BestAsk - BestBid; ok is false if either side is empty.
func (b *Book) Spread() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

// MidPrice is the arithmetic mean of BestBid and BestAsk; ok is false if
// either side is empty.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// LastTradePrice returns the price of the most recent trade, if any has
// occurred.
func (b *Book) LastTradePrice() (decimal.Decimal, bool) {
	if b.lastTradePrice == nil {
		return decimal.Zero, false
	}
	return *b.lastTradePrice, true
}

// Counters returns a copy of the book's aggregate statistics.
func (b *Book) Counters() Counters {
	return b.counters
}

// getOrCreateLevel fetches the level for price on side, creating it lazily
// if absent.
func (b *Book) getOrCreateLevel(side common.Side, price decimal.Decimal) *PriceLevel {
	tree := b.sideTree(side)
	pivot := &PriceLevel{Price: price}
	if lvl, ok := tree.GetMut(pivot); ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	tree.Set(lvl)
	return lvl
}

// dropLevelIfEmpty removes an emptied level from its side.
func (b *Book) dropLevelIfEmpty(side common.Side, lvl *PriceLevel) {
	if lvl.empty() {
		b.sideTree(side).Delete(lvl)
	}
}

// rest appends a GTC limit order's remainder to its side's book and
// indexes it. Caller must ensure the order still has remaining quantity.
func (b *Book) rest(order *common.Order) {
	lvl := b.getOrCreateLevel(order.Side, order.Price)
	lvl.append(order)
	b.index[order.OrderID] = location{side: order.Side, level: lvl}
}

// removeFromIndex drops the order from the id index; it does not touch the
// level queue (callers that already mutated the queue directly should skip
// calling level removal again).
func (b *Book) removeFromIndex(orderID string) {
	delete(b.index, orderID)
}

func (b *Book) nextTradeID() string {
	b.tradeSeq++
	return fmt.Sprintf("T-%d", b.tradeSeq)
}

// validate applies the boundary checks of spec.md §4.1/§7: empty or
// duplicate id, non-positive quantity, negative price on a limit order. Returns the
// rejection status if invalid, or New if the order may proceed.
func (b *Book) validate(order *common.Order) (common.Status, bool) {
	if order.OrderID == "" {
		return common.Rejected, false
	}
	if _, exists := b.index[order.OrderID]; exists {
		return common.Rejected, false
	}
	if !order.Quantity.IsPositive() {
		return common.Rejected, false
	}
	if order.Type == common.Limit && order.Price.Sign() < 0 {
		return common.Rejected, false
	}
	return common.New, true
}

// AddOrder accepts a new order, matches it against the book, and either
// rests, cancels, or rejects any remainder per its TimeInForce. It returns
// the ordered list of trades generated (possibly empty). A rejected order
// gets a nil slice; an accepted one gets a non-nil slice. The order's
// Status field reflects its final disposition.
func (b *Book) AddOrder(order *common.Order) []common.Trade {
	b.counters.TotalOrdersReceived++

	if status, ok := b.validate(order); !ok {
		order.Status = status
		log.Debug().Str("order_id", order.OrderID).Msg("order rejected at validation")
		return nil
	}

	if order.TimeInForce == common.FOK {
		if !b.fokFeasible(order) {
			order.Status = common.Rejected
			log.Debug().Str("order_id", order.OrderID).Msg("FOK order rejected: infeasible")
			return nil
		}
	}

	var trades []common.Trade
	if order.Type == common.Market {
		trades = b.matchMarket(order)
	} else {
		trades = b.matchLimit(order)
	}
	if trades == nil {
		trades = []common.Trade{}
	}

	remaining := order.RemainingQuantity()
	switch {
	case remaining.Sign() <= 0:
		order.Status = common.Filled
	case order.Type == common.Market:
		// Market remainder is never rested, per spec.md §4.1.
		order.Status = common.Cancelled
	case order.TimeInForce == common.GTC:
		b.rest(order)
		if order.FilledQuantity.Sign() > 0 {
			order.Status = common.Partial
		} else {
			order.Status = common.New
		}
	case order.TimeInForce == common.IOC, order.TimeInForce == common.FOK:
		order.Status = common.Cancelled
	}

	for i := range trades {
		b.counters.TotalTrades++
		b.counters.TotalVolume = b.counters.TotalVolume.Add(trades[i].Quantity)
		price := trades[i].Price
		b.lastTradePrice = &price
	}

	b.assertInvariants()
	return trades
}

// CancelOrder removes a resting order from its level and the index.
// Returns false if the order is not present (unknown or already terminal).
// Idempotent: a second cancel of the same id is a no-op returning false.
func (b *Book) CancelOrder(orderID string) bool {
	loc, ok := b.index[orderID]
	if !ok {
		return false
	}
	if !loc.level.removeByID(orderID) {
		// Index and level disagree; this is a bug in book bookkeeping.
		log.Error().Str("order_id", orderID).Msg("index/level mismatch on cancel")
		return false
	}
	b.dropLevelIfEmpty(loc.side, loc.level)
	b.removeFromIndex(orderID)
	b.assertInvariants()
	return true
}

// assertInvariants checks the structural invariants of spec.md §3 that must
// hold after every public operation. A violation indicates an engine bug,
// not a business-logic rejection, and is fatal.
func (b *Book) assertInvariants() {
	if bid, okB := b.BestBid(); okB {
		if ask, okA := b.BestAsk(); okA {
			if !bid.LessThan(ask) {
				panic(fmt.Errorf("%w: crossed book bid=%s ask=%s", ErrInvariant, bid, ask))
			}
		}
	}
}
