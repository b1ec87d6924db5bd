// Package common holds the value types exchanged across the book, replay,
// strategy, and metrics package boundaries: orders, trades, and snapshots.
package common

import (
	"github.com/shopspring/decimal"
)

// Side is which direction an order or trade aggressor sits on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType distinguishes resting-capable limit orders from marketable-only
// market orders.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "LIMIT"
	}
	return "MARKET"
}

// TimeInForce governs what happens to the unfilled remainder of an order.
type TimeInForce int

const (
	// GTC rests any unfilled remainder in the book.
	GTC TimeInForce = iota
	// IOC matches what it can immediately and cancels the remainder.
	IOC
	// FOK matches in full or is rejected atomically with no state change.
	FOK
)

func (tif TimeInForce) String() string {
	switch tif {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

// Status is the lifecycle state of an order.
type Status int

const (
	New Status = iota
	Partial
	Filled
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case New:
		return "NEW"
	case Partial:
		return "PARTIAL"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the order can no longer receive fills.
func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// Order is the unit of submission into the book. Price is ignored for
// Market orders. FilledQuantity is mutated in place by the book as the
// order is matched; callers that hold on to an *Order after submission see
// its final resting state.
type Order struct {
	OrderID        string          `json:"order_id"`
	Side           Side            `json:"side"`
	Type           OrderType       `json:"type"`
	Price          decimal.Decimal `json:"price,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	Status         Status          `json:"status"`
	TimeInForce    TimeInForce     `json:"time_in_force"`
	Timestamp      int64           `json:"timestamp"`
	OwnerID        string          `json:"owner_id"`
}

// RemainingQuantity is Quantity - FilledQuantity.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Fill advances the order's filled quantity and status. qty must be <=
// RemainingQuantity(); the book enforces this invariant, not Order itself.
func (o *Order) Fill(qty decimal.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	if o.FilledQuantity.Cmp(o.Quantity) >= 0 {
		o.Status = Filled
	} else if o.FilledQuantity.Sign() > 0 {
		o.Status = Partial
	}
}

// Trade is an immutable record of a single match between an aggressor and a
// passive resting order.
type Trade struct {
	TradeID     string          `json:"trade_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Aggressor   Side            `json:"aggressor_side"`
	Timestamp   int64           `json:"timestamp"`
}

// PriceLevelView is an aggregated (price, total quantity) pair as surfaced
// in a snapshot.
type PriceLevelView struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Snapshot is an immutable point-in-time projection of the top-N levels on
// each side plus cached top-of-book statistics.
type Snapshot struct {
	Timestamp      int64            `json:"timestamp"`
	Symbol         string           `json:"symbol"`
	Bids           []PriceLevelView `json:"bids"`
	Asks           []PriceLevelView `json:"asks"`
	BestBid        *decimal.Decimal `json:"best_bid"`
	BestAsk        *decimal.Decimal `json:"best_ask"`
	Spread         *decimal.Decimal `json:"spread"`
	MidPrice       *decimal.Decimal `json:"mid_price"`
	LastTradePrice *decimal.Decimal `json:"last_trade_price"`
}
