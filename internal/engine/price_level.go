package engine

import (
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
)

// PriceLevel is a FIFO queue of resting orders at a single price, plus a
// running aggregate quantity kept in sync with every mutation. Created
// lazily by the book when the first order at a price arrives and torn down
// when the queue empties.
type PriceLevel struct {
	Price         decimal.Decimal
	Orders        []*common.Order
	TotalQuantity decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, TotalQuantity: decimal.Zero}
}

// append adds an order to the back of the queue. O(1).
func (l *PriceLevel) append(o *common.Order) {
	l.Orders = append(l.Orders, o)
	l.TotalQuantity = l.TotalQuantity.Add(o.RemainingQuantity())
}

// front returns the head of the queue without removing it.
func (l *PriceLevel) front() *common.Order {
	if len(l.Orders) == 0 {
		return nil
	}
	return l.Orders[0]
}

// popFront removes the head of the queue. O(1).
func (l *PriceLevel) popFront() {
	if len(l.Orders) == 0 {
		return
	}
	l.Orders = l.Orders[1:]
}

// reduce shrinks the tracked total by qty after a fill against the front
// order. Must be called once per fill, in lockstep with the order's own
// Fill() call.
func (l *PriceLevel) reduce(qty decimal.Decimal) {
	l.TotalQuantity = l.TotalQuantity.Sub(qty)
}

// removeByID removes an order anywhere in the queue by identity, for
// cancellation. O(K) where K is level depth. Returns true if found.
func (l *PriceLevel) removeByID(orderID string) bool {
	for i, o := range l.Orders {
		if o.OrderID == orderID {
			l.TotalQuantity = l.TotalQuantity.Sub(o.RemainingQuantity())
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// empty reports whether the level has no resting orders left.
func (l *PriceLevel) empty() bool {
	return len(l.Orders) == 0
}
