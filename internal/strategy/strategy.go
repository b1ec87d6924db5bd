// Package strategy implements the execution-strategy harness of spec.md
// §4.5: an abstract ExecutionStrategy contract plus four parent-order
// slicing policies (TWAP, VWAP, POV, Posting). Strategies are stateless
// with respect to the book — they only ever observe a Snapshot — but
// stateful internally, tracking their own executed quantity, notional, and
// child-order ids.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"matchcore/internal/common"
	"matchcore/internal/decimalx"
)

// Directive is one item returned from GenerateOrders: either a new child
// order to submit, or a cancellation of a previously posted child.
type Directive struct {
	Cancel   bool
	CancelID string
	Order    *common.Order
}

// Strategy is the abstract parent-order policy contract of spec.md §4.5.
type Strategy interface {
	// GenerateOrders returns zero or more directives to action now, given
	// the current book snapshot and simulated elapsed time.
	GenerateOrders(snapshot common.Snapshot, elapsedSeconds float64) []Directive
	// UpdateExecution attributes a fill on a previously emitted child order
	// back to the strategy's own bookkeeping.
	UpdateExecution(childOrderID string, fillPrice, fillQuantity decimal.Decimal)
	RemainingQuantity() decimal.Decimal
	ExecutedQuantity() decimal.Decimal
	AveragePrice() decimal.Decimal
	IsComplete() bool
	Target() decimal.Decimal
	SideOf() common.Side
}

// Base holds the bookkeeping every strategy variant shares: target
// quantity, side, executed quantity, cumulative notional, and generated
// child-order ids.
type Base struct {
	TargetQuantity decimal.Decimal
	Side           common.Side

	executedQuantity   decimal.Decimal
	cumulativeNotional decimal.Decimal
	childOrderIDs      []string
	nextChildSeq       uint64
	idPrefix           string
}

func newBase(target decimal.Decimal, side common.Side, idPrefix string) Base {
	return Base{
		TargetQuantity: target,
		Side:           side,
		idPrefix:       idPrefix,
	}
}

// RemainingQuantity is TargetQuantity - ExecutedQuantity, floored at zero.
func (b *Base) RemainingQuantity() decimal.Decimal {
	rem := b.TargetQuantity.Sub(b.executedQuantity)
	if rem.Sign() < 0 {
		return decimal.Zero
	}
	return rem
}

// ExecutedQuantity is the cumulative filled quantity across all child
// orders this strategy has emitted.
func (b *Base) ExecutedQuantity() decimal.Decimal {
	return b.executedQuantity
}

// AveragePrice is the volume-weighted average price of this strategy's own
// fills.
func (b *Base) AveragePrice() decimal.Decimal {
	if b.executedQuantity.Sign() <= 0 {
		return decimal.Zero
	}
	return b.cumulativeNotional.Div(b.executedQuantity)
}

// IsComplete reports whether the target has been reached.
func (b *Base) IsComplete() bool {
	return b.RemainingQuantity().Sign() <= 0
}

// Target returns the strategy's total target quantity.
func (b *Base) Target() decimal.Decimal {
	return b.TargetQuantity
}

// SideOf returns the strategy's parent-order side.
func (b *Base) SideOf() common.Side {
	return b.Side
}

// recordFill folds one fill into the running executed quantity and
// notional. Strategies never emit more quantity than RemainingQuantity(),
// but a fill can still arrive after the target is notionally reached if
// multiple child orders are in flight; recordFill accepts it regardless.
func (b *Base) recordFill(price, qty decimal.Decimal) {
	b.executedQuantity = b.executedQuantity.Add(qty)
	b.cumulativeNotional = b.cumulativeNotional.Add(price.Mul(qty))
}

// cap clamps qty to the strategy's remaining quantity.
func (b *Base) cap(qty decimal.Decimal) decimal.Decimal {
	return decimalx.Min(qty, b.RemainingQuantity())
}

// newChildID allocates a stable, strategy-scoped id for a new child order
// so UpdateExecution can later attribute fills back to it.
func (b *Base) newChildID() string {
	b.nextChildSeq++
	id := fmt.Sprintf("%s-%d", b.idPrefix, b.nextChildSeq)
	b.childOrderIDs = append(b.childOrderIDs, id)
	return id
}

// bestPrice returns the passive-side best price for side from snap: best
// bid for buys, best ask for sells. ok is false if that side is empty.
func bestPrice(snap common.Snapshot, side common.Side) (decimal.Decimal, bool) {
	if side == common.Buy {
		if snap.BestBid == nil {
			return decimal.Zero, false
		}
		return *snap.BestBid, true
	}
	if snap.BestAsk == nil {
		return decimal.Zero, false
	}
	return *snap.BestAsk, true
}

// aggressionPrice implements the shared TWAP/VWAP/POV pricing rule of
// spec.md §4.5: aggression <= 0.5 posts at the passive top-of-book price;
// (0.5, 0.8] posts at the mid; > 0.8 goes to market (price unused). ok is
// false when the snapshot lacks the data the chosen branch needs.
func aggressionPrice(snap common.Snapshot, side common.Side, aggression float64) (common.OrderType, decimal.Decimal, bool) {
	switch {
	case aggression > 0.8:
		return common.Market, decimal.Zero, true
	case aggression > 0.5:
		if snap.MidPrice == nil {
			return common.Limit, decimal.Zero, false
		}
		return common.Limit, *snap.MidPrice, true
	default:
		p, ok := bestPrice(snap, side)
		return common.Limit, p, ok
	}
}
