package strategy

import (
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
	"matchcore/internal/decimalx"
)

// Posting maintains at most one resting child order, repriced whenever the
// mid has moved past MoveThreshold or the resting child is no longer at its
// intended price. Fraction in [0,1]: 0 joins the best, 1 crosses to the
// opposite side.
type Posting struct {
	Base

	Fraction      float64
	MoveThreshold decimal.Decimal

	hasResting     bool
	restingChildID string
	restingPrice   decimal.Decimal
	lastMid        decimal.Decimal
}

// NewPosting constructs a Posting strategy.
func NewPosting(target decimal.Decimal, side common.Side, fraction float64, moveThreshold decimal.Decimal) *Posting {
	return &Posting{
		Base:          newBase(target, side, "POST"),
		Fraction:      fraction,
		MoveThreshold: moveThreshold,
	}
}

// GenerateOrders re-quotes the resting child whenever its price has drifted
// from the recomputed target, or the mid has moved beyond MoveThreshold.
func (s *Posting) GenerateOrders(snap common.Snapshot, elapsedSeconds float64) []Directive {
	if s.IsComplete() {
		if s.hasResting {
			s.hasResting = false
			return []Directive{{Cancel: true, CancelID: s.restingChildID}}
		}
		return nil
	}
	if snap.BestBid == nil || snap.BestAsk == nil {
		return nil
	}

	bid, ask := *snap.BestBid, *snap.BestAsk
	spread := ask.Sub(bid)
	mid := decimalx.Mid(bid, ask)

	target := bid.Add(spread.Mul(decimal.NewFromFloat(s.Fraction)))
	if s.Side == common.Sell {
		target = ask.Sub(spread.Mul(decimal.NewFromFloat(s.Fraction)))
	}

	midMoved := s.hasResting && s.MoveThreshold.Sign() > 0 &&
		mid.Sub(s.lastMid).Abs().GreaterThan(s.MoveThreshold)
	priceStale := s.hasResting && !s.restingPrice.Equal(target)

	if s.hasResting && !midMoved && !priceStale {
		return nil
	}

	var out []Directive
	if s.hasResting {
		out = append(out, Directive{Cancel: true, CancelID: s.restingChildID})
	}

	qty := s.RemainingQuantity()
	if qty.Sign() <= 0 {
		s.hasResting = false
		return out
	}

	id := s.newChildID()
	order := &common.Order{
		OrderID:     id,
		Side:        s.Side,
		Type:        common.Limit,
		Price:       target,
		Quantity:    qty,
		TimeInForce: common.GTC,
		Timestamp:   int64(elapsedSeconds * 1e9),
	}
	out = append(out, Directive{Order: order})

	s.hasResting = true
	s.restingChildID = id
	s.restingPrice = target
	s.lastMid = mid
	return out
}

// UpdateExecution attributes a fill to the strategy and clears the resting
// marker once the target is reached.
func (s *Posting) UpdateExecution(childOrderID string, fillPrice, fillQuantity decimal.Decimal) {
	s.recordFill(fillPrice, fillQuantity)
	if s.IsComplete() && childOrderID == s.restingChildID {
		s.hasResting = false
	}
}
