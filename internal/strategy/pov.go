package strategy

import (
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
)

// POV (percentage-of-volume) tracks market volume via a side-input counter
// supplied by the harness (UpdateMarketVolume) and emits a child sized to a
// fraction of the volume traded since its last tick. It has no scheduled
// cadence — GenerateOrders acts every time it is called.
type POV struct {
	Base

	ParticipationRate float64

	lastObservedVolume    decimal.Decimal
	currentObservedVolume decimal.Decimal
}

// NewPOV constructs a POV strategy targeting participationRate (e.g. 0.1
// for 10%) of observed market volume.
func NewPOV(target decimal.Decimal, side common.Side, participationRate float64) *POV {
	return &POV{
		Base:              newBase(target, side, "POV"),
		ParticipationRate: participationRate,
	}
}

// UpdateMarketVolume feeds the harness's running cumulative traded-volume
// counter (e.g. Book.Counters().TotalVolume) into the strategy so it can
// compute the delta since its last tick.
func (s *POV) UpdateMarketVolume(cumulativeVolume decimal.Decimal) {
	s.currentObservedVolume = cumulativeVolume
}

// GenerateOrders emits participationRate * volume_delta, capped by
// remaining quantity, priced at the same moderate-aggression rule as
// VWAP/TWAP's mid-price branch.
func (s *POV) GenerateOrders(snap common.Snapshot, elapsedSeconds float64) []Directive {
	if s.IsComplete() {
		return nil
	}

	delta := s.currentObservedVolume.Sub(s.lastObservedVolume)
	s.lastObservedVolume = s.currentObservedVolume
	if delta.Sign() <= 0 {
		return nil
	}

	qty := s.cap(delta.Mul(decimal.NewFromFloat(s.ParticipationRate)))
	if qty.Sign() <= 0 {
		return nil
	}

	orderType, price, ok := aggressionPrice(snap, s.Side, 0.6)
	if !ok {
		return nil
	}

	order := &common.Order{
		OrderID:     s.newChildID(),
		Side:        s.Side,
		Type:        orderType,
		Price:       price,
		Quantity:    qty,
		TimeInForce: common.GTC,
		Timestamp:   int64(elapsedSeconds * 1e9),
	}
	return []Directive{{Order: order}}
}

// UpdateExecution attributes a child fill to the strategy's own VWAP.
func (s *POV) UpdateExecution(childOrderID string, fillPrice, fillQuantity decimal.Decimal) {
	s.recordFill(fillPrice, fillQuantity)
}
