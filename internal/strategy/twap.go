package strategy

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
)

// TWAP slices TargetQuantity into NumSlices equal child orders, scheduled
// at a fixed cadence of DurationSeconds/NumSlices. Aggression in [0,1]
// selects the pricing branch (see aggressionPrice).
type TWAP struct {
	Base

	NumSlices       int
	DurationSeconds float64
	Aggression      float64

	sliceQuantity decimal.Decimal
	nextSlice     int
}

// NewTWAP constructs a TWAP strategy. numSlices must be >= 1.
func NewTWAP(target decimal.Decimal, side common.Side, numSlices int, durationSeconds, aggression float64) *TWAP {
	if numSlices < 1 {
		numSlices = 1
	}
	return &TWAP{
		Base:            newBase(target, side, "TWAP"),
		NumSlices:       numSlices,
		DurationSeconds: durationSeconds,
		Aggression:      aggression,
		sliceQuantity:   target.Div(decimal.NewFromInt(int64(numSlices))),
	}
}

// GenerateOrders emits one child per slice boundary reached since the
// previous call.
func (s *TWAP) GenerateOrders(snap common.Snapshot, elapsedSeconds float64) []Directive {
	if s.IsComplete() || s.nextSlice >= s.NumSlices {
		return nil
	}

	interval := s.DurationSeconds / float64(s.NumSlices)
	var out []Directive

	for s.nextSlice < s.NumSlices && elapsedSeconds >= float64(s.nextSlice+1)*interval {
		s.nextSlice++
		qty := s.cap(s.sliceQuantity)
		if qty.Sign() <= 0 {
			continue
		}
		order, ok := s.buildChild(snap, qty, elapsedSeconds)
		if !ok {
			log.Debug().Msg("TWAP slice skipped: snapshot missing required price data")
			continue
		}
		out = append(out, Directive{Order: order})
	}
	return out
}

func (s *TWAP) buildChild(snap common.Snapshot, qty decimal.Decimal, elapsedSeconds float64) (*common.Order, bool) {
	orderType, price, ok := aggressionPrice(snap, s.Side, s.Aggression)
	if !ok {
		return nil, false
	}
	return &common.Order{
		OrderID:     s.newChildID(),
		Side:        s.Side,
		Type:        orderType,
		Price:       price,
		Quantity:    qty,
		TimeInForce: common.GTC,
		Timestamp:   int64(elapsedSeconds * 1e9),
	}, true
}

// UpdateExecution attributes a child fill to the strategy's own VWAP.
func (s *TWAP) UpdateExecution(childOrderID string, fillPrice, fillQuantity decimal.Decimal) {
	s.recordFill(fillPrice, fillQuantity)
}
