package strategy

import (
	"sort"

	"github.com/shopspring/decimal"

	"matchcore/internal/common"
)

// ProfilePoint is one knot of a volume profile: at TimeFraction (elapsed /
// duration, in [0,1]) the cumulative fraction of total volume expected to
// have traded is CumulativeFraction.
type ProfilePoint struct {
	TimeFraction       float64
	CumulativeFraction float64
}

// DefaultUShapeProfile is the standard U-shaped intraday volume curve:
// heavy at the open and close, light around midday.
func DefaultUShapeProfile() []ProfilePoint {
	return []ProfilePoint{
		{TimeFraction: 0.0, CumulativeFraction: 0.0},
		{TimeFraction: 0.1, CumulativeFraction: 0.25},
		{TimeFraction: 0.5, CumulativeFraction: 0.55},
		{TimeFraction: 0.9, CumulativeFraction: 0.85},
		{TimeFraction: 1.0, CumulativeFraction: 1.0},
	}
}

// VWAP targets a cumulative fill schedule interpolated from a volume
// profile rather than a fixed slice cadence. Pricing uses the same
// moderate-aggression (mid-price limit) branch as TWAP's (0.5, 0.8] case.
type VWAP struct {
	Base

	DurationSeconds float64
	Profile         []ProfilePoint
}

// NewVWAP constructs a VWAP strategy. A nil or empty profile falls back to
// DefaultUShapeProfile.
func NewVWAP(target decimal.Decimal, side common.Side, durationSeconds float64, profile []ProfilePoint) *VWAP {
	if len(profile) == 0 {
		profile = DefaultUShapeProfile()
	}
	sorted := append([]ProfilePoint(nil), profile...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TimeFraction < sorted[j].TimeFraction })
	return &VWAP{
		Base:            newBase(target, side, "VWAP"),
		DurationSeconds: durationSeconds,
		Profile:         sorted,
	}
}

// GenerateOrders emits a single child for the gap between the profile's
// target cumulative quantity at the current time fraction and what has
// actually executed so far.
func (s *VWAP) GenerateOrders(snap common.Snapshot, elapsedSeconds float64) []Directive {
	if s.IsComplete() {
		return nil
	}

	timeFraction := 0.0
	if s.DurationSeconds > 0 {
		timeFraction = elapsedSeconds / s.DurationSeconds
	}
	if timeFraction > 1 {
		timeFraction = 1
	}

	targetCumulative := s.TargetQuantity.Mul(decimal.NewFromFloat(s.interpolate(timeFraction)))
	gap := targetCumulative.Sub(s.ExecutedQuantity())
	if gap.Sign() <= 0 {
		return nil
	}
	qty := s.cap(gap)
	if qty.Sign() <= 0 {
		return nil
	}

	orderType, price, ok := aggressionPrice(snap, s.Side, 0.6) // moderate aggression: mid-price limit
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

// interpolate performs piecewise-linear interpolation of the profile's
// cumulative curve at timeFraction.
func (s *VWAP) interpolate(timeFraction float64) float64 {
	pts := s.Profile
	if timeFraction <= pts[0].TimeFraction {
		return pts[0].CumulativeFraction
	}
	last := pts[len(pts)-1]
	if timeFraction >= last.TimeFraction {
		return last.CumulativeFraction
	}
	for i := 1; i < len(pts); i++ {
		if timeFraction <= pts[i].TimeFraction {
			lo, hi := pts[i-1], pts[i]
			span := hi.TimeFraction - lo.TimeFraction
			if span <= 0 {
				return hi.CumulativeFraction
			}
			frac := (timeFraction - lo.TimeFraction) / span
			return lo.CumulativeFraction + frac*(hi.CumulativeFraction-lo.CumulativeFraction)
		}
	}
	return last.CumulativeFraction
}

// UpdateExecution attributes a child fill to the strategy's own VWAP.
func (s *VWAP) UpdateExecution(childOrderID string, fillPrice, fillQuantity decimal.Decimal) {
	s.recordFill(fillPrice, fillQuantity)
}
