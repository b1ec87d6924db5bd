// Package decimalx provides the fixed-point price/quantity helpers shared
// across the book, generator, strategy, and metrics packages. Every number
// that represents an order book price, quantity, or derived monetary value
// flows through decimal.Decimal; float64 is reserved for analytics that are
// explicitly allowed to be approximate (volatility, log-returns).
package decimalx

import (
	"math"

	"github.com/shopspring/decimal"
)

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Mid returns the arithmetic mean of bid and ask.
func Mid(bid, ask decimal.Decimal) decimal.Decimal {
	return bid.Add(ask).Div(decimal.NewFromInt(2))
}

// BasisPoints expresses (value-benchmark)/benchmark in basis points as a
// float64. Used only by analytics (metrics, backtester slippage), never by
// engine state.
func BasisPoints(value, benchmark decimal.Decimal) float64 {
	if benchmark.IsZero() {
		return 0
	}
	diff, _ := value.Sub(benchmark).Div(benchmark).Float64()
	return diff * 10000
}

// Float64 is a narrow escape hatch for analytics code (standard deviation,
// log-returns) that must operate on floats. Never call this from engine
// matching logic.
func Float64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FromTicks builds a price offset of n ticks (n may be negative) of the
// given tick size.
func FromTicks(n int64, tickSize decimal.Decimal) decimal.Decimal {
	return tickSize.Mul(decimal.NewFromInt(n))
}

// LogReturn computes ln(cur/prev); returns (0, false) when either input is
// non-positive (undefined).
func LogReturn(prev, cur decimal.Decimal) (float64, bool) {
	if prev.Sign() <= 0 || cur.Sign() <= 0 {
		return 0, false
	}
	p := Float64(prev)
	c := Float64(cur)
	return math.Log(c / p), true
}
