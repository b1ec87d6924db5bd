// Package metrics implements the pure, offline reducers of spec.md §4.6:
// functions over sequences of snapshots and trades, with no dependency on
// the live book. Floating point is used throughout this package only,
// exactly as spec.md §9 permits for derived analytics (volatility,
// log-returns) while forbidding it in engine state.
package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"matchcore/internal/common"
	"matchcore/internal/decimalx"
)

// Result is the market-metric snapshot produced by Compute.
type Result struct {
	MeanSpread   float64
	MedianSpread float64
	StdDevSpread float64

	MeanBidDepth       float64
	MeanAskDepth       float64
	MeanDepthImbalance float64

	OrderFlowImbalance float64

	VWAP        float64
	TotalVolume float64
	TradeCount  int

	RealizedVolatility float64
}

// Compute reduces a sequence of snapshots and trades into a Result.
// annualizationFactor, if > 0, scales the realized volatility's standard
// deviation by sqrt(annualizationFactor); pass 0 to leave it unannualized.
func Compute(snapshots []common.Snapshot, trades []common.Trade, annualizationFactor float64) Result {
	var r Result

	spreads := make([]float64, 0, len(snapshots))
	var bidDepthSum, askDepthSum, imbalanceSum float64
	var imbalanceCount int
	mids := make([]decimal.Decimal, 0, len(snapshots))

	for _, snap := range snapshots {
		if snap.Spread != nil {
			spreads = append(spreads, decimalx.Float64(*snap.Spread))
		}

		bidDepth := sumQuantity(snap.Bids)
		askDepth := sumQuantity(snap.Asks)
		bidDepthSum += bidDepth
		askDepthSum += askDepth
		if bidDepth+askDepth > 0 {
			imbalanceSum += (bidDepth - askDepth) / (bidDepth + askDepth)
			imbalanceCount++
		}

		if snap.MidPrice != nil {
			mids = append(mids, *snap.MidPrice)
		}
	}

	if n := len(snapshots); n > 0 {
		r.MeanBidDepth = bidDepthSum / float64(n)
		r.MeanAskDepth = askDepthSum / float64(n)
	}
	if imbalanceCount > 0 {
		r.MeanDepthImbalance = imbalanceSum / float64(imbalanceCount)
	}
	r.MeanSpread, r.MedianSpread, r.StdDevSpread = meanMedianStdDev(spreads)
	r.RealizedVolatility = realizedVolatility(mids, annualizationFactor)

	r.OrderFlowImbalance, r.VWAP, r.TotalVolume, r.TradeCount = tradeStats(trades)

	return r
}

func sumQuantity(levels []common.PriceLevelView) float64 {
	var sum float64
	for _, lvl := range levels {
		sum += decimalx.Float64(lvl.Quantity)
	}
	return sum
}

func tradeStats(trades []common.Trade) (ofi, vwap, totalVolume float64, count int) {
	var buyVol, sellVol, notional float64
	for _, t := range trades {
		qty := decimalx.Float64(t.Quantity)
		notional += decimalx.Float64(t.Price) * qty
		totalVolume += qty
		if t.Aggressor == common.Buy {
			buyVol += qty
		} else {
			sellVol += qty
		}
	}
	count = len(trades)
	if buyVol+sellVol > 0 {
		ofi = (buyVol - sellVol) / (buyVol + sellVol)
	}
	if totalVolume > 0 {
		vwap = notional / totalVolume
	}
	return
}

func meanMedianStdDev(values []float64) (mean, median, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	stddev = math.Sqrt(variance)
	return
}

// realizedVolatility computes the standard deviation of log-returns of a
// sequence of mid prices already filtered to defined values.
func realizedVolatility(mids []decimal.Decimal, annualizationFactor float64) float64 {
	if len(mids) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(mids)-1)
	for i := 1; i < len(mids); i++ {
		if r, ok := decimalx.LogReturn(mids[i-1], mids[i]); ok {
			returns = append(returns, r)
		}
	}
	_, _, stddev := meanMedianStdDev(returns)
	if annualizationFactor > 0 {
		return stddev * math.Sqrt(annualizationFactor)
	}
	return stddev
}

// FillProbability estimates, over a set of snapshots, the fraction in
// which a hypothetical order placed at mid*(1±offsetBps/10000) on side
// would have been immediately marketable against the opposing best: at or
// above the best ask for a buy, at or below the best bid for a sell.
func FillProbability(snapshots []common.Snapshot, offsetBps float64, side common.Side) float64 {
	var considered, marketable int
	sign := 1.0
	if side == common.Sell {
		sign = -1.0
	}

	for _, snap := range snapshots {
		if snap.MidPrice == nil {
			continue
		}
		mid := decimalx.Float64(*snap.MidPrice)
		price := mid * (1 + sign*offsetBps/10000)

		if side == common.Buy {
			if snap.BestAsk == nil {
				continue
			}
			considered++
			if price >= decimalx.Float64(*snap.BestAsk) {
				marketable++
			}
		} else {
			if snap.BestBid == nil {
				continue
			}
			considered++
			if price <= decimalx.Float64(*snap.BestBid) {
				marketable++
			}
		}
	}

	if considered == 0 {
		return 0
	}
	return float64(marketable) / float64(considered)
}
