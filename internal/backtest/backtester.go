// Package backtest orchestrates spec.md §4.7: a replay.Engine feeding a
// strategy.Strategy its periodic Snapshot, the strategy's child directives
// submitted straight back into the same engine.Book, and the resulting
// fills attributed back to the strategy so it can track its own execution
// quality. It is the single place that wires generator/replay/engine/
// strategy/metrics together, in the orchestration style of a state-machine
// driver that advances one tick at a time and accumulates a final report.
package backtest

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
	"matchcore/internal/decimalx"
	"matchcore/internal/engine"
	"matchcore/internal/metrics"
	"matchcore/internal/replay"
	"matchcore/internal/strategy"
)

// Config controls the backtest run. AnnualizationFactor is forwarded to
// metrics.Compute for realized volatility scaling; 0 leaves it unannualized.
type Config struct {
	Replay              replay.Config
	AnnualizationFactor float64
}

// Results is the final report of spec.md §4.7: the strategy's own execution
// quality alongside the market-metric snapshot it traded against.
type Results struct {
	TargetQuantity   decimal.Decimal
	ExecutedQuantity decimal.Decimal
	FillRate         float64

	StrategyVWAP decimal.Decimal
	ArrivalPrice decimal.Decimal

	// Slippage is signed in the strategy's unfavourable direction: positive
	// means the strategy paid more (Buy) or received less (Sell) than the
	// arrival mid.
	Slippage    decimal.Decimal
	SlippageBps float64

	ChildOrderCount int
	FillCount       int

	Market metrics.Result
}

// volumeAware is implemented by strategies (POV) that need the harness to
// push the book's running traded-volume counter at every tick.
type volumeAware interface {
	UpdateMarketVolume(cumulativeVolume decimal.Decimal)
}

// Backtester drives one replay.Engine + engine.Book + strategy.Strategy to
// completion and reduces the observed snapshots/trades into a Results.
type Backtester struct {
	cfg      Config
	book     *engine.Book
	strategy strategy.Strategy
	replay   *replay.Engine

	snapshots []common.Snapshot
	trades    []common.Trade

	arrivalPrice decimal.Decimal
	haveArrival  bool

	// childOrderIDs tracks every order the strategy has ever submitted, so
	// a later trade against a resting child — reached through the replay
	// engine's background flow rather than synchronously at submission —
	// can still be attributed back to the strategy.
	childOrderIDs map[string]struct{}

	childOrderCount int
	fillCount       int
}

// New builds a Backtester over book, pulling background market events from
// source and driving strat's child orders into the same book at every
// snapshot tick.
func New(book *engine.Book, strat strategy.Strategy, source replay.Source, cfg Config) *Backtester {
	bt := &Backtester{cfg: cfg, book: book, strategy: strat, childOrderIDs: make(map[string]struct{})}
	bt.replay = replay.New(book, source, cfg.Replay)
	bt.replay.OnTrade(bt.onMarketTrade)
	bt.replay.OnSnapshot(bt.onSnapshot)
	return bt
}

// Run drives the replay to completion and returns the final Results.
func (bt *Backtester) Run(ctx context.Context) (Results, error) {
	if err := bt.replay.Run(ctx); err != nil {
		return Results{}, err
	}
	return bt.summarize(), nil
}

// onMarketTrade folds every trade produced by the replay engine's
// background flow into the market tape used by metrics.Compute. A resting
// child order — Posting always rests one, TWAP/VWAP/POV do too whenever
// their pricing branch posts a passive limit rather than crossing at
// submission — is filled this way, not inside submitChild, so this also
// attributes those fills back to the strategy.
func (bt *Backtester) onMarketTrade(trades []common.Trade) {
	bt.attributeTrades(trades)
}

// onSnapshot is the heartbeat of the backtest: record the snapshot, latch
// the arrival price on the first one with a defined mid, feed volume-aware strategies,
// then ask the strategy what to do and action it against the book.
func (bt *Backtester) onSnapshot(snap common.Snapshot) {
	bt.snapshots = append(bt.snapshots, snap)

	if !bt.haveArrival && snap.MidPrice != nil {
		bt.arrivalPrice = *snap.MidPrice
		bt.haveArrival = true
	}

	if va, ok := bt.strategy.(volumeAware); ok {
		va.UpdateMarketVolume(bt.book.Counters().TotalVolume)
	}

	elapsedSeconds := float64(snap.Timestamp) / 1e9
	for _, directive := range bt.strategy.GenerateOrders(snap, elapsedSeconds) {
		if directive.Cancel {
			bt.book.CancelOrder(directive.CancelID)
			continue
		}
		bt.submitChild(directive.Order)
	}
}

// submitChild submits one strategy-generated order to the book, attributing
// any immediate fill back to the strategy and registering the order's id so
// a later fill against it (if it rests) is still attributed when it
// eventually arrives through onMarketTrade.
func (bt *Backtester) submitChild(order *common.Order) {
	bt.childOrderCount++
	bt.childOrderIDs[order.OrderID] = struct{}{}
	trades := bt.book.AddOrder(order)
	bt.attributeTrades(trades)
}

// attributeTrades folds trades into the market tape and, for any trade
// whose buy or sell side is a known child order, reports the fill back to
// the strategy. A trade can only ever match one side against the strategy's
// own child ids, since a single-sided parent order never trades against
// itself.
func (bt *Backtester) attributeTrades(trades []common.Trade) {
	bt.trades = append(bt.trades, trades...)
	for _, t := range trades {
		if _, ok := bt.childOrderIDs[t.BuyOrderID]; ok {
			bt.fillCount++
			bt.strategy.UpdateExecution(t.BuyOrderID, t.Price, t.Quantity)
			continue
		}
		if _, ok := bt.childOrderIDs[t.SellOrderID]; ok {
			bt.fillCount++
			bt.strategy.UpdateExecution(t.SellOrderID, t.Price, t.Quantity)
		}
	}
}

// summarize reduces the accumulated snapshots/trades and the strategy's own
// bookkeeping into a final Results.
func (bt *Backtester) summarize() Results {
	executed := bt.strategy.ExecutedQuantity()
	target := bt.strategy.Target()

	var fillRate float64
	if target.IsPositive() {
		f, _ := executed.Div(target).Float64()
		fillRate = f
	}

	vwap := bt.strategy.AveragePrice()

	var slippage decimal.Decimal
	if bt.haveArrival {
		if bt.strategy.SideOf() == common.Buy {
			slippage = vwap.Sub(bt.arrivalPrice)
		} else {
			slippage = bt.arrivalPrice.Sub(vwap)
		}
	}

	slippageBps := 0.0
	if bt.haveArrival && bt.arrivalPrice.IsPositive() {
		slippageBps = decimalx.BasisPoints(slippage.Add(bt.arrivalPrice), bt.arrivalPrice)
	}

	market := metrics.Compute(bt.snapshots, bt.trades, bt.cfg.AnnualizationFactor)

	log.Info().
		Int("child_orders", bt.childOrderCount).
		Int("fills", bt.fillCount).
		Str("executed", executed.String()).
		Str("target", target.String()).
		Msg("backtest complete")

	return Results{
		TargetQuantity:   target,
		ExecutedQuantity: executed,
		FillRate:         fillRate,
		StrategyVWAP:     vwap,
		ArrivalPrice:     bt.arrivalPrice,
		Slippage:         slippage,
		SlippageBps:      slippageBps,
		ChildOrderCount:  bt.childOrderCount,
		FillCount:        bt.fillCount,
		Market:           market,
	}
}

