package replay

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/common"
	"matchcore/internal/engine"
)

// TradeCallback is invoked synchronously, in the driver's execution
// context, whenever an AddOrder call produces one or more trades.
type TradeCallback func([]common.Trade)

// SnapshotCallback is invoked synchronously at each snapshot interval.
type SnapshotCallback func(common.Snapshot)

// CompleteCallback is invoked once, after the source is exhausted. It is
// not invoked when Run returns because of Stop.
type CompleteCallback func()

// Config controls replay pacing.
type Config struct {
	// SpeedMultiplier: 0 means run as fast as possible; >0 paces the driver
	// to wall-clock time scaled by 1/SpeedMultiplier.
	SpeedMultiplier float64
	// SnapshotIntervalSeconds is measured in simulated time. <= 0 disables
	// periodic snapshots entirely.
	SnapshotIntervalSeconds float64
}

// Engine drives events from a Source into a Book, fanning out trades and
// periodic snapshots via registered callbacks (spec.md §4.3). It is
// single-threaded and cooperative: only Run may suspend, and only between
// events.
type Engine struct {
	cfg    Config
	book   *engine.Book
	source Source

	tradeCbs    []TradeCallback
	snapshotCbs []SnapshotCallback
	completeCbs []CompleteCallback

	t       *tomb.Tomb
	stopped bool
}

// New builds a replay Engine over book, pulling events from source.
func New(book *engine.Book, source Source, cfg Config) *Engine {
	return &Engine{cfg: cfg, book: book, source: source}
}

// OnTrade registers a callback fired with every non-empty trade list
// produced by a processed new-order event.
func (e *Engine) OnTrade(cb TradeCallback) { e.tradeCbs = append(e.tradeCbs, cb) }

// OnSnapshot registers a callback fired at each snapshot interval.
func (e *Engine) OnSnapshot(cb SnapshotCallback) { e.snapshotCbs = append(e.snapshotCbs, cb) }

// OnComplete registers a callback fired once the driver finishes.
func (e *Engine) OnComplete(cb CompleteCallback) { e.completeCbs = append(e.completeCbs, cb) }

// Stop signals the driver to finish its current event and return without
// further progress. Safe to call before Run or concurrently from another
// goroutine while Run is in flight.
func (e *Engine) Stop() {
	e.stopped = true
	if e.t != nil {
		e.t.Kill(nil)
	}
}

// Run pumps the source into the book until exhaustion or Stop. Within one
// book, trades generated by a single processed event are already ordered
// by match sequence (best-price-first, then FIFO within level) because
// Book.AddOrder returns them that way.
func (e *Engine) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)
	e.t = t
	if e.stopped {
		t.Kill(nil)
	}

	log.Info().Str("symbol", e.book.Symbol).Msg("replay starting")

	wallStart := time.Now()
	nextSnapshotAt := e.cfg.SnapshotIntervalSeconds
	var lastElapsed float64

	for {
		select {
		case <-t.Dying():
			log.Info().Msg("replay stopped")
			return nil
		default:
		}

		ev, ok := e.source.Next()
		if !ok {
			break
		}
		lastElapsed = ev.ElapsedSeconds

		if e.cfg.SpeedMultiplier > 0 {
			if err := e.paceTo(t, wallStart, ev.ElapsedSeconds); err != nil {
				return nil
			}
		}

		e.apply(ev)

		if e.cfg.SnapshotIntervalSeconds > 0 {
			for nextSnapshotAt <= ev.ElapsedSeconds {
				e.emitSnapshot(nextSnapshotAt)
				nextSnapshotAt += e.cfg.SnapshotIntervalSeconds
			}
		}
	}

	e.emitSnapshot(lastElapsed)

	log.Info().Msg("replay complete")
	for _, cb := range e.completeCbs {
		cb()
	}
	return nil
}

// paceTo blocks the driver until wall-clock time has advanced enough to
// reach elapsedSeconds at the configured speed multiplier, or until Stop is
// signalled.
func (e *Engine) paceTo(t *tomb.Tomb, wallStart time.Time, elapsedSeconds float64) error {
	target := wallStart.Add(time.Duration(elapsedSeconds / e.cfg.SpeedMultiplier * float64(time.Second)))
	wait := time.Until(target)
	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-t.Dying():
		return t.Err()
	}
}

// apply routes one event into the book and fans out trade callbacks.
func (e *Engine) apply(ev TimedEvent) {
	switch ev.Event.Kind {
	case NewOrderEvent:
		trades := e.book.AddOrder(ev.Event.Order)
		if len(trades) > 0 {
			for _, cb := range e.tradeCbs {
				cb(trades)
			}
		}
	case CancelOrderEvent:
		e.book.CancelOrder(ev.Event.CancelID)
	}
}

func (e *Engine) emitSnapshot(elapsedSeconds float64) {
	snap := e.book.GetSnapshotAt(10, int64(elapsedSeconds*1e9))
	for _, cb := range e.snapshotCbs {
		cb(snap)
	}
}
