// Package generator produces a deterministic, seedable synthetic market
// event stream modelling a Poisson order-arrival process, per spec.md §4.4.
// It is the sole owner of its RNG state and mid-price random walk.
package generator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"matchcore/internal/common"
	"matchcore/internal/decimalx"
)

// Config parameterises the generator. Same Config + same Seed always
// produces the identical event stream.
type Config struct {
	Symbol          string
	BasePrice       decimal.Decimal
	TickSize        decimal.Decimal
	ArrivalRate     float64 // orders per second
	CancelProb      float64 // probability an event is a cancel, not a new order
	QuantityMu      float64 // log-normal location parameter
	QuantitySigma   float64 // log-normal scale parameter
	MeanSpreadTicks float64 // mean of the exponential tick-offset distribution
	Volatility      float64 // per-sqrt(second) volatility of the mid random walk
	Seed            int64
	DurationSeconds float64
}

// EventKind distinguishes the two event shapes the generator emits.
type EventKind int

const (
	NewOrderEvent EventKind = iota
	CancelOrderEvent
)

// Event is a single generated market event.
type Event struct {
	Kind     EventKind
	Order    *common.Order // set when Kind == NewOrderEvent
	CancelID string        // set when Kind == CancelOrderEvent
}

// TimedEvent pairs an Event with its simulated arrival time.
type TimedEvent struct {
	ElapsedSeconds float64
	Event          Event
}

// Poisson is a deterministic, seedable source of synthetic order events.
type Poisson struct {
	cfg Config
	rng *rand.Rand

	mid       decimal.Decimal
	activeIDs []string
	nextSeq   uint64
}

// New constructs a generator from cfg. The same cfg (including Seed)
// always yields an identical Generate() output.
func New(cfg Config) *Poisson {
	return &Poisson{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		mid: cfg.BasePrice,
	}
}

// Generate produces the full ordered event stream for the configured
// duration. Determinism requires this consume the RNG identically every
// call, so Generate should only be invoked once per Poisson instance.
func (p *Poisson) Generate() []TimedEvent {
	var events []TimedEvent
	elapsed := 0.0
	dt := 1.0
	if p.cfg.ArrivalRate > 0 {
		dt = 1.0 / p.cfg.ArrivalRate
	}

	for {
		elapsed += p.nextInterArrival()
		if elapsed > p.cfg.DurationSeconds {
			break
		}

		p.stepMid(dt)

		if len(p.activeIDs) > 0 && p.rng.Float64() < p.cfg.CancelProb {
			idx := p.rng.Intn(len(p.activeIDs))
			id := p.activeIDs[idx]
			p.activeIDs = append(p.activeIDs[:idx], p.activeIDs[idx+1:]...)
			events = append(events, TimedEvent{
				ElapsedSeconds: elapsed,
				Event:          Event{Kind: CancelOrderEvent, CancelID: id},
			})
			continue
		}

		order := p.newOrder(elapsed)
		p.activeIDs = append(p.activeIDs, order.OrderID)
		events = append(events, TimedEvent{
			ElapsedSeconds: elapsed,
			Event:          Event{Kind: NewOrderEvent, Order: order},
		})
	}
	return events
}

// nextInterArrival draws an exponentially distributed gap with the
// configured arrival rate.
func (p *Poisson) nextInterArrival() float64 {
	rate := p.cfg.ArrivalRate
	if rate <= 0 {
		rate = 1
	}
	return p.rng.ExpFloat64() / rate
}

// stepMid advances the geometric random walk: mid *= (1 + eps), eps ~
// Normal(0, volatility*sqrt(dt)).
func (p *Poisson) stepMid(dt float64) {
	sigma := p.cfg.Volatility * math.Sqrt(dt)
	eps := p.rng.NormFloat64() * sigma
	factor := decimal.NewFromFloat(1 + eps)
	p.mid = p.mid.Mul(factor)
	if p.mid.Sign() <= 0 {
		p.mid = p.cfg.TickSize
	}
}

// newOrder builds one synthetic limit order: uniform side, log-normal
// quantity, and a passive-side price offset drawn from an exponential tick
// distribution around the current mid.
func (p *Poisson) newOrder(elapsed float64) *common.Order {
	p.nextSeq++
	side := common.Buy
	if p.rng.Float64() < 0.5 {
		side = common.Sell
	}

	qty := p.drawQuantity()
	offsetTicks := int64(p.rng.ExpFloat64() * p.cfg.MeanSpreadTicks)

	offset := decimalx.FromTicks(offsetTicks, p.cfg.TickSize)
	price := p.mid
	if side == common.Buy {
		price = p.mid.Sub(offset)
	} else {
		price = p.mid.Add(offset)
	}
	if price.Sign() < 0 {
		price = decimal.Zero
	}

	return &common.Order{
		OrderID:     fmt.Sprintf("GEN-%d-%d", p.cfg.Seed, p.nextSeq),
		Side:        side,
		Type:        common.Limit,
		Price:       price,
		Quantity:    qty,
		TimeInForce: common.GTC,
		Timestamp:   int64(elapsed * float64(1e9)),
		OwnerID:     "generator",
	}
}

// drawQuantity samples a log-normal quantity and floors it to a positive
// integer (minimum 1).
func (p *Poisson) drawQuantity() decimal.Decimal {
	z := p.rng.NormFloat64()
	raw := math.Exp(p.cfg.QuantityMu + p.cfg.QuantitySigma*z)
	n := math.Floor(raw)
	if n < 1 {
		n = 1
	}
	return decimal.NewFromFloat(n)
}
