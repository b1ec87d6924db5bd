// Command backtest wires a synthetic Poisson order flow through the replay
// driver and a selected execution strategy, then prints the resulting
// execution-quality and market-metric report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"matchcore/internal/backtest"
	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/generator"
	"matchcore/internal/replay"
	"matchcore/internal/strategy"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	symbol := flag.String("symbol", "SIM", "ticker symbol to simulate")
	seed := flag.Int64("seed", 1, "generator PRNG seed")
	duration := flag.Float64("duration", 600, "simulated duration in seconds")
	arrivalRate := flag.Float64("arrival-rate", 5, "mean background order arrivals per second")
	basePrice := flag.String("base-price", "100.00", "starting mid price")
	tickSize := flag.String("tick-size", "0.01", "minimum price increment")

	stratName := flag.String("strategy", "twap", "strategy to run: twap, vwap, pov, posting")
	side := flag.String("side", "buy", "parent order side: buy or sell")
	target := flag.String("target", "5000", "parent order target quantity")
	numSlices := flag.Int("slices", 10, "TWAP slice count")
	aggression := flag.Float64("aggression", 0.5, "TWAP pricing aggression in [0,1]")
	participationRate := flag.Float64("participation-rate", 0.1, "POV participation rate")
	postingFraction := flag.Float64("posting-fraction", 0.2, "Posting spread-capture fraction in [0,1]")

	speedMultiplier := flag.Float64("speed", 0, "replay pacing: 0 runs as fast as possible")
	snapshotInterval := flag.Float64("snapshot-interval", 1, "simulated seconds between snapshots")

	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	orderSide := common.Buy
	if *side == "sell" {
		orderSide = common.Sell
	}

	genCfg := generator.Config{
		Symbol:          *symbol,
		BasePrice:       decimal.RequireFromString(*basePrice),
		TickSize:        decimal.RequireFromString(*tickSize),
		ArrivalRate:     *arrivalRate,
		CancelProb:      0.1,
		QuantityMu:      4.0,
		QuantitySigma:   0.5,
		MeanSpreadTicks: 3.0,
		Volatility:      0.1,
		Seed:            *seed,
		DurationSeconds: *duration,
	}
	events := generator.New(genCfg).Generate()
	source := replay.FromGenerator(events)

	book := engine.New(*symbol)
	strat := buildStrategy(*stratName, decimal.RequireFromString(*target), orderSide, *numSlices, *duration, *aggression, *participationRate, *postingFraction)

	cfg := backtest.Config{
		Replay: replay.Config{
			SpeedMultiplier:         *speedMultiplier,
			SnapshotIntervalSeconds: *snapshotInterval,
		},
		AnnualizationFactor: 252 * 6.5 * 3600,
	}
	bt := backtest.New(book, strat, source, cfg)

	results, err := bt.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	printResults(results)
}

func buildStrategy(name string, target decimal.Decimal, side common.Side, numSlices int, duration, aggression, participationRate, postingFraction float64) strategy.Strategy {
	switch name {
	case "vwap":
		return strategy.NewVWAP(target, side, duration, nil)
	case "pov":
		return strategy.NewPOV(target, side, participationRate)
	case "posting":
		return strategy.NewPosting(target, side, postingFraction, decimal.Zero)
	default:
		return strategy.NewTWAP(target, side, numSlices, duration, aggression)
	}
}

func printResults(r backtest.Results) {
	fmt.Printf("target quantity:     %s\n", r.TargetQuantity.String())
	fmt.Printf("executed quantity:   %s\n", r.ExecutedQuantity.String())
	fmt.Printf("fill rate:           %.4f\n", r.FillRate)
	fmt.Printf("strategy vwap:       %s\n", r.StrategyVWAP.String())
	fmt.Printf("arrival price:       %s\n", r.ArrivalPrice.String())
	fmt.Printf("slippage:            %s (%.2f bps)\n", r.Slippage.String(), r.SlippageBps)
	fmt.Printf("child orders/fills:  %d/%d\n", r.ChildOrderCount, r.FillCount)
	fmt.Printf("mean spread:         %.6f\n", r.Market.MeanSpread)
	fmt.Printf("mean depth imbalance: %.6f\n", r.Market.MeanDepthImbalance)
	fmt.Printf("order flow imbalance: %.6f\n", r.Market.OrderFlowImbalance)
	fmt.Printf("market vwap:         %.6f\n", r.Market.VWAP)
	fmt.Printf("realized volatility: %.6f\n", r.Market.RealizedVolatility)
	fmt.Printf("trade count:         %d\n", r.Market.TradeCount)
}
