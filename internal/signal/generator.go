// Package signal derives trading signals from an RSI oscillator: oversold
// produces a BUY, overbought produces a SELL, and a symbol with an open
// position under this strategy never produces anything.
package signal

import (
	"context"
	"errors"
	"log/slog"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
	"lia_trading/internal/event"
	"lia_trading/internal/portfolio"
	"lia_trading/pkg/quant"
)

// historyBuffer is the number of extra bars fetched beyond the RSI period
// so a few missing bars at the gateway don't starve the oscillator.
const historyBuffer = 10

// Generator is the signal stage.
type Generator struct {
	queue      chan<- event.Event
	data       broker.MarketData
	portfolio  *portfolio.Portfolio
	strategyID int64
	timeframe  string

	period   int
	upper    float64
	lower    float64
	slPoints int
	tpPoints int
}

// Params carries the strategy settings. Threshold ordering is validated at
// configuration time, not here.
type Params struct {
	StrategyID int64
	Timeframe  string
	RSIPeriod  int
	RSIUpper   float64
	RSILower   float64
	SLPoints   int
	TPPoints   int
}

func NewGenerator(queue chan<- event.Event, data broker.MarketData, port *portfolio.Portfolio, p Params) *Generator {
	return &Generator{
		queue:      queue,
		data:       data,
		portfolio:  port,
		strategyID: p.StrategyID,
		timeframe:  p.Timeframe,
		period:     p.RSIPeriod,
		upper:      p.RSIUpper,
		lower:      p.RSILower,
		slPoints:   p.SLPoints,
		tpPoints:   p.TPPoints,
	}
}

// OnData evaluates one newly closed bar and emits at most one SignalEvent.
func (g *Generator) OnData(ctx context.Context, ev event.DataEvent) {
	bars, err := g.data.LatestClosedBars(ctx, ev.Symbol, g.timeframe, g.period+historyBuffer)
	if err != nil {
		if !errors.Is(err, broker.ErrUnavailable) {
			slog.Warn("signal: history fetch failed",
				slog.String("symbol", ev.Symbol),
				slog.Any("error", err),
			)
		}
		return
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	rsi, ok := RSI(closes, g.period)
	if !ok {
		// Insufficient history is not an error; the next bar retries.
		return
	}

	// One open position per symbol per strategy at any time.
	count, err := g.portfolio.CountBySymbol(ctx, ev.Symbol)
	if err != nil {
		slog.Warn("signal: position lookup failed",
			slog.String("symbol", ev.Symbol),
			slog.Any("error", err),
		)
		return
	}
	if count.Total > 0 {
		return
	}

	var side domain.Side
	switch {
	case rsi < g.lower:
		side = domain.Buy
	case rsi > g.upper:
		side = domain.Sell
	default:
		return
	}

	price := ev.Bar.Close
	if tick, err := g.data.LatestTick(ctx, ev.Symbol); err == nil {
		price = tick.Bid
	}

	offsetSL := quant.PointsToOffset(g.slPoints, ev.Symbol)
	offsetTP := quant.PointsToOffset(g.tpPoints, ev.Symbol)
	var sl, tp float64
	if side == domain.Buy {
		sl = price - offsetSL
		tp = price + offsetTP
	} else {
		sl = price + offsetSL
		tp = price - offsetTP
	}

	g.queue <- event.SignalEvent{
		Symbol:      ev.Symbol,
		Side:        side,
		Kind:        domain.Market,
		TargetPrice: price,
		StrategyID:  g.strategyID,
		StopLoss:    sl,
		TakeProfit:  tp,
	}

	slog.Info("signal generated",
		slog.String("symbol", ev.Symbol),
		slog.String("side", string(side)),
		slog.Float64("rsi", rsi),
		slog.Float64("sl", sl),
		slog.Float64("tp", tp),
	)
}
