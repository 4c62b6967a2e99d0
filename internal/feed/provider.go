// Package feed turns the pull-based market data gateway into DataEvents.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lia_trading/internal/broker"
	"lia_trading/internal/event"
)

// Provider watches a symbol list and enqueues a DataEvent whenever a new
// closed bar appears. The director calls CheckForNewData on every idle
// loop iteration, so detection latency is bounded by the loop pause.
type Provider struct {
	queue       chan<- event.Event
	data        broker.MarketData
	symbols     []string
	timeframe   string
	lastBarTime map[string]time.Time
}

func NewProvider(queue chan<- event.Event, data broker.MarketData, symbols []string, timeframe string) *Provider {
	last := make(map[string]time.Time, len(symbols))
	for _, symbol := range symbols {
		last[symbol] = time.Time{}
	}
	return &Provider{
		queue:       queue,
		data:        data,
		symbols:     symbols,
		timeframe:   timeframe,
		lastBarTime: last,
	}
}

// CheckForNewData probes each watched symbol for a newly closed bar and
// enqueues at most one DataEvent per symbol per call.
func (p *Provider) CheckForNewData(ctx context.Context) {
	for _, symbol := range p.symbols {
		bar, err := p.data.LatestClosedBar(ctx, symbol, p.timeframe)
		if err != nil {
			// No data yet is normal; the next iteration retries.
			if !errors.Is(err, broker.ErrUnavailable) {
				slog.Warn("feed: bar fetch failed",
					slog.String("symbol", symbol),
					slog.Any("error", err),
				)
			}
			continue
		}

		if !bar.Time.After(p.lastBarTime[symbol]) {
			continue
		}
		p.lastBarTime[symbol] = bar.Time
		p.queue <- event.DataEvent{Symbol: symbol, Bar: bar}
	}
}
