// Package sizing resolves a signal's volume against the venue's lot
// constraints.
package sizing

import (
	"context"
	"log/slog"

	"lia_trading/internal/broker"
	"lia_trading/internal/event"
	"lia_trading/pkg/quant"
)

// Sizer quantizes a fixed nominal volume to the venue's minimum and step.
type Sizer struct {
	queue       chan<- event.Event
	venue       broker.Venue
	fixedVolume float64
}

func NewSizer(queue chan<- event.Event, venue broker.Venue, fixedVolume float64) *Sizer {
	return &Sizer{queue: queue, venue: venue, fixedVolume: fixedVolume}
}

// OnSignal resolves the volume for one signal and emits a SizingEvent.
// A symbol whose spec is missing or malformed produces nothing: a broken
// instrument must never turn into an order.
func (s *Sizer) OnSignal(ctx context.Context, ev event.SignalEvent) {
	spec, err := s.venue.SymbolSpec(ctx, ev.Symbol)
	if err != nil {
		slog.Warn("sizing: symbol spec unavailable",
			slog.String("symbol", ev.Symbol),
			slog.Any("error", err),
		)
		return
	}

	volume := s.fixedVolume
	if volume < spec.MinVolume {
		volume = spec.MinVolume
	}
	volume = quant.RoundToStep(volume, spec.VolumeStep)

	if volume <= 0 || volume < spec.MinVolume {
		slog.Warn("sizing: quantized volume below venue minimum",
			slog.String("symbol", ev.Symbol),
			slog.Float64("volume", volume),
			slog.Float64("min", spec.MinVolume),
			slog.Float64("step", spec.VolumeStep),
		)
		return
	}

	s.queue <- event.SizingEvent{SignalEvent: ev, Volume: volume}

	slog.Info("position sized",
		slog.String("symbol", ev.Symbol),
		slog.String("side", string(ev.Side)),
		slog.Float64("volume", volume),
	)
}
