// Package engine hosts the Director, the single-threaded dispatch loop at
// the centre of the pipeline. One event is fully processed, including any
// blocking venue or gateway call, before the next is dequeued, which is
// what makes the one-position-per-symbol and single-admission invariants
// hold without locks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lia_trading/internal/event"
	"lia_trading/internal/executor"
	"lia_trading/internal/feed"
	"lia_trading/internal/infra"
	"lia_trading/internal/journal"
	"lia_trading/internal/notify"
	"lia_trading/internal/risk"
	"lia_trading/internal/signal"
	"lia_trading/internal/sizing"
)

// ErrProtocolViolation stops the loop: an unknown event variant or a nil
// dequeue result means the pipeline's closed event set was broken.
var ErrProtocolViolation = errors.New("engine: event protocol violation")

// loopPause bounds CPU usage between iterations; it is the sole
// concurrency throttle.
const loopPause = 10 * time.Millisecond

// Director owns the event queue and routes each event to exactly one
// stage by an exhaustive match over the closed variant set.
type Director struct {
	queue    chan event.Event
	provider *feed.Provider
	signals  *signal.Generator
	sizer    *sizing.Sizer
	risk     *risk.Manager
	executor *executor.Executor
	notifier notify.Notifier
	journal  *journal.Journal // nil disables the audit log
	clock    infra.Clock
	pause    time.Duration
}

func NewDirector(
	queue chan event.Event,
	provider *feed.Provider,
	signals *signal.Generator,
	sizer *sizing.Sizer,
	riskMgr *risk.Manager,
	exec *executor.Executor,
	notifier notify.Notifier,
	jrnl *journal.Journal,
	clock infra.Clock,
) *Director {
	return &Director{
		queue:    queue,
		provider: provider,
		signals:  signals,
		sizer:    sizer,
		risk:     riskMgr,
		executor: exec,
		notifier: notifier,
		journal:  jrnl,
		clock:    clock,
		pause:    loopPause,
	}
}

// Run executes the dispatch loop until ctx is cancelled or a protocol
// violation occurs. Cancellation is observed at loop-iteration
// granularity: the in-flight handler always finishes first.
func (d *Director) Run(ctx context.Context) error {
	slog.Info("director: main loop started", slog.Duration("pause", d.pause))

	for {
		select {
		case <-ctx.Done():
			slog.Info("director: stop requested, exiting loop")
			return nil
		default:
		}

		select {
		case ev, ok := <-d.queue:
			if !ok || ev == nil {
				slog.Error("director: nil event dequeued")
				return ErrProtocolViolation
			}
			if err := d.dispatch(ctx, ev); err != nil {
				return err
			}
		default:
			// Empty queue: probe the gateway for fresh bars.
			d.provider.CheckForNewData(ctx)
		}

		d.clock.Sleep(d.pause)
	}
}

func (d *Director) dispatch(ctx context.Context, ev event.Event) error {
	switch ev := ev.(type) {
	case event.DataEvent:
		slog.Info("DATA",
			slog.String("symbol", ev.Symbol),
			slog.Float64("close", ev.Bar.Close),
		)
		d.signals.OnData(ctx, ev)

	case event.SignalEvent:
		slog.Info("SIGNAL",
			slog.String("symbol", ev.Symbol),
			slog.String("side", string(ev.Side)),
			slog.String("kind", string(ev.Kind)),
		)
		d.sizer.OnSignal(ctx, ev)

	case event.SizingEvent:
		slog.Info("SIZING",
			slog.String("symbol", ev.Symbol),
			slog.String("side", string(ev.Side)),
			slog.Float64("volume", ev.Volume),
		)
		d.risk.OnSizing(ctx, ev)

	case event.OrderEvent:
		slog.Info("ORDER",
			slog.String("symbol", ev.Symbol),
			slog.String("side", string(ev.Side)),
			slog.Float64("volume", ev.Volume),
		)
		d.executor.OnOrder(ctx, ev)

	case event.ExecutionEvent:
		d.onExecution(ctx, ev)

	case event.PendingPlacedEvent:
		d.onPendingPlaced(ctx, ev)

	default:
		slog.Error("director: unknown event type",
			slog.String("type", fmt.Sprintf("%T", ev)),
		)
		return ErrProtocolViolation
	}
	return nil
}

func (d *Director) onExecution(ctx context.Context, ev event.ExecutionEvent) {
	slog.Info("EXECUTION",
		slog.String("symbol", ev.Symbol),
		slog.String("side", string(ev.Side)),
		slog.Float64("volume", ev.Volume),
		slog.Float64("price", ev.FillPrice),
	)

	if d.journal != nil {
		if err := d.journal.RecordExecution(ctx, ev, d.clock.Now().UnixMicro()); err != nil {
			slog.Warn("director: journal write failed", slog.Any("error", err))
		}
	}

	message := fmt.Sprintf("Fill: %s %s\nVolume: %v\nPrice: %v\nTime: %s",
		ev.Side, ev.Symbol, ev.Volume, ev.FillPrice, ev.FillTime.Format(time.RFC3339))
	d.notifier.Notify(fmt.Sprintf("MARKET ORDER - %s", ev.Symbol), message)
}

func (d *Director) onPendingPlaced(ctx context.Context, ev event.PendingPlacedEvent) {
	slog.Info("PENDING",
		slog.String("symbol", ev.Symbol),
		slog.String("side", string(ev.Side)),
		slog.String("kind", string(ev.Kind)),
		slog.Float64("price", ev.TargetPrice),
	)

	if d.journal != nil {
		if err := d.journal.RecordPending(ctx, ev, d.clock.Now().UnixMicro()); err != nil {
			slog.Warn("director: journal write failed", slog.Any("error", err))
		}
	}

	message := fmt.Sprintf("Pending order: %s %s %s\nVolume: %v\nPrice: %v\nSL: %v | TP: %v",
		ev.Side, ev.Kind, ev.Symbol, ev.Volume, ev.TargetPrice, ev.StopLoss, ev.TakeProfit)
	d.notifier.Notify(fmt.Sprintf("PENDING ORDER - %s", ev.Symbol), message)
}
