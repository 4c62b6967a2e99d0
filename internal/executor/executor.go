// Package executor submits approved orders to the venue and drives each
// one through a small state machine: submitted is the entry state,
// filled, pending and failed are terminal.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
	"lia_trading/internal/event"
	"lia_trading/internal/infra"
)

// State tracks one order through the execution stage.
type State uint8

const (
	StateSubmitted State = iota
	StateConfirming
	StateFilled
	StatePending
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateConfirming:
		return "confirming"
	case StateFilled:
		return "filled"
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// confirmAttempts bounds how many times the deal history is polled
	// for an authoritative fill timestamp before falling back to the
	// local submission time.
	confirmAttempts = 5
	confirmDelay    = 500 * time.Millisecond

	// marketDeviation is the slippage tolerance in points for market
	// orders; resting orders take none.
	marketDeviation = 10

	orderComment = "lia_trading"
)

// Executor is the execution stage.
type Executor struct {
	queue chan<- event.Event
	venue broker.Venue
	data  broker.MarketData
	clock infra.Clock
}

func NewExecutor(queue chan<- event.Event, venue broker.Venue, data broker.MarketData, clock infra.Clock) *Executor {
	return &Executor{queue: queue, venue: venue, data: data, clock: clock}
}

// OnOrder routes a risk-approved order by kind.
func (e *Executor) OnOrder(ctx context.Context, ev event.OrderEvent) {
	if ev.Kind == domain.Market {
		e.executeMarket(ctx, ev)
		return
	}
	if ev.Kind.IsPending() {
		e.placePending(ctx, ev)
		return
	}
	slog.Error("executor: unsupported order kind",
		slog.String("symbol", ev.Symbol),
		slog.String("kind", string(ev.Kind)),
	)
}

func (e *Executor) executeMarket(ctx context.Context, ev event.OrderEvent) {
	tick, err := e.data.LatestTick(ctx, ev.Symbol)
	if err != nil {
		slog.Warn("executor: no quote for market order",
			slog.String("symbol", ev.Symbol),
			slog.Any("error", err),
		)
		return
	}

	price := tick.Ask
	if ev.Side == domain.Sell {
		price = tick.Bid
	}

	req := domain.OrderRequest{
		Symbol:          ev.Symbol,
		Side:            ev.Side,
		Kind:            domain.Market,
		Volume:          ev.Volume,
		Price:           price,
		StopLoss:        ev.StopLoss,
		TakeProfit:      ev.TakeProfit,
		DeviationPoints: marketDeviation,
		StrategyID:      ev.StrategyID,
		Comment:         orderComment,
	}

	submitted := e.clock.Now()
	res, err := e.venue.SubmitOrder(ctx, req)
	if err != nil || !res.Accepted {
		// Terminal: preconditions may have changed, never resubmit.
		reason := res.RejectReason
		if err != nil {
			reason = err.Error()
		}
		slog.Error("executor: market order failed",
			slog.String("symbol", ev.Symbol),
			slog.String("side", string(ev.Side)),
			slog.String("state", StateFailed.String()),
			slog.String("reason", reason),
		)
		return
	}

	fillTime := e.confirmFill(ctx, res.OrderID, submitted)

	slog.Info("executor: market order filled",
		slog.String("symbol", ev.Symbol),
		slog.String("side", string(ev.Side)),
		slog.Int64("order_id", res.OrderID),
		slog.Float64("price", res.FillPrice),
		slog.String("state", StateFilled.String()),
	)

	e.queue <- event.ExecutionEvent{
		Symbol:    ev.Symbol,
		Side:      ev.Side,
		FillPrice: res.FillPrice,
		FillTime:  fillTime,
		Volume:    ev.Volume,
	}
}

func (e *Executor) placePending(ctx context.Context, ev event.OrderEvent) {
	req := domain.OrderRequest{
		Symbol:         ev.Symbol,
		Side:           ev.Side,
		Kind:           ev.Kind,
		Volume:         ev.Volume,
		Price:          ev.TargetPrice,
		StopLoss:       ev.StopLoss,
		TakeProfit:     ev.TakeProfit,
		StrategyID:     ev.StrategyID,
		Comment:        orderComment,
		GoodTillCancel: true,
	}

	res, err := e.venue.SubmitOrder(ctx, req)
	if err != nil || !res.Accepted {
		reason := res.RejectReason
		if err != nil {
			reason = err.Error()
		}
		slog.Error("executor: pending order failed",
			slog.String("symbol", ev.Symbol),
			slog.String("kind", string(ev.Kind)),
			slog.String("state", StateFailed.String()),
			slog.String("reason", reason),
		)
		return
	}

	slog.Info("executor: pending order placed",
		slog.String("symbol", ev.Symbol),
		slog.String("kind", string(ev.Kind)),
		slog.Int64("order_id", res.OrderID),
		slog.Float64("price", ev.TargetPrice),
		slog.String("state", StatePending.String()),
	)

	e.queue <- event.PendingPlacedEvent{OrderEvent: ev}
}

// confirmFill polls the venue's deal history for the authoritative fill
// timestamp, waiting confirmDelay before each of confirmAttempts polls.
// If the deal never appears, the local submission time stands in.
func (e *Executor) confirmFill(ctx context.Context, orderID int64, submitted time.Time) time.Time {
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		e.clock.Sleep(confirmDelay)

		deal, err := e.venue.DealHistory(ctx, orderID)
		if err == nil {
			return deal.Time
		}
		if !errors.Is(err, broker.ErrUnavailable) {
			slog.Warn("executor: deal history lookup failed",
				slog.Int64("order_id", orderID),
				slog.Any("error", err),
			)
		}
	}

	slog.Warn("executor: deal confirmation timed out, using submission time",
		slog.Int64("order_id", orderID),
	)
	return submitted
}

// CloseByTicket closes an open position with an opposing market order for
// its full volume. This administrative path is not reachable through the
// event queue; fills route through the same confirmation logic as any
// other market order.
func (e *Executor) CloseByTicket(ctx context.Context, ticket int64) error {
	positions, err := e.venue.OpenPositions(ctx, 0, "")
	if err != nil {
		return fmt.Errorf("executor: list positions: %w", err)
	}

	var pos *domain.Position
	for i := range positions {
		if positions[i].Ticket == ticket {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		return fmt.Errorf("executor: no open position with ticket %d", ticket)
	}

	tick, err := e.data.LatestTick(ctx, pos.Symbol)
	if err != nil {
		return fmt.Errorf("executor: quote for %s: %w", pos.Symbol, err)
	}

	closeSide := pos.Side.Opposite()
	price := tick.Bid
	if closeSide == domain.Buy {
		price = tick.Ask
	}

	req := domain.OrderRequest{
		Symbol:          pos.Symbol,
		Side:            closeSide,
		Kind:            domain.Market,
		Volume:          pos.Volume,
		Price:           price,
		DeviationPoints: marketDeviation,
		StrategyID:      pos.StrategyID,
		Comment:         orderComment + " close",
	}

	submitted := e.clock.Now()
	res, err := e.venue.SubmitOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("executor: close ticket %d: %w", ticket, err)
	}
	if !res.Accepted {
		return fmt.Errorf("executor: close ticket %d rejected: %s", ticket, res.RejectReason)
	}

	fillTime := e.confirmFill(ctx, res.OrderID, submitted)

	slog.Info("executor: position closed",
		slog.Int64("ticket", ticket),
		slog.String("symbol", pos.Symbol),
		slog.Float64("volume", pos.Volume),
	)

	e.queue <- event.ExecutionEvent{
		Symbol:    pos.Symbol,
		Side:      closeSide,
		FillPrice: res.FillPrice,
		FillTime:  fillTime,
		Volume:    pos.Volume,
	}
	return nil
}
