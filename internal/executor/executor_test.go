package executor_test

import (
	"context"
	"testing"
	"time"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
	"lia_trading/internal/event"
	"lia_trading/internal/executor"
)

// fakeClock advances a fixed timeline and records every sleep.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// scriptVenue replays canned answers and records submissions.
type scriptVenue struct {
	result    domain.OrderResult
	submitErr error
	submitted []domain.OrderRequest

	positions []domain.Position

	deal          domain.Deal
	dealReadyPoll int // 0 means never
	dealPolls     int
}

func (v *scriptVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	v.submitted = append(v.submitted, req)
	return v.result, v.submitErr
}

func (v *scriptVenue) OpenPositions(ctx context.Context, strategyID int64, symbol string) ([]domain.Position, error) {
	return v.positions, nil
}

func (v *scriptVenue) AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	return domain.AccountSnapshot{Equity: 10000, Currency: "USD"}, nil
}

func (v *scriptVenue) SymbolSpec(ctx context.Context, symbol string) (domain.SymbolSpec, error) {
	return domain.SymbolSpec{MinVolume: 0.01, VolumeStep: 0.01, ContractSize: 100000, QuoteCurrency: "USD"}, nil
}

func (v *scriptVenue) DealHistory(ctx context.Context, orderID int64) (domain.Deal, error) {
	v.dealPolls++
	if v.dealReadyPoll > 0 && v.dealPolls >= v.dealReadyPoll {
		return v.deal, nil
	}
	return domain.Deal{}, broker.ErrUnavailable
}

type fixedTick struct {
	tick domain.Tick
}

func (d *fixedTick) LatestClosedBar(ctx context.Context, symbol, timeframe string) (domain.Bar, error) {
	return domain.Bar{}, broker.ErrUnavailable
}

func (d *fixedTick) LatestClosedBars(ctx context.Context, symbol, timeframe string, count int) ([]domain.Bar, error) {
	return nil, broker.ErrUnavailable
}

func (d *fixedTick) LatestTick(ctx context.Context, symbol string) (domain.Tick, error) {
	return d.tick, nil
}

func marketOrder(side domain.Side) event.OrderEvent {
	return event.OrderEvent{SizingEvent: event.SizingEvent{
		SignalEvent: event.SignalEvent{
			Symbol:      "EURUSD",
			Side:        side,
			Kind:        domain.Market,
			TargetPrice: 1.1000,
			StrategyID:  12345,
			StopLoss:    1.0950,
			TakeProfit:  1.1100,
		},
		Volume: 0.01,
	}}
}

func TestExecutor_MarketFillConfirmedFromDealHistory(t *testing.T) {
	dealTime := time.Date(2026, 1, 5, 9, 30, 2, 0, time.UTC)
	venue := &scriptVenue{
		result:        domain.OrderResult{Accepted: true, OrderID: 42, FillPrice: 1.10002},
		deal:          domain.Deal{OrderID: 42, Time: dealTime},
		dealReadyPoll: 3,
	}
	clock := &fakeClock{now: time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1000, Ask: 1.10002}}, clock)

	exec.OnOrder(context.Background(), marketOrder(domain.Buy))

	if len(venue.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(venue.submitted))
	}
	req := venue.submitted[0]
	if req.Price != 1.10002 {
		t.Errorf("BUY must submit at the ask, got %v", req.Price)
	}
	if req.DeviationPoints != 10 {
		t.Errorf("market order deviation must be 10 points, got %d", req.DeviationPoints)
	}
	if req.GoodTillCancel {
		t.Error("market orders must not be GTC")
	}

	if len(clock.sleeps) != 3 {
		t.Errorf("expected 3 confirmation waits, got %d", len(clock.sleeps))
	}

	select {
	case ev := <-queue:
		fill, ok := ev.(event.ExecutionEvent)
		if !ok {
			t.Fatalf("expected ExecutionEvent, got %T", ev)
		}
		if !fill.FillTime.Equal(dealTime) {
			t.Errorf("fill time must come from the deal record: want %v, got %v", dealTime, fill.FillTime)
		}
		if fill.FillPrice != 1.10002 {
			t.Errorf("expected fill price 1.10002, got %v", fill.FillPrice)
		}
	default:
		t.Fatal("expected an execution event")
	}
}

func TestExecutor_ConfirmationTimeoutFallsBackToSubmissionTime(t *testing.T) {
	submitted := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	venue := &scriptVenue{
		result: domain.OrderResult{Accepted: true, OrderID: 7, FillPrice: 1.1},
		// dealReadyPoll 0: the deal never shows up.
	}
	clock := &fakeClock{now: submitted}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1, Ask: 1.1001}}, clock)

	exec.OnOrder(context.Background(), marketOrder(domain.Sell))

	if len(clock.sleeps) != 5 {
		t.Errorf("expected exactly 5 confirmation waits, got %d", len(clock.sleeps))
	}
	for i, d := range clock.sleeps {
		if d != 500*time.Millisecond {
			t.Errorf("wait %d: expected 500ms, got %v", i, d)
		}
	}

	fill := (<-queue).(event.ExecutionEvent)
	if !fill.FillTime.Equal(submitted) {
		t.Errorf("fallback fill time must be the submission time: want %v, got %v", submitted, fill.FillTime)
	}
}

func TestExecutor_SellSubmitsAtBid(t *testing.T) {
	venue := &scriptVenue{result: domain.OrderResult{Accepted: true, OrderID: 1, FillPrice: 1.1}, dealReadyPoll: 1}
	clock := &fakeClock{now: time.Now()}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1000, Ask: 1.1002}}, clock)

	exec.OnOrder(context.Background(), marketOrder(domain.Sell))

	if venue.submitted[0].Price != 1.1000 {
		t.Errorf("SELL must submit at the bid, got %v", venue.submitted[0].Price)
	}
}

func TestExecutor_RejectionIsTerminal(t *testing.T) {
	venue := &scriptVenue{result: domain.OrderResult{RejectReason: "off quotes"}}
	clock := &fakeClock{now: time.Now()}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1, Ask: 1.1001}}, clock)

	exec.OnOrder(context.Background(), marketOrder(domain.Buy))

	if len(queue) != 0 {
		t.Fatal("a rejected order must not emit an event")
	}
	if len(venue.submitted) != 1 {
		t.Fatalf("a rejected order must not be resubmitted, got %d submissions", len(venue.submitted))
	}
	if len(clock.sleeps) != 0 {
		t.Error("a rejected order must not enter confirmation")
	}
}

func TestExecutor_PendingOrderPlacement(t *testing.T) {
	venue := &scriptVenue{result: domain.OrderResult{Accepted: true, OrderID: 9}}
	clock := &fakeClock{now: time.Now()}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1, Ask: 1.1001}}, clock)

	ev := marketOrder(domain.Buy)
	ev.Kind = domain.Limit
	ev.TargetPrice = 1.0900
	exec.OnOrder(context.Background(), ev)

	req := venue.submitted[0]
	if req.Price != 1.0900 {
		t.Errorf("pending order must submit at the target price, got %v", req.Price)
	}
	if !req.GoodTillCancel {
		t.Error("pending orders must be GTC")
	}
	if req.DeviationPoints != 0 {
		t.Errorf("pending orders take no deviation, got %d", req.DeviationPoints)
	}

	select {
	case out := <-queue:
		if _, ok := out.(event.PendingPlacedEvent); !ok {
			t.Fatalf("expected PendingPlacedEvent, got %T", out)
		}
	default:
		t.Fatal("expected a pending-placed event")
	}
}

func TestExecutor_CloseByTicket(t *testing.T) {
	venue := &scriptVenue{
		result:        domain.OrderResult{Accepted: true, OrderID: 50, FillPrice: 1.1005},
		dealReadyPoll: 1,
		deal:          domain.Deal{OrderID: 50, Time: time.Now()},
		positions: []domain.Position{
			{Ticket: 3, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.02, StrategyID: 12345},
		},
	}
	clock := &fakeClock{now: time.Now()}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1005, Ask: 1.1007}}, clock)

	if err := exec.CloseByTicket(context.Background(), 3); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	req := venue.submitted[0]
	if req.Side != domain.Sell {
		t.Errorf("closing a long must sell, got %s", req.Side)
	}
	if req.Volume != 0.02 {
		t.Errorf("close must use the full position volume, got %v", req.Volume)
	}
	if req.Price != 1.1005 {
		t.Errorf("closing sell must submit at the bid, got %v", req.Price)
	}

	fill := (<-queue).(event.ExecutionEvent)
	if fill.Side != domain.Sell || fill.Volume != 0.02 {
		t.Errorf("unexpected execution event: %+v", fill)
	}
}

func TestExecutor_CloseByTicketUnknownTicket(t *testing.T) {
	venue := &scriptVenue{}
	clock := &fakeClock{now: time.Now()}
	queue := make(chan event.Event, 2)
	exec := executor.NewExecutor(queue, venue, &fixedTick{tick: domain.Tick{Bid: 1.1, Ask: 1.1001}}, clock)

	if err := exec.CloseByTicket(context.Background(), 99); err == nil {
		t.Fatal("expected an error for an unknown ticket")
	}
	if len(venue.submitted) != 0 {
		t.Fatal("an unknown ticket must not submit anything")
	}
}
