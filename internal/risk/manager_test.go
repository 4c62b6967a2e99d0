package risk_test

import (
	"context"
	"testing"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
	"lia_trading/internal/event"
	"lia_trading/internal/fx"
	"lia_trading/internal/portfolio"
	"lia_trading/internal/risk"
)

type riskVenue struct {
	equity    float64
	currency  string
	positions []domain.Position
	specs     map[string]domain.SymbolSpec
}

func (v *riskVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{}, nil
}

func (v *riskVenue) OpenPositions(ctx context.Context, strategyID int64, symbol string) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range v.positions {
		if strategyID != 0 && p.StrategyID != strategyID {
			continue
		}
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (v *riskVenue) AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	return domain.AccountSnapshot{Equity: v.equity, Currency: v.currency}, nil
}

func (v *riskVenue) SymbolSpec(ctx context.Context, symbol string) (domain.SymbolSpec, error) {
	spec, ok := v.specs[symbol]
	if !ok {
		return domain.SymbolSpec{}, broker.ErrUnavailable
	}
	return spec, nil
}

func (v *riskVenue) DealHistory(ctx context.Context, orderID int64) (domain.Deal, error) {
	return domain.Deal{}, broker.ErrUnavailable
}

type tickData struct {
	ticks map[string]domain.Tick
}

func (d *tickData) LatestClosedBar(ctx context.Context, symbol, timeframe string) (domain.Bar, error) {
	return domain.Bar{}, broker.ErrUnavailable
}

func (d *tickData) LatestClosedBars(ctx context.Context, symbol, timeframe string, count int) ([]domain.Bar, error) {
	return nil, broker.ErrUnavailable
}

func (d *tickData) LatestTick(ctx context.Context, symbol string) (domain.Tick, error) {
	tick, ok := d.ticks[symbol]
	if !ok {
		return domain.Tick{}, broker.ErrUnavailable
	}
	return tick, nil
}

func usdSpec() domain.SymbolSpec {
	return domain.SymbolSpec{MinVolume: 0.01, VolumeStep: 0.01, ContractSize: 100000, QuoteCurrency: "USD"}
}

func sized(symbol string, side domain.Side, volume float64) event.SizingEvent {
	return event.SizingEvent{
		SignalEvent: event.SignalEvent{
			Symbol:     symbol,
			Side:       side,
			Kind:       domain.Market,
			StrategyID: 12345,
		},
		Volume: volume,
	}
}

func admit(t *testing.T, venue *riskVenue, data *tickData, maxLeverage float64, ev event.SizingEvent) bool {
	t.Helper()
	queue := make(chan event.Event, 2)
	port := portfolio.New(venue, 12345)
	mgr := risk.NewManager(queue, venue, data, port, fx.NewConverter(data), maxLeverage)
	mgr.OnSizing(context.Background(), ev)
	return len(queue) == 1
}

func TestManager_ApprovesAtExactBoundary(t *testing.T) {
	// Candidate value 0.3 * 100000 * 1.0 = 30000; 30000/10000 = 3.0 which
	// is exactly the limit and must pass.
	venue := &riskVenue{equity: 10000, currency: "USD", specs: map[string]domain.SymbolSpec{"EURUSD": usdSpec()}}
	data := &tickData{ticks: map[string]domain.Tick{"EURUSD": {Bid: 1.0, Ask: 1.0001}}}

	if !admit(t, venue, data, 3.0, sized("EURUSD", domain.Buy, 0.3)) {
		t.Fatal("projected leverage exactly at the limit must be approved")
	}
}

func TestManager_RejectsJustOverBoundary(t *testing.T) {
	venue := &riskVenue{equity: 10000, currency: "USD", specs: map[string]domain.SymbolSpec{"EURUSD": usdSpec()}}
	data := &tickData{ticks: map[string]domain.Tick{"EURUSD": {Bid: 1.0, Ask: 1.0001}}}

	if admit(t, venue, data, 3.0, sized("EURUSD", domain.Buy, 0.30001)) {
		t.Fatal("projected leverage over the limit must be rejected")
	}
}

func TestManager_ExistingExposureCounts(t *testing.T) {
	venue := &riskVenue{
		equity:   10000,
		currency: "USD",
		positions: []domain.Position{
			{Ticket: 1, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.2, StrategyID: 12345},
		},
		specs: map[string]domain.SymbolSpec{"EURUSD": usdSpec()},
	}
	data := &tickData{ticks: map[string]domain.Tick{"EURUSD": {Bid: 1.0, Ask: 1.0001}}}

	// 20000 existing + 15000 candidate = 35000 over 10000 equity.
	if admit(t, venue, data, 3.0, sized("EURUSD", domain.Buy, 0.15)) {
		t.Fatal("existing exposure plus candidate over the limit must be rejected")
	}
	// 20000 + 10000 = 30000 sits exactly on the limit.
	if !admit(t, venue, data, 3.0, sized("EURUSD", domain.Buy, 0.1)) {
		t.Fatal("existing exposure plus candidate at the limit must pass")
	}
}

func TestManager_ShortExposureOffsetsLong(t *testing.T) {
	// A short position carries negative sign, so an opposing candidate
	// reduces net exposure instead of adding to it.
	venue := &riskVenue{
		equity:   10000,
		currency: "USD",
		positions: []domain.Position{
			{Ticket: 1, Symbol: "EURUSD", Side: domain.Sell, Volume: 0.3, StrategyID: 12345},
		},
		specs: map[string]domain.SymbolSpec{"EURUSD": usdSpec()},
	}
	data := &tickData{ticks: map[string]domain.Tick{"EURUSD": {Bid: 1.0, Ask: 1.0001}}}

	if !admit(t, venue, data, 3.0, sized("EURUSD", domain.Buy, 0.3)) {
		t.Fatal("fully offsetting candidate must be approved")
	}
}

func TestManager_NonPositiveEquityRejects(t *testing.T) {
	data := &tickData{ticks: map[string]domain.Tick{"EURUSD": {Bid: 1.0, Ask: 1.0001}}}

	for _, equity := range []float64{0, -500} {
		venue := &riskVenue{equity: equity, currency: "USD", specs: map[string]domain.SymbolSpec{"EURUSD": usdSpec()}}
		if admit(t, venue, data, 3.0, sized("EURUSD", domain.Buy, 0.01)) {
			t.Fatalf("equity %v must reject every order", equity)
		}
	}
}

func TestManager_MissingFXQuoteRejects(t *testing.T) {
	// EURJPY is quoted, but the USDJPY cross needed to convert its JPY
	// value into the USD account currency is not. The valuation fails
	// closed and the order must not pass.
	jpySpec := domain.SymbolSpec{MinVolume: 0.01, VolumeStep: 0.01, ContractSize: 100000, QuoteCurrency: "JPY"}
	venue := &riskVenue{equity: 10000, currency: "USD", specs: map[string]domain.SymbolSpec{"EURJPY": jpySpec}}
	data := &tickData{ticks: map[string]domain.Tick{"EURJPY": {Bid: 162.0, Ask: 162.03}}}

	if admit(t, venue, data, 3.0, sized("EURJPY", domain.Buy, 0.01)) {
		t.Fatal("order that cannot be valued must be rejected")
	}
}

func TestManager_ConvertsQuoteCurrency(t *testing.T) {
	// USDJPY volume 0.02: 2000 units * 150 JPY = 300000 JPY = 2000 USD at
	// the USDJPY bid of 150. 2000/10000 = 0.2 leverage, approved.
	jpySpec := domain.SymbolSpec{MinVolume: 0.01, VolumeStep: 0.01, ContractSize: 100000, QuoteCurrency: "JPY"}
	venue := &riskVenue{equity: 10000, currency: "USD", specs: map[string]domain.SymbolSpec{"USDJPY": jpySpec}}
	data := &tickData{ticks: map[string]domain.Tick{"USDJPY": {Bid: 150.0, Ask: 150.02}}}

	if !admit(t, venue, data, 3.0, sized("USDJPY", domain.Buy, 0.02)) {
		t.Fatal("convertible JPY exposure within the limit must be approved")
	}
}
