// Package risk is the admission-control gate: it projects what portfolio
// leverage would be if the candidate order were filled and approves or
// rejects. The bound is hard: exceeding it by any amount rejects the
// whole order, and a rejected order is dropped, never requeued.
package risk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
	"lia_trading/internal/event"
	"lia_trading/internal/fx"
	"lia_trading/internal/portfolio"
)

// Manager projects leverage in account currency using exact decimal
// arithmetic. Valuation failures reject the order (fail closed) rather
// than under-counting exposure.
type Manager struct {
	queue       chan<- event.Event
	venue       broker.Venue
	data        broker.MarketData
	portfolio   *portfolio.Portfolio
	converter   *fx.Converter
	maxLeverage decimal.Decimal
}

func NewManager(queue chan<- event.Event, venue broker.Venue, data broker.MarketData, port *portfolio.Portfolio, conv *fx.Converter, maxLeverageFactor float64) *Manager {
	return &Manager{
		queue:       queue,
		venue:       venue,
		data:        data,
		portfolio:   port,
		converter:   conv,
		maxLeverage: decimal.NewFromFloat(maxLeverageFactor),
	}
}

// positionValue marks a position (or candidate order) to market in the
// account currency. Short positions carry a negative sign.
func (m *Manager) positionValue(ctx context.Context, symbol string, volume float64, side domain.Side, accountCcy string) (decimal.Decimal, error) {
	spec, err := m.venue.SymbolSpec(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("symbol spec for %s: %w", symbol, err)
	}
	tick, err := m.data.LatestTick(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	units := decimal.NewFromFloat(volume).Mul(decimal.NewFromFloat(spec.ContractSize))
	quoteValue := units.Mul(decimal.NewFromFloat(tick.Bid))

	value, err := m.converter.Convert(ctx, quoteValue, spec.QuoteCurrency, accountCcy)
	if err != nil {
		return decimal.Zero, err
	}
	if side == domain.Sell {
		value = value.Neg()
	}
	return value, nil
}

// currentExposure sums the mark-to-market value of every open position of
// this strategy.
func (m *Manager) currentExposure(ctx context.Context, accountCcy string) (decimal.Decimal, error) {
	positions, err := m.portfolio.OpenPositions(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("open positions: %w", err)
	}

	exposure := decimal.Zero
	for _, pos := range positions {
		value, err := m.positionValue(ctx, pos.Symbol, pos.Volume, pos.Side, accountCcy)
		if err != nil {
			return decimal.Zero, fmt.Errorf("valuing position %d: %w", pos.Ticket, err)
		}
		exposure = exposure.Add(value)
	}
	return exposure, nil
}

// OnSizing admits or rejects one sized order. Approval requires
// |current exposure + candidate value| / equity <= max leverage factor,
// with the boundary inclusive. Non-positive equity rejects unconditionally.
func (m *Manager) OnSizing(ctx context.Context, ev event.SizingEvent) {
	acct, err := m.venue.AccountSnapshot(ctx)
	if err != nil {
		slog.Warn("risk: account snapshot unavailable, order rejected",
			slog.String("symbol", ev.Symbol),
			slog.Any("error", err),
		)
		return
	}

	equity := decimal.NewFromFloat(acct.Equity)
	if equity.LessThanOrEqual(decimal.Zero) {
		slog.Warn("risk: non-positive equity, order rejected",
			slog.String("symbol", ev.Symbol),
			slog.String("equity", equity.String()),
		)
		return
	}

	exposure, err := m.currentExposure(ctx, acct.Currency)
	if err != nil {
		slog.Warn("risk: exposure valuation failed, order rejected",
			slog.String("symbol", ev.Symbol),
			slog.Any("error", err),
		)
		return
	}

	candidate, err := m.positionValue(ctx, ev.Symbol, ev.Volume, ev.Side, acct.Currency)
	if err != nil {
		slog.Warn("risk: candidate valuation failed, order rejected",
			slog.String("symbol", ev.Symbol),
			slog.Any("error", err),
		)
		return
	}

	projected := exposure.Add(candidate).Abs().Div(equity)
	if projected.GreaterThan(m.maxLeverage) {
		slog.Warn("risk check failed: order rejected",
			slog.String("symbol", ev.Symbol),
			slog.String("side", string(ev.Side)),
			slog.String("projected_leverage", projected.StringFixed(4)),
			slog.String("max", m.maxLeverage.String()),
		)
		return
	}

	m.queue <- event.OrderEvent{SizingEvent: ev}

	slog.Info("risk check passed",
		slog.String("symbol", ev.Symbol),
		slog.String("side", string(ev.Side)),
		slog.String("projected_leverage", projected.StringFixed(4)),
		slog.String("max", m.maxLeverage.String()),
	)
}
