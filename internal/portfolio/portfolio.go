// Package portfolio is a stateless query facade over the venue's open
// positions, scoped to one strategy id. Nothing is cached: every decision
// sees the venue's current truth at the cost of a round-trip.
package portfolio

import (
	"context"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
)

// Portfolio filters the venue's positions down to one strategy.
type Portfolio struct {
	venue      broker.Venue
	strategyID int64
}

func New(venue broker.Venue, strategyID int64) *Portfolio {
	return &Portfolio{venue: venue, strategyID: strategyID}
}

// OpenPositions returns every open position belonging to this strategy.
func (p *Portfolio) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	return p.venue.OpenPositions(ctx, p.strategyID, "")
}

// OpenPositionsBySymbol returns this strategy's open positions on one symbol.
func (p *Portfolio) OpenPositionsBySymbol(ctx context.Context, symbol string) ([]domain.Position, error) {
	return p.venue.OpenPositions(ctx, p.strategyID, symbol)
}

// PositionCount breaks a symbol's open positions down by direction.
type PositionCount struct {
	Long  int
	Short int
	Total int
}

// CountBySymbol counts this strategy's open positions on a symbol.
func (p *Portfolio) CountBySymbol(ctx context.Context, symbol string) (PositionCount, error) {
	positions, err := p.OpenPositionsBySymbol(ctx, symbol)
	if err != nil {
		return PositionCount{}, err
	}

	var count PositionCount
	for _, pos := range positions {
		if pos.IsLong() {
			count.Long++
		} else {
			count.Short++
		}
	}
	count.Total = count.Long + count.Short
	return count, nil
}
