// Package broker defines the call contracts the pipeline needs from its
// external collaborators: a market data gateway and an execution venue.
// No wire format is implied; any concrete integration satisfies these.
package broker

import (
	"context"
	"errors"

	"lia_trading/internal/domain"
)

var (
	// ErrUnavailable means the collaborator had no data for the request.
	// Stages treat this as "try again next bar", not as a failure.
	ErrUnavailable = errors.New("broker: data unavailable")

	// ErrMalformed means the collaborator returned data that cannot be
	// trusted (e.g. a symbol spec with a zero step). Stages abort with a
	// warning; a malformed instrument must never produce an order.
	ErrMalformed = errors.New("broker: malformed instrument data")
)

// MarketData retrieves bars and last-tick quotes for watched symbols.
type MarketData interface {
	// LatestClosedBar returns the most recent fully closed bar.
	LatestClosedBar(ctx context.Context, symbol, timeframe string) (domain.Bar, error)

	// LatestClosedBars returns up to count closed bars, oldest first.
	LatestClosedBars(ctx context.Context, symbol, timeframe string, count int) ([]domain.Bar, error)

	// LatestTick returns the current bid/ask quote.
	LatestTick(ctx context.Context, symbol string) (domain.Tick, error)
}

// Venue accepts orders and exposes account and position state.
type Venue interface {
	// SubmitOrder sends an order request. A venue rejection is reported
	// through OrderResult, not through the error return.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// OpenPositions lists open positions, optionally filtered by strategy
	// id (0 matches all) and symbol ("" matches all).
	OpenPositions(ctx context.Context, strategyID int64, symbol string) ([]domain.Position, error)

	// AccountSnapshot returns current equity and account currency.
	AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error)

	// SymbolSpec returns the venue's trading constraints for a symbol.
	SymbolSpec(ctx context.Context, symbol string) (domain.SymbolSpec, error)

	// DealHistory returns the fill record for an order, or ErrUnavailable
	// if the venue has not journaled the deal yet.
	DealHistory(ctx context.Context, orderID int64) (domain.Deal, error)
}
