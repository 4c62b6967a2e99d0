package broker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lia_trading/internal/domain"
)

// SimVenue is an in-memory venue used for paper trading and integration
// tests. It fills market orders at the requested price, keeps resting
// orders on a book it never matches, and journals a deal for every fill.
type SimVenue struct {
	mu       sync.Mutex
	equity   float64
	currency string

	nextTicket int64
	positions  map[int64]domain.Position
	pending    map[int64]domain.OrderRequest
	deals      map[int64]domain.Deal

	specs map[string]domain.SymbolSpec
	ticks map[string]domain.Tick
}

// NewSimVenue creates a paper venue with the given starting equity.
func NewSimVenue(equity float64, currency string) *SimVenue {
	return &SimVenue{
		equity:     equity,
		currency:   strings.ToUpper(currency),
		nextTicket: 1,
		positions:  make(map[int64]domain.Position),
		pending:    make(map[int64]domain.OrderRequest),
		deals:      make(map[int64]domain.Deal),
		specs:      make(map[string]domain.SymbolSpec),
		ticks:      make(map[string]domain.Tick),
	}
}

// SetSpec overrides the derived spec for a symbol.
func (v *SimVenue) SetSpec(symbol string, spec domain.SymbolSpec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.specs[symbol] = spec
}

// SetTick publishes a quote so the venue can serve LatestTick lookups
// made through a paper data path.
func (v *SimVenue) SetTick(symbol string, tick domain.Tick) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ticks[symbol] = tick
}

// Tick returns the last published quote for a symbol.
func (v *SimVenue) Tick(symbol string) (domain.Tick, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.ticks[symbol]
	return t, ok
}

func (v *SimVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if req.Volume <= 0 {
		return domain.OrderResult{RejectReason: "invalid volume"}, nil
	}

	ticket := v.nextTicket
	v.nextTicket++

	if req.Kind.IsPending() {
		v.pending[ticket] = req
		slog.Info("sim venue: pending order accepted",
			slog.Int64("ticket", ticket),
			slog.String("symbol", req.Symbol),
			slog.String("side", string(req.Side)),
			slog.Float64("price", req.Price),
		)
		return domain.OrderResult{Accepted: true, OrderID: ticket}, nil
	}

	// Market fill at the requested price. An opposing order of equal
	// volume closes the oldest matching position instead of opening.
	if closed := v.closeOpposing(req); closed != 0 {
		slog.Info("sim venue: position closed",
			slog.Int64("ticket", closed),
			slog.String("symbol", req.Symbol),
			slog.Float64("volume", req.Volume),
		)
	} else {
		v.positions[ticket] = domain.Position{
			Ticket:     ticket,
			Symbol:     req.Symbol,
			Side:       req.Side,
			Volume:     req.Volume,
			StrategyID: req.StrategyID,
		}
	}

	v.deals[ticket] = domain.Deal{
		OrderID: ticket,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Price:   req.Price,
		Volume:  req.Volume,
		Time:    time.Now(),
	}

	slog.Info("sim venue: order filled",
		slog.Int64("ticket", ticket),
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.Float64("price", req.Price),
		slog.Float64("volume", req.Volume),
	)
	return domain.OrderResult{Accepted: true, OrderID: ticket, FillPrice: req.Price}, nil
}

func (v *SimVenue) closeOpposing(req domain.OrderRequest) int64 {
	var oldest int64
	for ticket, pos := range v.positions {
		if pos.Symbol != req.Symbol || pos.Side != req.Side.Opposite() || pos.Volume != req.Volume {
			continue
		}
		if oldest == 0 || ticket < oldest {
			oldest = ticket
		}
	}
	if oldest != 0 {
		delete(v.positions, oldest)
	}
	return oldest
}

func (v *SimVenue) OpenPositions(ctx context.Context, strategyID int64, symbol string) ([]domain.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []domain.Position
	for _, pos := range v.positions {
		if strategyID != 0 && pos.StrategyID != strategyID {
			continue
		}
		if symbol != "" && pos.Symbol != symbol {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

func (v *SimVenue) AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return domain.AccountSnapshot{Equity: v.equity, Currency: v.currency}, nil
}

// SymbolSpec serves an explicit override if one was set, otherwise a
// standard FX lot spec derived from the symbol name.
func (v *SimVenue) SymbolSpec(ctx context.Context, symbol string) (domain.SymbolSpec, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if spec, ok := v.specs[symbol]; ok {
		return spec, nil
	}
	if len(symbol) < 6 {
		return domain.SymbolSpec{}, ErrMalformed
	}
	return domain.SymbolSpec{
		MinVolume:     0.01,
		VolumeStep:    0.01,
		ContractSize:  100000,
		QuoteCurrency: strings.ToUpper(symbol[3:6]),
	}, nil
}

func (v *SimVenue) DealHistory(ctx context.Context, orderID int64) (domain.Deal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	deal, ok := v.deals[orderID]
	if !ok {
		return domain.Deal{}, ErrUnavailable
	}
	return deal, nil
}
