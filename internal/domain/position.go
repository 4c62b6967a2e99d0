package domain

// Position is one open position as reported by the venue.
type Position struct {
	Ticket     int64
	Symbol     string
	Side       Side
	Volume     float64
	StrategyID int64
}

// IsLong checks if the position is long.
func (p *Position) IsLong() bool {
	return p.Side == Buy
}

// IsShort checks if the position is short.
func (p *Position) IsShort() bool {
	return p.Side == Sell
}
