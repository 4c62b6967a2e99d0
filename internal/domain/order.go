package domain

import "time"

// Side is the direction of a signal or order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the closing direction for a position opened on this side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind distinguishes immediate execution from resting orders.
type OrderKind string

const (
	Market OrderKind = "MARKET"
	Limit  OrderKind = "LIMIT"
	Stop   OrderKind = "STOP"
)

// IsPending reports whether the kind rests on the venue's book until touched.
func (k OrderKind) IsPending() bool {
	return k == Limit || k == Stop
}

// OrderRequest is everything a venue needs to accept an order.
type OrderRequest struct {
	Symbol          string
	Side            Side
	Kind            OrderKind
	Volume          float64
	Price           float64
	StopLoss        float64
	TakeProfit      float64
	DeviationPoints int // slippage tolerance, market orders only
	StrategyID      int64
	Comment         string
	GoodTillCancel  bool
}

// OrderResult is the venue's verdict on a submitted request.
type OrderResult struct {
	Accepted     bool
	FillPrice    float64
	OrderID      int64
	RejectReason string
}

// Deal is the venue's authoritative record of a fill.
type Deal struct {
	OrderID int64
	Symbol  string
	Side    Side
	Price   float64
	Volume  float64
	Time    time.Time
}
