package domain

import "time"

// Bar is one closed OHLCV record for a fixed time interval.
// Bars returned by a gateway are ordered oldest-to-newest.
type Bar struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	TickVolume int64     `json:"tick_volume"`
	RealVolume int64     `json:"real_volume"`
	Spread     int       `json:"spread"`
}

// Tick is the last quoted bid/ask for a symbol.
type Tick struct {
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`
}
