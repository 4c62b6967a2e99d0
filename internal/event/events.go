package event

import (
	"time"

	"lia_trading/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvData Type = iota + 1
	EvSignal
	EvSizing
	EvOrder
	EvExecution
	EvPendingPlaced
)

func (t Type) String() string {
	switch t {
	case EvData:
		return "DATA"
	case EvSignal:
		return "SIGNAL"
	case EvSizing:
		return "SIZING"
	case EvOrder:
		return "ORDER"
	case EvExecution:
		return "EXECUTION"
	case EvPendingPlaced:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

// Event is implemented by every pipeline event. An event is created by
// exactly one stage, enqueued once, consumed once by the director, and
// never mutated afterwards.
type Event interface {
	EventType() Type
}

// DataEvent announces a newly closed bar for a symbol.
type DataEvent struct {
	Symbol string     `json:"symbol"`
	Bar    domain.Bar `json:"bar"`
}

func (DataEvent) EventType() Type { return EvData }

// SignalEvent is a trading opportunity produced by the signal stage.
type SignalEvent struct {
	Symbol      string           `json:"symbol"`
	Side        domain.Side      `json:"side"`
	Kind        domain.OrderKind `json:"kind"`
	TargetPrice float64          `json:"target_price"`
	StrategyID  int64            `json:"strategy_id"`
	StopLoss    float64          `json:"sl"`
	TakeProfit  float64          `json:"tp"`
}

func (SignalEvent) EventType() Type { return EvSignal }

// SizingEvent is a signal with its venue-quantized volume resolved.
type SizingEvent struct {
	SignalEvent
	Volume float64 `json:"volume"`
}

func (SizingEvent) EventType() Type { return EvSizing }

// OrderEvent is a sized order that passed risk admission control.
type OrderEvent struct {
	SizingEvent
}

func (OrderEvent) EventType() Type { return EvOrder }

// ExecutionEvent reports a completed market fill.
type ExecutionEvent struct {
	Symbol    string      `json:"symbol"`
	Side      domain.Side `json:"side"`
	FillPrice float64     `json:"fill_price"`
	FillTime  time.Time   `json:"fill_time"`
	Volume    float64     `json:"volume"`
}

func (ExecutionEvent) EventType() Type { return EvExecution }

// PendingPlacedEvent reports a resting order accepted by the venue
// but not yet filled.
type PendingPlacedEvent struct {
	OrderEvent
}

func (PendingPlacedEvent) EventType() Type { return EvPendingPlaced }
