// Package fx converts amounts between currencies through a single quoted
// cross symbol. It is deliberately not a full FX graph solver: if no major
// pair relates the two currencies, conversion fails and the caller must
// treat the value as unknown.
package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"lia_trading/internal/broker"
)

// majors is the fixed set of crosses searched for a conversion path.
var majors = []string{
	"AUDCAD", "AUDCHF", "AUDJPY", "AUDNZD", "AUDUSD",
	"CADCHF", "CADJPY", "CHFJPY",
	"EURAUD", "EURCAD", "EURCHF", "EURGBP", "EURJPY", "EURNZD", "EURUSD",
	"GBPAUD", "GBPCAD", "GBPCHF", "GBPJPY", "GBPNZD", "GBPUSD",
	"NZDCAD", "NZDCHF", "NZDJPY", "NZDUSD",
	"USDCAD", "USDCHF", "USDJPY", "USDSEK", "USDNOK",
}

// Converter resolves FX rates from the market data gateway.
type Converter struct {
	data broker.MarketData
}

func NewConverter(data broker.MarketData) *Converter {
	return &Converter{data: data}
}

// Convert converts an amount from one currency to another using the bid of
// the first major cross containing both codes. It fails closed: any error
// means the amount could not be valued and the caller must not guess.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	cross := findCross(from, to)
	if cross == "" {
		return decimal.Zero, fmt.Errorf("fx: no quoted cross relates %s and %s", from, to)
	}

	tick, err := c.data.LatestTick(ctx, cross)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: quote for cross %s: %w", cross, err)
	}
	rate := decimal.NewFromFloat(tick.Bid)
	if rate.IsZero() {
		return decimal.Zero, fmt.Errorf("fx: zero bid on cross %s", cross)
	}

	// If the cross is quoted with the target as base, an amount in the
	// quote currency divides by the rate; otherwise it multiplies.
	if cross[:3] == to {
		return amount.Div(rate), nil
	}
	return amount.Mul(rate), nil
}

func findCross(from, to string) string {
	for _, symbol := range majors {
		if strings.Contains(symbol, from) && strings.Contains(symbol, to) {
			return symbol
		}
	}
	return ""
}
