package quant

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PipSize returns the minimum quoted price increment for a symbol.
// JPY-quoted pairs trade in hundredths, everything else in ten-thousandths.
func PipSize(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	return 0.0001
}

// PointsToOffset converts a stop distance expressed in points into an
// absolute price offset for the given symbol.
func PointsToOffset(points int, symbol string) float64 {
	return float64(points) * PipSize(symbol)
}

// RoundToStep quantizes volume to the nearest multiple of step, half up.
// Decimal arithmetic keeps the result deterministic regardless of how the
// inputs were produced. A non-positive step yields zero.
func RoundToStep(volume, step float64) float64 {
	if step <= 0 {
		return 0
	}
	v := decimal.NewFromFloat(volume)
	s := decimal.NewFromFloat(step)
	steps := v.Div(s).Round(0)
	out, _ := steps.Mul(s).Float64()
	return out
}
