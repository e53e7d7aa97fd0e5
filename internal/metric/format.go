package metric

import (
	"fmt"
	"math"
)

// Formatting helpers for presentation layers. These are pure functions; the
// registry binds each metric to one of them.

// FormatCurrency renders a monetary value with thousands grouping, e.g.
// "1,234,567.89 EUR".
func FormatCurrency(v float64) string {
	return fmt.Sprintf("%s EUR", groupThousands(v, 2))
}

// FormatRatio renders a dimensionless coverage ratio, e.g. "1.45x".
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2fx", v)
}

// FormatPercent renders a rate as a percentage, e.g. "8.25%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatYears renders a duration in years, e.g. "7.5 years".
func FormatYears(v float64) string {
	return fmt.Sprintf("%.1f years", v)
}

// FormatPerMWh renders a levelized cost, e.g. "54.30 EUR/MWh".
func FormatPerMWh(v float64) string {
	return fmt.Sprintf("%.2f EUR/MWh", v)
}

// FormatEnergy renders an energy quantity, e.g. "120,500.00 MWh".
func FormatEnergy(v float64) string {
	return fmt.Sprintf("%s MWh", groupThousands(v, 2))
}

// FormatImpact renders a signed delta against a baseline, e.g. "+12,000.00"
// or "-0.35".
func FormatImpact(delta float64) string {
	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	return sign + groupThousands(math.Abs(delta), 2)
}

// groupThousands formats v with the given decimals and comma grouping of the
// integer part.
func groupThousands(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, math.Abs(v))
	intPart := s
	fracPart := ""
	if decimals > 0 {
		intPart = s[:len(s)-decimals-1]
		fracPart = s[len(s)-decimals-1:]
	}
	var grouped []byte
	for i, digit := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, digit)
	}
	out := string(grouped) + fracPart
	if v < 0 {
		out = "-" + out
	}
	return out
}
