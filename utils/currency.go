package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount formats a monetary amount in Indonesian Rupiah notation.
// Example: 15000.50 -> "Rp 15.000,50"
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.Split(fixed, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	out := "Rp " + strings.Join(groups, ".") + "," + decimalPart
	if neg {
		out = "-" + out
	}
	return out
}
