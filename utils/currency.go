package utils

import (
	"strings"

	"github.com/yeremiapane/fnb-kiosk/money"
)

// FormatCurrency formats cents as dollars with thousands separators.
// Example: 123456 -> "$1,234.56"
func FormatCurrency(amount money.Cents) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = amount.Abs()
	}

	parts := strings.SplitN(amount.String(), ".", 2)
	integerPart := parts[0]
	decimalPart := parts[1]

	var result []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{integerPart[start:i]}, result...)
	}

	return sign + "$" + strings.Join(result, ",") + "." + decimalPart
}
