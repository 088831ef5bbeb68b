// Package money formats amounts for user-facing messages.
package money

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

var printer = message.NewPrinter(language.English)

// Format renders amount with a currency symbol and grouped digits, e.g.
// ₹150,000.00. Codes without a known symbol fall back to "<CODE> 12.00".
func Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	num := printer.Sprintf("%.2f", Round(amount))
	if sym, ok := symbols[code]; ok {
		if amount < 0 {
			return "-" + sym + strings.TrimPrefix(num, "-")
		}
		return sym + num
	}
	if code == "" {
		return num
	}
	return code + " " + num
}

// Round rounds to two decimal places, half away from zero.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
