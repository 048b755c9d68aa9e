package domain

import "strings"

var SupportedCurrency = map[string]bool{
	"CNY": true,
	"USD": true,
	"HKD": true,
}

// Currencies lists supported currencies in display order.
var Currencies = []string{"CNY", "USD", "HKD"}

func ValidateCurrency(c string) bool {
	return SupportedCurrency[c]
}

// NormalizeSymbol uppercases and trims a raw symbol string.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeCurrency uppercases and trims a raw currency code.
func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
