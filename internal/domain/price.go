package domain

import "time"

// PriceResult is what a quote lookup hands back to callers. Price is nil when
// no source produced a usable value; Message always carries the user-facing
// outcome, including per-source diagnostics on failure. Source names the
// provider that supplied the price, when there is one.
type PriceResult struct {
	Price   *float64 `json:"price"`
	Source  string   `json:"source,omitempty"`
	Message string   `json:"message"`
}

// LatestPrice is the stored last-known price for a symbol.
type LatestPrice struct {
	Symbol    string
	Currency  string
	Price     float64
	Source    string
	UpdatedAt time.Time
}
