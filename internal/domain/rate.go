package domain

import "time"

const (
	RateSourceDefault   = "default"
	RateSourceManual    = "manual"
	RateSourceAutoFetch = "auto_fetch"
)

// ExchangeRate is a maintained FX rate into CNY.
type ExchangeRate struct {
	ID           int64
	FromCurrency string
	ToCurrency   string
	Rate         float64
	Source       string
	UpdatedAt    time.Time
}
