package domain

import "time"

const (
	OpPriceUpdate       = "PRICE_UPDATE"
	OpPriceUpdateFailed = "PRICE_UPDATE_FAILED"
	OpManualPriceUpdate = "MANUAL_PRICE_UPDATE"
	OpRateRefresh       = "RATE_REFRESH"
)

// OperationLog is an audit record of a price or rate mutation.
type OperationLog struct {
	ID           int64
	Operation    string
	Symbol       *string
	Currency     *string
	Details      *string
	PriceFetched *float64
	CreatedAt    time.Time
}
