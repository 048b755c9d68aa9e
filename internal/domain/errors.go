package domain

import "errors"

// Classification outcomes that stop a quote before any provider is tried.
// Each pairs with a Chinese PriceResult.Message for the client.
var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrBondNotSupported    = errors.New("bond price not supported")
	ErrUnknownInstrument   = errors.New("unknown instrument type")
)
