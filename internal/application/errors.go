package application

import "errors"

// Sentinels the HTTP layer maps onto status codes: 404 and 400.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// ErrAllSourcesFailed means every eligible provider in the chain was tried or
// skipped without producing a price. Callers treat it as retryable.
var ErrAllSourcesFailed = errors.New("all quote sources failed")
