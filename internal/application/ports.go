package application

import (
	"context"

	"github.com/macrohuang/invest-log/internal/domain"
)

// Attempt is one ordered quote source for a classified instrument. Fetch
// returns (nil, nil) when the upstream answered but carried no usable price.
type Attempt struct {
	Source string
	Fetch  func(ctx context.Context) (*float64, error)
}

// ChainRegistry resolves the ordered quote sources for an instrument.
type ChainRegistry interface {
	Attempts(class domain.InstrumentClass, symbol, currency, assetHint string) []Attempt
}

type PriceStore interface {
	GetLatest(ctx context.Context, symbol, currency string) (domain.LatestPrice, error)
	Upsert(ctx context.Context, p domain.LatestPrice) error
}

type OperationLogStore interface {
	Append(ctx context.Context, e domain.OperationLog) (int64, error)
	List(ctx context.Context, limit int) ([]domain.OperationLog, error)
}

type RateStore interface {
	List(ctx context.Context) ([]domain.ExchangeRate, error)
	RateToCNY(ctx context.Context, fromCurrency string) (float64, error)
	Upsert(ctx context.Context, fromCurrency string, rate float64, source string) error
}

type WatchlistStore interface {
	ListAutoUpdate(ctx context.Context, currency string) ([]domain.WatchItem, error)
	Upsert(ctx context.Context, item domain.WatchItem) error
	SetAutoUpdate(ctx context.Context, symbol, currency string, enabled bool) error
}

// FXRateProvider fetches one FX rate from one upstream.
type FXRateProvider interface {
	Name() string
	Rate(ctx context.Context, from, to string) (float64, error)
}

// RateSource resolves FX rates into CNY for price conversion.
type RateSource interface {
	RateToCNY(ctx context.Context, currency string) (float64, error)
}

// UnitOfWork scopes a price row and its operation-log entry to one
// transaction, carried through the context.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopUoW executes the function without starting a transaction.
type NoopUoW struct{}

func (NoopUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// IdempotencyStore deduplicates short-lived requests, e.g. repeated
// update-all sweeps fired by an impatient client. TryReserve reports
// whether the key was absent and is now held for the store's TTL.
type IdempotencyStore interface {
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NoopIdempotency never reports a duplicate. Used when Redis is disabled.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

// Worker is a background loop, e.g. the periodic price sweep.
// Implementations must run until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}
