package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/macrohuang/invest-log/internal/domain"
)

const (
	// Symbols refreshed this recently are skipped by the batch sweep.
	recentUpdateThreshold = 5 * time.Minute
	maxSweepWorkers       = 4
)

// PriceUpdater turns quote results into persisted state: a latest-price row
// plus an operation-log entry, written in one transaction.
type PriceUpdater struct {
	quotes *QuoteService
	prices PriceStore
	oplog  OperationLogStore
	watch  WatchlistStore
	uow    UnitOfWork
}

func NewPriceUpdater(quotes *QuoteService, prices PriceStore, oplog OperationLogStore, watch WatchlistStore, uow UnitOfWork) *PriceUpdater {
	if uow == nil {
		uow = NoopUoW{}
	}
	return &PriceUpdater{quotes: quotes, prices: prices, oplog: oplog, watch: watch, uow: uow}
}

// UpdatePrice fetches and stores the latest price for one symbol. A fetched
// price and its audit entry land atomically; a failed fetch records only the
// failure entry. The returned PriceResult mirrors what the quote produced
// either way.
func (u *PriceUpdater) UpdatePrice(ctx context.Context, symbol, currency, assetHint string) (domain.PriceResult, error) {
	symbol = domain.NormalizeSymbol(symbol)
	currency = domain.NormalizeCurrency(currency)

	result, err := u.quotes.Quote(ctx, symbol, currency, assetHint)
	if result.Price == nil {
		// Best effort: the fetch failure is the outcome that matters.
		_, _ = u.oplog.Append(ctx, domain.OperationLog{
			Operation: domain.OpPriceUpdateFailed,
			Symbol:    &symbol,
			Currency:  &currency,
			Details:   strPtr(result.Message),
		})
		return result, err
	}

	txErr := u.uow.Do(ctx, func(ctx context.Context) error {
		if err := u.prices.Upsert(ctx, domain.LatestPrice{
			Symbol:   symbol,
			Currency: currency,
			Price:    *result.Price,
			Source:   result.Source,
		}); err != nil {
			return err
		}
		_, err := u.oplog.Append(ctx, domain.OperationLog{
			Operation:    domain.OpPriceUpdate,
			Symbol:       &symbol,
			Currency:     &currency,
			Details:      strPtr(result.Message),
			PriceFetched: result.Price,
		})
		return err
	})
	if txErr != nil {
		return result, fmt.Errorf("persist price: %w", txErr)
	}
	return result, nil
}

// ManualUpdatePrice stores a caller-supplied price override.
func (u *PriceUpdater) ManualUpdatePrice(ctx context.Context, symbol, currency string, price float64) error {
	symbol = domain.NormalizeSymbol(symbol)
	currency = domain.NormalizeCurrency(currency)
	if !domain.ValidateCurrency(currency) {
		return fmt.Errorf("%w: unsupported currency %s", ErrBadRequest, currency)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrBadRequest)
	}

	return u.uow.Do(ctx, func(ctx context.Context) error {
		if err := u.prices.Upsert(ctx, domain.LatestPrice{
			Symbol:   symbol,
			Currency: currency,
			Price:    price,
			Source:   "manual",
		}); err != nil {
			return err
		}
		_, err := u.oplog.Append(ctx, domain.OperationLog{
			Operation:    domain.OpManualPriceUpdate,
			Symbol:       &symbol,
			Currency:     &currency,
			Details:      strPtr("Manual price update"),
			PriceFetched: &price,
		})
		return err
	})
}

// UpdateAllPrices refreshes every auto-update symbol in a currency, bounded
// to a few concurrent fetches. Symbols refreshed within the last few minutes
// are skipped. Returns the number of symbols updated and one line per symbol
// that failed.
func (u *PriceUpdater) UpdateAllPrices(ctx context.Context, currency string) (int, []string, error) {
	currency = domain.NormalizeCurrency(currency)
	if !domain.ValidateCurrency(currency) {
		return 0, nil, fmt.Errorf("%w: unsupported currency %s", ErrBadRequest, currency)
	}

	items, err := u.watch.ListAutoUpdate(ctx, currency)
	if err != nil {
		return 0, nil, err
	}

	jobs := make([]domain.WatchItem, 0, len(items))
	for _, item := range items {
		if recentlyUpdated(item.PriceUpdatedAt, recentUpdateThreshold) {
			continue
		}
		jobs = append(jobs, item)
	}
	if len(jobs) == 0 {
		return 0, nil, nil
	}

	workers := len(jobs)
	if workers > maxSweepWorkers {
		workers = maxSweepWorkers
	}

	jobsCh := make(chan domain.WatchItem)
	resultsCh := make(chan sweepResult, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobsCh {
				result, err := u.UpdatePrice(ctx, item.Symbol, currency, item.AssetType)
				resultsCh <- sweepResult{
					symbol:  item.Symbol,
					message: result.Message,
					updated: result.Price != nil,
					err:     err,
				}
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			jobsCh <- job
		}
		close(jobsCh)
		wg.Wait()
		close(resultsCh)
	}()

	updated := 0
	var failures []string
	for res := range resultsCh {
		if res.updated {
			updated++
			continue
		}
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", res.symbol, res.message))
		}
	}
	return updated, failures, nil
}

type sweepResult struct {
	symbol  string
	message string
	updated bool
	err     error
}

func recentlyUpdated(updatedAt *time.Time, threshold time.Duration) bool {
	if updatedAt == nil {
		return false
	}
	return time.Since(*updatedAt) < threshold
}

func strPtr(s string) *string { return &s }
