package httpserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
)

// In-memory port implementations backing the handler tests. The sweep
// endpoint fans out to several goroutines, so every fake locks.

var _ application.PriceStore = (*memPriceStore)(nil)
var _ application.OperationLogStore = (*memOpLogStore)(nil)
var _ application.RateStore = (*memRateStore)(nil)
var _ application.WatchlistStore = (*memWatchlistStore)(nil)
var _ application.ChainRegistry = (*chainStub)(nil)
var _ application.IdempotencyStore = (*memIdemStore)(nil)
var _ application.FXRateProvider = (*stubFXProvider)(nil)

type memPriceStore struct {
	mu    sync.Mutex
	store map[string]domain.LatestPrice
}

func priceKey(symbol, currency string) string { return symbol + "|" + currency }

func (m *memPriceStore) GetLatest(_ context.Context, symbol, currency string) (domain.LatestPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[priceKey(symbol, currency)]
	if !ok {
		return domain.LatestPrice{}, application.ErrNotFound
	}
	return p, nil
}

func (m *memPriceStore) Upsert(_ context.Context, p domain.LatestPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = map[string]domain.LatestPrice{}
	}
	p.UpdatedAt = time.Now()
	m.store[priceKey(p.Symbol, p.Currency)] = p
	return nil
}

type memOpLogStore struct {
	mu        sync.Mutex
	entries   []domain.OperationLog
	lastLimit int
}

func (m *memOpLogStore) Append(_ context.Context, e domain.OperationLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *memOpLogStore) List(_ context.Context, limit int) ([]domain.OperationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := make([]domain.OperationLog, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

type memRateStore struct {
	mu    sync.Mutex
	rates map[string]domain.ExchangeRate
}

func (m *memRateStore) List(_ context.Context) ([]domain.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ExchangeRate, 0, len(m.rates))
	for _, r := range m.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromCurrency < out[j].FromCurrency })
	return out, nil
}

func (m *memRateStore) RateToCNY(_ context.Context, fromCurrency string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[fromCurrency]
	if !ok {
		return 0, application.ErrNotFound
	}
	return r.Rate, nil
}

func (m *memRateStore) Upsert(_ context.Context, fromCurrency string, rate float64, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rates == nil {
		m.rates = map[string]domain.ExchangeRate{}
	}
	m.rates[fromCurrency] = domain.ExchangeRate{
		ID:           int64(len(m.rates) + 1),
		FromCurrency: fromCurrency,
		ToCurrency:   "CNY",
		Rate:         rate,
		Source:       source,
		UpdatedAt:    time.Now(),
	}
	return nil
}

type memWatchlistStore struct {
	mu    sync.Mutex
	items []domain.WatchItem
}

func (m *memWatchlistStore) ListAutoUpdate(_ context.Context, currency string) ([]domain.WatchItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WatchItem
	for _, item := range m.items {
		if item.Currency == currency && item.AutoUpdate {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memWatchlistStore) Upsert(_ context.Context, item domain.WatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.Symbol == item.Symbol && existing.Currency == item.Currency {
			m.items[i] = item
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

func (m *memWatchlistStore) SetAutoUpdate(_ context.Context, symbol, currency string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.Symbol == symbol && existing.Currency == currency {
			m.items[i].AutoUpdate = enabled
			return nil
		}
	}
	return application.ErrNotFound
}

// chainStub answers every class with the same fixed attempt list.
type chainStub struct {
	attempts []application.Attempt
}

func (c chainStub) Attempts(domain.InstrumentClass, string, string, string) []application.Attempt {
	return c.attempts
}

func priceChain(source string, price float64) chainStub {
	return chainStub{attempts: []application.Attempt{{
		Source: source,
		Fetch:  func(context.Context) (*float64, error) { p := price; return &p, nil },
	}}}
}

func emptyChain(source string) chainStub {
	return chainStub{attempts: []application.Attempt{{
		Source: source,
		Fetch:  func(context.Context) (*float64, error) { return nil, nil },
	}}}
}

type memIdemStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memIdemStore) TryReserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type stubFXProvider struct {
	name string
	rate float64
	err  error
}

func (s stubFXProvider) Name() string { return s.name }

func (s stubFXProvider) Rate(context.Context, string, string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.rate, nil
}
