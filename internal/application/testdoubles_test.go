package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/macrohuang/invest-log/internal/domain"
)

var ErrStore = errors.New("store error")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubSource is a scripted provider: it replays outs in order and keeps
// repeating the last one.
type stubSource struct {
	name string
	outs []fetchOut

	mu    sync.Mutex
	calls int
}

type fetchOut struct {
	price *float64
	err   error
}

func source(name string, outs ...fetchOut) *stubSource {
	return &stubSource{name: name, outs: outs}
}

func (s *stubSource) attempt() Attempt {
	return Attempt{Source: s.name, Fetch: func(context.Context) (*float64, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.calls
		if i >= len(s.outs) {
			i = len(s.outs) - 1
		}
		s.calls++
		out := s.outs[i]
		return out.price, out.err
	}}
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func priced(v float64) fetchOut { return fetchOut{price: &v} }

func noData() fetchOut { return fetchOut{} }

func failing(msg string) fetchOut { return fetchOut{err: errors.New(msg)} }

type fakeRegistry struct {
	sources   []*stubSource
	lastClass domain.InstrumentClass
	lastHint  string
}

func chainOf(sources ...*stubSource) *fakeRegistry {
	return &fakeRegistry{sources: sources}
}

func (f *fakeRegistry) Attempts(class domain.InstrumentClass, _, _, hint string) []Attempt {
	f.lastClass = class
	f.lastHint = hint
	attempts := make([]Attempt, 0, len(f.sources))
	for _, s := range f.sources {
		attempts = append(attempts, s.attempt())
	}
	return attempts
}

type fakePriceStore struct {
	mu    sync.Mutex
	store map[string]domain.LatestPrice
	err   error
}

func newFakePriceStore() *fakePriceStore {
	return &fakePriceStore{store: map[string]domain.LatestPrice{}}
}

func (f *fakePriceStore) GetLatest(_ context.Context, symbol, currency string) (domain.LatestPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.LatestPrice{}, f.err
	}
	p, ok := f.store[symbol+"|"+currency]
	if !ok {
		return domain.LatestPrice{}, ErrNotFound
	}
	return p, nil
}

func (f *fakePriceStore) Upsert(_ context.Context, p domain.LatestPrice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	p.UpdatedAt = time.Now()
	f.store[p.Symbol+"|"+p.Currency] = p
	return nil
}

type fakeOpLogStore struct {
	mu      sync.Mutex
	entries []domain.OperationLog
	err     error
}

func (f *fakeOpLogStore) Append(_ context.Context, e domain.OperationLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
	return e.ID, nil
}

func (f *fakeOpLogStore) List(_ context.Context, limit int) ([]domain.OperationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]domain.OperationLog, limit)
	copy(out, f.entries[len(f.entries)-limit:])
	return out, nil
}

func (f *fakeOpLogStore) byOperation(op string) []domain.OperationLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OperationLog
	for _, e := range f.entries {
		if e.Operation == op {
			out = append(out, e)
		}
	}
	return out
}

type fakeWatchlistStore struct {
	items []domain.WatchItem
	err   error
}

func (f *fakeWatchlistStore) ListAutoUpdate(_ context.Context, currency string) ([]domain.WatchItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.WatchItem
	for _, item := range f.items {
		if item.Currency == currency && item.AutoUpdate {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeWatchlistStore) Upsert(_ context.Context, item domain.WatchItem) error {
	if f.err != nil {
		return f.err
	}
	for i := range f.items {
		if f.items[i].Symbol == item.Symbol && f.items[i].Currency == item.Currency {
			f.items[i] = item
			return nil
		}
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeWatchlistStore) SetAutoUpdate(_ context.Context, symbol, currency string, enabled bool) error {
	if f.err != nil {
		return f.err
	}
	for i := range f.items {
		if f.items[i].Symbol == symbol && f.items[i].Currency == currency {
			f.items[i].AutoUpdate = enabled
			return nil
		}
	}
	return ErrNotFound
}

type fakeRateStore struct {
	mu    sync.Mutex
	rates map[string]domain.ExchangeRate
	err   error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{rates: map[string]domain.ExchangeRate{}}
}

func (f *fakeRateStore) List(_ context.Context) ([]domain.ExchangeRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ExchangeRate, 0, len(f.rates))
	for _, r := range f.rates {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRateStore) RateToCNY(_ context.Context, fromCurrency string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	r, ok := f.rates[fromCurrency]
	if !ok {
		return 0, ErrNotFound
	}
	return r.Rate, nil
}

func (f *fakeRateStore) Upsert(_ context.Context, fromCurrency string, rate float64, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rates[fromCurrency] = domain.ExchangeRate{
		FromCurrency: fromCurrency,
		ToCurrency:   "CNY",
		Rate:         rate,
		Source:       source,
	}
	return nil
}

type fakeFXProvider struct {
	name  string
	rate  float64
	err   error
	calls int
}

func (f *fakeFXProvider) Name() string { return f.name }

func (f *fakeFXProvider) Rate(context.Context, string, string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

type countingUoW struct {
	calls int
}

func (u *countingUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	u.calls++
	return fn(ctx)
}
