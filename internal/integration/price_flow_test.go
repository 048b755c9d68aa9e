package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
	"github.com/macrohuang/invest-log/internal/infrastructure/fx"
	httpserver "github.com/macrohuang/invest-log/internal/infrastructure/http"
	"github.com/macrohuang/invest-log/internal/infrastructure/httpx"
	"github.com/macrohuang/invest-log/internal/infrastructure/provider"
)

// These tests drive the whole pipeline in process: HTTP handler, quote
// orchestrator, real provider adapters parsing canned upstream payloads, and
// in-memory stores at the bottom.

const (
	eastmoneyMaotai = `{"rc":0,"rt":4,"data":{"f43":180255,"f57":"600519"}}`
	tencentMaotai   = `v_sh600519="1~GZMT~600519~1802.55~1798.00";`
	eastmoneyHK700  = `{"rc":0,"rt":4,"data":{"f43":615500}}`
)

type cannedResponse struct {
	status int
	body   string
}

// fakeUpstreams routes requests by URL substring; anything unmatched is 404.
type fakeUpstreams struct {
	mu     sync.Mutex
	routes map[string]cannedResponse
	calls  map[string]int
}

func newFakeUpstreams() *fakeUpstreams {
	return &fakeUpstreams{routes: map[string]cannedResponse{}, calls: map[string]int{}}
}

func (f *fakeUpstreams) set(substr string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[substr] = cannedResponse{status: status, body: body}
}

func (f *fakeUpstreams) count(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[substr]
}

func (f *fakeUpstreams) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := req.URL.String()
	for substr, canned := range f.routes {
		if strings.Contains(url, substr) {
			f.calls[substr]++
			return &http.Response{
				StatusCode: canned.status,
				Body:       io.NopCloser(strings.NewReader(canned.body)),
				Header:     make(http.Header),
			}, nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
		Header:     make(http.Header),
	}, nil
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Minimal in-memory stores; the sweep endpoint runs concurrent workers, so
// they all lock.

type memPrices struct {
	mu    sync.Mutex
	store map[string]domain.LatestPrice
}

func (m *memPrices) GetLatest(_ context.Context, symbol, currency string) (domain.LatestPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[symbol+"|"+currency]
	if !ok {
		return domain.LatestPrice{}, application.ErrNotFound
	}
	return p, nil
}

func (m *memPrices) Upsert(_ context.Context, p domain.LatestPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = map[string]domain.LatestPrice{}
	}
	p.UpdatedAt = time.Now()
	m.store[p.Symbol+"|"+p.Currency] = p
	return nil
}

type memLogs struct {
	mu      sync.Mutex
	entries []domain.OperationLog
}

func (m *memLogs) Append(_ context.Context, e domain.OperationLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *memLogs) List(_ context.Context, limit int) ([]domain.OperationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OperationLog, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memLogs) operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Operation)
	}
	sort.Strings(out)
	return out
}

type memRates struct {
	mu    sync.Mutex
	rates map[string]domain.ExchangeRate
}

func (m *memRates) List(_ context.Context) ([]domain.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ExchangeRate, 0, len(m.rates))
	for _, r := range m.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromCurrency < out[j].FromCurrency })
	return out, nil
}

func (m *memRates) RateToCNY(_ context.Context, fromCurrency string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[fromCurrency]
	if !ok {
		return 0, application.ErrNotFound
	}
	return r.Rate, nil
}

func (m *memRates) Upsert(_ context.Context, fromCurrency string, rate float64, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rates == nil {
		m.rates = map[string]domain.ExchangeRate{}
	}
	m.rates[fromCurrency] = domain.ExchangeRate{
		FromCurrency: fromCurrency,
		ToCurrency:   "CNY",
		Rate:         rate,
		Source:       source,
		UpdatedAt:    time.Now(),
	}
	return nil
}

type memWatch struct {
	mu    sync.Mutex
	items []domain.WatchItem
}

func (m *memWatch) ListAutoUpdate(_ context.Context, currency string) ([]domain.WatchItem, error) {
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

func (m *memWatch) Upsert(_ context.Context, item domain.WatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

func (m *memWatch) SetAutoUpdate(_ context.Context, symbol, currency string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].Symbol == symbol && m.items[i].Currency == currency {
			m.items[i].AutoUpdate = enabled
			return nil
		}
	}
	return application.ErrNotFound
}

type env struct {
	handler   http.Handler
	upstreams *fakeUpstreams
	prices    *memPrices
	logs      *memLogs
	rateStore *memRates
	watch     *memWatch
	clock     *manualClock
}

func newEnv(t *testing.T, fxProviders ...application.FXRateProvider) *env {
	t.Helper()
	upstreams := newFakeUpstreams()
	prices := &memPrices{}
	logs := &memLogs{}
	rateStore := &memRates{}
	watch := &memWatch{}
	clock := &manualClock{t: time.Unix(1_700_000_000, 0)}

	ctx := context.Background()
	require.NoError(t, rateStore.Upsert(ctx, "USD", 7.2, "default"))
	require.NoError(t, rateStore.Upsert(ctx, "HKD", 0.92, "default"))

	rates := application.NewRatesService(rateStore, logs, fxProviders...)
	registry := provider.NewRegistry(&provider.Client{HTTP: upstreams}, rates)
	quotes := application.NewQuoteService(registry, application.QuoteConfig{}, application.WithClock(clock))
	updater := application.NewPriceUpdater(quotes, prices, logs, watch, nil)

	srv := httpserver.NewServer(updater, rates, prices, logs, nil)
	return &env{
		handler:   httpserver.NewRouter(srv),
		upstreams: upstreams,
		prices:    prices,
		logs:      logs,
		rateStore: rateStore,
		watch:     watch,
		clock:     clock,
	}
}

func (e *env) post(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type priceResult struct {
	Price   *float64 `json:"price"`
	Source  string   `json:"source"`
	Message string   `json:"message"`
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) priceResult {
	t.Helper()
	var r priceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return r
}

func TestAShareQuote_FlowsToStorage(t *testing.T) {
	env := newEnv(t)
	env.upstreams.set("push2.eastmoney.com", http.StatusOK, eastmoneyMaotai)

	rec := env.post(t, "/api/prices/update", map[string]string{"symbol": "600519", "currency": "CNY"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.NotNil(t, result.Price)
	require.Equal(t, 1802.55, *result.Price)
	require.Equal(t, "Eastmoney", result.Source)

	stored, err := env.prices.GetLatest(context.Background(), "600519", "CNY")
	require.NoError(t, err)
	require.Equal(t, 1802.55, stored.Price)
	require.Equal(t, "Eastmoney", stored.Source)

	latest := env.get(t, "/api/prices/latest?symbol=600519&currency=CNY")
	require.Equal(t, http.StatusOK, latest.Code)

	// Second request inside the TTL is served from cache without another
	// upstream round trip.
	rec = env.post(t, "/api/prices/update", map[string]string{"symbol": "600519", "currency": "CNY"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, decodeResult(t, rec).Message, "缓存")
	require.Equal(t, 1, env.upstreams.count("push2.eastmoney.com"))
}

func TestAShareQuote_FallsBackToNextProvider(t *testing.T) {
	env := newEnv(t)
	env.upstreams.set("push2.eastmoney.com", http.StatusBadGateway, "bad gateway")
	env.upstreams.set("qt.gtimg.cn", http.StatusOK, tencentMaotai)

	rec := env.post(t, "/api/prices/update", map[string]string{"symbol": "600519", "currency": "CNY"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.NotNil(t, result.Price)
	require.Equal(t, 1802.55, *result.Price)
	require.Equal(t, "Tencent Finance", result.Source)
	require.Equal(t, 1, env.upstreams.count("push2.eastmoney.com"))
}

func TestBreaker_CoolsDownThenRecovers(t *testing.T) {
	env := newEnv(t)
	env.upstreams.set("push2.eastmoney.com", http.StatusInternalServerError, "boom")

	payload := map[string]string{"symbol": "600519", "currency": "CNY"}
	for i := 0; i < 3; i++ {
		rec := env.post(t, "/api/prices/update", payload)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "价格获取失败")
	}

	// Every source has failed three times inside the window; the next
	// request skips them all while they cool down.
	rec := env.post(t, "/api/prices/update", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "熔断冷却中")
	require.Equal(t, 3, env.upstreams.count("push2.eastmoney.com"))

	// After the cooldown the chain is walked again.
	env.clock.Advance(121 * time.Second)
	env.upstreams.set("push2.eastmoney.com", http.StatusOK, eastmoneyMaotai)

	rec = env.post(t, "/api/prices/update", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Eastmoney", decodeResult(t, rec).Source)
}

func TestHKConnect_ConvertsWithStoredRate(t *testing.T) {
	env := newEnv(t)
	env.upstreams.set("secid=128.00700", http.StatusOK, eastmoneyHK700)

	rec := env.post(t, "/api/prices/update", map[string]string{"symbol": "H00700", "currency": "CNY"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.NotNil(t, result.Price)
	// 615.5 HKD at the stored 0.92 rate.
	require.InDelta(t, 566.26, *result.Price, 1e-9)
	require.Equal(t, "Eastmoney HK Connect", result.Source)
}

func TestUpdateAll_ReportsPartialFailure(t *testing.T) {
	env := newEnv(t)
	env.upstreams.set("secid=1.600519", http.StatusOK, eastmoneyMaotai)

	ctx := context.Background()
	require.NoError(t, env.watch.Upsert(ctx, domain.WatchItem{Symbol: "600519", Currency: "CNY", AssetType: "stock", AutoUpdate: true}))
	require.NoError(t, env.watch.Upsert(ctx, domain.WatchItem{Symbol: "000002", Currency: "CNY", AssetType: "stock", AutoUpdate: true}))

	rec := env.post(t, "/api/prices/update-all", map[string]string{"currency": "CNY"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Updated int      `json:"updated"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Updated)
	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0], "000002")

	ops := env.logs.operations()
	require.Contains(t, ops, domain.OpPriceUpdate)
	require.Contains(t, ops, domain.OpPriceUpdateFailed)
}

func TestExchangeRateRefresh_UpdatesStoredRates(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"rates": map[string]float64{"CNY": 7.18}})
	}))
	defer upstream.Close()

	frank := fx.NewFrankfurter(&httpx.Client{HTTP: upstream.Client(), UserAgent: "InvestLog/1.0"})
	frank.BaseURL = upstream.URL

	env := newEnv(t, frank)
	rec := env.post(t, "/api/exchange-rates/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Updated int      `json:"updated"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Updated)
	require.Empty(t, resp.Errors)

	usd, err := env.rateStore.RateToCNY(context.Background(), "USD")
	require.NoError(t, err)
	require.Equal(t, 7.18, usd)
	hkd, err := env.rateStore.RateToCNY(context.Background(), "HKD")
	require.NoError(t, err)
	require.Equal(t, 7.18, hkd)
}
