package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/macrohuang/invest-log/internal/domain"
)

// Fallback tuning applied when QuoteConfig fields are left zero.
const (
	defaultCacheTTL      = 30 * time.Second
	defaultFailThreshold = 3
	defaultFailWindow    = 60 * time.Second
	defaultCooldown      = 120 * time.Second
)

// QuoteConfig tunes the cache and the per-provider circuit breaker.
type QuoteConfig struct {
	CacheTTL      time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
}

// QuoteService resolves current prices by walking ordered provider chains,
// serving recent results from a short-TTL cache and skipping providers that
// are cooling down after repeated failures. Safe for concurrent use.
type QuoteService struct {
	registry ChainRegistry
	cache    *quoteCache
	breaker  *circuitBreaker
	clock    Clock
	metrics  QuoteMetrics
}

type Option func(*QuoteService)

func WithClock(c Clock) Option { return func(s *QuoteService) { s.clock = c } }

func WithMetrics(m QuoteMetrics) Option { return func(s *QuoteService) { s.metrics = m } }

func NewQuoteService(registry ChainRegistry, cfg QuoteConfig, opts ...Option) *QuoteService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = defaultFailThreshold
	}
	if cfg.FailWindow <= 0 {
		cfg.FailWindow = defaultFailWindow
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	s := &QuoteService{
		registry: registry,
		cache:    newQuoteCache(cfg.CacheTTL),
		breaker:  newCircuitBreaker(cfg.FailThreshold, cfg.FailWindow, cfg.Cooldown),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.metrics == nil {
		s.metrics = NoopMetrics{}
	}
	return s
}

// Quote returns the current price for a symbol. The cache is consulted first;
// on a miss the provider chain for the instrument's class is walked in order
// and the first price wins. The returned message always explains the outcome,
// with one line per attempted or skipped provider when everything fails.
//
// The only errors it returns are terminal non-price outcomes (unsupported
// currency, bonds, unrecognized symbols, chain exhaustion); all are retryable
// from the caller's point of view and none indicate a broken process.
func (s *QuoteService) Quote(ctx context.Context, symbol, currency, assetHint string) (domain.PriceResult, error) {
	symbol = domain.NormalizeSymbol(symbol)
	currency = domain.NormalizeCurrency(currency)
	assetHint = strings.ToLower(strings.TrimSpace(assetHint))
	if assetHint == "" {
		assetHint = "stock"
	}
	if !domain.ValidateCurrency(currency) {
		s.metrics.QuoteServed("invalid_currency")
		return domain.PriceResult{Message: fmt.Sprintf("不支持的货币: %s", currency)}, domain.ErrUnsupportedCurrency
	}

	class := domain.Classify(symbol, currency, assetHint)
	key := quoteKey(symbol, currency, class)

	if e, ok := s.cache.get(key, s.clock.Now()); ok {
		price := e.price
		s.metrics.QuoteServed("cache")
		return domain.PriceResult{
			Price:   &price,
			Source:  e.source,
			Message: fmt.Sprintf("价格获取成功 (缓存, 来源: %s)", e.source),
		}, nil
	}

	// Cash, bonds and unrecognized symbols never touch the cache or the
	// breaker; their outcome is fixed.
	switch class {
	case domain.ClassCash:
		price := 1.0
		s.metrics.QuoteServed("cash")
		return domain.PriceResult{Price: &price, Message: "现金价格固定为 1.0"}, nil
	case domain.ClassBond:
		s.metrics.QuoteServed("bond")
		return domain.PriceResult{Message: "债券价格暂不支持自动获取"}, domain.ErrBondNotSupported
	case domain.ClassUnknown:
		s.metrics.QuoteServed("unknown")
		return domain.PriceResult{Message: fmt.Sprintf("无法识别标的类型: %s", symbol)}, domain.ErrUnknownInstrument
	}

	attempts := s.registry.Attempts(class, symbol, currency, assetHint)
	var diags []string
	for _, attempt := range attempts {
		source := attempt.Source
		if !s.breaker.available(source, s.clock.Now()) {
			diags = append(diags, fmt.Sprintf("%s: 熔断冷却中", source))
			s.metrics.ProviderSkipped(source)
			continue
		}
		fetchStart := s.clock.Now()
		price, err := attempt.Fetch(ctx)
		s.metrics.ProviderLatency(source, s.clock.Now().Sub(fetchStart))
		if err == nil && price != nil {
			s.breaker.recordSuccess(source)
			s.cache.put(key, cacheEntry{price: *price, source: source, fetchedAt: s.clock.Now()})
			s.metrics.ProviderAttempt(source, true)
			s.metrics.QuoteServed("fetched")
			return domain.PriceResult{
				Price:   price,
				Source:  source,
				Message: fmt.Sprintf("价格获取成功 (来源: %s)", source),
			}, nil
		}
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: %v", source, err))
		} else {
			diags = append(diags, fmt.Sprintf("%s: 未获取到数据", source))
		}
		s.metrics.ProviderAttempt(source, false)
		if s.breaker.recordFailure(source, s.clock.Now()) {
			s.metrics.BreakerTripped(source)
		}
	}

	if len(diags) == 0 {
		diags = append(diags, "所有数据源均不可用")
	}
	s.metrics.QuoteServed("failed")
	msg := fmt.Sprintf("价格获取失败: %s", strings.Join(diags, "; "))
	return domain.PriceResult{Message: msg}, ErrAllSourcesFailed
}
