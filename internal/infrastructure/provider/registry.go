package provider

import (
	"context"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
)

// Fallback FX rates used when the rate source cannot answer. Real rates come
// from the exchange_rates table via the rate source.
const (
	fallbackHKDToCNY = 0.92
	fallbackUSDToCNY = 7.2
)

// Ensure Registry implements application.ChainRegistry.
var _ application.ChainRegistry = (*Registry)(nil)

// Registry owns the quote adapters and builds the ordered fetch attempts for
// each instrument class. It is assembled once at bootstrap; Attempts itself
// only closes over the adapters, so it is safe for concurrent use.
type Registry struct {
	eastmoney *Eastmoney
	fund      *EastmoneyFund
	sina      *Sina
	tencent   *Tencent
	yahoo     *Yahoo
	rates     application.RateSource
}

// NewRegistry builds the adapter set on a shared HTTP client. rates may be
// nil; conversions then use the fallback rates.
func NewRegistry(client *Client, rates application.RateSource) *Registry {
	return &Registry{
		eastmoney: NewEastmoney(client),
		fund:      NewEastmoneyFund(client),
		sina:      NewSina(client),
		tencent:   NewTencent(client),
		yahoo:     NewYahoo(client),
		rates:     rates,
	}
}

// Attempts returns the provider chain for a classified instrument. The
// attempt source names double as circuit-breaker keys and diagnostic labels,
// so they must stay stable.
func (r *Registry) Attempts(class domain.InstrumentClass, symbol, currency, assetHint string) []application.Attempt {
	switch class {
	case domain.ClassAShare:
		chain := []application.Attempt{
			{Source: "Eastmoney", Fetch: func(ctx context.Context) (*float64, error) {
				return r.eastmoney.AShare(ctx, symbol)
			}},
			{Source: "Tencent Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.tencent.AShare(ctx, symbol)
			}},
			{Source: "Sina Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.sina.AShare(ctx, symbol)
			}},
			{Source: "Eastmoney Fund", Fetch: func(ctx context.Context) (*float64, error) {
				return r.fund.Estimate(ctx, symbol)
			}},
			{Source: "Yahoo Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.yahoo.Stock(ctx, symbol, currency)
			}},
		}
		if domain.FundFirstHint(assetHint) {
			return fundFirst(chain)
		}
		return chain

	case domain.ClassFund:
		return []application.Attempt{
			{Source: "Eastmoney Fund GZ", Fetch: func(ctx context.Context) (*float64, error) {
				return r.fund.Estimate(ctx, symbol)
			}},
			{Source: "Eastmoney Fund PZ", Fetch: func(ctx context.Context) (*float64, error) {
				return r.fund.Pingzhong(ctx, symbol)
			}},
			{Source: "Eastmoney Fund LSJZ", Fetch: func(ctx context.Context) (*float64, error) {
				return r.fund.NAVHistory(ctx, symbol)
			}},
			{Source: "Eastmoney", Fetch: func(ctx context.Context) (*float64, error) {
				return r.eastmoney.AShare(ctx, symbol)
			}},
		}

	case domain.ClassHKConnect:
		hkCode := domain.HKConnectCode(domain.NormalizeSymbol(symbol))
		return []application.Attempt{
			{Source: "Eastmoney HK Connect", Fetch: r.inCNY(func(ctx context.Context) (*float64, error) {
				return r.eastmoney.HKConnect(ctx, hkCode)
			})},
			{Source: "Yahoo Finance (HK Connect)", Fetch: r.inCNY(func(ctx context.Context) (*float64, error) {
				return r.yahoo.Stock(ctx, hkCode, "HKD")
			})},
			{Source: "Sina Finance (HK Connect)", Fetch: r.inCNY(func(ctx context.Context) (*float64, error) {
				return r.sina.HKStock(ctx, hkCode)
			})},
			{Source: "Tencent Finance (HK Connect)", Fetch: r.inCNY(func(ctx context.Context) (*float64, error) {
				return r.tencent.HKStock(ctx, hkCode)
			})},
		}

	case domain.ClassHKStock:
		return []application.Attempt{
			{Source: "Yahoo Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.yahoo.Stock(ctx, symbol, currency)
			}},
			{Source: "Sina Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.sina.HKStock(ctx, symbol)
			}},
			{Source: "Tencent Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.tencent.HKStock(ctx, symbol)
			}},
		}

	case domain.ClassUSStock:
		return []application.Attempt{
			{Source: "Yahoo Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.yahoo.Stock(ctx, symbol, currency)
			}},
			{Source: "Sina Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.sina.USStock(ctx, symbol)
			}},
			{Source: "Tencent Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.tencent.USStock(ctx, symbol)
			}},
		}

	case domain.ClassGold:
		return []application.Attempt{
			{Source: "Yahoo Finance", Fetch: func(ctx context.Context) (*float64, error) {
				return r.yahoo.Gold(ctx, r.rateToCNY(ctx, "USD", fallbackUSDToCNY))
			}},
		}

	default:
		return nil
	}
}

// fundFirst moves the fund NAV attempt to the front, keeping the rest of the
// chain in order. Used when the asset hint says the 6-digit code is not a
// plain stock.
func fundFirst(chain []application.Attempt) []application.Attempt {
	reordered := make([]application.Attempt, 0, len(chain))
	for _, a := range chain {
		if a.Source == "Eastmoney Fund" {
			reordered = append(reordered, a)
		}
	}
	for _, a := range chain {
		if a.Source != "Eastmoney Fund" {
			reordered = append(reordered, a)
		}
	}
	return reordered
}

// inCNY wraps an HKD-quoting fetch so the chain yields CNY.
func (r *Registry) inCNY(fetch func(ctx context.Context) (*float64, error)) func(ctx context.Context) (*float64, error) {
	return func(ctx context.Context) (*float64, error) {
		price, err := fetch(ctx)
		if err != nil || price == nil {
			return nil, err
		}
		converted := *price * r.rateToCNY(ctx, "HKD", fallbackHKDToCNY)
		return &converted, nil
	}
}

func (r *Registry) rateToCNY(ctx context.Context, currency string, fallback float64) float64 {
	if r.rates == nil {
		return fallback
	}
	rate, err := r.rates.RateToCNY(ctx, currency)
	if err != nil || rate <= 0 {
		return fallback
	}
	return rate
}
