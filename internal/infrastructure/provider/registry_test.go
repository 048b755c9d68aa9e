package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
	"github.com/macrohuang/invest-log/internal/infrastructure/provider"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	rates map[string]float64
	err   error
}

func (s *stubRates) RateToCNY(_ context.Context, currency string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.rates[currency], nil
}

func sources(attempts []application.Attempt) []string {
	out := make([]string, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, a.Source)
	}
	return out
}

func TestRegistryAttempts_ChainOrder(t *testing.T) {
	t.Parallel()
	r := provider.NewRegistry(clientWith(nil), nil)

	tests := []struct {
		name  string
		class domain.InstrumentClass
		hint  string
		want  []string
	}{
		{
			name:  "a-share",
			class: domain.ClassAShare,
			want:  []string{"Eastmoney", "Tencent Finance", "Sina Finance", "Eastmoney Fund", "Yahoo Finance"},
		},
		{
			name:  "a-share with fund hint",
			class: domain.ClassAShare,
			hint:  "etf",
			want:  []string{"Eastmoney Fund", "Eastmoney", "Tencent Finance", "Sina Finance", "Yahoo Finance"},
		},
		{
			name:  "a-share with stock hint keeps order",
			class: domain.ClassAShare,
			hint:  "stock",
			want:  []string{"Eastmoney", "Tencent Finance", "Sina Finance", "Eastmoney Fund", "Yahoo Finance"},
		},
		{
			name:  "fund",
			class: domain.ClassFund,
			want:  []string{"Eastmoney Fund GZ", "Eastmoney Fund PZ", "Eastmoney Fund LSJZ", "Eastmoney"},
		},
		{
			name:  "hk connect",
			class: domain.ClassHKConnect,
			want:  []string{"Eastmoney HK Connect", "Yahoo Finance (HK Connect)", "Sina Finance (HK Connect)", "Tencent Finance (HK Connect)"},
		},
		{
			name:  "hk stock",
			class: domain.ClassHKStock,
			want:  []string{"Yahoo Finance", "Sina Finance", "Tencent Finance"},
		},
		{
			name:  "us stock",
			class: domain.ClassUSStock,
			want:  []string{"Yahoo Finance", "Sina Finance", "Tencent Finance"},
		},
		{
			name:  "gold",
			class: domain.ClassGold,
			want:  []string{"Yahoo Finance"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			attempts := r.Attempts(tt.class, "600519", "CNY", tt.hint)
			require.Equal(t, tt.want, sources(attempts))
		})
	}
}

func TestRegistryAttempts_NoChainForTerminalClasses(t *testing.T) {
	t.Parallel()
	r := provider.NewRegistry(clientWith(nil), nil)

	for _, class := range []domain.InstrumentClass{domain.ClassCash, domain.ClassBond, domain.ClassUnknown} {
		require.Nil(t, r.Attempts(class, "CASH", "CNY", ""))
	}
}

func TestRegistryHKConnect_ConvertsWithStoredRate(t *testing.T) {
	t.Parallel()
	c := newRoutingClient(map[string]string{
		"secid=128.00700": `{"data":{"f43":565000}}`,
	})
	rates := &stubRates{rates: map[string]float64{"HKD": 0.85}}
	r := provider.NewRegistry(clientWith(c), rates)

	attempts := r.Attempts(domain.ClassHKConnect, "H00700", "CNY", "")
	require.NotEmpty(t, attempts)

	price, err := attempts[0].Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, price)
	// 565.0 HKD * 0.85
	require.InDelta(t, 480.25, *price, 0.0001)
}

func TestRegistryHKConnect_FallsBackToDefaultRate(t *testing.T) {
	t.Parallel()
	c := newRoutingClient(map[string]string{
		"secid=128.00700": `{"data":{"f43":565000}}`,
	})
	rates := &stubRates{err: errors.New("rates unavailable")}
	r := provider.NewRegistry(clientWith(c), rates)

	attempts := r.Attempts(domain.ClassHKConnect, "H00700", "CNY", "")
	price, err := attempts[0].Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, price)
	// 565.0 HKD * 0.92 fallback
	require.InDelta(t, 519.8, *price, 0.0001)
}

func TestRegistryHKConnect_AbsentPriceSkipsConversion(t *testing.T) {
	t.Parallel()
	c := newRoutingClient(map[string]string{
		"secid=128.00700": `{"data":{}}`,
	})
	r := provider.NewRegistry(clientWith(c), &stubRates{rates: map[string]float64{"HKD": 0.85}})

	attempts := r.Attempts(domain.ClassHKConnect, "H00700", "CNY", "")
	price, err := attempts[0].Fetch(context.Background())
	require.NoError(t, err)
	require.Nil(t, price)
}

func TestRegistryGold_UsesStoredUSDRate(t *testing.T) {
	t.Parallel()
	c := newRoutingClient(map[string]string{
		"/chart/GC=F": `{"chart":{"result":[{"meta":{"regularMarketPrice":2486.50}}]}}`,
	})
	rates := &stubRates{rates: map[string]float64{"USD": 7.1}}
	r := provider.NewRegistry(clientWith(c), rates)

	attempts := r.Attempts(domain.ClassGold, "AU9999", "CNY", "")
	require.Len(t, attempts, 1)

	price, err := attempts[0].Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, price)
	// 2486.50 / 31.1035 * 7.1, rounded to 2dp.
	require.InDelta(t, 567.59, *price, 0.0001)
}

func TestRegistryGold_DefaultUSDRateWithoutSource(t *testing.T) {
	t.Parallel()
	c := newRoutingClient(map[string]string{
		"/chart/GC=F": `{"chart":{"result":[{"meta":{"regularMarketPrice":2486.50}}]}}`,
	})
	r := provider.NewRegistry(clientWith(c), nil)

	attempts := r.Attempts(domain.ClassGold, "AU9999", "CNY", "")
	price, err := attempts[0].Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, price)
	// 2486.50 / 31.1035 * 7.2 default, rounded to 2dp.
	require.InDelta(t, 575.59, *price, 0.0001)
}
