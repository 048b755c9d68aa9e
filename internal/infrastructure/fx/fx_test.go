package fx_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/macrohuang/invest-log/internal/infrastructure/fx"
	"github.com/macrohuang/invest-log/internal/infrastructure/httpx"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func jsonClient(body string, code int, gotURL *string) *httpx.Client {
	return &httpx.Client{
		UserAgent: "InvestLog/1.0",
		HTTP: &http.Client{
			Timeout: 2 * time.Second,
			Transport: roundTripFunc(func(r *http.Request) *http.Response {
				if gotURL != nil {
					*gotURL = r.URL.String()
				}
				return &http.Response{
					StatusCode: code,
					Body:       io.NopCloser(strings.NewReader(body)),
					Header:     make(http.Header),
				}
			}),
		},
	}
}

func TestFrankfurterRate_OK(t *testing.T) {
	var gotURL string
	p := fx.NewFrankfurter(jsonClient(`{"amount":1,"base":"USD","rates":{"CNY":7.13}}`, 200, &gotURL))

	rate, err := p.Rate(context.Background(), "USD", "CNY")
	require.NoError(t, err)
	require.InDelta(t, 7.13, rate, 0.0001)
	require.Contains(t, gotURL, "/latest?from=USD&to=CNY")
	require.Equal(t, "frankfurter", p.Name())
}

func TestFrankfurterRate_MissingPair(t *testing.T) {
	p := fx.NewFrankfurter(jsonClient(`{"rates":{"EUR":0.92}}`, 200, nil))

	_, err := p.Rate(context.Background(), "USD", "CNY")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestFrankfurterRate_HTTPError(t *testing.T) {
	p := fx.NewFrankfurter(jsonClient(`not found`, 404, nil))

	_, err := p.Rate(context.Background(), "USD", "CNY")
	require.Error(t, err)
}

func TestOpenERAPIRate_OK(t *testing.T) {
	var gotURL string
	p := fx.NewOpenERAPI(jsonClient(`{"result":"success","rates":{"CNY":7.18,"HKD":7.8}}`, 200, &gotURL))

	rate, err := p.Rate(context.Background(), "USD", "CNY")
	require.NoError(t, err)
	require.InDelta(t, 7.18, rate, 0.0001)
	require.Contains(t, gotURL, "/v6/latest/USD")
	require.Equal(t, "open_er_api", p.Name())
}

func TestOpenERAPIRate_ErrorResult(t *testing.T) {
	p := fx.NewOpenERAPI(jsonClient(`{"result":"error","error-type":"invalid-key"}`, 200, nil))

	_, err := p.Rate(context.Background(), "USD", "CNY")
	require.Error(t, err)
	require.Contains(t, err.Error(), "provider status")
}

func TestOpenERAPIRate_ZeroRateRejected(t *testing.T) {
	p := fx.NewOpenERAPI(jsonClient(`{"result":"success","rates":{"CNY":0}}`, 200, nil))

	_, err := p.Rate(context.Background(), "USD", "CNY")
	require.Error(t, err)
}
