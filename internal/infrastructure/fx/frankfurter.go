// Package fx holds the exchange-rate providers behind the refresh flow.
// Unlike quote adapters these return hard errors: the rates service walks
// the provider list and records which one answered.
package fx

import (
	"context"
	"fmt"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/infrastructure/httpx"
)

// Ensure Frankfurter implements application.FXRateProvider.
var _ application.FXRateProvider = (*Frankfurter)(nil)

// Frankfurter fetches rates from the free frankfurter.app API (ECB data).
type Frankfurter struct {
	BaseURL string
	Client  *httpx.Client
}

func NewFrankfurter(client *httpx.Client) *Frankfurter {
	return &Frankfurter{BaseURL: "https://api.frankfurter.app", Client: client}
}

func (f *Frankfurter) Name() string { return "frankfurter" }

func (f *Frankfurter) Rate(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/latest?from=%s&to=%s", f.BaseURL, from, to)
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := f.Client.GetJSON(ctx, url, &payload); err != nil {
		return 0, fmt.Errorf("frankfurter: %w", err)
	}
	rate := payload.Rates[to]
	if rate <= 0 {
		return 0, fmt.Errorf("frankfurter: rate %s/%s missing in response", from, to)
	}
	return rate, nil
}
