package provider

import (
	"context"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
)

var _ application.ChainRegistry = (*Fake)(nil)

// Fake is a single-source registry that quotes a fixed price for every
// instrument. Local runs select it with QUOTE_PROVIDER=fake to exercise the
// full update path without touching upstreams.
type Fake struct {
	price float64
}

func NewFake(price float64) *Fake { return &Fake{price: price} }

func (f *Fake) Attempts(domain.InstrumentClass, string, string, string) []application.Attempt {
	fetch := func(context.Context) (*float64, error) {
		price := f.price
		return &price, nil
	}
	return []application.Attempt{{Source: "Fake", Fetch: fetch}}
}
