package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/macrohuang/invest-log/internal/domain"
)

// fxPairs are the maintained conversion pairs; everything settles into CNY.
var fxPairs = [][2]string{
	{"USD", "CNY"},
	{"HKD", "CNY"},
}

// RatesService maintains the FX rates used for HKD and USD price conversion.
type RatesService struct {
	store     RateStore
	oplog     OperationLogStore
	providers []FXRateProvider
}

var _ RateSource = (*RatesService)(nil)

func NewRatesService(store RateStore, oplog OperationLogStore, providers ...FXRateProvider) *RatesService {
	return &RatesService{store: store, oplog: oplog, providers: providers}
}

func (s *RatesService) List(ctx context.Context) ([]domain.ExchangeRate, error) {
	return s.store.List(ctx)
}

// SetRate stores a rate into CNY. An empty source is recorded as manual.
func (s *RatesService) SetRate(ctx context.Context, fromCurrency string, rate float64, source string) error {
	fromCurrency = domain.NormalizeCurrency(fromCurrency)
	if err := validateRatePair(fromCurrency); err != nil {
		return err
	}
	if rate <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrBadRequest)
	}
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = domain.RateSourceManual
	}
	return s.store.Upsert(ctx, fromCurrency, rate, source)
}

// RateToCNY resolves the conversion rate for a currency. CNY is always 1.
func (s *RatesService) RateToCNY(ctx context.Context, currency string) (float64, error) {
	currency = domain.NormalizeCurrency(currency)
	if currency == "CNY" {
		return 1, nil
	}
	if err := validateRatePair(currency); err != nil {
		return 0, err
	}
	rate, err := s.store.RateToCNY(ctx, currency)
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid exchange rate for %s/CNY", currency)
	}
	return rate, nil
}

// Refresh pulls USD/CNY and HKD/CNY from the online providers, first success
// per pair wins. Returns the number of pairs updated and one line per pair
// that failed.
func (s *RatesService) Refresh(ctx context.Context) (int, []string, error) {
	updated := 0
	var failures []string
	for _, pair := range fxPairs {
		from, to := pair[0], pair[1]
		rate, source, err := s.fetchRate(ctx, from, to)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s/%s: %v", from, to, err))
			continue
		}
		if err := s.store.Upsert(ctx, from, rate, domain.RateSourceAutoFetch); err != nil {
			return updated, failures, err
		}
		details := fmt.Sprintf("%s/%s = %.4f (%s)", from, to, rate, source)
		_, _ = s.oplog.Append(ctx, domain.OperationLog{
			Operation: domain.OpRateRefresh,
			Currency:  &from,
			Details:   &details,
		})
		updated++
	}
	return updated, failures, nil
}

func (s *RatesService) fetchRate(ctx context.Context, from, to string) (float64, string, error) {
	errs := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		rate, err := p.Rate(ctx, from, to)
		if err == nil {
			return rate, p.Name(), nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
	}
	return 0, "", fmt.Errorf("all providers failed (%s)", strings.Join(errs, "; "))
}

func validateRatePair(fromCurrency string) error {
	switch fromCurrency {
	case "USD", "HKD":
		return nil
	default:
		return fmt.Errorf("%w: no %s/CNY rate is maintained", ErrBadRequest, fromCurrency)
	}
}
