package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
	"github.com/macrohuang/invest-log/internal/infrastructure/logx"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

var validate = validator.New()

// Server exposes the price and exchange-rate operations over HTTP.
type Server struct {
	updater *application.PriceUpdater
	rates   *application.RatesService
	prices  application.PriceStore
	logs    application.OperationLogStore
	idem    application.IdempotencyStore
	ready   func(ctx context.Context) error
}

func NewServer(updater *application.PriceUpdater, rates *application.RatesService, prices application.PriceStore, logs application.OperationLogStore, idem application.IdempotencyStore) *Server {
	if idem == nil {
		idem = application.NoopIdempotency{}
	}
	return &Server{updater: updater, rates: rates, prices: prices, logs: logs, idem: idem}
}

// SetReadyCheck installs the dependency probe behind /readyz.
func (s *Server) SetReadyCheck(check func(ctx context.Context) error) { s.ready = check }

// Request payloads.
//
// The update endpoint leaves currency free-form on purpose: an unsupported
// currency is answered by the quote pipeline's own diagnostic message, not a
// generic validation error.

type updatePricePayload struct {
	Symbol    string `json:"symbol" validate:"required"`
	Currency  string `json:"currency" validate:"required"`
	AssetType string `json:"asset_type"`
}

type manualPricePayload struct {
	Symbol   string  `json:"symbol" validate:"required"`
	Currency string  `json:"currency" validate:"required,oneof=CNY USD HKD"`
	Price    float64 `json:"price" validate:"required,gt=0"`
}

type updateAllPricesPayload struct {
	Currency string `json:"currency" validate:"required,oneof=CNY USD HKD"`
}

type exchangeRatePayload struct {
	FromCurrency string  `json:"from_currency" validate:"required,oneof=USD HKD"`
	Rate         float64 `json:"rate" validate:"required,gt=0"`
	Source       string  `json:"source" validate:"omitempty,oneof=manual default auto_fetch"`
}

// Response shapes.

type latestPriceResponse struct {
	Symbol    string    `json:"symbol"`
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type exchangeRateResponse struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
	Source       string    `json:"source"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type operationLogResponse struct {
	ID            int64     `json:"id"`
	OperationType string    `json:"operation_type"`
	Symbol        *string   `json:"symbol,omitempty"`
	Currency      *string   `json:"currency,omitempty"`
	Details       *string   `json:"details,omitempty"`
	PriceFetched  *float64  `json:"price_fetched,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) updatePrice(w http.ResponseWriter, r *http.Request) {
	var payload updatePricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	payload.Currency = domain.NormalizeCurrency(payload.Currency)
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	result, err := s.updater.UpdatePrice(r.Context(), payload.Symbol, payload.Currency, payload.AssetType)
	if err != nil {
		if result.Price == nil {
			writeError(w, http.StatusBadRequest, result.Message)
			return
		}
		// The price was fetched but did not land in storage.
		writeError(w, http.StatusInternalServerError, "failed to persist price")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) manualUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var payload manualPricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	payload.Currency = domain.NormalizeCurrency(payload.Currency)
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if err := s.updater.ManualUpdatePrice(r.Context(), payload.Symbol, payload.Currency, payload.Price); err != nil {
		if errors.Is(err, application.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) updateAllPrices(w http.ResponseWriter, r *http.Request) {
	var payload updateAllPricesPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	payload.Currency = domain.NormalizeCurrency(payload.Currency)
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		reserved, err := s.idem.TryReserve(r.Context(), key)
		if err != nil {
			// Dedup is best effort: the sweep itself skips freshly
			// updated symbols, so proceed when the store is down.
			logx.WithFields(r.Context()).Warn("idempotency check failed", zap.Error(err))
		} else if !reserved {
			writeError(w, http.StatusConflict, "duplicate request")
			return
		}
	}
	count, failures, err := s.updater.UpdateAllPrices(r.Context(), payload.Currency)
	if err != nil {
		if errors.Is(err, application.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": count, "errors": failures})
}

func (s *Server) getLatestPrice(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.URL.Query().Get("symbol"))
	currency := domain.NormalizeCurrency(r.URL.Query().Get("currency"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if currency == "" {
		currency = "CNY"
	}
	price, err := s.prices.GetLatest(r.Context(), symbol, currency)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no stored price for %s/%s", symbol, currency))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, latestPriceResponse{
		Symbol:    price.Symbol,
		Currency:  price.Currency,
		Price:     price.Price,
		Source:    price.Source,
		UpdatedAt: price.UpdatedAt,
	})
}

func (s *Server) getExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.rates.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]exchangeRateResponse, 0, len(rates))
	for _, rate := range rates {
		out = append(out, exchangeRateResponse{
			FromCurrency: rate.FromCurrency,
			ToCurrency:   rate.ToCurrency,
			Rate:         rate.Rate,
			Source:       rate.Source,
			UpdatedAt:    rate.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setExchangeRate(w http.ResponseWriter, r *http.Request) {
	var payload exchangeRatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	payload.FromCurrency = domain.NormalizeCurrency(payload.FromCurrency)
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if err := s.rates.SetRate(r.Context(), payload.FromCurrency, payload.Rate, payload.Source); err != nil {
		if errors.Is(err, application.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) refreshExchangeRates(w http.ResponseWriter, r *http.Request) {
	updated, failures, err := s.rates.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated, "errors": failures})
}

func (s *Server) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), defaultLogLimit)
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	entries, err := s.logs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]operationLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, operationLogResponse{
			ID:            e.ID,
			OperationType: e.Operation,
			Symbol:        e.Symbol,
			Currency:      e.Currency,
			Details:       e.Details,
			PriceFetched:  e.PriceFetched,
			CreatedAt:     e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", jsonFieldName(fe))
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", jsonFieldName(fe), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", jsonFieldName(fe), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", jsonFieldName(fe), fe.Tag())
	}
}

// jsonFieldName lowercases the struct field into its wire spelling; the
// payloads here use single-word or snake_case names that match their JSON
// tags once lowercased at the first rune.
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "request"
	}
	return snakeCase(name)
}

func snakeCase(name string) string {
	out := make([]rune, 0, len(name)+4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}
