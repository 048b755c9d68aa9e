package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/macrohuang/invest-log/internal/domain"
)

// ouncesToGrams converts troy ounces to grams for the gold quote.
const ouncesToGrams = 31.1035

// goldFuturesSymbol is the COMEX gold front-month contract, quoted in USD
// per troy ounce.
const goldFuturesSymbol = "GC=F"

var yahooHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0",
}

// Yahoo serves quotes from the v8 chart endpoint. It is the sole gold source
// and the general fallback for everything listed outside the mainland.
type Yahoo struct {
	client *Client
}

func NewYahoo(client *Client) *Yahoo { return &Yahoo{client: client} }

// Stock fetches the latest market price for a symbol in its Yahoo notation.
func (y *Yahoo) Stock(ctx context.Context, symbol, currency string) (*float64, error) {
	yahooSymbol := buildYahooSymbol(symbol, currency)
	if yahooSymbol == "" {
		return nil, nil
	}
	url := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=1d", yahooSymbol)
	body, err := y.client.get(ctx, url, yahooHeaders)
	if err != nil {
		return nil, err
	}
	return parseYahooChart(body)
}

// Gold fetches the gold futures price and converts USD/oz into CNY/gram.
func (y *Yahoo) Gold(ctx context.Context, usdToCNY float64) (*float64, error) {
	price, err := y.Stock(ctx, goldFuturesSymbol, "USD")
	if err != nil || price == nil {
		return nil, err
	}
	if *price <= 0 {
		return nil, nil
	}
	converted := *price / ouncesToGrams * usdToCNY
	converted = math.Round(converted*100) / 100
	return &converted, nil
}

// parseYahooChart digs the current price out of a chart response: the meta
// regularMarketPrice when present and positive, else the last non-null close.
func parseYahooChart(body []byte) (*float64, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if v, err := jsonpath.Get("$.chart.result[0].meta.regularMarketPrice", payload); err == nil {
		if price, err := parseFloat(unwrapJSONPath(v)); err == nil && price > 0 {
			return &price, nil
		}
	}
	v, err := jsonpath.Get("$.chart.result[0].indicators.quote[0].close", payload)
	if err != nil {
		return nil, nil
	}
	closes, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		price, err := parseFloat(closes[i])
		if err != nil {
			return nil, err
		}
		return &price, nil
	}
	return nil, nil
}

// unwrapJSONPath flattens the single-element slice jsonpath sometimes wraps
// scalar results in.
func unwrapJSONPath(v any) any {
	if list, ok := v.([]any); ok && len(list) == 1 {
		return list[0]
	}
	return v
}

// buildYahooSymbol maps an internal symbol to Yahoo notation: mainland codes
// get .SS/.SZ suffixes, HK codes are zero-padded to four digits with .HK, and
// US tickers pass through unchanged.
func buildYahooSymbol(symbol, currency string) string {
	code := domain.NormalizeSymbol(symbol)
	currency = domain.NormalizeCurrency(currency)
	if currency == "CNY" {
		if strings.HasPrefix(code, "SH") || strings.HasPrefix(code, "SZ") {
			code = code[2:]
		}
		if strings.HasPrefix(code, "6") {
			return code + ".SS"
		}
		if reSixDigitCode.MatchString(code) {
			return code + ".SZ"
		}
	}
	if currency == "HKD" {
		code = strings.TrimPrefix(code, "HK")
		if len(code) < 4 {
			code = strings.Repeat("0", 4-len(code)) + code
		}
		return code + ".HK"
	}
	return code
}
