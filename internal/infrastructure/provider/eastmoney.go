package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/macrohuang/invest-log/internal/domain"
)

// Eastmoney push2 quotes report prices in scaled integers: A-share values
// above this threshold are fen and need dividing by 100.
const (
	priceScaleThreshold = 1000.0
	priceScaleFactor    = 100.0
	// HK Connect quotes come scaled by 1000 (565000 means 565.000 HKD).
	hkConnectScaleFactor = 1000.0
)

var reSixDigitCode = regexp.MustCompile(`^\d{6}$`)

var eastmoneyHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0",
	"Referer":    "http://quote.eastmoney.com/",
}

// Eastmoney serves A-share and HK Connect quotes from the push2 endpoint.
type Eastmoney struct {
	client *Client
}

func NewEastmoney(client *Client) *Eastmoney { return &Eastmoney{client: client} }

// AShare fetches the current price for a mainland listing. Symbols may carry
// an SH/SZ exchange prefix; bare codes starting with 6 default to Shanghai.
func (e *Eastmoney) AShare(ctx context.Context, symbol string) (*float64, error) {
	code := domain.NormalizeSymbol(symbol)
	market := 1
	if strings.HasPrefix(code, "SH") || strings.HasPrefix(code, "SZ") {
		market = 0
		if strings.HasPrefix(code, "SH") {
			market = 1
		}
		code = code[2:]
	} else if !strings.HasPrefix(code, "6") {
		market = 0
	}
	if !reSixDigitCode.MatchString(code) {
		return nil, nil
	}
	url := fmt.Sprintf("http://push2.eastmoney.com/api/qt/stock/get?secid=%d.%s&fields=f43&ut=fa5fd1943c7b386f172d6893dbfba10b", market, code)
	body, err := e.client.get(ctx, url, eastmoneyHeaders)
	if err != nil {
		return nil, err
	}
	price, err := parsePush2Price(body)
	if err != nil || price == nil {
		return nil, err
	}
	if *price > priceScaleThreshold {
		scaled := *price / priceScaleFactor
		return &scaled, nil
	}
	return price, nil
}

// HKConnect fetches a Stock Connect quote by bare HK code. The returned
// price is in HKD; the registry converts it.
func (e *Eastmoney) HKConnect(ctx context.Context, hkCode string) (*float64, error) {
	url := fmt.Sprintf("http://push2.eastmoney.com/api/qt/stock/get?secid=128.%s&fields=f43&ut=fa5fd1943c7b386f172d6893dbfba10b", hkCode)
	body, err := e.client.get(ctx, url, eastmoneyHeaders)
	if err != nil {
		return nil, err
	}
	price, err := parsePush2Price(body)
	if err != nil || price == nil {
		return nil, err
	}
	scaled := *price / hkConnectScaleFactor
	return &scaled, nil
}

func parsePush2Price(body []byte) (*float64, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	data, _ := payload["data"].(map[string]any)
	value, ok := data["f43"]
	if !ok {
		return nil, nil
	}
	price, err := parseFloat(value)
	if err != nil {
		return nil, err
	}
	return &price, nil
}
