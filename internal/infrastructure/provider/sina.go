package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/macrohuang/invest-log/internal/domain"
)

// Sina quote payloads are positional CSV inside a JS assignment, and the
// field that carries the current price differs per market.
const (
	sinaFieldAShare  = 3
	sinaFieldHKStock = 6
	sinaFieldUSStock = 1
)

var sinaHeaders = map[string]string{
	"Referer": "http://finance.sina.com.cn",
}

// Sina serves quotes from the hq.sinajs.cn list endpoint. The payload is
// GBK-encoded `var hq_str_<key>="f0,f1,f2,..."`.
type Sina struct {
	client *Client
}

func NewSina(client *Client) *Sina { return &Sina{client: client} }

func (s *Sina) AShare(ctx context.Context, symbol string) (*float64, error) {
	code := domain.NormalizeSymbol(symbol)
	prefix := "sz"
	if strings.HasPrefix(code, "SH") || strings.HasPrefix(code, "SZ") {
		prefix = strings.ToLower(code[:2])
		code = code[2:]
	} else if strings.HasPrefix(code, "6") {
		prefix = "sh"
	}
	return s.fetch(ctx, prefix+code, sinaFieldAShare)
}

func (s *Sina) HKStock(ctx context.Context, symbol string) (*float64, error) {
	code := padHKCode(domain.NormalizeSymbol(symbol))
	return s.fetch(ctx, "hk"+code, sinaFieldHKStock)
}

func (s *Sina) USStock(ctx context.Context, symbol string) (*float64, error) {
	code := strings.ToLower(domain.NormalizeSymbol(symbol))
	return s.fetch(ctx, "gb_"+code, sinaFieldUSStock)
}

func (s *Sina) fetch(ctx context.Context, key string, field int) (*float64, error) {
	url := fmt.Sprintf("http://hq.sinajs.cn/list=%s", key)
	body, err := s.client.getGBK(ctx, url, sinaHeaders)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(body), `="`, 2)
	if len(parts) < 2 {
		return nil, nil
	}
	data := strings.Split(parts[1], ",")
	if len(data) <= field {
		return nil, nil
	}
	price, err := strconv.ParseFloat(data[field], 64)
	if err != nil {
		return nil, nil
	}
	return &price, nil
}

// padHKCode zero-pads an HK stock code to five digits.
func padHKCode(code string) string {
	if len(code) < 5 {
		return strings.Repeat("0", 5-len(code)) + code
	}
	return code
}
