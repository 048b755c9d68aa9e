package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/macrohuang/invest-log/internal/domain"
)

// Tencent quotes are `~`-separated GBK text; the current price sits at the
// same index for every market.
const tencentPriceField = 3

// Tencent serves quotes from the qt.gtimg.cn endpoint.
type Tencent struct {
	client *Client
}

func NewTencent(client *Client) *Tencent { return &Tencent{client: client} }

func (t *Tencent) AShare(ctx context.Context, symbol string) (*float64, error) {
	code := domain.NormalizeSymbol(symbol)
	prefix := "sz"
	if strings.HasPrefix(code, "SH") || strings.HasPrefix(code, "SZ") {
		prefix = strings.ToLower(code[:2])
		code = code[2:]
	} else if strings.HasPrefix(code, "6") {
		prefix = "sh"
	}
	return t.fetch(ctx, prefix+code)
}

func (t *Tencent) HKStock(ctx context.Context, symbol string) (*float64, error) {
	code := padHKCode(domain.NormalizeSymbol(symbol))
	return t.fetch(ctx, "hk"+code)
}

func (t *Tencent) USStock(ctx context.Context, symbol string) (*float64, error) {
	return t.fetch(ctx, "us"+domain.NormalizeSymbol(symbol))
}

func (t *Tencent) fetch(ctx context.Context, key string) (*float64, error) {
	url := fmt.Sprintf("http://qt.gtimg.cn/q=%s", key)
	body, err := t.client.getGBK(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(body), "~")
	if len(parts) <= tencentPriceField {
		return nil, nil
	}
	price, err := strconv.ParseFloat(parts[tencentPriceField], 64)
	if err != nil {
		return nil, nil
	}
	return &price, nil
}
