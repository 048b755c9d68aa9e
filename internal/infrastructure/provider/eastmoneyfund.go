package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/macrohuang/invest-log/internal/domain"
)

var eastmoneyFundHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0",
	"Referer":    "http://fund.eastmoney.com/",
}

// reFundNAVRow matches a date/NAV cell pair in the LSJZ history table.
var reFundNAVRow = regexp.MustCompile(`<td[^>]*>\d{4}-\d{2}-\d{2}</td>\s*<td[^>]*>([\d.]+)</td>`)

// EastmoneyFund serves open-fund NAVs through three Eastmoney surfaces: the
// live estimate (GZ), the pingzhong data bundle (PZ) and the NAV history
// table (LSJZ). They degrade in freshness but agree on the unit value.
type EastmoneyFund struct {
	client *Client
}

func NewEastmoneyFund(client *Client) *EastmoneyFund { return &EastmoneyFund{client: client} }

// Estimate fetches the live NAV estimate (gsz), falling back to the latest
// published NAV (dwjz). The payload is JSONP: `jsonpgz({...});`.
func (e *EastmoneyFund) Estimate(ctx context.Context, symbol string) (*float64, error) {
	code := domain.NormalizeSymbol(symbol)
	if !reSixDigitCode.MatchString(code) {
		return nil, nil
	}
	url := fmt.Sprintf("http://fundgz.1234567.com.cn/js/%s.js", code)
	body, err := e.client.get(ctx, url, eastmoneyFundHeaders)
	if err != nil {
		return nil, err
	}
	text := string(body)
	start := strings.Index(text, "(")
	end := strings.LastIndex(text, ")")
	if start == -1 || end == -1 || end <= start {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(text[start+1:end]), &data); err != nil {
		return nil, err
	}
	value := data["gsz"]
	if value == nil {
		value = data["dwjz"]
	}
	price, err := parseFloat(value)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// Pingzhong fetches the pingzhongdata JS bundle and takes the last point of
// Data_netWorthTrend. Points appear either as {x, y} objects or [x, y] pairs.
func (e *EastmoneyFund) Pingzhong(ctx context.Context, symbol string) (*float64, error) {
	code := domain.NormalizeSymbol(symbol)
	if !reSixDigitCode.MatchString(code) {
		return nil, nil
	}
	url := fmt.Sprintf("http://fund.eastmoney.com/pingzhongdata/%s.js", code)
	body, err := e.client.get(ctx, url, eastmoneyFundHeaders)
	if err != nil {
		return nil, err
	}
	raw, ok := extractNetWorthTrend(string(body))
	if !ok {
		return nil, nil
	}
	var data []any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	switch last := data[len(data)-1].(type) {
	case map[string]any:
		price, err := parseFloat(last["y"])
		if err != nil {
			return nil, err
		}
		return &price, nil
	case []any:
		if len(last) >= 2 {
			price, err := parseFloat(last[1])
			if err != nil {
				return nil, err
			}
			return &price, nil
		}
	}
	return nil, nil
}

// NAVHistory fetches the first row of the NAV history table (page=1, per=1),
// which is the most recently published unit value.
func (e *EastmoneyFund) NAVHistory(ctx context.Context, symbol string) (*float64, error) {
	code := domain.NormalizeSymbol(symbol)
	if !reSixDigitCode.MatchString(code) {
		return nil, nil
	}
	url := fmt.Sprintf("http://fund.eastmoney.com/f10/F10DataApi.aspx?type=lsjz&code=%s&page=1&per=1", code)
	body, err := e.client.get(ctx, url, eastmoneyFundHeaders)
	if err != nil {
		return nil, err
	}
	matches := reFundNAVRow.FindStringSubmatch(string(body))
	if len(matches) < 2 {
		return nil, nil
	}
	price, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// extractNetWorthTrend slices the Data_netWorthTrend JSON array out of the
// pingzhong JS bundle.
func extractNetWorthTrend(text string) (string, bool) {
	marker := "var Data_netWorthTrend ="
	idx := strings.Index(text, marker)
	if idx == -1 {
		return "", false
	}
	rest := text[idx:]
	bracketStart := strings.Index(rest, "[")
	bracketEnd := strings.Index(rest, "];")
	if bracketStart == -1 || bracketEnd == -1 || bracketEnd < bracketStart {
		return "", false
	}
	return rest[bracketStart : bracketEnd+1], true
}
