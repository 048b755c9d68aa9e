package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// maxBodySize caps upstream responses; quote payloads are tiny and anything
// bigger is a misbehaving endpoint.
const maxBodySize = 1 << 20

// Doer abstracts the HTTP client so tests can inject canned responses.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is the shared transport for quote upstreams. There is deliberately
// no retry here: a failed attempt falls through to the next provider in the
// chain, and the circuit breaker supplies the backoff.
type Client struct {
	HTTP Doer
}

func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// getGBK fetches url and transcodes the GBK payload to UTF-8. The legacy
// quote endpoints still serve GBK; invalid bytes become replacement runes
// rather than errors, so numeric fields always survive.
func (c *Client) getGBK(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, err := c.get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), body)
	if err != nil {
		return body, nil
	}
	return decoded, nil
}

// parseFloat accepts the value shapes the quote APIs actually produce:
// JSON numbers, quoted numbers, and the occasional integer.
func parseFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, errors.New("no value")
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		if v == "" {
			return 0, errors.New("empty value")
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}
