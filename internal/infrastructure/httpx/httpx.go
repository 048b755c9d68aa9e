// Package httpx is the JSON client behind the FX rate providers. Quote
// adapters do not use it: their second chances come from the provider chain
// and the circuit breaker, while an FX refresh has exactly one upstream per
// provider and earns a short retry instead.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryInitialInterval = 250 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
	retryBudget          = 5 * time.Second
)

// Client issues JSON GETs with a bounded retry on transport errors and 5xx
// answers. A 4xx answer and a malformed body are terminal.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval
	policy.MaxElapsedTime = retryBudget

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		resp, err := httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode body: %w", err))
		}
		return nil
	}
	return backoff.Retry(attempt, backoff.WithContext(policy, ctx))
}
