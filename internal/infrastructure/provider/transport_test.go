package provider_test

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/macrohuang/invest-log/internal/infrastructure/provider"
)

func response(code int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}

// fixedClient answers every request with the same payload and records the
// last request for URL/header assertions.
type fixedClient struct {
	mu   sync.Mutex
	code int
	body []byte
	last *http.Request
}

func newFixedClient(code int, body string) *fixedClient {
	return &fixedClient{code: code, body: []byte(body)}
}

func (c *fixedClient) Do(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.last = r
	c.mu.Unlock()
	return response(c.code, c.body), nil
}

func (c *fixedClient) lastURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return ""
	}
	return c.last.URL.String()
}

func (c *fixedClient) lastHeader(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return ""
	}
	return c.last.Header.Get(key)
}

// routingClient answers by URL substring, for chains that hit several hosts.
type routingClient struct {
	mu     sync.Mutex
	routes map[string]string
	calls  []string
}

func newRoutingClient(routes map[string]string) *routingClient {
	return &routingClient{routes: routes}
}

func (c *routingClient) Do(r *http.Request) (*http.Response, error) {
	url := r.URL.String()
	c.mu.Lock()
	c.calls = append(c.calls, url)
	c.mu.Unlock()
	for frag, body := range c.routes {
		if strings.Contains(url, frag) {
			return response(http.StatusOK, []byte(body)), nil
		}
	}
	return response(http.StatusNotFound, []byte("not found")), nil
}

func clientWith(doer provider.Doer) *provider.Client {
	return &provider.Client{HTTP: doer}
}
