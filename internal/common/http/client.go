// internal/common/http/client.go
package http

import (
	"context"
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes the outbound transport used for sub-requests.
type ClientOptions struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	DialTimeout         time.Duration
	IdleConnTimeout     time.Duration
}

// Client performs sub-requests. It carries no client-level timeout: streaming
// deadlines are enforced per request through the context instead, so a body
// that keeps flowing is never cut off by a fixed wall clock.
type Client struct {
	httpClient *http.Client
}

func NewClient(opts ClientOptions) *Client {
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 64
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = opts.MaxIdleConns
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.IdleConnTimeout <= 0 {
		opts.IdleConnTimeout = 90 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        opts.MaxIdleConns,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		IdleConnTimeout:     opts.IdleConnTimeout,
		TLSHandshakeTimeout: opts.DialTimeout,
		// Bodies are relayed byte for byte, never transparently decoded.
		DisableCompression: true,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
	}
}

// NewClientFromHTTP wraps an existing *http.Client, mostly for tests.
func NewClientFromHTTP(c *http.Client) *Client {
	return &Client{httpClient: c}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Get issues a GET bound to ctx.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// CloseIdleConnections drops pooled connections, used on shutdown.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
