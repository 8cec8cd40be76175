package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

// ClientHost sends every request to one host and waits on the limiter first, providers throttle hard
type ClientHost struct {
	client       *http.Client
	scheme       string
	host         string
	apiKey       string
	apiKeyHeader string
	limiter      *rate.Limiter
}

type Client struct {
	Connection Connection
}

func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	if err := conn.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting on rate limiter: %w", err)
	}

	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if conn.apiKey != "" {
		req.Header.Set(conn.apiKeyHeader, conn.apiKey)
	}

	return conn.client.Do(req)
}

type ClientOptions struct {
	Scheme            string // https unless set, tests point this at httptest servers
	Host              string
	APIKey            string
	APIKeyHeader      string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

func ClientFactory(opts ClientOptions) *Client {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}

	burst := max(opts.Burst, 1)
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	clientHost := &ClientHost{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		scheme:       scheme,
		host:         opts.Host,
		apiKey:       opts.APIKey,
		apiKeyHeader: opts.APIKeyHeader,
		limiter:      rate.NewLimiter(limit, burst),
	}

	return &Client{
		Connection: clientHost,
	}
}
