package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHostSetsHostAndApiKey(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotKey = r.Header.Get("x-test-key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := ClientFactory(ClientOptions{
		Scheme:       "http",
		Host:         strings.TrimPrefix(server.URL, "http://"),
		APIKey:       "secret",
		APIKeyHeader: "x-test-key",
		Timeout:      time.Second,
	})

	endpoint := &url.URL{Path: "/api/v3/ping", RawQuery: "a=b"}
	res, err := c.Connection.Request(context.Background(), endpoint)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "/api/v3/ping?a=b", gotPath)
	assert.Equal(t, "secret", gotKey)
}

func TestClientHostRespectsCancelledContextWhileRateLimited(t *testing.T) {
	c := ClientFactory(ClientOptions{Scheme: "http", Host: "127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	host := c.Connection.(*ClientHost)
	host.limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Connection.Request(ctx, &url.URL{Path: "/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
