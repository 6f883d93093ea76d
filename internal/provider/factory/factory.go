package factory

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"gloss-relay/internal/config"
	"gloss-relay/internal/provider"
	ollamaProvider "gloss-relay/internal/provider/ollama"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// NewConfiguredProvider constructs the upstream provider from configuration.
func NewConfiguredProvider(cfg config.UpstreamConfig) (provider.Provider, error) {
	client := newHTTPClient(cfg.Timeout)
	p, err := ollamaProvider.New("ollama", cfg.URL, client)
	if err != nil {
		return nil, fmt.Errorf("initialise ollama provider: %w", err)
	}
	return p, nil
}

// newHTTPClient bounds every upstream call, body included, by timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
