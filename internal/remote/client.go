// Package remote is the outbound HTTP boundary of the stores.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Options describes one request.
type Options struct {
	Method  string
	Headers map[string]string
	Body    []byte
}

// Client performs a request and returns the raw response body. It fails on
// transport errors and on non-2xx statuses.
type Client interface {
	Request(ctx context.Context, url string, opts Options) ([]byte, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, url string, opts Options) ([]byte, error)

func (f ClientFunc) Request(ctx context.Context, url string, opts Options) ([]byte, error) {
	return f(ctx, url, opts)
}

// HTTPClient implements Client with net/http.
type HTTPClient struct {
	Client *http.Client
}

// NewHTTPClient creates a client with the given timeout and optional proxy.
func NewHTTPClient(timeout time.Duration, proxyURL string) *HTTPClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *HTTPClient) Request(ctx context.Context, endpoint string, opts Options) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}
