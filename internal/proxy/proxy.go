// Package proxy fetches artifacts from the large-object download service,
// which reads files straight from the storage channel by message coordinate
// when the Bot API refuses them as too big.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fileslink/internal/services"
)

// Response is a successful proxy download. Header values are empty when the
// service did not send them.
type Response struct {
	Body               []byte
	ContentType        string
	ContentDisposition string
}

// Client addresses the proxy's `/download/{namespace}/{message}` route.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each download. Zero keeps the transport defaults.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// New creates a proxy client. An empty baseURL yields a client whose every
// fetch reports the service as unavailable.
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch downloads message messageID from channel namespace.
func (c *Client) Fetch(ctx context.Context, namespace, messageID int64) (*Response, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrUnavailable, "proxy", "fetch", "large file download service not configured", nil)
	}
	endpoint := fmt.Sprintf("%s/download/%d/%d", c.baseURL, namespace, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "proxy", "fetch", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "proxy", "fetch", "download service temporarily unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, services.Wrap(services.ErrUpstream, "proxy", "fetch", fmt.Sprintf("download service returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "proxy", "fetch", "read body", err)
	}
	return &Response{
		Body:               body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}
