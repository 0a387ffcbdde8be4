// Package http sends Bungie API requests over net/http, negotiating HTTP/2
// when the server offers it.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/bnema/destiny-cli/internal/ports"
)

const maxResponseBytes = 32 << 20

type Options struct {
	// HTTP2 configures the transport for h2 over TLS.
	HTTP2           bool
	IdleConnTimeout time.Duration
}

type Transport struct {
	client *http.Client
}

var _ ports.Transport = (*Transport)(nil)

func New(opts Options) (*Transport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.IdleConnTimeout > 0 {
		base.IdleConnTimeout = opts.IdleConnTimeout
	}
	if opts.HTTP2 {
		if err := http2.ConfigureTransport(base); err != nil {
			return nil, fmt.Errorf("configure http2 transport: %w", err)
		}
	}
	return &Transport{client: &http.Client{Transport: base}}, nil
}

// NewWithClient wraps an existing client, mostly for tests.
func NewWithClient(client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{client: client}
}

func (t *Transport) Do(ctx context.Context, req ports.TransportRequest) (ports.TransportResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return ports.TransportResponse{}, fmt.Errorf("create request: %w", err)
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return ports.TransportResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.TransportResponse{}, fmt.Errorf("read response body: %w", err)
	}

	return ports.TransportResponse{StatusCode: resp.StatusCode, Body: data}, nil
}
