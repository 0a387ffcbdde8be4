package ports

import (
	"context"
	"net/http"
)

type TransportRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type TransportResponse struct {
	StatusCode int
	Body       []byte
}

type Transport interface {
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}
