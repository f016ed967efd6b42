package domain

import (
	"context"
	"net/http"
)

// HTTPAdapter defines the device-facing HTTP operations.
type HTTPAdapter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error)
	Post(ctx context.Context, url string, headers map[string]string, payload any) (*http.Response, error)
}

// CloudTransport is the dedicated client for Enlighten round-trips. It is
// scoped to a single token acquisition; Close releases its connections.
type CloudTransport interface {
	PostForm(ctx context.Context, url string, fields map[string]string) (*http.Response, error)
	PostJSON(ctx context.Context, url string, payload any) (*http.Response, error)
	Close()
}

// CloudTransportFactory builds a fresh CloudTransport per token acquisition.
type CloudTransportFactory func() CloudTransport
