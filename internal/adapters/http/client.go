// Package http provides the resty-based transports: a device-facing adapter
// for the local Envoy and a dedicated client for the Enlighten cloud.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"envoyauth/internal/domain"
)

const (
	// Cloud requests cross the public internet and get a fixed budget.
	cloudTimeout         = 10 * time.Second
	cloudRedirectLimit   = 10
	defaultDeviceTimeout = 30 * time.Second
	contentTypeJSON      = "application/json"

	// Rate limiting for the local Envoy, which is easily overwhelmed.
	rateLimitRequestsPerSecond = 10
	rateLimitBurst             = 20
)

// Adapter is the device-facing HTTP client. Envoys ship self-signed
// certificates, so TLS verification is caller-configurable.
type Adapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewAdapter creates a device adapter. A zero timeout selects the default.
func NewAdapter(timeout time.Duration, insecureSkipVerify bool, logger *slog.Logger) *Adapter {
	if timeout == 0 {
		timeout = defaultDeviceTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // Envoys commonly run self-signed certificates
		})

	limiter := rate.NewLimiter(rate.Limit(rateLimitRequestsPerSecond), rateLimitBurst)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.DebugContext(req.Context(), "HTTP request",
			"method", req.Method,
			"url", req.URL,
		)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.DebugContext(resp.Request.Context(), "HTTP response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
		)
		return nil
	})

	return &Adapter{
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// SetDigestAuth applies a digest credential to every subsequent request. Used
// with the legacy authentication scheme.
func (a *Adapter) SetDigestAuth(cred *domain.DigestCredential) {
	a.client.SetDigestAuth(cred.Username, cred.Password)
}

// Get performs a GET request with the given headers.
func (a *Adapter) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GET request: %w", err)
	}
	return resp.RawResponse, nil
}

// Post performs a POST request with the given headers and optional JSON payload.
func (a *Adapter) Post(
	ctx context.Context,
	url string,
	headers map[string]string,
	payload any,
) (*http.Response, error) {
	request := a.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true)

	if payload != nil {
		request.SetHeader("Content-Type", contentTypeJSON).SetBody(payload)
	}

	resp, err := request.Post(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute POST request: %w", err)
	}
	return resp.RawResponse, nil
}

// CloudClient is the dedicated transport for Enlighten round-trips: strict
// certificate verification, a fixed 10-second budget per call, redirects
// followed. One instance serves one token acquisition and is closed after.
type CloudClient struct {
	client *resty.Client
	logger *slog.Logger
}

// NewCloudClient creates a cloud client.
func NewCloudClient(logger *slog.Logger) *CloudClient {
	client := resty.New().
		SetTimeout(cloudTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(cloudRedirectLimit))

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.DebugContext(resp.Request.Context(), "Cloud HTTP response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
		)
		return nil
	})

	return &CloudClient{
		client: client,
		logger: logger,
	}
}

// PostForm performs a form-encoded POST request.
func (c *CloudClient) PostForm(
	ctx context.Context,
	url string,
	fields map[string]string,
) (*http.Response, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(fields).
		SetDoNotParseResponse(true).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute form POST request: %w", err)
	}
	return resp.RawResponse, nil
}

// PostJSON performs a POST request with a JSON payload.
func (c *CloudClient) PostJSON(
	ctx context.Context,
	url string,
	payload any,
) (*http.Response, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeJSON).
		SetBody(payload).
		SetDoNotParseResponse(true).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute JSON POST request: %w", err)
	}
	return resp.RawResponse, nil
}

// Close releases the client's idle connections.
func (c *CloudClient) Close() {
	c.client.GetClient().CloseIdleConnections()
}
