package domain

import "context"

// DigestCredential is the username/password pair used for HTTP digest
// authentication against older Envoy firmware.
type DigestCredential struct {
	Username string
	Password string
}

// Authenticator produces the credentials attached to Envoy API requests.
// Setup must succeed before the credential accessors are read.
type Authenticator interface {
	// Setup performs any network round-trips needed before credentials can
	// be read. The transport is the device-facing HTTP client.
	Setup(ctx context.Context, transport HTTPAdapter) error

	// Cookies returns session cookies captured during Setup.
	Cookies() map[string]string

	// Auth returns the digest credential for the transport to apply, or nil
	// when the scheme does not use one.
	Auth() *DigestCredential

	// Headers returns the headers to attach to device requests.
	Headers() map[string]string

	// EndpointURL returns the absolute URL for a device endpoint path.
	EndpointURL(path string) string
}

// PasswordReader handles secure password input from users.
type PasswordReader interface {
	ReadPassword(ctx context.Context, prompt string) (string, error)
	IsInteractive() bool
}
