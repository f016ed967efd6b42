package auth

import (
	"context"
	"fmt"

	"envoyauth/internal/domain"
)

// LegacyAuth authenticates against older Envoy firmware with local digest
// credentials. It is stateless beyond construction.
type LegacyAuth struct {
	host     string
	username string
	password string
}

// NewLegacyAuth creates a digest authenticator for the given Envoy.
func NewLegacyAuth(host, username, password string) *LegacyAuth {
	return &LegacyAuth{
		host:     host,
		username: username,
		password: password,
	}
}

// Setup is a no-op; legacy authentication needs no network round-trip.
func (a *LegacyAuth) Setup(ctx context.Context, transport domain.HTTPAdapter) error {
	return nil
}

// Auth returns the digest credential, or nil when either half is missing so
// the transport applies no auth at all.
func (a *LegacyAuth) Auth() *domain.DigestCredential {
	if a.username == "" || a.password == "" {
		return nil
	}
	return &domain.DigestCredential{
		Username: a.username,
		Password: a.password,
	}
}

// Headers returns an empty map; digest auth is applied by the transport.
func (a *LegacyAuth) Headers() map[string]string {
	return map[string]string{}
}

// Cookies returns an empty map; legacy authentication uses no session cookie.
func (a *LegacyAuth) Cookies() map[string]string {
	return map[string]string{}
}

// EndpointURL returns the plain-HTTP URL for a device endpoint path.
func (a *LegacyAuth) EndpointURL(path string) string {
	return fmt.Sprintf("http://%s%s", a.host, path)
}
