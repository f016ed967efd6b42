// Package auth implements the two Envoy authentication schemes: bearer-token
// authentication backed by the Enlighten cloud service, and legacy digest
// authentication for older firmware.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"envoyauth/internal/domain"
	apperrors "envoyauth/internal/errors"
)

// Enlighten cloud endpoints.
const (
	loginURL = "https://enlighten.enphaseenergy.com/login/login.json?"
	tokenURL = "https://entrez.enphaseenergy.com/tokens"
)

// state tracks the token authenticator's lifecycle. Accessors that need a
// later state fail loudly when called too early.
type state int

const (
	stateUninitialized state = iota
	stateTokenObtained
	stateVerified
)

// TokenConfig configures a TokenAuth.
type TokenConfig struct {
	// Host is the Envoy's address, without scheme.
	Host string

	// CloudUsername and CloudPassword are the Enlighten account credentials.
	// Required unless a Token is supplied.
	CloudUsername string
	CloudPassword string

	// EnvoySerial is the device serial number the token is issued for.
	EnvoySerial string

	// Token is an optional pre-obtained token; when set, Setup skips the
	// cloud round-trip entirely.
	Token string

	// LoginURL and TokenURL override the Enlighten endpoints. Used in tests.
	LoginURL string
	TokenURL string

	// NewCloudTransport overrides the cloud transport factory. Used in tests.
	NewCloudTransport domain.CloudTransportFactory

	// Strategy overrides the cloud retry strategy. Zero value means
	// CloudStrategy.
	Strategy *Strategy
}

// TokenAuth authenticates against an Envoy using a bearer token obtained from
// the Enlighten cloud service.
//
// TokenAuth holds no internal lock; concurrent Setup/Refresh calls on the
// same instance must be serialized by the caller.
type TokenAuth struct {
	host          string
	cloudUsername string
	cloudPassword string
	envoySerial   string

	token        string
	cookies      map[string]string
	managerToken string
	isConsumer   bool
	state        state

	loginURL          string
	tokenURL          string
	newCloudTransport domain.CloudTransportFactory
	strategy          Strategy
	logger            *slog.Logger
}

// NewTokenAuth creates a token authenticator for the given Envoy.
func NewTokenAuth(cfg TokenConfig, logger *slog.Logger) *TokenAuth {
	if logger == nil {
		logger = slog.Default()
	}
	a := &TokenAuth{
		host:              cfg.Host,
		cloudUsername:     cfg.CloudUsername,
		cloudPassword:     cfg.CloudPassword,
		envoySerial:       cfg.EnvoySerial,
		token:             cfg.Token,
		loginURL:          cfg.LoginURL,
		tokenURL:          cfg.TokenURL,
		newCloudTransport: cfg.NewCloudTransport,
		strategy:          CloudStrategy(),
		logger:            logger,
	}
	if a.token != "" {
		a.state = stateTokenObtained
	}
	if a.loginURL == "" {
		a.loginURL = loginURL
	}
	if a.tokenURL == "" {
		a.tokenURL = tokenURL
	}
	if cfg.Strategy != nil {
		a.strategy = *cfg.Strategy
	}
	return a
}

// Setup obtains a token if necessary and verifies it against the Envoy,
// capturing the session cookies some device endpoints require.
func (a *TokenAuth) Setup(ctx context.Context, transport domain.HTTPAdapter) error {
	if a.state == stateUninitialized {
		token, err := a.ObtainToken(ctx)
		if err != nil {
			return err
		}
		a.token = token
		if a.token != "" {
			a.state = stateTokenObtained
		}
	}

	if a.token == "" {
		return apperrors.NewAuthenticationError("unable to obtain token for Envoy authentication")
	}

	// Verify the token and obtain the cookie with the session ID necessary
	// for some API calls.
	checkURL := a.EndpointURL("/auth/check_jwt")
	resp, err := transport.Get(ctx, checkURL, map[string]string{
		"Authorization": "Bearer " + a.token,
	})
	if err != nil {
		return fmt.Errorf("token verification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewAuthenticationHTTPError(
			"unable to verify token for Envoy authentication", checkURL, resp.StatusCode, "")
	}

	cookies := make(map[string]string, len(resp.Cookies()))
	for _, cookie := range resp.Cookies() {
		cookies[cookie.Name] = cookie.Value
	}
	a.cookies = cookies
	a.state = stateVerified

	a.logger.DebugContext(ctx, "Token verified against Envoy", "host", a.host)
	return nil
}

// loginResponse is the Enlighten login response. Only the fields the token
// flow needs are decoded.
type loginResponse struct {
	SessionID    string `json:"session_id"`
	IsConsumer   bool   `json:"is_consumer"`
	ManagerToken string `json:"manager_token"`
}

// tokenRequest is the Entrez token request body.
type tokenRequest struct {
	SessionID string `json:"session_id"`
	SerialNum string `json:"serial_num"`
	Username  string `json:"username"`
}

// ObtainToken performs the cloud round-trip: Enlighten login for a session
// ID, then a token request against Entrez. The returned token is the raw
// response body, unmodified.
func (a *TokenAuth) ObtainToken(ctx context.Context) (string, error) {
	if a.cloudUsername == "" || a.cloudPassword == "" {
		return "", apperrors.NewAuthenticationError(
			"your firmware requires token authentication, but no cloud credentials were provided to obtain the token")
	}
	if a.envoySerial == "" {
		return "", apperrors.NewAuthenticationError(
			"your firmware requires token authentication, but no envoy serial number was provided to obtain the token")
	}

	// The cloud round-trip crosses the public internet, so it gets a
	// dedicated transport with strict certificate verification, released on
	// every exit path.
	cloud := a.cloudTransport()
	defer cloud.Close()

	a.logger.DebugContext(ctx, "Logging in to Enlighten", "username", a.cloudUsername)

	resp, err := a.strategy.do(ctx, a.logger, "enlighten login", func() (*http.Response, error) {
		return cloud.PostForm(ctx, a.loginURL, map[string]string{
			"user[email]":    a.cloudUsername,
			"user[password]": a.cloudPassword,
		})
	})
	if err != nil {
		return "", fmt.Errorf("enlighten login request failed: %w", err)
	}
	body, err := readAndClose(resp)
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewAuthenticationHTTPError(
			"unable to login to Enlighten to obtain session ID", a.loginURL, resp.StatusCode, string(body))
	}

	var login loginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return "", &apperrors.AuthenticationError{
			Reason:     "unable to decode response from Enlighten",
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        err,
		}
	}

	a.isConsumer = login.IsConsumer
	a.managerToken = login.ManagerToken

	resp, err = a.strategy.do(ctx, a.logger, "entrez token request", func() (*http.Response, error) {
		return cloud.PostJSON(ctx, a.tokenURL, tokenRequest{
			SessionID: login.SessionID,
			SerialNum: a.envoySerial,
			Username:  a.cloudUsername,
		})
	})
	if err != nil {
		return "", fmt.Errorf("entrez token request failed: %w", err)
	}
	body, err = readAndClose(resp)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewAuthenticationHTTPError(
			"unable to obtain token for Envoy authentication", a.tokenURL, resp.StatusCode, string(body))
	}

	a.logger.InfoContext(ctx, "Obtained Envoy token from Enlighten", "serial", a.envoySerial)

	// The body is the token, opaque to us.
	return string(body), nil
}

// Refresh re-obtains the token and overwrites the cached one. The token is
// not re-verified against the Envoy; call Setup again if verification (or a
// fresh session cookie) is required.
func (a *TokenAuth) Refresh(ctx context.Context) error {
	token, err := a.ObtainToken(ctx)
	if err != nil {
		return err
	}
	a.token = token
	if a.token != "" {
		a.state = stateTokenObtained
	} else {
		a.state = stateUninitialized
	}
	return nil
}

// ExpireTimestamp returns the cached token's exp claim as a Unix timestamp.
// The signature is deliberately not verified: the Envoy does that itself on
// every request.
func (a *TokenAuth) ExpireTimestamp() (int64, error) {
	if a.token == "" {
		return 0, apperrors.NewAuthenticationError("no token available to read the expiry from")
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(a.token, &claims); err != nil {
		return 0, fmt.Errorf("failed to decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return 0, errors.New("token carries no exp claim")
	}
	return claims.ExpiresAt.Unix(), nil
}

// Token returns the cached token. Calling it before one was obtained is a
// programming error and panics.
func (a *TokenAuth) Token() string {
	if a.token == "" {
		panic("envoyauth: token read before Setup obtained one")
	}
	return a.token
}

// ManagerToken returns the Enlighten manager token captured during the cloud
// login. Calling it before ObtainToken succeeded is a programming error and
// panics.
func (a *TokenAuth) ManagerToken() string {
	if a.managerToken == "" {
		panic("envoyauth: manager token read before the cloud login ran")
	}
	return a.managerToken
}

// IsConsumer reports whether the Enlighten account is a consumer account.
func (a *TokenAuth) IsConsumer() bool {
	return a.isConsumer
}

// Verified reports whether the cached token has been verified against the
// Envoy.
func (a *TokenAuth) Verified() bool {
	return a.state == stateVerified
}

// Cookies returns the session cookies captured by Setup.
func (a *TokenAuth) Cookies() map[string]string {
	return a.cookies
}

// Auth returns nil; bearer authentication uses headers, not the transport's
// digest hook.
func (a *TokenAuth) Auth() *domain.DigestCredential {
	return nil
}

// Headers returns the bearer authorization header.
func (a *TokenAuth) Headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.Token()}
}

// EndpointURL returns the HTTPS URL for a device endpoint path.
func (a *TokenAuth) EndpointURL(path string) string {
	return fmt.Sprintf("https://%s%s", a.host, path)
}

// cloudTransport returns the configured cloud transport factory's product.
func (a *TokenAuth) cloudTransport() domain.CloudTransport {
	if a.newCloudTransport != nil {
		return a.newCloudTransport()
	}
	return defaultCloudTransport(a.logger)
}

func readAndClose(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}
