// Package errors provides custom error types for envoyauth.
package errors

import (
	"errors"
	"fmt"
)

// Error categories for envoyauth operations
var (
	ErrAuthentication = errors.New("authentication error")
	ErrConfiguration  = errors.New("configuration error")
	ErrInvalidInput   = errors.New("invalid input")
)

// AuthenticationError represents a failure to obtain or verify Envoy
// credentials. URL, StatusCode and Body carry the context of the failing
// HTTP exchange when one was involved.
type AuthenticationError struct {
	Reason     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	msg := e.Reason
	if e.URL != "" {
		msg = fmt.Sprintf("%s from %s", msg, e.URL)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: %d: %s", msg, e.StatusCode, e.Body)
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

func (e *AuthenticationError) Is(target error) bool {
	return errors.Is(target, ErrAuthentication)
}

// NewAuthenticationError creates an authentication error without HTTP context.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// NewAuthenticationHTTPError creates an authentication error for a failing
// HTTP exchange.
func NewAuthenticationHTTPError(reason, url string, statusCode int, body string) *AuthenticationError {
	return &AuthenticationError{
		Reason:     reason,
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
	}
}

// IsAuthentication checks if an error is authentication-related.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error in field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(target, ErrConfiguration)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, value, message string, err error) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// IsConfiguration checks if an error is configuration-related
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
