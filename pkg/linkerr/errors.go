package linkerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

/** Error taxonomy shared by the flow, the provider adapters and the credential store client */

// ConfigurationError is returned before any network call when required settings are absent
type ConfigurationError struct {
	Component string   // Component that failed to configure (e.g. "gmail", "credential store")
	Missing   []string // Names of the missing settings
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s is not configured", e.Component)
	}
	return fmt.Sprintf("%s is not configured (missing %s)", e.Component, strings.Join(e.Missing, ", "))
}

// UnsupportedProviderError is returned when a caller names a provider this service cannot handle
type UnsupportedProviderError struct {
	Provider string
	Reason   string
}

func (e *UnsupportedProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported provider '%s': %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("unsupported provider '%s'", e.Provider)
}

// MalformedStateError is returned when an encoded flow state cannot be decoded. It is terminal for the flow
type MalformedStateError struct {
	Reason string
	Err    error
}

func (e *MalformedStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed state: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed state: %s", e.Reason)
}

func (e *MalformedStateError) Unwrap() error {
	return e.Err
}

// TokenExchangeError is returned when a provider's token endpoint rejects the code or parameters
type TokenExchangeError struct {
	Provider   string
	HTTPStatus int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed with status %d: %s", e.Provider, e.HTTPStatus, e.Body)
}

// TransportError is returned when no response was received from a provider or the store
type TransportError struct {
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("no response from %s: %v", e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SinkError is returned when the credential store answers with a non-success status
type SinkError struct {
	HTTPStatus int
	Body       string
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("credential store rejected the credential with status %d: %s", e.HTTPStatus, e.Body)
}

// StoreMessage extracts the store's own message from its response body when it is JSON,
// falling back to the raw body
func (e *SinkError) StoreMessage() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Message != "" {
		return body.Message
	}

	if trimmed := strings.TrimSpace(e.Body); trimmed != "" {
		return trimmed
	}
	return http.StatusText(e.HTTPStatus)
}

// ValidationError is returned when a request is missing a required field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

/** Boundary helpers */

// HTTPStatus maps an error from the taxonomy to the status code the API answers with
func HTTPStatus(err error) int {
	var (
		cfgErr         *ConfigurationError
		unsupportedErr *UnsupportedProviderError
		stateErr       *MalformedStateError
		validationErr  *ValidationError
		exchangeErr    *TokenExchangeError
		transportErr   *TransportError
		sinkErr        *SinkError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &unsupportedErr), errors.As(err, &stateErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &exchangeErr), errors.As(err, &sinkErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the human-readable text shown to the end user for an error
func Message(err error) string {
	var (
		cfgErr         *ConfigurationError
		unsupportedErr *UnsupportedProviderError
		stateErr       *MalformedStateError
		validationErr  *ValidationError
		exchangeErr    *TokenExchangeError
		transportErr   *TransportError
		sinkErr        *SinkError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &sinkErr):
		return sinkErr.StoreMessage()
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &unsupportedErr):
		return "Invalid provider: " + unsupportedErr.Provider
	case errors.As(err, &stateErr):
		return "Invalid state parameter"
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.As(err, &exchangeErr):
		return fmt.Sprintf("%s rejected the authorization code (status %d)", exchangeErr.Provider, exchangeErr.HTTPStatus)
	case errors.As(err, &transportErr):
		return fmt.Sprintf("Could not reach %s, please try again", transportErr.Target)
	default:
		return err.Error()
	}
}

// Retryable reports whether the same step may safely be attempted again
func Retryable(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
