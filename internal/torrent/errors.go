package torrent

import (
	"errors"
	"fmt"
)

// Error codes for categorizing provider and search errors.
const (
	CodeNoResults     = "NO_RESULTS"
	CodeUnavailable   = "PROVIDER_UNAVAILABLE"
	CodeConfiguration = "CONFIG_ERROR"
	CodeAuth          = "AUTH_ERROR"
	CodeNetwork       = "NETWORK_ERROR"
	CodeParse         = "PARSE_ERROR"
	CodeNotFound      = "NOT_FOUND_ERROR"
)

// Error is a categorized error from a provider or search operation.
// Transient errors (network, timeouts) may be retried or absorbed by
// the fan-out; authoritative ones (parse, not found, config) may not.
type Error struct {
	Code      string // error category code
	Message   string // human-readable message
	Provider  string // name of the affected provider, if any
	Transient bool   // whether the condition is likely to pass
	Cause     error  // underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Provider, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is().
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel instances for comparison with errors.Is.
var (
	// ErrNoResults means the search completed but nothing survived
	// filtering. User-visible "nothing found", not an operational error.
	ErrNoResults = &Error{Code: CodeNoResults, Message: "no results found"}

	// ErrUnavailable means every query variant failed against the
	// active provider. Distinct from ErrNoResults so operators can tell
	// "empty" from "broken".
	ErrUnavailable = &Error{Code: CodeUnavailable, Message: "provider unavailable"}

	// ErrConfiguration covers missing default providers and lookups of
	// unregistered names. Fatal at startup or provider selection, not
	// recoverable per request.
	ErrConfiguration = &Error{Code: CodeConfiguration, Message: "configuration error"}

	ErrAuth     = &Error{Code: CodeAuth, Message: "authentication failed"}
	ErrNetwork  = &Error{Code: CodeNetwork, Message: "network error"}
	ErrParse    = &Error{Code: CodeParse, Message: "parse error"}
	ErrNotFound = &Error{Code: CodeNotFound, Message: "not found"}
)

// NewUnavailableError reports that all query variants failed.
func NewUnavailableError(provider string, cause error) *Error {
	return &Error{
		Code:      CodeUnavailable,
		Message:   "all queries failed",
		Provider:  provider,
		Transient: true,
		Cause:     cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *Error {
	return &Error{Code: CodeConfiguration, Message: message}
}

// NewAuthError creates an authentication error for a provider.
func NewAuthError(provider string, cause error) *Error {
	return &Error{
		Code:     CodeAuth,
		Message:  "authentication failed",
		Provider: provider,
		Cause:    cause,
	}
}

// NewNetworkError creates a transient network error for a provider.
func NewNetworkError(provider string, cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "network error",
		Provider:  provider,
		Transient: true,
		Cause:     cause,
	}
}

// NewParseError creates a parse error for a provider response.
func NewParseError(provider string, message string, cause error) *Error {
	return &Error{
		Code:     CodeParse,
		Message:  message,
		Provider: provider,
		Cause:    cause,
	}
}

// NewNotFoundError reports an authoritative "no such item" from a provider.
func NewNotFoundError(provider string, message string) *Error {
	return &Error{Code: CodeNotFound, Message: message, Provider: provider}
}

// IsTransient reports whether the error is a passing condition.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Transient
	}
	return false
}
