// Package errs defines the typed error taxonomy shared across the agent.
// Every failure surfaced by a public entry point carries a Kind so callers
// can choose an appropriate user-facing affordance.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for reporting and recovery decisions.
type Kind string

const (
	// KindConfiguration covers missing or invalid provider credentials and settings.
	KindConfiguration Kind = "configuration"
	// KindAPI covers transport and HTTP failures talking to a provider.
	KindAPI Kind = "api"
	// KindStorage covers read/write/parse failures on persisted state.
	KindStorage Kind = "storage"
	// KindTerminal covers shell session and command execution failures.
	KindTerminal Kind = "terminal"
	// KindAnalysis covers codebase summary generation failures.
	KindAnalysis Kind = "analysis"
	// KindUnknown is the catch-all for unclassified failures.
	KindUnknown Kind = "unknown"
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Configuration creates a configuration error.
func Configuration(message string) *Error {
	return New(KindConfiguration, message)
}

// Storage wraps a persisted-state failure.
func Storage(message string, err error) *Error {
	return Wrap(KindStorage, message, err)
}

// Terminal wraps a shell failure.
func Terminal(message string, err error) *Error {
	return Wrap(KindTerminal, message, err)
}

// Analysis wraps a summary generation failure.
func Analysis(message string, err error) *Error {
	return Wrap(KindAnalysis, message, err)
}

// KindOf returns the Kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var a *APIError
	if errors.As(err, &a) {
		return KindAPI
	}
	return KindUnknown
}

// APIReason distinguishes transport failure classes within KindAPI.
type APIReason string

const (
	// ReasonUnreachable means the service refused or timed out the connection.
	ReasonUnreachable APIReason = "unreachable"
	// ReasonAuth means the provider rejected the credential.
	ReasonAuth APIReason = "auth"
	// ReasonProvider is any other provider-side failure.
	ReasonProvider APIReason = "provider"
)

// APIError is a provider transport failure with an HTTP status when known.
type APIError struct {
	Provider   string
	Reason     APIReason
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (%s, status %d): %s", e.Provider, e.Reason, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error (%s): %s", e.Provider, e.Reason, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// APIFromStatus maps an HTTP status code to a classified APIError.
func APIFromStatus(provider string, status int, message string) *APIError {
	reason := ReasonProvider
	switch status {
	case 401, 403:
		reason = ReasonAuth
	}
	return &APIError{Provider: provider, Reason: reason, StatusCode: status, Message: message}
}

// Unreachable wraps a connection-level failure for a provider.
func Unreachable(provider string, err error) *APIError {
	return &APIError{Provider: provider, Reason: ReasonUnreachable, Message: "service unreachable", Err: err}
}

// IsRetryable reports whether an API error is worth retrying.
// Auth rejections never are; rate limits and server errors are.
func IsRetryable(err error) bool {
	var a *APIError
	if !errors.As(err, &a) {
		return false
	}
	if a.Reason == ReasonAuth {
		return false
	}
	if a.Reason == ReasonUnreachable {
		return true
	}
	switch a.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
