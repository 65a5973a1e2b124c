package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provider failure for the retry loop.
type Kind int

const (
	// KindUnknown is the default for errors no adapter could classify.
	KindUnknown Kind = iota

	// KindAuth is an authentication rejection (401/403, bad API key).
	KindAuth

	// KindQuota is quota or rate-limit exhaustion (429, resource exhausted).
	KindQuota

	// KindAPIFailure is a generic provider-side API error (5xx).
	KindAPIFailure

	// KindMalformed means the provider answered but the content failed the
	// output contract. The credential is fine; rotating keys cannot help.
	KindMalformed

	// KindEmpty means the provider returned no candidate content, for
	// example after safety filtering. Treated like KindMalformed.
	KindEmpty
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindAPIFailure:
		return "api_failure"
	case KindMalformed:
		return "malformed"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Transient reports whether switching credentials may resolve the failure.
func (k Kind) Transient() bool {
	switch k {
	case KindAuth, KindQuota, KindAPIFailure:
		return true
	default:
		return false
	}
}

// CallError is a classified provider failure.
type CallError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError creates a classified error without an underlying cause.
func NewCallError(kind Kind, message string) *CallError {
	return &CallError{Kind: kind, Message: message}
}

// WrapCallError wraps an underlying error with a classification.
func WrapCallError(kind Kind, err error, message string) *CallError {
	return &CallError{Kind: kind, Message: message, Err: err}
}

// AsCallError extracts a *CallError from an error chain.
func AsCallError(err error) (*CallError, bool) {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr, true
	}
	return nil, false
}

// FallbackKind is the last-resort classifier for errors that reach the
// retry loop unclassified. It string-matches a small set of keywords that
// historically indicated a credential problem; anything else stays
// unknown and is not retried.
func FallbackKind(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "limit"):
		return KindQuota
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "invalid"):
		return KindAuth
	default:
		return KindUnknown
	}
}

// classifyStatus maps an HTTP status code to a kind. Shared by the SDK
// adapters.
func classifyStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindQuota
	case status >= 500:
		return KindAPIFailure
	default:
		return KindUnknown
	}
}
