package orchestrator

import "fmt"

// CredentialsExhaustedError is terminal: every key in the pool is in the
// failure registry, so retrying cannot help. Carries the last provider
// error so operators can decide whether to add keys, wait for the daily
// rollover, or force-reset.
type CredentialsExhaustedError struct {
	TotalKeys int
	LastErr   error
}

// Error implements the error interface.
func (e *CredentialsExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("all %d API keys exhausted, last error: %v", e.TotalKeys, e.LastErr)
	}
	return fmt.Sprintf("all %d API keys exhausted", e.TotalKeys)
}

// Unwrap returns the last underlying provider error.
func (e *CredentialsExhaustedError) Unwrap() error {
	return e.LastErr
}

// MalformedResponseError means the provider answered at the transport
// level but the content failed the output contract (or was empty/blocked).
// The credential is never penalized and the call is not retried: the same
// prompt against the same schema would likely fail the same way, and
// retrying would mask a caller-side bug.
type MalformedResponseError struct {
	Err error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("provider returned unusable content: %v", e.Err)
}

// Unwrap returns the underlying classification error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RetriesExhaustedError means the bounded retry loop ran out of attempts
// while keys were still rotating through transient failures.
type RetriesExhaustedError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts, last error: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the last underlying provider error.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.LastErr
}
