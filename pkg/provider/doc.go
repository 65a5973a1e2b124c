// Package provider defines the adapter boundary to generative-AI backends
// and the typed error taxonomy the retry loop consumes. Adapters take the
// credential per call so that callers can rotate keys between attempts.
package provider
