// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lumen

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	// KindAuth covers rejected or expired credentials (HTTP 401/403).
	// Run-fatal: every subsequent call would fail identically.
	KindAuth ErrorKind = "auth"

	// KindRateLimit covers quota exhaustion (HTTP 429). Run-fatal; the
	// engine never retries automatically.
	KindRateLimit ErrorKind = "rate_limit"

	// KindValidation covers malformed requests and unparseable structured
	// output (HTTP 400/422, undecodable envelopes).
	KindValidation ErrorKind = "validation"

	// KindTransport covers network failures and timeouts.
	KindTransport ErrorKind = "transport"
)

// APIError is a classified gateway failure.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 for network-level failures
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("lumen: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("lumen: %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Fatal reports whether err should abort the entire in-progress operation.
// Auth and rate-limit failures qualify: whatever partial structure exists is
// returned and no further calls are issued.
func Fatal(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindAuth || apiErr.Kind == KindRateLimit
	}
	return false
}

// Kind returns the classification of err, or KindTransport for errors that
// did not come from the gateway client.
func Kind(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}
