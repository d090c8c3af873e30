package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a fetch failure for retry and feedback routing.
type ErrorKind string

const (
	KindTransientNetwork      ErrorKind = "transient_network"      // timeout, DNS, reset: retried
	KindRateLimited           ErrorKind = "rate_limited"           // upstream 429: source deferred
	KindContentInvalid        ErrorKind = "content_invalid"        // parse failure, empty body
	KindQualityRejected       ErrorKind = "quality_rejected"       // fetched but failed the gate
	KindDependencyUnavailable ErrorKind = "dependency_unavailable" // breaker open, missing backend
	KindStorage               ErrorKind = "storage"
	KindInvalidInput          ErrorKind = "invalid_input"
)

// FetchError carries the taxonomy kind alongside the wrapped cause.
type FetchError struct {
	Kind     ErrorKind
	SourceID string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%s)", e.SourceID, e.Kind, e.URL)
	}
	return fmt.Sprintf("%s: %s (%s): %v", e.SourceID, e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth an in-place retry.
// Rate limits are deferred, not retried, and content problems never
// improve on a second read.
func (e *FetchError) Retryable() bool { return e.Kind == KindTransientNetwork }

// KindOf extracts the taxonomy kind, defaulting to transient for plain
// errors so callers err on the side of retrying.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransientNetwork
}

// fetchErr wraps a cause with taxonomy metadata.
func fetchErr(kind ErrorKind, sourceID, url string, err error) *FetchError {
	return &FetchError{Kind: kind, SourceID: sourceID, URL: url, Err: err}
}

// classifyHTTP maps a response status to a kind. Only non-2xx statuses
// reach here.
func classifyHTTP(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindTransientNetwork
	case status == http.StatusNotFound || status == http.StatusGone:
		return KindContentInvalid
	default:
		return KindInvalidInput
	}
}

// classifyTransport maps a transport-level error to a kind.
func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransientNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransientNetwork
	}
	return KindTransientNetwork
}
