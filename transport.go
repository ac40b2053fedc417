package subsync

import (
	"context"
	"net/http"
)

// Response is the result of a successful transport fetch.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport retrieves raw content from URLs. It is the engine's only
// view of the network: give it a URL, get back bytes, a status code and
// headers. A non-2xx status is returned as a Response, not an error;
// errors are reserved for connection-level failures.
type Transport interface {
	// Fetch issues a GET for the URL. The context controls timeout and
	// cancellation.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FailureKind classifies a fetch failure for retry policy.
type FailureKind string

// Failure kinds. Transient and RateLimited are retryable; Auth and
// NotFound are terminal for the resource. Render marks a resource whose
// content was fetched but could not be converted or stored.
const (
	FailureTransient   FailureKind = "transient"
	FailureRateLimited FailureKind = "rate_limited"
	FailureAuth        FailureKind = "auth"
	FailureNotFound    FailureKind = "not_found"
	FailureRender      FailureKind = "render"
)

// Retryable reports whether a failure of this kind should be retried
// with backoff.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient || k == FailureRateLimited
}

// Code maps a failure kind to its application error code.
func (k FailureKind) Code() string {
	switch k {
	case FailureRateLimited:
		return ERATELIMITED
	case FailureAuth:
		return EUNAUTHORIZED
	case FailureNotFound:
		return ENOTFOUND
	case FailureRender:
		return EINTERNAL
	default:
		return EUNAVAILABLE
	}
}
