package agent

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies reasoning-service failures.
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindApplication ErrorKind = "application"
)

// RemoteError is a failed call to the reasoning service. Message holds the
// service's own human-readable explanation when it sent one.
type RemoteError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("agent: %s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("agent: %s error: %s", e.Kind, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("agent: %s error (HTTP %d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("agent: %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("agent: %s error", e.Kind)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// UserMessage returns the message the service supplied, if any.
func (e *RemoteError) UserMessage() string { return e.Message }

// ErrorKindLabel is the metrics label for this failure.
func (e *RemoteError) ErrorKindLabel() string { return string(e.Kind) }

// retryableStatus reports whether a caller could reasonably try the same
// request again. Calls are never retried automatically; the flag only
// annotates the error.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return code >= 500 && code != http.StatusNotImplemented && code != http.StatusHTTPVersionNotSupported
	}
}
