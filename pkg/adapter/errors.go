package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies adapter failures. RateLimited and Unreachable
// are transient and eligible for retry; InvalidConfig and Rejected are
// terminal for the node.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindUnreachable   ErrorKind = "unreachable"
	KindRejected      ErrorKind = "rejected"
)

// Transient reports whether a failure of this kind may succeed on retry.
func (k ErrorKind) Transient() bool {
	return k == KindRateLimited || k == KindUnreachable
}

// Error is the typed failure returned by adapters. It is fatal to the
// single node being executed and propagates downstream through skip
// marking, never to sibling branches.
type Error struct {
	Kind    ErrorKind
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

// NewError creates a typed adapter error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a typed adapter error around an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind. Timeouts and cancellations count as
// Unreachable; anything untyped defaults to Rejected.
func KindOf(err error) ErrorKind {
	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		return adapterErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnreachable
	}

	return KindRejected
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return KindOf(err).Transient()
}

// FromHTTPStatus maps an HTTP response status to a typed adapter error,
// or nil for 2xx responses.
func FromHTTPStatus(status int, body string) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return NewError(KindRateLimited, trimBody(body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(KindInvalidConfig, trimBody(body))
	case status >= 500:
		return NewError(KindUnreachable, trimBody(body))
	default:
		return NewError(KindRejected, trimBody(body))
	}
}

const maxErrorBody = 512

func trimBody(body string) string {
	if len(body) > maxErrorBody {
		return body[:maxErrorBody]
	}

	if body == "" {
		return "request rejected by remote endpoint"
	}

	return body
}
