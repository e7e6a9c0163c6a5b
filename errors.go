package gorestx

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// HttpStatusError is the structured error built from a response whose
// status code falls outside the 2xx range. It carries the full error
// response so callers can inspect what the server said.
type HttpStatusError struct {
	StatusCode int
	Reason     string
	Body       []byte
	Headers    http.Header
}

func (e HttpStatusError) Error() string {
	return fmt.Sprintf("http status error (status: %d, reason: %s)", e.StatusCode, e.Reason)
}

// TransportError wraps a connection or socket level failure. These are
// the errors the retry policy considers transient.
type TransportError struct {
	Cause error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.Cause)
}

func (e TransportError) Unwrap() error {
	return e.Cause
}

// BodySizeError is returned when a body source produces a different
// number of bytes than the declared Content-Length. The connection is
// discarded afterwards since its framing can no longer be trusted.
type BodySizeError struct {
	Declared int64
	Produced int64
}

func (e BodySizeError) Error() string {
	return fmt.Sprintf("request body size mismatch (declared: %d, produced: %d)", e.Declared, e.Produced)
}

type contextualError struct {
	Message string
	Cause   error
}

func (e contextualError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
}

func (e contextualError) Unwrap() error {
	return e.Cause
}
