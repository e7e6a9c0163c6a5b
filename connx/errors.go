package connx

import (
	"errors"
	"fmt"
)

var (
	ErrConnClosed      = errors.New("connection closed")
	ErrNoActiveRequest = errors.New("no request in flight")
)

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

// TunnelError indicates the proxy refused the CONNECT request.
type TunnelError struct {
	StatusCode int
}

func (e TunnelError) Error() string {
	return fmt.Sprintf("proxy tunnel failed (status: %d)", e.StatusCode)
}
