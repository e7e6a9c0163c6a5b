package gorestx

import (
	"io"
	"net/http"
)

// ResponseHandle scopes access to a validated response. Callers must
// Close the handle when done: under keepalive this drains and closes
// the body so the connection can serve the next request, otherwise it
// tears the connection down. Close never suppresses errors raised
// inside the scope, it only reports its own failures.
type ResponseHandle interface {
	Response() *http.Response
	Close() error
}

// NewResponseHandleFunc constructs the handle wrapping each validated
// response, overridable for callers needing custom scope behavior.
type NewResponseHandleFunc func(client *RestClient, resp *http.Response) ResponseHandle

type responseScope struct {
	client *RestClient
	resp   *http.Response
}

var _ ResponseHandle = (*responseScope)(nil)

func newResponseScope(client *RestClient, resp *http.Response) ResponseHandle {
	return &responseScope{
		client: client,
		resp:   resp,
	}
}

func (s *responseScope) Response() *http.Response {
	return s.resp
}

func (s *responseScope) Close() error {
	if !s.client.keepalive {
		// The connection is being discarded, draining is pointless.
		return s.client.closeConnection()
	}

	if _, err := io.Copy(io.Discard, s.resp.Body); err != nil {
		_ = s.resp.Body.Close()
		return contextualError{
			Message: "failed to drain response body",
			Cause:   err,
		}
	}
	return s.resp.Body.Close()
}
