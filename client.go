package gorestx

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/restxlabs/gorestx/chunkx"
	"github.com/restxlabs/gorestx/connx"
	"github.com/restxlabs/gorestx/zaputils"
)

// RestConn is the transport connection the client drives: a single
// HTTP/1.1 stream with hand-framed sends and parsed responses.
// connx.Conn is the default implementation.
type RestConn interface {
	WriteRequestHead(method, path string, headers map[string]string) error
	WriteBody(chunk []byte) error
	ReadResponse() (*http.Response, error)
	Close() error
}

var _ RestConn = (*connx.Conn)(nil)

// NewConnFunc overrides transport connection construction.
type NewConnFunc func(ctx context.Context, opts *connx.ConnOptions) (RestConn, error)

type RestClientConfig struct {
	Endpoint      string
	Authenticator Authenticator
}

type RestClientOptions struct {
	Logger *zap.Logger

	// Timeout bounds connection establishment and each transport I/O
	// operation. Defaults to 10 seconds.
	Timeout time.Duration

	// Retries is the total number of attempts for a request failing
	// with a transient transport error. A value of 2 means each
	// request is tried twice before the last error surfaces. Defaults
	// to a single attempt.
	Retries uint32

	// DisableKeepalive closes the connection at the end of every
	// response scope instead of draining it for reuse.
	DisableKeepalive bool

	// ProxyAddr is a host:port proxy to tunnel through via CONNECT.
	ProxyAddr string

	TlsConfig *tls.Config

	// RetryManager overrides the fixed-budget policy built from
	// Retries.
	RetryManager RetryManager

	NewConnFunc NewConnFunc

	NewResponseHandleFunc NewResponseHandleFunc

	// WireVerbosity enables wire-level tracing on the connection: 1
	// logs request heads and response status lines, 2 adds body
	// frames.
	WireVerbosity int
}

// RestClient issues requests against a single endpoint over one
// transport connection. It is not safe for concurrent use; callers
// needing concurrency use one client per worker or serialize access.
type RestClient struct {
	logger        *zap.Logger
	endpoint      Endpoint
	authenticator Authenticator
	timeout       time.Duration
	keepalive     bool
	proxyAddr     string
	tlsConfig     *tls.Config
	retries       RetryManager
	newConnFn     NewConnFunc
	newHandleFn   NewResponseHandleFunc
	wireVerbosity int

	conn          RestConn
	authHeaders   map[string]string
	lastHttpError *HttpStatusError
}

const defaultTimeout = 10 * time.Second

// NewRestClient builds a client for the configured endpoint and
// performs the initial, unforced authentication. The transport
// connection itself is established lazily by the first request.
func NewRestClient(ctx context.Context, config *RestClientConfig, opts *RestClientOptions) (*RestClient, error) {
	if config == nil {
		return nil, errors.New("must pass config for RestClient")
	}
	if opts == nil {
		opts = &RestClientOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint, err := ParseEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	retries := opts.RetryManager
	if retries == nil {
		retries = NewRetryManagerFixed(opts.Retries)
	}

	newConnFn := opts.NewConnFunc
	if newConnFn == nil {
		newConnFn = func(ctx context.Context, connOpts *connx.ConnOptions) (RestConn, error) {
			return connx.DialConn(ctx, connOpts)
		}
	}

	newHandleFn := opts.NewResponseHandleFunc
	if newHandleFn == nil {
		newHandleFn = newResponseScope
	}

	c := &RestClient{
		logger:        logger,
		endpoint:      endpoint,
		authenticator: config.Authenticator,
		timeout:       timeout,
		keepalive:     !opts.DisableKeepalive,
		proxyAddr:     opts.ProxyAddr,
		tlsConfig:     opts.TlsConfig,
		retries:       retries,
		newConnFn:     newConnFn,
		newHandleFn:   newHandleFn,
		wireVerbosity: opts.WireVerbosity,
	}

	if err := c.authenticate(ctx, false); err != nil {
		return nil, err
	}

	return c, nil
}

// Endpoint returns the parsed endpoint this client targets.
func (c *RestClient) Endpoint() Endpoint {
	return c.endpoint
}

// LastHttpError returns the most recent validation failure, or nil
// after a successful request.
func (c *RestClient) LastHttpError() *HttpStatusError {
	return c.lastHttpError
}

// Close releases the client's transport connection.
func (c *RestClient) Close() error {
	return c.closeConnection()
}

// SendRequest dispatches one logical request and returns a handle
// scoping the validated response. Transient transport failures are
// retried within the configured budget; a first 401 triggers a single
// forced re-authentication and replay.
func (c *RestClient) SendRequest(ctx context.Context, req *RestRequest) (ResponseHandle, error) {
	if req == nil {
		return nil, errors.New("must pass request")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	path, err := c.normalizePath(req.Path, req.Params)
	if err != nil {
		return nil, err
	}

	uniqueID := req.UniqueID
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}
	logger := c.logger.With(
		zaputils.RequestID("requestId", uniqueID),
		zaputils.RequestLine("request", method, path))

	ctx, span := tracer.Start(ctx, "SendRequest",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	requestsSent.Add(ctx, 1)

	size := resolveBodySize(req)
	headers := c.defaultHeaders(size)
	maps.Copy(headers, req.Headers)
	if req.Body != nil && size < 0 {
		delete(headers, "Content-Length")
		headers["Transfer-Encoding"] = "chunked"
	}

	// Capture the body position up front so every re-attempt can
	// rewind to it.
	var reset func() error
	if seeker, ok := req.Body.(io.Seeker); ok {
		pos, seekErr := seeker.Seek(0, io.SeekCurrent)
		if seekErr == nil {
			reset = func() error {
				_, err := seeker.Seek(pos, io.SeekStart)
				return err
			}
		}
	}

	resp, err := orchestrateRequestRetries(ctx, logger, c.retries, method, path, reset,
		func() (*http.Response, error) {
			return c.sendAttempt(ctx, method, path, headers, req.Body, size, req.ChunkSize, reset)
		})
	if err != nil {
		return nil, err
	}

	return c.newHandleFn(c, resp), nil
}

// Get issues a GET for path with optional query params.
func (c *RestClient) Get(ctx context.Context, path string, params any) (ResponseHandle, error) {
	return c.SendRequest(ctx, &RestRequest{
		Method: http.MethodGet,
		Path:   path,
		Params: params,
	})
}

// Post issues a POST for path carrying body.
func (c *RestClient) Post(ctx context.Context, path string, body chunkx.Source) (ResponseHandle, error) {
	return c.SendRequest(ctx, &RestRequest{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put issues a PUT for path carrying body.
func (c *RestClient) Put(ctx context.Context, path string, body chunkx.Source) (ResponseHandle, error) {
	return c.SendRequest(ctx, &RestRequest{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Delete issues a DELETE for path.
func (c *RestClient) Delete(ctx context.Context, path string) (ResponseHandle, error) {
	return c.SendRequest(ctx, &RestRequest{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// sendAttempt performs one full send/validate cycle, including the
// single 401 re-authentication replay. Any non-HTTP failure tears the
// connection down so the next attempt starts from a clean handle.
func (c *RestClient) sendAttempt(
	ctx context.Context,
	method, path string,
	headers map[string]string,
	body chunkx.Source,
	size int64,
	chunkSize int,
	reset func() error,
) (*http.Response, error) {
	resp, err := c.doRequest(ctx, method, path, headers, body, size, chunkSize)
	if err == nil {
		err = c.validateResponse(resp)
	}
	if err == nil {
		c.lastHttpError = nil
		return resp, nil
	}

	var statusErr *HttpStatusError
	if !errors.As(err, &statusErr) {
		// The connection may be mid-request, discard it so the next
		// attempt opens a fresh one.
		c.teardownConnection()
		return nil, &TransportError{Cause: err}
	}

	replay := statusErr.StatusCode == 401 &&
		c.authenticator != nil &&
		(c.lastHttpError == nil || c.lastHttpError.StatusCode != 401)
	c.lastHttpError = statusErr
	if !replay {
		return nil, statusErr
	}

	authRefreshes.Add(ctx, 1)
	if authErr := c.authenticate(ctx, true); authErr != nil {
		return nil, authErr
	}
	maps.Copy(headers, c.authHeaders)

	if reset != nil {
		if resetErr := reset(); resetErr != nil {
			return nil, contextualError{
				Message: "failed to reset request body for replay",
				Cause:   resetErr,
			}
		}
	}

	resp, err = c.doRequest(ctx, method, path, headers, body, size, chunkSize)
	if err == nil {
		err = c.validateResponse(resp)
	}
	if err != nil {
		if errors.As(err, &statusErr) {
			c.lastHttpError = statusErr
			return nil, statusErr
		}

		c.teardownConnection()
		return nil, &TransportError{Cause: err}
	}

	c.lastHttpError = nil
	return resp, nil
}

func (c *RestClient) doRequest(
	ctx context.Context,
	method, path string,
	headers map[string]string,
	body chunkx.Source,
	size int64,
	chunkSize int,
) (*http.Response, error) {
	conn, err := c.ensureConnection(ctx)
	if err != nil {
		return nil, err
	}

	if err := conn.WriteRequestHead(method, path, headers); err != nil {
		return nil, err
	}

	if body != nil {
		if err := writeRequestBody(conn, body, size, chunkSize); err != nil {
			return nil, err
		}
	}

	return conn.ReadResponse()
}

func (c *RestClient) validateResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contextualError{
			Message: "failed to read error response body",
			Cause:   err,
		}
	}
	_ = resp.Body.Close()

	return &HttpStatusError{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Body:       body,
		Headers:    resp.Header,
	}
}

func (c *RestClient) authenticate(ctx context.Context, force bool) error {
	if c.authenticator == nil {
		return nil
	}

	headers, err := c.authenticator.Authenticate(ctx, c, force)
	if err != nil {
		return contextualError{
			Message: "authentication failed",
			Cause:   err,
		}
	}

	c.authHeaders = maps.Clone(headers)
	return nil
}

// defaultHeaders synthesizes the headers every request starts from.
// Content-Length is always present here; the chunked branch removes it
// again when no size is determinable.
func (c *RestClient) defaultHeaders(bodySize int64) map[string]string {
	size := bodySize
	if size < 0 {
		size = 0
	}

	headers := map[string]string{
		"Content-Length": strconv.FormatInt(size, 10),
	}
	maps.Copy(headers, c.authHeaders)
	return headers
}

func (c *RestClient) normalizePath(path string, params any) (string, error) {
	trimmed := strings.Trim(path, "/")

	var normalized string
	if c.endpoint.BasePath != "" {
		normalized = "/" + c.endpoint.BasePath + "/" + trimmed
	} else {
		normalized = "/" + trimmed
	}

	qs, err := encodeParams(params)
	if err != nil {
		return "", err
	}
	if qs != "" {
		normalized = normalized + "?" + qs
	}

	return normalized, nil
}

func (c *RestClient) ensureConnection(ctx context.Context) (RestConn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	c.logger.Debug("opening connection",
		zaputils.Endpoint("endpoint", c.endpoint.Host, c.endpoint.Port, c.endpoint.UseTls))

	conn, err := c.newConnFn(ctx, &connx.ConnOptions{
		Host:           c.endpoint.Host,
		Port:           c.endpoint.Port,
		UseTls:         c.endpoint.UseTls,
		TlsConfig:      c.tlsConfig,
		ProxyAddr:      c.proxyAddr,
		ConnectTimeout: c.timeout,
		IoTimeout:      c.timeout,
		Logger:         c.logger,
		WireVerbosity:  c.wireVerbosity,
	})
	if err != nil {
		return nil, err
	}

	c.conn = conn
	return conn, nil
}

func (c *RestClient) teardownConnection() {
	if c.conn == nil {
		return
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug("failed to close connection", zap.Error(err))
	}
	c.conn = nil
}

func (c *RestClient) closeConnection() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

func reasonPhrase(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	return strings.TrimPrefix(resp.Status, prefix)
}
