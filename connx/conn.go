// Package connx implements the single transport connection underneath
// the rest client: a TCP or TLS stream carrying hand-framed HTTP/1.1
// requests, with responses parsed by net/http. It is pure resource
// management, retry policy lives with the caller.
package connx

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type ConnOptions struct {
	Host      string
	Port      int
	UseTls    bool
	TlsConfig *tls.Config

	// ProxyAddr, when set, is a host:port to dial instead of the
	// target; the target is reached through a CONNECT tunnel.
	ProxyAddr string

	ConnectTimeout time.Duration

	// IoTimeout bounds each write and each response-head read.
	IoTimeout time.Duration

	Logger *zap.Logger

	// WireVerbosity enables wire-level tracing: 1 logs request heads
	// and response status lines, 2 adds body frames.
	WireVerbosity int
}

// Conn is a single HTTP/1.1 connection. It is not safe for concurrent
// use; one request must be fully written and its response read before
// the next begins.
type Conn struct {
	netConn   net.Conn
	rdr       *bufio.Reader
	authority string
	ioTimeout time.Duration
	logger    *zap.Logger
	verbosity int

	closed  atomic.Bool
	lastReq *http.Request
}

// DialConn establishes a connection to the target host/port, tunneling
// through the configured proxy when one is set and wrapping the stream
// in TLS when the endpoint requires it.
func DialConn(ctx context.Context, opts *ConnOptions) (*Conn, error) {
	if opts == nil {
		opts = &ConnOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hostPort := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))

	dialAddr := hostPort
	if opts.ProxyAddr != "" {
		dialAddr = opts.ProxyAddr
	}

	dialer := net.Dialer{
		Timeout: opts.ConnectTimeout,
	}
	tcpConn, err := dialer.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		return nil, contextualError{
			Message: "failed to dial",
			Cause:   err,
		}
	}

	// attempt to set no-delay, if it fails, ignore it
	if rawConn, ok := tcpConn.(*net.TCPConn); ok {
		_ = rawConn.SetNoDelay(true)
	}

	netConn := tcpConn
	if opts.ProxyAddr != "" {
		tunnelRdr := bufio.NewReader(netConn)
		if err := establishTunnel(netConn, tunnelRdr, hostPort, opts.IoTimeout); err != nil {
			_ = tcpConn.Close()
			return nil, err
		}

		// Bytes the proxy sent past the tunnel response belong to the
		// target stream and must stay readable.
		if tunnelRdr.Buffered() > 0 {
			netConn = &bufferedConn{Conn: netConn, rdr: tunnelRdr}
		}
	}

	if opts.UseTls {
		tlsConfig := &tls.Config{}
		if opts.TlsConfig != nil {
			tlsConfig = opts.TlsConfig.Clone()
		}

		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = opts.Host
		}

		netConn = tls.Client(netConn, tlsConfig)
	}

	authority := opts.Host
	if (opts.UseTls && opts.Port != 443) || (!opts.UseTls && opts.Port != 80) {
		authority = hostPort
	}

	return &Conn{
		netConn:   netConn,
		rdr:       bufio.NewReader(netConn),
		authority: authority,
		ioTimeout: opts.IoTimeout,
		logger:    logger,
		verbosity: opts.WireVerbosity,
	}, nil
}

// bufferedConn overlays a reader holding bytes that were read off the
// socket ahead of the connection's own reader.
type bufferedConn struct {
	net.Conn
	rdr *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.rdr.Read(p)
}

// establishTunnel sends a CONNECT for the target authority and waits
// for the proxy to accept it. Anything read past the tunnel response
// stays buffered in rdr for the caller to carry over.
func establishTunnel(netConn net.Conn, rdr *bufio.Reader, hostPort string, ioTimeout time.Duration) error {
	connectReq := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: hostPort},
		Host:   hostPort,
		Header: make(http.Header),
	}

	if ioTimeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(ioTimeout))
	}

	if err := connectReq.Write(netConn); err != nil {
		return contextualError{
			Message: "failed to write proxy connect request",
			Cause:   err,
		}
	}

	resp, err := http.ReadResponse(rdr, connectReq)
	if err != nil {
		return contextualError{
			Message: "failed to read proxy connect response",
			Cause:   err,
		}
	}

	if resp.StatusCode != 200 {
		return &TunnelError{StatusCode: resp.StatusCode}
	}

	return nil
}

// WriteRequestHead sends the request line and headers. A Host header
// for the target authority is always included and must not appear in
// headers.
func (c *Conn) WriteRequestHead(method, path string, headers map[string]string) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&buf, "Host: %s\r\n", c.authority)
	for name, value := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	}
	buf.WriteString("\r\n")

	if c.verbosity >= 1 {
		c.logger.Debug("writing request head",
			zap.String("method", method),
			zap.String("path", path))
	}

	c.extendDeadline()
	if _, err := c.netConn.Write(buf.Bytes()); err != nil {
		return err
	}

	c.lastReq = &http.Request{Method: method}
	return nil
}

// WriteBody sends raw body bytes. Chunked-transfer framing, when used,
// is produced by the caller.
func (c *Conn) WriteBody(chunk []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	if c.verbosity >= 2 {
		c.logger.Debug("writing body frame",
			zap.Int("len", len(chunk)))
	}

	c.extendDeadline()
	_, err := c.netConn.Write(chunk)
	return err
}

// ReadResponse reads the response to the most recently written request
// head. The returned body streams from the connection; it must be
// fully read before the next request head is written.
func (c *Conn) ReadResponse() (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrConnClosed
	}
	if c.lastReq == nil {
		return nil, ErrNoActiveRequest
	}

	c.extendDeadline()
	resp, err := http.ReadResponse(c.rdr, c.lastReq)
	if err != nil {
		return nil, err
	}

	if c.verbosity >= 1 {
		c.logger.Debug("read response head",
			zap.String("status", resp.Status))
	}

	c.lastReq = nil
	return resp, nil
}

// Close tears the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) extendDeadline() {
	if c.ioTimeout > 0 {
		_ = c.netConn.SetDeadline(time.Now().Add(c.ioTimeout))
	}
}
