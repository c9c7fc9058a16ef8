// Package target holds the long-lived HTTP connections the load generator talks through.
//
// A Conn dials its target once, up front, and hands that socket to a dedicated
// transport limited to a single connection per host. If the peer has closed
// that socket by the time it is first used, a fresh one is dialed in its
// place. Requests carry no timeout:
// a stalled peer blocks the caller until it answers or the process exits.
package target

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ContentType is sent on every request.
const ContentType = "application/json"

// ErrInvalidAddress is returned by Dial when the base URL cannot be used.
var ErrInvalidAddress = errors.New("invalid target address")

// Response is a fully read HTTP response. Status is reported, never judged.
type Response struct {
	StatusCode int
	Body       []byte
}

// Conn is a connection handle to one target service.
type Conn struct {
	name      string
	base      *url.URL
	addr      string
	first     *handoff
	transport *http.Transport
	client    *http.Client
	closeOnce sync.Once
	closeErr  error
}

type options struct {
	dialer *net.Dialer
}

// Option configures Dial.
type Option func(*options)

// WithDialer overrides the dialer used for the initial and any later connections.
func WithDialer(d *net.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// Dial parses baseURL and opens a TCP connection to it. A failure here is
// returned unchanged in meaning; callers treat it as fatal.
func Dial(ctx context.Context, name, baseURL string, opts ...Option) (*Conn, error) {
	o := options{dialer: &net.Dialer{KeepAlive: 30 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}

	u, addr, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}

	nc, err := o.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s at %s: %w", name, addr, err)
	}

	first := &handoff{conn: nc}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			if c := first.take(); c != nil {
				if alive(c) {
					return c, nil
				}
				c.Close()
			}
			return o.dialer.DialContext(ctx, network, address)
		},
		MaxConnsPerHost:     1,
		MaxIdleConnsPerHost: 1,
		// Bodies are relayed byte for byte, so never negotiate gzip.
		DisableCompression: true,
	}

	return &Conn{
		name:      name,
		base:      u,
		addr:      addr,
		first:     first,
		transport: transport,
		client:    &http.Client{Transport: transport},
	}, nil
}

// Name returns the label the connection was dialed with.
func (c *Conn) Name() string { return c.name }

// Addr returns the host:port the connection points at.
func (c *Conn) Addr() string { return c.addr }

// Post sends body to path with a JSON content type and reads the whole response.
func (c *Conn) Post(ctx context.Context, path string, body []byte) (Response, error) {
	endpoint := c.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post %s%s: %w", c.name, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read %s%s response: %w", c.name, path, err)
	}

	return Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Close releases the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if nc := c.first.take(); nc != nil {
			c.closeErr = nc.Close()
		}
		c.transport.CloseIdleConnections()
	})
	return c.closeErr
}

// parseBase accepts "http://host:port[/prefix]" or a bare "host:port".
func parseBase(raw string) (*url.URL, string, error) {
	if raw == "" {
		return nil, "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	var port string
	switch u.Scheme {
	case "http":
		port = "80"
	case "https":
		port = "443"
	default:
		return nil, "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, "", fmt.Errorf("%w: %q has no host", ErrInvalidAddress, raw)
	}
	if p := u.Port(); p != "" {
		port = p
	}
	return u, net.JoinHostPort(u.Hostname(), port), nil
}

// probeWindow bounds how long alive waits for a pending close to surface.
const probeWindow = time.Millisecond

// alive reports whether an unused connection is still open. Only a read
// timeout counts as open; EOF, a reset or stray bytes all mean the peer has
// given up on it.
func alive(c net.Conn) bool {
	if err := c.SetReadDeadline(time.Now().Add(probeWindow)); err != nil {
		return false
	}
	var b [1]byte
	n, err := c.Read(b[:])
	if n > 0 {
		return false
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		return false
	}
	return c.SetReadDeadline(time.Time{}) == nil
}

// handoff yields the pre-dialed connection exactly once.
type handoff struct {
	mu   sync.Mutex
	conn net.Conn
}

func (h *handoff) take() net.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.conn
	h.conn = nil
	return c
}
