package testutil

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Request is one request captured by a Target.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// Target is an httptest server that records every request and answers with a fixed reply.
type Target struct {
	*httptest.Server

	status            int
	body              []byte
	delay             time.Duration
	readHeaderTimeout time.Duration
	closedConns       atomic.Int32

	mu       sync.Mutex
	requests []Request
}

// TargetOption configures a Target.
type TargetOption func(*Target)

// WithDelay holds every response back for d before writing it.
func WithDelay(d time.Duration) TargetOption {
	return func(t *Target) { t.delay = d }
}

// WithStatus answers with status instead of 200.
func WithStatus(status int) TargetOption {
	return func(t *Target) { t.status = status }
}

// WithReadHeaderTimeout makes the server drop connections that send no request within d.
func WithReadHeaderTimeout(d time.Duration) TargetOption {
	return func(t *Target) { t.readHeaderTimeout = d }
}

// NewTarget starts a recording server replying with body. It is closed when the test ends.
func NewTarget(t *testing.T, body string, opts ...TargetOption) *Target {
	t.Helper()
	tg := &Target{status: http.StatusOK, body: []byte(body)}
	for _, opt := range opts {
		opt(tg)
	}
	tg.Server = httptest.NewUnstartedServer(http.HandlerFunc(tg.serve))
	tg.Config.ReadHeaderTimeout = tg.readHeaderTimeout
	tg.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateClosed {
			tg.closedConns.Add(1)
		}
	}
	tg.Start()
	t.Cleanup(tg.Close)
	return tg
}

func (tg *Target) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	tg.mu.Lock()
	tg.requests = append(tg.requests, Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        data,
	})
	tg.mu.Unlock()

	if tg.delay > 0 {
		time.Sleep(tg.delay)
	}
	w.WriteHeader(tg.status)
	_, _ = w.Write(tg.body)
}

// Requests returns a copy of everything received so far.
func (tg *Target) Requests() []Request {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return append([]Request(nil), tg.requests...)
}

// ClosedConns reports how many connections the server has seen closed.
func (tg *Target) ClosedConns() int {
	return int(tg.closedConns.Load())
}

// ClosedAddr returns a loopback address nothing is listening on.
func ClosedAddr(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	return addr
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
