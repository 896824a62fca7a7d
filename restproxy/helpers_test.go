package restproxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-sdk/httpclient"
	"github.com/gaborage/go-bricks-sdk/internal/testutil"
)

const testEndpoint = testutil.TestVaultEndpoint

// recordingSender returns a canned response and keeps the requests it saw.
type recordingSender struct {
	mu     sync.Mutex
	reqs   []*httpclient.Request
	status int
	header http.Header
	body   io.ReadCloser
}

func (s *recordingSender) Send(_ context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)

	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	header := s.header
	if header == nil {
		header = make(http.Header)
	}
	body := s.body
	if body == nil {
		body = http.NoBody
	}
	return &httpclient.Response{StatusCode: status, Header: header, Body: body, Request: req}, nil
}

func (s *recordingSender) last(t *testing.T) *httpclient.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.reqs)
	return s.reqs[len(s.reqs)-1]
}

var failingSender = httpclient.SenderFunc(func(context.Context, *httpclient.Request) (*httpclient.Response, error) {
	return nil, errors.New("sender must not be called")
})

// trackedBody counts reads and closes.
type trackedBody struct {
	io.Reader
	reads  atomic.Int32
	closes atomic.Int32
}

func newTrackedBody(s string) *trackedBody {
	return &trackedBody{Reader: strings.NewReader(s)}
}

func (b *trackedBody) Read(p []byte) (int, error) {
	b.reads.Add(1)
	return b.Reader.Read(p)
}

func (b *trackedBody) Close() error {
	b.closes.Add(1)
	return nil
}

// newEchoProxy serves e through httptest and returns a proxy bound to it.
func newEchoProxy(t *testing.T, e *echo.Echo) *Proxy {
	t.Helper()
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	pipeline, err := httpclient.NewPipeline(httpclient.NewTransport(httpclient.TransportOptions{Client: server.Client()}))
	require.NoError(t, err)

	p, err := New(pipeline, server.URL)
	require.NoError(t, err)
	return p
}

func newTestProxy(t *testing.T, sender httpclient.Sender) *Proxy {
	t.Helper()
	p, err := New(sender, testEndpoint)
	require.NoError(t, err)
	return p
}
