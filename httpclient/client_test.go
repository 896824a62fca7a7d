package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-sdk/config"
)

func TestClientRetriesAndBuffersBody(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "core", r.Header.Get("X-Team"))
		assert.NotEmpty(t, r.Header.Get(HeaderClientRequestID))
		assert.NotEmpty(t, r.Header.Get(HeaderTraceParent))
		if hits.Add(1) == 1 {
			w.Header().Set(HeaderRetryAfterMS, "5")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set(HeaderContentType, testContentType)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewBuilder(&fakeLogger{}).
		WithHTTPClient(server.Client()).
		WithRetries(2, time.Millisecond).
		WithDefaultHeader("X-Team", "core").
		Build()

	resp, err := c.Get(context.Background(), &Call{URL: server.URL})
	require.NoError(t, err)

	data, err := resp.Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, 2, resp.Stats.Attempts)
	assert.Equal(t, int64(1), resp.Stats.CallCount)
	assert.Positive(t, resp.Stats.ElapsedTime)
}

func TestClientReturnsHTTPErrorWithResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"missing"}`))
	}))
	defer server.Close()

	c := NewBuilder(nil).WithHTTPClient(server.Client()).Build()

	resp, err := c.Delete(context.Background(), &Call{URL: server.URL + "/secrets/x"})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, IsHTTPStatusError(err, http.StatusNotFound))

	statusErr, ok := AsStatusError(err)
	require.True(t, ok)
	assert.JSONEq(t, `{"error":"missing"}`, string(statusErr.Body()))
}

func TestClientMethodsAndAuth(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		if r.Method == http.MethodPatch {
			assert.Equal(t, "override", user)
		} else {
			assert.Equal(t, "user", user)
			assert.Equal(t, "pass", pass)
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			assert.Equal(t, testContentType, r.Header.Get(HeaderContentType))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, `{"v":1}`, string(body))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewBuilder(nil).
		WithHTTPClient(server.Client()).
		WithBasicAuth("user", "pass").
		WithUserAgent("", "tests", "0.0.1").
		Build()
	ctx := context.Background()
	body := []byte(`{"v":1}`)

	_, err := c.Get(ctx, &Call{URL: server.URL})
	require.NoError(t, err)
	_, err = c.Post(ctx, &Call{URL: server.URL, Body: body})
	require.NoError(t, err)
	_, err = c.Put(ctx, &Call{URL: server.URL, Body: body})
	require.NoError(t, err)
	_, err = c.Patch(ctx, &Call{URL: server.URL, Body: body, Auth: &BasicAuth{Username: "override", Password: "x"}})
	require.NoError(t, err)
	_, err = c.Head(ctx, &Call{URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH", "HEAD"}, seen)
	assert.NotNil(t, c.Pipeline())
}

func TestClientValidatesBeforeNetwork(t *testing.T) {
	c := NewBuilder(nil).Build()

	_, err := c.Do(context.Background(), http.MethodGet, nil)
	assert.True(t, IsErrorType(err, ValidationError))

	_, err = c.Get(context.Background(), &Call{URL: ""})
	assert.True(t, IsErrorType(err, ValidationError))
}

func TestClientCustomPoliciesRunInPosition(t *testing.T) {
	var perCall, perRetry atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Attempt-Seen") == "" {
			t.Error("per-retry policy did not run")
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewBuilder(nil).
		WithHTTPClient(server.Client()).
		WithRetries(2, 0).
		WithPolicy(PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
			perCall.Add(1)
			return next.Send(ctx, req)
		})).
		WithPerRetryPolicy(PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
			perRetry.Add(1)
			req.Header.Set("X-Attempt-Seen", "1")
			return next.Send(ctx, req)
		})).
		Build()

	resp, err := c.Get(context.Background(), &Call{URL: server.URL})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 3, resp.Stats.Attempts)
	assert.Equal(t, int32(1), perCall.Load())
	assert.Equal(t, int32(3), perRetry.Load())
}

func TestNewBuilderFromConfig(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(`
client:
  timeout: 5s
  useragent: cli
  requestidheader: X-Request-ID
  headers:
    x-team: core
retry:
  mode: fixed
  maxretries: 4
  delay: 10ms
ratelimit:
  limit: 50
  burst: 5
breaker:
  enabled: true
  failures: 3
log:
  payloads: true
  maxpayloadbytes: 64
`))
	require.NoError(t, err)

	b := NewBuilderFromConfig(cfg, nil)

	assert.Equal(t, 5*time.Second, b.timeout)
	assert.Equal(t, "X-Request-ID", b.requestIDHeader)
	assert.Equal(t, "core", b.defaultHeaders["x-team"])
	assert.Equal(t, NewFixedDelay(4, 10*time.Millisecond), b.strategy)
	assert.InDelta(t, 50.0, b.rateLimit, 1e-9)
	assert.Equal(t, 5, b.rateBurst)
	require.NotNil(t, b.breaker)
	assert.Equal(t, uint32(3), b.breaker.Failures)
	assert.True(t, b.logOptions.Payloads)
	assert.Equal(t, 64, b.logOptions.MaxPayloadBytes)
	assert.Equal(t, "cli", b.userAgent[0])

	p, err := b.BuildPipeline()
	require.NoError(t, err)
	assert.NotEmpty(t, p.Policies())
}

func TestNewBuilderFromConfigExponentialDefaults(t *testing.T) {
	cfg, err := config.LoadBytes(nil)
	require.NoError(t, err)

	b := NewBuilderFromConfig(cfg, nil)
	strategy, ok := b.strategy.(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, cfg.Retry.MaxRetries, strategy.Retries)
	assert.Equal(t, cfg.Retry.BaseDelay, strategy.BaseDelay)
	assert.Nil(t, b.breaker)
}
