package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout is the default overall request timeout duration
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// TransportOptions configures the terminal HTTP transport.
type TransportOptions struct {
	// Client replaces the pooled default client when set.
	Client *http.Client
	// Timeout is the http.Client timeout; ignored when Client is set.
	Timeout time.Duration
	// Instrument wraps the round tripper with otelhttp.
	Instrument bool
}

// Transport is the terminal Sender that performs the HTTP round trip.
type Transport struct {
	client  *http.Client
	timeout time.Duration
}

// NewTransport creates a transport over a pooled http.Client.
func NewTransport(opts TransportOptions) *Transport {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout:   timeout,
			Transport: newPooledTransport(),
		}
	}

	if opts.Instrument {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		instrumented := *client
		instrumented.Transport = otelhttp.NewTransport(base)
		client = &instrumented
	}

	return &Transport{client: client, timeout: client.Timeout}
}

func newPooledTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = defaultMaxIdleConns
	t.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	t.IdleConnTimeout = defaultIdleConnTimeout
	return t
}

// Send performs one HTTP round trip. Cancellation of ctx is returned as the
// context's own error; timeouts and connection failures are mapped onto the
// client error taxonomy.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.toHTTP(ctx)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, WrapTimeoutError("request timeout", t.timeout, err)
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return nil, NewNetworkError("connection failed", err)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	return newResponse(req, httpResp), nil
}
