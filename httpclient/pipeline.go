// Package httpclient implements an outbound HTTP pipeline: an ordered chain
// of policies ending in a transport, with retries, authentication, rate
// limiting, circuit breaking, logging, metrics and tracing as policies.
package httpclient

import (
	"context"
	"io"
	"sync"
)

// Sender transmits a request and returns the response or an error.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f SenderFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Policy is one stage of the pipeline. It may inspect or mutate the request,
// call next any number of times, and inspect or replace the response.
type Policy interface {
	Process(ctx context.Context, req *Request, next Sender) (*Response, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, req *Request, next Sender) (*Response, error)

// Process calls f(ctx, req, next).
func (f PolicyFunc) Process(ctx context.Context, req *Request, next Sender) (*Response, error) {
	return f(ctx, req, next)
}

// Pipeline is an immutable ordered list of policies ending in a transport.
// It is safe for concurrent use when its policies are.
type Pipeline struct {
	transport Sender
	policies  []Policy
}

// NewPipeline creates a pipeline. Nil policies are skipped.
func NewPipeline(transport Sender, policies ...Policy) (*Pipeline, error) {
	if transport == nil {
		return nil, NewValidationError("transport cannot be nil", "transport")
	}

	kept := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			kept = append(kept, p)
		}
	}

	return &Pipeline{transport: transport, policies: kept}, nil
}

// Send runs the request through every policy and the transport.
func (p *Pipeline) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return stage{pipeline: p}.Send(ctx, req)
}

// Policies returns a copy of the configured policies.
func (p *Pipeline) Policies() []Policy {
	return append([]Policy(nil), p.policies...)
}

// stage is the Sender handed to policy i; calling it runs policy i+1 or the
// transport once the chain is exhausted.
type stage struct {
	pipeline *Pipeline
	index    int
}

func (s stage) Send(ctx context.Context, req *Request) (*Response, error) {
	if s.index >= len(s.pipeline.policies) {
		return s.pipeline.transport.Send(ctx, req)
	}
	next := stage{pipeline: s.pipeline, index: s.index + 1}
	return s.pipeline.policies[s.index].Process(ctx, req, next)
}

// Future is the pending result of SendAsync.
type Future struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	resp   *Response
	err    error
}

// SendAsync sends the request on its own goroutine. Retry waits are timers,
// so pending futures never hold up unrelated requests.
func (p *Pipeline) SendAsync(ctx context.Context, req *Request) *Future {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(f.done)
		f.resp, f.err = p.Send(ctx, req)
		if f.err != nil || f.resp == nil || f.resp.Body == nil {
			cancel()
			return
		}
		f.resp.Body = &cancelOnClose{ReadCloser: f.resp.Body, cancel: cancel}
	}()

	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the request completes.
func (f *Future) Wait() (*Response, error) {
	<-f.done
	return f.resp, f.err
}

// Cancel aborts the request. A pending retry wait ends immediately and no
// further attempt starts.
func (f *Future) Cancel() {
	f.once.Do(f.cancel)
}

// cancelOnClose releases a context when the response body it guards is closed,
// keeping streamed bodies readable after the call that produced them returns.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
