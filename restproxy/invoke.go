package restproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gaborage/go-bricks-sdk/httpclient"
)

// Response is a fully buffered response with its decoded value.
type Response[T any] struct {
	StatusCode int
	Header     http.Header
	Value      T
	Raw        []byte
	Request    *httpclient.Request
}

// HeaderResponse is a Response whose headers were also decoded into H.
type HeaderResponse[H, T any] struct {
	Response[T]
	Headers H
}

// Invoke sends op and decodes the body into T. For a HEAD operation with a
// bool result the value reports a 2xx status.
func Invoke[T any](ctx context.Context, p *Proxy, op Operation, params any) (T, error) {
	resp, err := InvokeResponse[T](ctx, p, op, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return resp.Value, nil
}

// InvokeResponse sends op, buffers the body eagerly and decodes it into T.
// HEAD responses are never read.
func InvokeResponse[T any](ctx context.Context, p *Proxy, op Operation, params any) (*Response[T], error) {
	resp, err := p.send(ctx, op, params)
	if err != nil {
		return nil, err
	}

	out := &Response[T]{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Request:    resp.Request,
	}

	if op.isHead() {
		_ = resp.Abort()
		if flag, ok := any(&out.Value).(*bool); ok {
			*flag = httpclient.IsSuccessStatus(resp.StatusCode)
		}
		return out, nil
	}

	raw, err := resp.Bytes()
	if err != nil {
		return nil, err
	}
	out.Raw = raw

	if _, void := any(out.Value).(struct{}); void {
		return out, nil
	}
	if err := decodeInto(raw, resp.Header.Get("Content-Type"), &out.Value); err != nil {
		return nil, fmt.Errorf("restproxy: decode %s response: %w", op.Name, err)
	}
	return out, nil
}

// InvokeWithHeaders is InvokeResponse plus the response headers decoded into
// H through its header tags.
func InvokeWithHeaders[H, T any](ctx context.Context, p *Proxy, op Operation, params any) (*HeaderResponse[H, T], error) {
	resp, err := InvokeResponse[T](ctx, p, op, params)
	if err != nil {
		return nil, err
	}

	out := &HeaderResponse[H, T]{Response: *resp}
	if err := DecodeHeaders(resp.Header, &out.Headers); err != nil {
		return nil, fmt.Errorf("restproxy: decode %s headers: %w", op.Name, err)
	}
	return out, nil
}

// InvokeVoid sends op, discards the body and closes it. HEAD bodies are not
// read at all.
func InvokeVoid(ctx context.Context, p *Proxy, op Operation, params any) error {
	resp, err := p.send(ctx, op, params)
	if err != nil {
		return err
	}
	if op.isHead() {
		return resp.Abort()
	}
	if resp.Body != nil {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			_ = resp.Close()
			return httpclient.NewNetworkError("failed to drain response body", err)
		}
	}
	return resp.Close()
}

// InvokeStream sends op and returns the response with its body unread. The
// caller must close it.
func InvokeStream(ctx context.Context, p *Proxy, op Operation, params any) (*httpclient.Response, error) {
	return p.send(ctx, op, params)
}

// Exists sends op, normally a HEAD, and reports true for 2xx and false for
// 404. Any other status is an error.
func Exists(ctx context.Context, p *Proxy, op Operation, params any) (bool, error) {
	resp, err := p.sendUnchecked(ctx, op, params)
	if err != nil {
		return false, err
	}
	switch {
	case httpclient.IsSuccessStatus(resp.StatusCode):
		return true, resp.Abort()
	case resp.StatusCode == http.StatusNotFound:
		return false, resp.Abort()
	default:
		return false, httpclient.NewResponseError(resp)
	}
}

// DecodeError decodes the body carried by an unexpected-status error into
// target, using the response Content-Type.
func DecodeError(err error, target any) error {
	statusErr, ok := httpclient.AsStatusError(err)
	if !ok {
		return fmt.Errorf("restproxy: %w", errNoResponseBody)
	}
	return decodeInto(statusErr.Body(), statusErr.Header().Get("Content-Type"), target)
}

var errNoResponseBody = errors.New("error carries no response")

// send builds and sends the request, turning an unexpected status into an
// error that carries the buffered body.
func (p *Proxy) send(ctx context.Context, op Operation, params any) (*httpclient.Response, error) {
	resp, err := p.sendUnchecked(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if !op.expects(resp.StatusCode) {
		return nil, httpclient.NewResponseError(resp)
	}
	return resp, nil
}

func (p *Proxy) sendUnchecked(ctx context.Context, op Operation, params any) (*httpclient.Response, error) {
	req, err := p.BuildRequest(op, params)
	if err != nil {
		return nil, err
	}
	if p.registry != nil {
		p.registry.registerIfAbsent(op)
	}
	return p.sender.Send(ctx, req)
}
