package httpclient

import (
	"context"
	"net/http"

	bricktrace "github.com/gaborage/go-bricks-sdk/trace"
)

// RequestInterceptor is called before each attempt is sent
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor is called after each attempt's response is received
type ResponseInterceptor func(ctx context.Context, req *http.Request, resp *http.Response) error

// InterceptorPolicy runs interceptors against a net/http view of each
// attempt. Header and URL changes made by request interceptors are carried
// into the attempt; response interceptors may replace status, headers and
// body. An interceptor that swaps the body takes ownership of the original.
func InterceptorPolicy(requestInterceptors []RequestInterceptor, responseInterceptors []ResponseInterceptor) Policy {
	reqs := append([]RequestInterceptor(nil), requestInterceptors...)
	resps := append([]ResponseInterceptor(nil), responseInterceptors...)

	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if len(reqs) == 0 && len(resps) == 0 {
			return next.Send(ctx, req)
		}

		attempt := req.Clone()
		httpReq, err := attempt.toHTTP(ctx)
		if err != nil {
			return nil, err
		}

		if err := runRequestInterceptors(ctx, reqs, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
		attempt.Header = httpReq.Header
		attempt.URL = httpReq.URL
		if httpReq.Host != "" && httpReq.Host != httpReq.URL.Host {
			attempt.Header.Set("Host", httpReq.Host)
		}

		resp, err := next.Send(ctx, attempt)
		if err != nil || len(resps) == 0 {
			return resp, err
		}

		view := &http.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
			Request:    httpReq,
		}
		if err := runResponseInterceptors(ctx, resps, httpReq, view); err != nil {
			_ = resp.Close()
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}

		if view.Body != resp.Body || view.StatusCode != resp.StatusCode {
			replaced := &Response{
				StatusCode: view.StatusCode,
				Header:     view.Header,
				Body:       view.Body,
				Request:    resp.Request,
				Stats:      resp.Stats,
			}
			if replaced.Body == nil {
				replaced.Body = http.NoBody
			}
			return replaced, nil
		}
		resp.Header = view.Header
		return resp, nil
	})
}

// runRequestInterceptors executes all request interceptors
func runRequestInterceptors(ctx context.Context, interceptors []RequestInterceptor, req *http.Request) error {
	for _, interceptor := range interceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func runResponseInterceptors(ctx context.Context, interceptors []ResponseInterceptor, req *http.Request, resp *http.Response) error {
	for _, interceptor := range interceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

// NewTraceIDInterceptor creates a request interceptor that adds the
// X-Request-ID header from the context trace id.
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *http.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, bricktrace.EnsureTraceID(ctx))
		}
		return nil
	}
}
