package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the logical request flowing through a pipeline. The body is
// buffered so the retry layer can resend the same request on every attempt.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// NewRequest validates method and URL and creates a Request.
func NewRequest(method, rawURL string, body []byte) (*Request, error) {
	if strings.TrimSpace(method) == "" {
		return nil, NewValidationError("method cannot be empty", "method")
	}
	if strings.TrimSpace(rawURL) == "" {
		return nil, NewValidationError("URL cannot be empty", "url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewValidationError("URL is not valid: "+err.Error(), "url")
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, NewValidationError("URL must be absolute", "url")
	}

	return &Request{
		Method: strings.ToUpper(method),
		URL:    u,
		Header: make(http.Header),
		Body:   body,
	}, nil
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	clone := &Request{
		Method: r.Method,
		Header: r.Header.Clone(),
	}
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			user := *r.URL.User
			u.User = &user
		}
		clone.URL = &u
	}
	if r.Body != nil {
		clone.Body = bytes.Clone(r.Body)
	}
	return clone
}

// BodyReader returns a fresh reader over the buffered body, or nil without one.
func (r *Request) BodyReader() io.Reader {
	if r.Body == nil {
		return nil
	}
	return bytes.NewReader(r.Body)
}

// toHTTP builds the net/http request for one attempt.
func (r *Request) toHTTP(ctx context.Context) (*http.Request, error) {
	body := r.BodyReader()
	if body == nil {
		body = http.NoBody
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), body)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}
	httpReq.Header = r.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
		httpReq.Header.Del("Host")
	}
	return httpReq, nil
}

// validateRequest validates the request before sending
func validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.Method == "" {
		return NewValidationError("method cannot be empty", "method")
	}
	if req.URL == nil || req.URL.Host == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	return nil
}
