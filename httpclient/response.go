package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// maxDrainBytes bounds how much of an unread body is discarded on Close so
// the connection can be reused.
const maxDrainBytes = 64 << 10

// Response is a streamed HTTP response. Whoever ends up owning it must call
// Close or Bytes exactly once semantically; both are idempotent.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	Request    *Request
	Stats      Stats

	closeOnce sync.Once
	closeErr  error
	readOnce  sync.Once
	buf       []byte
	readErr   error
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
	CallCount   int64
}

// NewResponse creates a response with an in-memory body.
func NewResponse(req *Request, statusCode int, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode: statusCode,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}

func newResponse(req *Request, httpResp *http.Response) *Response {
	body := httpResp.Body
	if body == nil {
		body = http.NoBody
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Request:    req,
	}
}

// Close drains a bounded amount of the body and closes it. Only the first
// call has any effect.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		if r.Body == nil {
			return
		}
		_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
		r.closeErr = r.Body.Close()
	})
	return r.closeErr
}

// Abort closes the body without reading from it. HEAD responses and
// abandoned streams use it; it shares Close's once semantics.
func (r *Response) Abort() error {
	r.closeOnce.Do(func() {
		if r.Body != nil {
			r.closeErr = r.Body.Close()
		}
	})
	return r.closeErr
}

// Bytes reads the whole body once, closes the stream and caches the result.
func (r *Response) Bytes() ([]byte, error) {
	r.readOnce.Do(func() {
		if r.Body == nil {
			return
		}
		r.buf, r.readErr = io.ReadAll(r.Body)
		_ = r.Close()
		if r.readErr != nil {
			r.readErr = NewNetworkError("failed to read response body", r.readErr)
		}
	})
	return r.buf, r.readErr
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return IsSuccessStatus(r.StatusCode)
}
