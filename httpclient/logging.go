package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gaborage/go-bricks-sdk/logger"
	bricktrace "github.com/gaborage/go-bricks-sdk/trace"
)

const defaultMaxPayloadLogBytes = 1024

const (
	msgRequest  = "REST client request"
	msgResponse = "REST client response"
)

// LogOptions configures a LoggingPolicy.
type LogOptions struct {
	// Payloads enables debug-level logging of headers and body previews
	Payloads bool
	// MaxPayloadBytes caps logged body bytes (default 1024)
	MaxPayloadBytes int
	// RequestIDHeader is read to correlate request and response lines
	RequestIDHeader string
	// Filter masks sensitive headers and URL parts; defaults to the logger's filter
	Filter *logger.SensitiveDataFilter
}

// LoggingPolicy logs every attempt sent on the wire and the response it
// produced. Response previews are peeked without consuming the stream.
func LoggingPolicy(log logger.Logger, opts LogOptions) Policy {
	l := &loggingPolicy{logger: log, opts: opts}
	if l.logger == nil {
		l.logger = logger.Nop()
	}
	if l.opts.MaxPayloadBytes <= 0 {
		l.opts.MaxPayloadBytes = defaultMaxPayloadLogBytes
	}
	if l.opts.RequestIDHeader == "" {
		l.opts.RequestIDHeader = HeaderClientRequestID
	}
	if l.opts.Filter == nil {
		if zl, ok := log.(*logger.ZeroLogger); ok {
			l.opts.Filter = zl.Filter()
		} else {
			l.opts.Filter = logger.NewSensitiveDataFilter(nil)
		}
	}
	return l
}

type loggingPolicy struct {
	logger logger.Logger
	opts   LogOptions
}

func (l *loggingPolicy) Process(ctx context.Context, req *Request, next Sender) (*Response, error) {
	requestID := req.Header.Get(l.opts.RequestIDHeader)
	if requestID == "" {
		requestID, _ = bricktrace.IDFromContext(ctx)
	}

	l.logRequest(req, requestID)
	logger.IncrementHTTPCounter(ctx)

	start := time.Now()
	resp, err := next.Send(ctx, req)
	elapsed := time.Since(start)
	logger.AddHTTPElapsed(ctx, elapsed.Nanoseconds())

	if err != nil {
		l.logger.Error().
			Err(err).
			Str("direction", "inbound").
			Str("method", req.Method).
			Str("url", l.opts.Filter.FilterString("url", req.URL.String())).
			Str("request_id", requestID).
			Dur("elapsed", elapsed).
			Msg("REST client request failed")
		return nil, err
	}

	l.logResponse(resp, requestID, elapsed)
	return resp, nil
}

// logRequest logs the outgoing request
func (l *loggingPolicy) logRequest(req *Request, requestID string) {
	url := l.opts.Filter.FilterString("url", req.URL.String())

	logEvent := l.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", url).
		Str("request_id", requestID)

	if len(req.Header) > 0 {
		logEvent = logEvent.Int("header_count", len(req.Header))
	}
	if len(req.Body) > 0 {
		logEvent = logEvent.Int("body_size", len(req.Body))
	}
	logEvent.Msg(msgRequest)

	if !l.opts.Payloads {
		return
	}

	preview, truncated := truncate(req.Body, l.opts.MaxPayloadBytes)
	l.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", l.opts.Filter.FilterHeaders(req.Header)).
		Int("body_size", len(req.Body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(msgRequest)
}

// logResponse logs the incoming response
func (l *loggingPolicy) logResponse(resp *Response, requestID string, elapsed time.Duration) {
	logEvent := l.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Str("request_id", requestID)

	if size := resp.Header.Get("Content-Length"); size != "" && size != "0" {
		if n, err := strconv.Atoi(size); err == nil {
			logEvent = logEvent.Int("body_size", n)
		}
	}
	logEvent.Msg(msgResponse)

	if !l.opts.Payloads || resp.Body == nil {
		return
	}

	preview, truncated := l.peekBody(resp)
	l.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Interface("headers", l.opts.Filter.FilterHeaders(resp.Header)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(msgResponse)
}

// peekBody reads up to MaxPayloadBytes+1 bytes and stitches them back in
// front of the remaining stream.
func (l *loggingPolicy) peekBody(resp *Response) ([]byte, bool) {
	buf := make([]byte, l.opts.MaxPayloadBytes+1)
	n, err := io.ReadFull(resp.Body, buf)
	buf = buf[:n]

	readers := []io.Reader{bytes.NewReader(buf)}
	switch {
	case err == nil:
		readers = append(readers, resp.Body)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	default:
		readers = append(readers, &failingReader{err: err})
	}
	resp.Body = &peekedBody{Reader: io.MultiReader(readers...), closer: resp.Body}

	if n > l.opts.MaxPayloadBytes {
		return buf[:l.opts.MaxPayloadBytes], true
	}
	return buf, false
}

type peekedBody struct {
	io.Reader
	closer io.Closer
}

func (b *peekedBody) Close() error {
	return b.closer.Close()
}

// failingReader replays the read error that ended a peek.
type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func truncate(body []byte, limit int) ([]byte, bool) {
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}
