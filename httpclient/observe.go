package httpclient

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-sdk/httpclient/internal/tracking"
)

// TracerName is the instrumentation scope of pipeline spans
const TracerName = "go-bricks-sdk/httpclient"

// MetricsPolicy records the duration and outcome of every logical request.
func MetricsPolicy() Policy {
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		start := time.Now()
		resp, err := next.Send(ctx, req)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		tracking.RecordRequest(ctx, req.Method, req.URL.Hostname(), status, time.Since(start), errorType(err))
		return resp, err
	})
}

// TracingPolicy wraps each logical request in a client span and injects the
// span context into the outgoing headers. A nil tracer uses the global provider.
func TracingPolicy(tracer trace.Tracer) Policy {
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		t := tracer
		if t == nil {
			t = otel.Tracer(TracerName)
		}

		ctx, span := t.Start(ctx, req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.full", req.URL.Redacted()),
				attribute.String("server.address", req.URL.Hostname()),
			),
		)
		defer span.End()

		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := next.Send(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("error.type", errorType(err)))
			return nil, err
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.Stats.Attempts > 1 {
			span.SetAttributes(attribute.Int("http.request.resend_count", resp.Stats.Attempts-1))
		}
		if resp.StatusCode >= 400 {
			span.SetStatus(codes.Error, "")
		}
		return resp, nil
	})
}

// errorType classifies an error for telemetry attributes.
func errorType(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return string(clientErr.Type())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(TimeoutError)
	}
	return "error"
}
