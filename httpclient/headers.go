package httpclient

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"strings"

	bricktrace "github.com/gaborage/go-bricks-sdk/trace"
)

const (
	// HeaderXRequestID is the generic request tracing header
	HeaderXRequestID = bricktrace.HeaderXRequestID
	// HeaderClientRequestID is the default request id header
	HeaderClientRequestID = bricktrace.HeaderClientRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = bricktrace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = bricktrace.HeaderTraceState
	// HeaderUserAgent is the User-Agent header name
	HeaderUserAgent = "User-Agent"
	// HeaderContentType is the Content-Type header name
	HeaderContentType = "Content-Type"
)

// HeadersPolicy applies default headers. Headers already present on the
// request win.
func HeadersPolicy(defaults map[string]string) Policy {
	headers := maps.Clone(defaults)
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		for key, value := range headers {
			if req.Header.Get(key) == "" {
				req.Header.Set(key, value)
			}
		}
		return next.Send(ctx, req)
	})
}

// UserAgentPolicy prefixes the User-Agent with an SDK telemetry token such as
// "bricks-go-keyvault/1.2.0 (go1.24.6; linux)". appID, when set, leads the value.
func UserAgentPolicy(appID, sdkName, sdkVersion string) Policy {
	ua := FormatUserAgent(appID, sdkName, sdkVersion)
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if existing := req.Header.Get(HeaderUserAgent); existing != "" && !strings.HasPrefix(existing, ua) {
			req.Header.Set(HeaderUserAgent, ua+" "+existing)
		} else {
			req.Header.Set(HeaderUserAgent, ua)
		}
		return next.Send(ctx, req)
	})
}

// FormatUserAgent builds the telemetry User-Agent value.
func FormatUserAgent(appID, sdkName, sdkVersion string) string {
	var sb strings.Builder
	if appID = strings.TrimSpace(appID); appID != "" {
		if len(appID) > 24 {
			appID = appID[:24]
		}
		sb.WriteString(strings.ReplaceAll(appID, " ", "/"))
		sb.WriteByte(' ')
	}
	if sdkName == "" {
		sdkName = "core"
	}
	if sdkVersion == "" {
		sdkVersion = "unknown"
	}
	fmt.Fprintf(&sb, "bricks-go-%s/%s (%s; %s)", sdkName, sdkVersion, runtime.Version(), runtime.GOOS)
	return sb.String()
}

// RequestIDPolicy stamps a request id on every request that does not carry
// one, taken from the context trace id when present.
func RequestIDPolicy(header string) Policy {
	if header == "" {
		header = HeaderClientRequestID
	}
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, bricktrace.EnsureTraceID(ctx))
		}
		return next.Send(ctx, req)
	})
}

// TraceContextPolicy propagates W3C trace context. A traceparent in the
// context yields a child span id; without one a new traceparent is generated.
func TraceContextPolicy() Policy {
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if req.Header.Get(HeaderTraceParent) == "" {
			if parent, ok := bricktrace.ParentFromContext(ctx); ok {
				req.Header.Set(HeaderTraceParent, bricktrace.ChildTraceParent(parent))
			} else {
				req.Header.Set(HeaderTraceParent, bricktrace.GenerateTraceParent())
			}
		}
		if req.Header.Get(HeaderTraceState) == "" {
			if state, ok := bricktrace.StateFromContext(ctx); ok {
				req.Header.Set(HeaderTraceState, state)
			}
		}
		return next.Send(ctx, req)
	})
}
