package httpclient

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-sdk/config"
	"github.com/gaborage/go-bricks-sdk/logger"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Call) (*Response, error)
	Post(ctx context.Context, req *Call) (*Response, error)
	Put(ctx context.Context, req *Call) (*Response, error)
	Patch(ctx context.Context, req *Call) (*Response, error)
	Delete(ctx context.Context, req *Call) (*Response, error)
	Head(ctx context.Context, req *Call) (*Response, error)
	Do(ctx context.Context, method string, req *Call) (*Response, error)
	Pipeline() *Pipeline
}

// Call is a simple request for the Client facade.
type Call struct {
	URL     string
	Headers map[string]string
	Body    []byte
	Auth    *BasicAuth
}

// client implements the Client interface
type client struct {
	pipeline  *Pipeline
	logger    logger.Logger
	callCount int64
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	logger           logger.Logger
	timeout          time.Duration
	tryTimeout       time.Duration
	strategy         RetryStrategy
	retryAfterHeader string
	retryAfterUnit   time.Duration
	basicAuth        *BasicAuth
	defaultHeaders   map[string]string
	requestIDHeader  string
	reqInterceptors  []RequestInterceptor
	respInterceptors []ResponseInterceptor
	httpClient       *http.Client
	perCall          []Policy
	perRetry         []Policy
	rateLimit        float64
	rateBurst        int
	breaker          *CircuitBreakerOptions
	userAgent        [3]string
	tracing          bool
	tracer           trace.Tracer
	metrics          bool
	logOptions       LogOptions
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		logger:         log,
		timeout:        DefaultTimeout,
		strategy:       DefaultRetryStrategy(),
		defaultHeaders: make(map[string]string),
	}
}

// WithTimeout sets the overall request timeout of the underlying http.Client
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithTryTimeout bounds every individual attempt
func (b *Builder) WithTryTimeout(timeout time.Duration) *Builder {
	b.tryTimeout = timeout
	return b
}

// WithRetries configures fixed delay retries
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.strategy = NewFixedDelay(maxRetries, retryDelay)
	return b
}

// WithRetryStrategy sets the retry strategy
func (b *Builder) WithRetryStrategy(strategy RetryStrategy) *Builder {
	b.strategy = strategy
	return b
}

// WithRetryAfterHeader makes the retry policy read server delays from a custom header
func (b *Builder) WithRetryAfterHeader(header string, unit time.Duration) *Builder {
	b.retryAfterHeader = header
	b.retryAfterUnit = unit
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.basicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.defaultHeaders[key] = value
	return b
}

// WithRequestIDHeader sets the header carrying the client request id
func (b *Builder) WithRequestIDHeader(header string) *Builder {
	b.requestIDHeader = header
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.reqInterceptors = append(b.reqInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.respInterceptors = append(b.respInterceptors, interceptor)
	return b
}

// WithHTTPClient replaces the pooled http.Client
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithPolicy adds a policy that runs once per logical request
func (b *Builder) WithPolicy(p Policy) *Builder {
	b.perCall = append(b.perCall, p)
	return b
}

// WithPerRetryPolicy adds a policy that runs once per attempt
func (b *Builder) WithPerRetryPolicy(p Policy) *Builder {
	b.perRetry = append(b.perRetry, p)
	return b
}

// WithRateLimit throttles attempts to limit per second
func (b *Builder) WithRateLimit(limit float64, burst int) *Builder {
	b.rateLimit = limit
	b.rateBurst = burst
	return b
}

// WithCircuitBreaker enables the circuit breaker
func (b *Builder) WithCircuitBreaker(opts CircuitBreakerOptions) *Builder {
	b.breaker = &opts
	return b
}

// WithUserAgent sets the telemetry User-Agent
func (b *Builder) WithUserAgent(appID, sdkName, sdkVersion string) *Builder {
	b.userAgent = [3]string{appID, sdkName, sdkVersion}
	return b
}

// WithTracing enables client spans; a nil tracer uses the global provider
func (b *Builder) WithTracing(tracer trace.Tracer) *Builder {
	b.tracing = true
	b.tracer = tracer
	return b
}

// WithMetrics enables request metrics
func (b *Builder) WithMetrics() *Builder {
	b.metrics = true
	return b
}

// WithLogPayloads enables debug logging of headers and body previews
func (b *Builder) WithLogPayloads(maxBytes int) *Builder {
	b.logOptions.Payloads = true
	b.logOptions.MaxPayloadBytes = maxBytes
	return b
}

// BuildPipeline assembles the policy chain in its fixed order.
func (b *Builder) BuildPipeline() (*Pipeline, error) {
	var policies []Policy

	if b.userAgent != [3]string{} {
		policies = append(policies, UserAgentPolicy(b.userAgent[0], b.userAgent[1], b.userAgent[2]))
	}
	policies = append(policies,
		RequestIDPolicy(b.requestIDHeader),
		TraceContextPolicy(),
	)
	if len(b.defaultHeaders) > 0 {
		policies = append(policies, HeadersPolicy(b.defaultHeaders))
	}
	if b.basicAuth != nil {
		policies = append(policies, BasicAuthPolicy(*b.basicAuth))
	}
	policies = append(policies, b.perCall...)
	if b.tracing {
		policies = append(policies, TracingPolicy(b.tracer))
	}
	if b.metrics {
		policies = append(policies, MetricsPolicy())
	}

	policies = append(policies, NewRetryPolicy(RetryOptions{
		Strategy:         b.strategy,
		RetryAfterHeader: b.retryAfterHeader,
		RetryAfterUnit:   b.retryAfterUnit,
		Logger:           b.logger,
	}))

	if b.rateLimit > 0 {
		policies = append(policies, RateLimitPolicy(b.rateLimit, b.rateBurst))
	}
	if b.breaker != nil {
		opts := *b.breaker
		if opts.Logger == nil {
			opts.Logger = b.logger
		}
		policies = append(policies, CircuitBreakerPolicy(opts))
	}
	if b.tryTimeout > 0 {
		policies = append(policies, TimeoutPolicy(b.tryTimeout))
	}
	if len(b.reqInterceptors) > 0 || len(b.respInterceptors) > 0 {
		policies = append(policies, InterceptorPolicy(b.reqInterceptors, b.respInterceptors))
	}
	policies = append(policies, b.perRetry...)

	logOpts := b.logOptions
	if logOpts.RequestIDHeader == "" {
		logOpts.RequestIDHeader = b.requestIDHeader
	}
	policies = append(policies, LoggingPolicy(b.logger, logOpts))

	transport := NewTransport(TransportOptions{
		Client:     b.httpClient,
		Timeout:    b.timeout,
		Instrument: b.tracing,
	})
	return NewPipeline(transport, policies...)
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	p, err := b.BuildPipeline()
	if err != nil {
		// BuildPipeline only fails on a nil transport, which NewTransport never returns.
		panic(err)
	}
	return &client{pipeline: p, logger: b.logger}
}

// NewBuilderFromConfig maps loaded configuration onto a Builder.
func NewBuilderFromConfig(cfg *config.Config, log logger.Logger) *Builder {
	b := NewBuilder(log)
	if cfg == nil {
		return b
	}

	if cfg.Client.Timeout > 0 {
		b.WithTimeout(cfg.Client.Timeout)
	}
	if cfg.Client.UserAgent != "" {
		b.WithUserAgent(cfg.Client.UserAgent, "", "")
	}
	b.WithRequestIDHeader(cfg.Client.RequestIDHeader)
	for k, v := range cfg.Client.Headers {
		b.WithDefaultHeader(k, v)
	}

	switch cfg.Retry.Mode {
	case config.RetryModeFixed:
		b.WithRetries(cfg.Retry.MaxRetries, cfg.Retry.Delay)
	default:
		b.WithRetryStrategy(&ExponentialBackoff{
			Retries:   cfg.Retry.MaxRetries,
			BaseDelay: cfg.Retry.BaseDelay,
			MaxDelay:  cfg.Retry.MaxDelay,
			Jitter:    cfg.Retry.Jitter,
		})
	}
	if cfg.Retry.RetryAfterHeader != "" {
		b.WithRetryAfterHeader(cfg.Retry.RetryAfterHeader, cfg.Retry.RetryAfterUnit)
	}

	if cfg.RateLimit.Limit > 0 {
		b.WithRateLimit(cfg.RateLimit.Limit, cfg.RateLimit.Burst)
	}
	if cfg.Breaker.Enabled {
		b.WithCircuitBreaker(CircuitBreakerOptions{
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			Failures:    cfg.Breaker.Failures,
		})
	}
	if cfg.Log.Payloads {
		b.WithLogPayloads(cfg.Log.MaxPayloadBytes)
	}
	if cfg.Observability.Enabled {
		b.WithTracing(nil).WithMetrics()
	}
	return b
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Call) (*Response, error) {
	return c.Do(ctx, http.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Call) (*Response, error) {
	return c.Do(ctx, http.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Call) (*Response, error) {
	return c.Do(ctx, http.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Call) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Call) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, req)
}

// Head performs a HEAD request
func (c *client) Head(ctx context.Context, req *Call) (*Response, error) {
	return c.Do(ctx, http.MethodHead, req)
}

// Pipeline exposes the underlying pipeline for lower level use
func (c *client) Pipeline() *Pipeline {
	return c.pipeline
}

// Do performs an HTTP request with the specified method. The body is
// buffered; non-2xx statuses return the response together with an HTTP error.
func (c *client) Do(ctx context.Context, method string, call *Call) (*Response, error) {
	if call == nil {
		return nil, NewValidationError("request cannot be nil", "request")
	}

	req, err := NewRequest(method, call.URL, call.Body)
	if err != nil {
		return nil, err
	}
	applyCallHeaders(req, call)

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)

	resp, err := c.pipeline.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := resp.Bytes(); err != nil {
		return nil, err
	}

	resp.Stats.ElapsedTime = time.Since(start)
	resp.Stats.CallCount = callCount

	if !resp.IsSuccess() {
		return resp, NewResponseError(resp)
	}
	return resp, nil
}

// applyCallHeaders copies call headers and per-call auth onto the request
func applyCallHeaders(req *Request, call *Call) {
	for key, value := range call.Headers {
		req.Header.Set(key, value)
	}

	if call.Auth != nil {
		probe := http.Request{Header: make(http.Header)}
		probe.SetBasicAuth(call.Auth.Username, call.Auth.Password)
		req.Header.Set("Authorization", probe.Header.Get("Authorization"))
	}

	if req.Header.Get(HeaderContentType) == "" && call.Body != nil {
		req.Header.Set(HeaderContentType, "application/json")
	}
}
