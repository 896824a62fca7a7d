package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/gaborage/go-bricks-sdk/httpclient/internal/tracking"
	"github.com/gaborage/go-bricks-sdk/logger"
)

// RetryOptions configures a RetryPolicy.
type RetryOptions struct {
	// Strategy defaults to DefaultRetryStrategy.
	Strategy RetryStrategy
	// RetryAfterHeader replaces the well-known retry delay headers with a
	// single custom header when set.
	RetryAfterHeader string
	// RetryAfterUnit is the unit of RetryAfterHeader values (default milliseconds).
	RetryAfterUnit time.Duration
	Logger         logger.Logger
	// Sleep replaces the timer based wait; it must honor ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now is used to resolve HTTP-date Retry-After values.
	Now func() time.Time
}

// RetryPolicy resends a request while the strategy allows it. Attempts are
// strictly sequential: every discarded response is closed before the wait for
// the next attempt begins.
type RetryPolicy struct {
	strategy         RetryStrategy
	retryAfterHeader string
	retryAfterUnit   time.Duration
	logger           logger.Logger
	sleep            func(ctx context.Context, d time.Duration) error
	now              func() time.Time
}

// NewRetryPolicy creates a retry policy.
func NewRetryPolicy(opts RetryOptions) *RetryPolicy {
	p := &RetryPolicy{
		strategy:         opts.Strategy,
		retryAfterHeader: opts.RetryAfterHeader,
		retryAfterUnit:   opts.RetryAfterUnit,
		logger:           opts.Logger,
		sleep:            opts.Sleep,
		now:              opts.Now,
	}
	if p.strategy == nil {
		p.strategy = DefaultRetryStrategy()
	}
	if p.retryAfterUnit <= 0 {
		p.retryAfterUnit = time.Millisecond
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Process implements Policy.
func (p *RetryPolicy) Process(ctx context.Context, req *Request, next Sender) (*Response, error) {
	start := time.Now()
	maxRetries := p.strategy.MaxRetries()
	var suppressed []error

	for attempt := 1; ; attempt++ {
		resp, err := next.Send(ctx, req.Clone())
		canRetry := attempt <= maxRetries && ctx.Err() == nil

		if err != nil {
			if !canRetry || !p.strategy.ShouldRetryError(err) {
				if len(suppressed) == 0 {
					return nil, err
				}
				p.logExhausted(req, attempt, err)
				return nil, &RetryExhaustedError{Last: err, Suppressed: suppressed, Attempts: attempt}
			}

			delay := p.strategy.CalculateRetryDelay(attempt)
			p.logRetry(ctx, req, attempt, delay, 0, err)
			suppressed = append(suppressed, err)

			if waitErr := p.sleep(ctx, delay); waitErr != nil {
				return nil, &RetryExhaustedError{Last: waitErr, Suppressed: suppressed, Attempts: attempt}
			}
			continue
		}

		resp.Stats.Attempts = attempt
		resp.Stats.ElapsedTime = time.Since(start)

		if !canRetry || !p.strategy.ShouldRetry(resp) {
			return resp, nil
		}

		delay := p.delayFor(resp, attempt)
		p.logRetry(ctx, req, attempt, delay, resp.StatusCode, nil)
		suppressed = append(suppressed, &httpError{
			message:    fmt.Sprintf("attempt %d returned status %d", attempt, resp.StatusCode),
			statusCode: resp.StatusCode,
			header:     resp.Header,
		})
		_ = resp.Close()

		if waitErr := p.sleep(ctx, delay); waitErr != nil {
			return nil, &RetryExhaustedError{Last: waitErr, Suppressed: suppressed, Attempts: attempt}
		}
	}
}

// delayFor prefers a server-requested delay over the strategy's.
func (p *RetryPolicy) delayFor(resp *Response, attempt int) time.Duration {
	if p.retryAfterHeader != "" {
		if d, ok := RetryDelayFromHeader(resp.Header, p.retryAfterHeader, p.retryAfterUnit); ok {
			return d
		}
		return p.strategy.CalculateRetryDelay(attempt)
	}
	if d, ok := RetryDelayFromHeaders(resp.Header, p.now); ok {
		return d
	}
	return p.strategy.CalculateRetryDelay(attempt)
}

func (p *RetryPolicy) logRetry(ctx context.Context, req *Request, attempt int, delay time.Duration, status int, err error) {
	event := p.logger.Warn().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("attempt", attempt).
		Dur("delay", delay)

	reason := "status"
	if err != nil {
		reason = "error"
		event = event.Err(err)
	} else {
		event = event.Int("status", status)
	}
	event.Msg("Retrying HTTP request")

	tracking.RecordRetry(ctx, req.Method, reason)
}

func (p *RetryPolicy) logExhausted(req *Request, attempts int, err error) {
	p.logger.Error().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("attempts", attempts).
		Msg("HTTP request retries exhausted")
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
