package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// TimeoutPolicy bounds each attempt by perTry. The deadline stays attached
// to the response body until it is closed, so streamed bodies remain
// readable after the policy returns.
func TimeoutPolicy(perTry time.Duration) Policy {
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if perTry <= 0 {
			return next.Send(ctx, req)
		}

		tryCtx, cancel := context.WithTimeout(ctx, perTry)
		resp, err := next.Send(tryCtx, req)
		if err != nil {
			cancel()
			if ctx.Err() == nil && errors.Is(tryCtx.Err(), context.DeadlineExceeded) && !IsErrorType(err, TimeoutError) {
				return nil, WrapTimeoutError("attempt timed out", perTry, err)
			}
			return nil, err
		}
		if resp.Body == nil {
			cancel()
			return resp, nil
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	})
}

// RateLimitPolicy waits for a token before every attempt. limit is in
// requests per second; burst defaults to 1.
func RateLimitPolicy(limit float64, burst int) Policy {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		return next.Send(ctx, req)
	})
}
