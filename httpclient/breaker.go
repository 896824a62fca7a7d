package httpclient

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/gaborage/go-bricks-sdk/logger"
)

// Circuit breaker defaults
const (
	DefaultBreakerMaxRequests = 1
	DefaultBreakerInterval    = 60 * time.Second
	DefaultBreakerTimeout     = 30 * time.Second
	DefaultBreakerFailures    = 5
)

// errServerFailure marks 5xx responses as failures for the breaker while the
// response itself is still handed back to the caller.
var errServerFailure = errors.New("server failure status")

// CircuitBreakerOptions configures a CircuitBreakerPolicy.
type CircuitBreakerOptions struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts reset.
	Interval time.Duration
	// Timeout spent open before probing again.
	Timeout time.Duration
	// Failures is the number of consecutive failures that opens the circuit.
	Failures uint32
	Logger   logger.Logger
}

// CircuitBreakerPolicy fails fast while the downstream service keeps failing.
// Transport errors and 5xx responses count as failures; caller cancellation
// does not. Rejected calls return a circuit_open error, which is never retried.
func CircuitBreakerPolicy(opts CircuitBreakerOptions) Policy {
	if opts.Name == "" {
		opts.Name = "http"
	}
	if opts.MaxRequests == 0 {
		opts.MaxRequests = DefaultBreakerMaxRequests
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultBreakerInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBreakerTimeout
	}
	if opts.Failures == 0 {
		opts.Failures = DefaultBreakerFailures
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		result, err := cb.Execute(func() (any, error) {
			resp, err := next.Send(ctx, req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				return resp, errServerFailure
			}
			return resp, nil
		})

		switch {
		case errors.Is(err, errServerFailure):
			return result.(*Response), nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, NewCircuitOpenError(opts.Name, err)
		case err != nil:
			return nil, err
		}
		return result.(*Response), nil
	})
}
