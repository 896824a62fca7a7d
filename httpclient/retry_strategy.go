package httpclient

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

const (
	// DefaultMaxRetries is the default maximum number of retries
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the first exponential backoff delay
	DefaultBaseDelay = 800 * time.Millisecond
	// DefaultMaxDelay caps every computed delay
	DefaultMaxDelay = 8 * time.Second
	// DefaultJitter is the default relative jitter applied to exponential delays
	DefaultJitter = 0.05
	// DefaultRetryDelay is the default fixed delay between retries
	DefaultRetryDelay = 1 * time.Second
)

// RetryStrategy decides whether an attempt is retried and how long to wait.
type RetryStrategy interface {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries() int
	// CalculateRetryDelay returns the wait before retry number retryAttempt (1-based).
	CalculateRetryDelay(retryAttempt int) time.Duration
	// ShouldRetry reports whether a response status warrants another attempt.
	ShouldRetry(resp *Response) bool
	// ShouldRetryError reports whether a send error warrants another attempt.
	ShouldRetryError(err error) bool
}

// FixedDelay waits the same delay before every retry.
type FixedDelay struct {
	Retries int
	Delay   time.Duration
}

// NewFixedDelay creates a fixed delay strategy.
func NewFixedDelay(maxRetries int, delay time.Duration) *FixedDelay {
	return &FixedDelay{Retries: maxRetries, Delay: delay}
}

func (s *FixedDelay) MaxRetries() int {
	return max(s.Retries, 0)
}

func (s *FixedDelay) CalculateRetryDelay(int) time.Duration {
	return max(s.Delay, 0)
}

func (s *FixedDelay) ShouldRetry(resp *Response) bool {
	return resp != nil && IsRetryableStatus(resp.StatusCode)
}

func (s *FixedDelay) ShouldRetryError(err error) bool {
	return IsTransientError(err)
}

// ExponentialBackoff doubles the delay on every retry, starting at BaseDelay
// and never exceeding MaxDelay. Jitter spreads each delay uniformly within
// [1-Jitter, 1+Jitter] of its nominal value.
type ExponentialBackoff struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64
}

// NewExponentialBackoff creates an exponential strategy with the default
// symmetric jitter.
func NewExponentialBackoff(maxRetries int, baseDelay, maxDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		Retries:   maxRetries,
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
		Jitter:    DefaultJitter,
	}
}

// DefaultRetryStrategy returns the exponential strategy used when none is
// configured. Its DefaultJitter is symmetric, so a default delay may land up
// to 5% below BaseDelay*2^(attempt-1). Set Jitter to 0 for an exact floor.
func DefaultRetryStrategy() RetryStrategy {
	return NewExponentialBackoff(DefaultMaxRetries, DefaultBaseDelay, DefaultMaxDelay)
}

func (s *ExponentialBackoff) MaxRetries() int {
	return max(s.Retries, 0)
}

func (s *ExponentialBackoff) CalculateRetryDelay(retryAttempt int) time.Duration {
	if s.BaseDelay <= 0 {
		return 0
	}
	retryAttempt = max(retryAttempt, 1)

	maxDelay := s.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}

	// Shifted bits that fall off signal overflow.
	shift := min(retryAttempt-1, 62)
	delay := s.BaseDelay << shift
	if delay <= 0 || delay>>shift != s.BaseDelay || delay > maxDelay {
		delay = maxDelay
	}

	if j := math.Min(s.Jitter, 1); j > 0 {
		factor := 1 - j + rand.Float64()*2*j
		jittered := float64(delay) * factor
		if jittered >= float64(maxDelay) {
			return maxDelay
		}
		delay = time.Duration(jittered)
	}

	return delay
}

func (s *ExponentialBackoff) ShouldRetry(resp *Response) bool {
	return resp != nil && IsRetryableStatus(resp.StatusCode)
}

func (s *ExponentialBackoff) ShouldRetryError(err error) bool {
	return IsTransientError(err)
}

// IsRetryableStatus reports the default retryable statuses: 408, 429 and every
// 5xx except 501 Not Implemented and 505 HTTP Version Not Supported.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	}
	return code >= 500 && code < 600
}
