package httpclient

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Well-known retry delay headers, in resolution order.
const (
	HeaderMSRetryAfterMS = "x-ms-retry-after-ms"
	HeaderRetryAfterMS   = "retry-after-ms"
	HeaderRetryAfter     = "Retry-After"
)

// RetryDelayFromHeaders resolves a server-requested delay from the well-known
// headers. Negative or unparsable values count as absent and resolution moves
// on to the next header. An HTTP-date in the past yields zero.
func RetryDelayFromHeaders(h http.Header, now func() time.Time) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	if now == nil {
		now = time.Now
	}

	if d, ok := parseDelay(h.Get(HeaderMSRetryAfterMS), time.Millisecond); ok {
		return d, true
	}
	if d, ok := parseDelay(h.Get(HeaderRetryAfterMS), time.Millisecond); ok {
		return d, true
	}

	value := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if value == "" {
		return 0, false
	}
	if d, ok := parseDelay(value, time.Second); ok {
		return d, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now()), 0), true
	}
	return 0, false
}

// RetryDelayFromHeader resolves a delay from a single custom header whose
// value is a number of units.
func RetryDelayFromHeader(h http.Header, name string, unit time.Duration) (time.Duration, bool) {
	if h == nil || name == "" {
		return 0, false
	}
	if unit <= 0 {
		unit = time.Millisecond
	}
	return parseDelay(h.Get(name), unit)
}

// parseDelay parses a non-negative integer or decimal count of units.
func parseDelay(value string, unit time.Duration) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < 0 || n > math.MaxInt64/int64(unit) {
			return 0, false
		}
		return time.Duration(n) * unit, true
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	d := f * float64(unit)
	if d >= math.MaxInt64 {
		return 0, false
	}
	return time.Duration(d), true
}
