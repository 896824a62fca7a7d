package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayFromHeaders(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
		found   bool
	}{
		{"none", nil, 0, false},
		{"ms provider header", map[string]string{HeaderMSRetryAfterMS: "10"}, 10 * time.Millisecond, true},
		{"generic ms header", map[string]string{HeaderRetryAfterMS: "250"}, 250 * time.Millisecond, true},
		{"retry-after seconds", map[string]string{HeaderRetryAfter: "3"}, 3 * time.Second, true},
		{"retry-after decimal seconds", map[string]string{HeaderRetryAfter: "1.5"}, 1500 * time.Millisecond, true},
		{"retry-after http date", map[string]string{HeaderRetryAfter: now.Add(90 * time.Second).Format(http.TimeFormat)}, 90 * time.Second, true},
		{"retry-after past date", map[string]string{HeaderRetryAfter: now.Add(-time.Hour).Format(http.TimeFormat)}, 0, true},
		{"provider header wins", map[string]string{HeaderMSRetryAfterMS: "10", HeaderRetryAfterMS: "20", HeaderRetryAfter: "5"}, 10 * time.Millisecond, true},
		{"generic ms beats seconds", map[string]string{HeaderRetryAfterMS: "20", HeaderRetryAfter: "5"}, 20 * time.Millisecond, true},
		{"invalid provider value falls through", map[string]string{HeaderMSRetryAfterMS: "ten", HeaderRetryAfter: "2"}, 2 * time.Second, true},
		{"negative value falls through", map[string]string{HeaderMSRetryAfterMS: "-5", HeaderRetryAfterMS: "7"}, 7 * time.Millisecond, true},
		{"only invalid values", map[string]string{HeaderMSRetryAfterMS: "ten", HeaderRetryAfter: "soon"}, 0, false},
		{"negative seconds", map[string]string{HeaderRetryAfter: "-1"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			got, ok := RetryDelayFromHeaders(h, clock)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryDelayFromCustomHeader(t *testing.T) {
	h := http.Header{}
	h.Set("X-Backoff", "4")

	d, ok := RetryDelayFromHeader(h, "X-Backoff", time.Second)
	assert.True(t, ok)
	assert.Equal(t, 4*time.Second, d)

	d, ok = RetryDelayFromHeader(h, "X-Backoff", 0)
	assert.True(t, ok)
	assert.Equal(t, 4*time.Millisecond, d)

	_, ok = RetryDelayFromHeader(h, "X-Missing", time.Second)
	assert.False(t, ok)
}
