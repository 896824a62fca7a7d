package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-sdk/logger"
)

func TestLoggingPolicyBasicRequestAndResponse(t *testing.T) {
	fakeLog := &fakeLogger{}
	sender := newScriptedSender(step{
		status: 200,
		header: http.Header{"Content-Length": {"17"}},
		body:   `{"success": true}`,
	})

	req, err := NewRequest(http.MethodPost, "https://api.example.com/users", []byte(`{"name": "test user"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set(HeaderContentType, testContentType)
	req.Header.Set(HeaderClientRequestID, "test-trace-123")

	resp, err := sendThrough(t, context.Background(), req, sender, LoggingPolicy(fakeLog, LogOptions{}))
	require.NoError(t, err)
	defer resp.Close()

	infoEvents := fakeLog.eventsByLevel("info")
	require.Len(t, infoEvents, 2)

	reqEvent := infoEvents[0]
	assert.Equal(t, msgRequest, reqEvent.message)
	assert.Equal(t, "outbound", reqEvent.fields["direction"])
	assert.Equal(t, http.MethodPost, reqEvent.fields["method"])
	assert.Equal(t, "https://api.example.com/users", reqEvent.fields["url"])
	assert.Equal(t, "test-trace-123", reqEvent.fields["request_id"])
	assert.Equal(t, 3, reqEvent.fields["header_count"])
	assert.Equal(t, len(req.Body), reqEvent.fields["body_size"])

	respEvent := infoEvents[1]
	assert.Equal(t, msgResponse, respEvent.message)
	assert.Equal(t, "inbound", respEvent.fields["direction"])
	assert.Equal(t, 200, respEvent.fields["status"])
	assert.Equal(t, 17, respEvent.fields["body_size"])
	assert.IsType(t, time.Duration(0), respEvent.fields["elapsed"])

	assert.Empty(t, fakeLog.eventsByLevel("debug"))
}

func TestLoggingPolicyPayloadsMaskHeadersAndKeepStream(t *testing.T) {
	fakeLog := &fakeLogger{}
	longBody := strings.Repeat("x", 40)
	sender := newScriptedSender(step{status: 201, body: longBody})

	req, err := NewRequest(http.MethodPut, "https://api.example.com/resource", []byte("This is a very long body that should be truncated"))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")

	resp, err := sendThrough(t, context.Background(), req, sender,
		LoggingPolicy(fakeLog, LogOptions{Payloads: true, MaxPayloadBytes: 10}))
	require.NoError(t, err)

	debugEvents := fakeLog.eventsByLevel("debug")
	require.Len(t, debugEvents, 2)

	reqDebug := debugEvents[0]
	headers, ok := reqDebug.fields["headers"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, logger.DefaultMaskValue, headers["X-Api-Key"])
	assert.Equal(t, "true", reqDebug.fields["body_truncated"])
	assert.Equal(t, req.Body[:10], reqDebug.fields["body_preview"])

	respDebug := debugEvents[1]
	assert.Equal(t, "true", respDebug.fields["body_truncated"])
	assert.Equal(t, []byte(longBody[:10]), respDebug.fields["body_preview"])

	data, err := resp.Bytes()
	require.NoError(t, err)
	assert.Equal(t, longBody, string(data), "peeking must not consume the stream")
	assert.Equal(t, int32(1), sender.bodies[0].closes.Load())
}

func TestLoggingPolicyShortBodyNotTruncated(t *testing.T) {
	fakeLog := &fakeLogger{}
	sender := newScriptedSender(step{status: 200, body: "tiny"})

	resp, err := sendThrough(t, context.Background(), newTestRequest(t, http.MethodGet), sender,
		LoggingPolicy(fakeLog, LogOptions{Payloads: true}))
	require.NoError(t, err)

	respDebug := fakeLog.eventsByLevel("debug")[1]
	assert.Equal(t, "false", respDebug.fields["body_truncated"])
	assert.Equal(t, []byte("tiny"), respDebug.fields["body_preview"])

	data, err := resp.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "tiny", string(data))
}

func TestLoggingPolicyLogsFailuresAndCountsAttempts(t *testing.T) {
	fakeLog := &fakeLogger{}
	sender := newScriptedSender(step{err: NewNetworkError("reset", nil)}, step{status: 200})
	ctx := logger.WithHTTPCounter(context.Background())

	resp, err := sendThrough(t, ctx, newTestRequest(t, http.MethodGet), sender,
		NewRetryPolicy(RetryOptions{Strategy: NewFixedDelay(1, 0)}),
		LoggingPolicy(fakeLog, LogOptions{}))
	require.NoError(t, err)
	defer resp.Close()

	errorEvents := fakeLog.eventsByLevel("error")
	require.Len(t, errorEvents, 1)
	loggedErr, ok := errorEvents[0].fields["error"].(error)
	require.True(t, ok)
	assert.True(t, IsErrorType(loggedErr, NetworkError))
	assert.Equal(t, int64(2), logger.GetHTTPCounter(ctx))
	assert.Positive(t, logger.GetHTTPElapsed(ctx))
}

func TestLoggingPolicyRedactsURLSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", nil)
	sender := newScriptedSender(step{status: 200})

	req, err := NewRequest(http.MethodGet, "https://acct.blob.example.net/c/b?sv=2024&sig=SECRETSIG", nil)
	require.NoError(t, err)

	resp, err := sendThrough(t, context.Background(), req, sender, LoggingPolicy(log, LogOptions{}))
	require.NoError(t, err)
	defer resp.Close()

	assert.NotContains(t, buf.String(), "SECRETSIG")
	assert.Contains(t, buf.String(), "sv=2024")
}
