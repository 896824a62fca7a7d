package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "debug_level", level: "debug", wantDebug: true, wantInfo: true},
		{name: "info_level", level: "info", wantDebug: false, wantInfo: true},
		{name: "warn_level", level: "warn", wantDebug: false, wantInfo: false},
		{name: "invalid_level_defaults_to_info", level: "loud", wantDebug: false, wantInfo: true},
		{name: "empty_level_defaults_to_info", level: "", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, nil)

			log.Debug().Msg("debug")
			log.Info().Msg("info")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, `"message":"debug"`))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, `"message":"info"`))
		})
	}
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", nil)

	log.Warn().
		Str("method", "GET").
		Int("status", 503).
		Int64("call_count", 7).
		Bool("retry", true).
		Dur("delay", 250*time.Millisecond).
		Err(errors.New("boom")).
		Bytes("body", []byte("payload")).
		Msgf("retrying %s", "request")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.EqualValues(t, 503, entry["status"])
	assert.EqualValues(t, 7, entry["call_count"])
	assert.Equal(t, true, entry["retry"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "payload", entry["body"])
	assert.Equal(t, "retrying request", entry["message"])
	assert.Contains(t, entry, "caller")
}

func TestStrMasksSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", nil)

	log.Info().Str("authorization", "Bearer abc").Str("url", "https://user:pw@host/x?sig=s3cr3t").Msg(testMessage)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultMaskValue, entries[0]["authorization"])
	assert.NotContains(t, entries[0]["url"], "s3cr3t")
	assert.NotContains(t, entries[0]["url"], "pw@")
}

func TestWithFieldsFiltersSensitiveData(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", nil)

	log.WithFields(map[string]any{"client": "vault", "api-key": "k"}).Info().Msg(testMessage)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "vault", entries[0]["client"])
	assert.Equal(t, DefaultMaskValue, entries[0]["api-key"])
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", nil)

	t.Run("returns original logger when context has no logger", func(t *testing.T) {
		assert.Same(t, log, log.WithContext(context.Background()))
	})

	t.Run("returns original logger for non-context values", func(t *testing.T) {
		assert.Same(t, log, log.WithContext("not a context"))
	})

	t.Run("uses zerolog logger from context", func(t *testing.T) {
		var ctxBuf bytes.Buffer
		zl := zerolog.New(&ctxBuf)
		ctx := zl.WithContext(context.Background())

		log.WithContext(ctx).Info().Msg("from ctx")
		assert.Contains(t, ctxBuf.String(), "from ctx")
	})
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Error().Str("k", "v").Msg("dropped")
		log.WithFields(map[string]any{"a": 1}).Debug().Msg("dropped")
	})
}
