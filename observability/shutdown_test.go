package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type mockProvider struct {
	shutdownErr error
	deadline    time.Time
	hasDeadline bool
}

func (m *mockProvider) TracerProvider() trace.TracerProvider { return nil }
func (m *mockProvider) MeterProvider() metric.MeterProvider  { return nil }
func (m *mockProvider) ForceFlush(context.Context) error     { return nil }

func (m *mockProvider) Shutdown(ctx context.Context) error {
	m.deadline, m.hasDeadline = ctx.Deadline()
	return m.shutdownErr
}

func TestShutdownNilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(nil, time.Second))
}

func TestShutdownAppliesDefaultTimeout(t *testing.T) {
	m := &mockProvider{}
	start := time.Now()
	require.NoError(t, Shutdown(m, 0))

	require.True(t, m.hasDeadline)
	assert.WithinDuration(t, start.Add(DefaultShutdownTimeout), m.deadline, time.Second)
}

func TestShutdownWrapsProviderError(t *testing.T) {
	boom := errors.New("boom")
	err := Shutdown(&mockProvider{shutdownErr: boom}, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "observability shutdown failed")
}
