package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPCounter(t *testing.T) {
	ctx := WithHTTPCounter(context.Background())
	assert.Equal(t, int64(0), GetHTTPCounter(ctx))
	assert.Equal(t, int64(0), GetHTTPElapsed(ctx))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncrementHTTPCounter(ctx)
			AddHTTPElapsed(ctx, 10)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), GetHTTPCounter(ctx))
	assert.Equal(t, int64(500), GetHTTPElapsed(ctx))
}

func TestHTTPCounterWithoutTracker(t *testing.T) {
	ctx := context.Background()
	IncrementHTTPCounter(ctx)
	AddHTTPElapsed(ctx, 5)
	assert.Equal(t, int64(0), GetHTTPCounter(ctx))
	assert.Equal(t, int64(0), GetHTTPElapsed(ctx))
}
