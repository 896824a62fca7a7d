//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// HTTPBinContainerConfig holds configuration for the go-httpbin test container
type HTTPBinContainerConfig struct {
	// ImageTag specifies the go-httpbin version (default: "v2.18.3")
	ImageTag string
	// StartupTimeout for container initialization (default: 60 seconds)
	StartupTimeout time.Duration
}

// DefaultHTTPBinConfig returns an HTTPBinContainerConfig populated with defaults.
func DefaultHTTPBinConfig() *HTTPBinContainerConfig {
	return &HTTPBinContainerConfig{
		ImageTag:       "v2.18.3",
		StartupTimeout: 60 * time.Second,
	}
}

// HTTPBinContainer wraps a running go-httpbin container
type HTTPBinContainer struct {
	container testcontainers.Container
	baseURL   string
}

// StartHTTPBinContainer starts a go-httpbin container. The test is skipped
// when Docker is not reachable.
func StartHTTPBinContainer(ctx context.Context, t *testing.T, cfg *HTTPBinContainerConfig) (*HTTPBinContainer, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultHTTPBinConfig()
	}

	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
		return nil, nil
	}

	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("mccutchen/go-httpbin:%s", cfg.ImageTag),
		ExposedPorts: []string{"8080/tcp"},
		WaitingFor: wait.ForHTTP("/status/200").
			WithPort("8080/tcp").
			WithStartupTimeout(cfg.StartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start httpbin container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get httpbin container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "8080")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get httpbin container port: %w", err)
	}

	baseURL := fmt.Sprintf("http://%s:%d", host, mappedPort.Int())
	t.Logf("httpbin container started at %s", baseURL)

	return &HTTPBinContainer{container: container, baseURL: baseURL}, nil
}

// BaseURL returns the http://host:port of the container
func (h *HTTPBinContainer) BaseURL() string {
	return h.baseURL
}

// URL joins path onto the base URL
func (h *HTTPBinContainer) URL(path string) string {
	return h.baseURL + path
}

// Terminate stops and removes the container
func (h *HTTPBinContainer) Terminate(ctx context.Context) error {
	if h == nil || h.container == nil {
		return nil
	}
	return h.container.Terminate(ctx)
}

// MustStartHTTPBinContainer starts the container and registers cleanup,
// failing the test on error.
func MustStartHTTPBinContainer(ctx context.Context, t *testing.T, cfg *HTTPBinContainerConfig) *HTTPBinContainer {
	t.Helper()

	c, err := StartHTTPBinContainer(ctx, t, cfg)
	if err != nil {
		t.Fatalf("Failed to start httpbin container: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate httpbin container: %v", err)
		}
	})
	return c
}
