// Package tracking owns the OpenTelemetry instruments recorded by the HTTP
// pipeline. Instruments are created lazily from the global meter provider.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// MeterName is the instrumentation scope of pipeline metrics
	MeterName = "go-bricks-sdk/httpclient"

	// Metric names following OpenTelemetry semantic conventions where they exist
	MetricRequestDuration = "http.client.request.duration" // Histogram in seconds
	MetricRetries         = "http.client.retries"          // Counter
	MetricErrors          = "http.client.errors"           // Counter

	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrServerAddr = "server.address"
	attrErrorType  = "error.type"
	attrReason     = "retry.reason"
)

var (
	meter         metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	requestDuration metric.Float64Histogram
	retryCounter    metric.Int64Counter
	errorCounter    metric.Int64Counter
)

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize http client metric %s: %v\n", metricName, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return
	}

	meter = otel.Meter(MeterName)

	var err error
	requestDuration, err = meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Duration of outbound HTTP requests including retries"),
		metric.WithUnit("s"),
	)
	logMetricError(MetricRequestDuration, err)

	retryCounter, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Number of retried HTTP attempts"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)

	errorCounter, err = meter.Int64Counter(
		MetricErrors,
		metric.WithDescription("Number of outbound HTTP requests that ended in an error"),
		metric.WithUnit("{error}"),
	)
	logMetricError(MetricErrors, err)

	metricsInited = true
}

func ensureInitialized() {
	meterOnce.Do(initMeter)
}

// RecordRequest records the duration of one logical request. status is zero
// when no response was received; errorType is empty on success.
func RecordRequest(ctx context.Context, method, host string, status int, duration time.Duration, errorType string) {
	ensureInitialized()

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrServerAddr, host),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	if errorType == "" && status >= 400 {
		errorType = strconv.Itoa(status)
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}

	if requestDuration != nil {
		requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if errorType != "" && status == 0 && errorCounter != nil {
		errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRetry counts one retry. reason is "status" or "error".
func RecordRetry(ctx context.Context, method, reason string) {
	ensureInitialized()

	if retryCounter != nil {
		retryCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrMethod, method),
			attribute.String(attrReason, reason),
		))
	}
}

// IsInitialized returns true if the instruments have been created.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state for testing purposes.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter = nil
	requestDuration = nil
	retryCounter = nil
	errorCounter = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
