package observability

import "errors"

// ErrMissingServiceName is returned when observability is enabled without a service name.
var ErrMissingServiceName = errors.New("observability: service name is required when observability is enabled")

// ErrInvalidExporter is returned for an exporter other than stdout, otlphttp or otlpgrpc.
var ErrInvalidExporter = errors.New("observability: exporter must be stdout, otlphttp or otlpgrpc")

// ErrMissingEndpoint is returned when an OTLP exporter has no endpoint.
var ErrMissingEndpoint = errors.New("observability: OTLP exporters need an endpoint")
