package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Retry modes
const (
	RetryModeFixed       = "fixed"
	RetryModeExponential = "exponential"
)

// Telemetry exporters
const (
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlphttp"
	ExporterOTLPGRPC = "otlpgrpc"
)

// Config represents the SDK client configuration.
type Config struct {
	Client        ClientConfig        `koanf:"client" json:"client" yaml:"client"`
	Retry         RetryConfig         `koanf:"retry" json:"retry" yaml:"retry"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	Breaker       BreakerConfig       `koanf:"breaker" json:"breaker" yaml:"breaker"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	// k holds the underlying Koanf instance for flexible access to custom keys
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// ClientConfig holds transport-level client settings.
type ClientConfig struct {
	Endpoint        string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Timeout         time.Duration     `koanf:"timeout" json:"timeout" yaml:"timeout"`
	UserAgent       string            `koanf:"useragent" json:"useragent" yaml:"useragent"`
	RequestIDHeader string            `koanf:"requestidheader" json:"requestidheader" yaml:"requestidheader"`
	Headers         map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
}

// RetryConfig selects and parameterizes the retry strategy.
type RetryConfig struct {
	Mode       string        `koanf:"mode" json:"mode" yaml:"mode"`
	MaxRetries int           `koanf:"maxretries" json:"maxretries" yaml:"maxretries"`
	Delay      time.Duration `koanf:"delay" json:"delay" yaml:"delay"`             // fixed mode
	BaseDelay  time.Duration `koanf:"basedelay" json:"basedelay" yaml:"basedelay"` // exponential mode
	MaxDelay   time.Duration `koanf:"maxdelay" json:"maxdelay" yaml:"maxdelay"`    // exponential mode
	Jitter     float64       `koanf:"jitter" json:"jitter" yaml:"jitter"`          // exponential mode, 0..1

	// RetryAfterHeader, when set, replaces the well-known retry-after headers.
	RetryAfterHeader string        `koanf:"retryafterheader" json:"retryafterheader" yaml:"retryafterheader"`
	RetryAfterUnit   time.Duration `koanf:"retryafterunit" json:"retryafterunit" yaml:"retryafterunit"`
}

// RateLimitConfig throttles outbound attempts. A zero Limit disables it.
type RateLimitConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit"` // attempts per second
	Burst int     `koanf:"burst" json:"burst" yaml:"burst"`
}

// BreakerConfig configures the circuit breaker policy.
type BreakerConfig struct {
	Enabled     bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	MaxRequests uint32        `koanf:"maxrequests" json:"maxrequests" yaml:"maxrequests"` // allowed in half-open
	Interval    time.Duration `koanf:"interval" json:"interval" yaml:"interval"`          // closed-state counter reset
	Timeout     time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`             // open -> half-open
	Failures    uint32        `koanf:"failures" json:"failures" yaml:"failures"`          // consecutive failures to trip
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level           string `koanf:"level" json:"level" yaml:"level"`
	Pretty          bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
	Payloads        bool   `koanf:"payloads" json:"payloads" yaml:"payloads"`
	MaxPayloadBytes int    `koanf:"maxpayloadbytes" json:"maxpayloadbytes" yaml:"maxpayloadbytes"`
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled        bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Exporter       string `koanf:"exporter" json:"exporter" yaml:"exporter"`
	Endpoint       string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Insecure       bool   `koanf:"insecure" json:"insecure" yaml:"insecure"`
	ServiceName    string `koanf:"servicename" json:"servicename" yaml:"servicename"`
	ServiceVersion string `koanf:"serviceversion" json:"serviceversion" yaml:"serviceversion"`
}
