package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/rs/zerolog"
)

// maxRetriesLimit bounds retry.maxretries; beyond it exponential delays saturate at maxdelay anyway.
const maxRetriesLimit = 20

// Validate checks every section and returns the first *ConfigError found.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateClient,
		validateRetry,
		validateRateLimit,
		validateBreaker,
		validateLog,
		validateObservability,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateClient(cfg *Config) error {
	c := &cfg.Client
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return NewInvalidFieldError("client.endpoint", fmt.Sprintf("must be an absolute url, got %q", c.Endpoint), nil)
		}
	}
	if c.Timeout < 0 {
		return NewInvalidFieldError("client.timeout", "must not be negative", nil)
	}
	return nil
}

func validateRetry(cfg *Config) error {
	r := &cfg.Retry
	modes := []string{RetryModeFixed, RetryModeExponential}
	if !slices.Contains(modes, r.Mode) {
		return NewInvalidFieldError("retry.mode", fmt.Sprintf("unknown mode %q", r.Mode), modes)
	}
	if r.MaxRetries < 0 || r.MaxRetries > maxRetriesLimit {
		return NewInvalidFieldError("retry.maxretries", fmt.Sprintf("must be between 0 and %d", maxRetriesLimit), nil)
	}
	if r.Delay < 0 || r.BaseDelay < 0 || r.MaxDelay < 0 {
		return NewInvalidFieldError("retry", "delays must not be negative", nil)
	}
	if r.Mode == RetryModeExponential && r.MaxDelay < r.BaseDelay {
		return NewInvalidFieldError("retry.maxdelay", "must be greater than or equal to retry.basedelay", nil)
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return NewInvalidFieldError("retry.jitter", "must be between 0 and 1", nil)
	}
	if r.RetryAfterHeader != "" && r.RetryAfterUnit <= 0 {
		return NewInvalidFieldError("retry.retryafterunit", "must be positive when retry.retryafterheader is set", nil)
	}
	return nil
}

func validateRateLimit(cfg *Config) error {
	rl := &cfg.RateLimit
	if rl.Limit < 0 {
		return NewInvalidFieldError("ratelimit.limit", "must not be negative", nil)
	}
	if rl.Limit > 0 && rl.Burst < 1 {
		return NewInvalidFieldError("ratelimit.burst", "must be at least 1 when ratelimit.limit is set", nil)
	}
	return nil
}

func validateBreaker(cfg *Config) error {
	b := &cfg.Breaker
	if !b.Enabled {
		return nil
	}
	if b.Failures == 0 {
		return NewInvalidFieldError("breaker.failures", "must be positive when the breaker is enabled", nil)
	}
	if b.Timeout <= 0 {
		return NewInvalidFieldError("breaker.timeout", "must be positive when the breaker is enabled", nil)
	}
	return nil
}

func validateLog(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return NewInvalidFieldError("log.level", fmt.Sprintf("unknown level %q", cfg.Log.Level),
			[]string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"})
	}
	if cfg.Log.MaxPayloadBytes < 0 {
		return NewInvalidFieldError("log.maxpayloadbytes", "must not be negative", nil)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	o := &cfg.Observability
	if !o.Enabled {
		return nil
	}
	exporters := []string{ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC}
	if !slices.Contains(exporters, o.Exporter) {
		return NewInvalidFieldError("observability.exporter", fmt.Sprintf("unknown exporter %q", o.Exporter), exporters)
	}
	if o.Exporter != ExporterStdout && o.Endpoint == "" {
		return NewMissingFieldError("observability.endpoint", DefaultEnvPrefix+"OBSERVABILITY_ENDPOINT", "observability.endpoint")
	}
	if o.ServiceName == "" {
		return NewMissingFieldError("observability.servicename", DefaultEnvPrefix+"OBSERVABILITY_SERVICENAME", "observability.servicename")
	}
	return nil
}
