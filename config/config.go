// Package config loads SDK client configuration from defaults, an optional
// YAML file and environment variables using koanf.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is the YAML file looked up when no explicit path is given.
	DefaultFile = "bricks-http.yaml"
	// DefaultEnvPrefix prefixes every environment variable read by Load.
	DefaultEnvPrefix = "BRICKS_"
)

type loadOptions struct {
	file      string
	fileSet   bool
	envPrefix string
	environ   func() []string
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithFile loads the given YAML file instead of DefaultFile. Unlike the
// default file, an explicit file must exist.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
		o.fileSet = true
	}
}

// WithEnvPrefix changes the environment variable prefix (default BRICKS_).
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) { o.envPrefix = prefix }
}

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(environ func() []string) LoadOption {
	return func(o *loadOptions) { o.environ = environ }
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration file
// 3. Default values (lowest priority)
func Load(opts ...LoadOption) (*Config, error) {
	o := loadOptions{file: DefaultFile, envPrefix: DefaultEnvPrefix, environ: os.Environ}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
		if o.fileSet || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", o.file, err)
		}
	}

	prefix := o.envPrefix
	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix:      prefix,
		EnvironFunc: o.environ,
		TransformFunc: func(key, value string) (string, any) {
			// BRICKS_RETRY_MAXRETRIES -> retry.maxretries
			key = strings.TrimPrefix(key, prefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finalize(k)
}

// LoadBytes loads configuration from an in-memory YAML document layered over
// the defaults. Environment variables are not consulted.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return finalize(k)
}

func finalize(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout":         "30s",
		"client.useragent":       "",
		"client.requestidheader": "x-ms-client-request-id",

		"retry.mode":           RetryModeExponential,
		"retry.maxretries":     3,
		"retry.delay":          "800ms",
		"retry.basedelay":      "800ms",
		"retry.maxdelay":       "8s",
		"retry.jitter":         0.05,
		"retry.retryafterunit": "1s",

		"ratelimit.limit": 0,
		"ratelimit.burst": 1,

		"breaker.enabled":     false,
		"breaker.maxrequests": 1,
		"breaker.interval":    "60s",
		"breaker.timeout":     "30s",
		"breaker.failures":    5,

		"log.level":           "info",
		"log.pretty":          false,
		"log.payloads":        false,
		"log.maxpayloadbytes": 4096,

		"observability.enabled":     false,
		"observability.exporter":    ExporterStdout,
		"observability.servicename": "bricks-http",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Exists reports whether key was set by any source.
func (c *Config) Exists(key string) bool {
	return c.k != nil && c.k.Exists(key)
}

// GetString returns the raw string value for key, or defaultValue when unset.
// It gives access to keys not modeled by Config.
func (c *Config) GetString(key, defaultValue string) string {
	if !c.Exists(key) {
		return defaultValue
	}
	return c.k.String(key)
}
