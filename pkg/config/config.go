package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chainload/pkg/extractor"
	"github.com/platinummonkey/chainload/pkg/hostapi"
	"github.com/platinummonkey/chainload/pkg/observability"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// Config holds all application configuration
type Config struct {
	// Loader configuration
	Loader LoaderConfig `toml:"loader"`

	// Status server configuration
	Server ServerConfig `toml:"server"`

	// Observability configuration
	Observability ObservabilityConfig `toml:"observability"`
}

// LoaderConfig holds chainloader settings
type LoaderConfig struct {
	PluginDirs  []string `toml:"plugin_dirs"`
	ProcessName string   `toml:"process_name"` // empty means the running executable
	HostVersion string   `toml:"host_version"`

	// TransitiveCascade skips every candidate downstream of a failed hard dependency
	TransitiveCascade bool `toml:"transitive_cascade"`

	// Metadata cache
	CacheSize int           `toml:"cache_size"`
	CacheTTL  time.Duration `toml:"cache_ttl"`
}

// ServerConfig holds status server configuration
type ServerConfig struct {
	Address         string        `toml:"address"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// Metrics
	MetricsEnabled bool `toml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled     bool   `toml:"otel_enabled"`
	OTelEndpoint    string `toml:"otel_endpoint"`
	OTelServiceName string `toml:"otel_service_name"`
	OTelInsecure    bool   `toml:"otel_insecure"` // Use insecure gRPC connection
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Loader: LoaderConfig{
			PluginDirs:  []string{"plugins"},
			HostVersion: hostapi.Version,
			CacheSize:   extractor.DefaultCacheSize,
			CacheTTL:    extractor.DefaultCacheTTL,
		},
		Server: ServerConfig{
			Address:         "127.0.0.1:9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			LogFormat:       observability.FormatText,
			MetricsEnabled:  true,
			OTelEndpoint:    "localhost:4317",
			OTelServiceName: "chainload",
			OTelInsecure:    true,
		},
	}
}

// LoadConfig loads configuration from an optional TOML file, then applies
// CHAINLOAD_* environment overrides
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides settings from the environment
func (c *Config) applyEnv() {
	if dirs := getEnv("CHAINLOAD_PLUGIN_DIRS", ""); dirs != "" {
		c.Loader.PluginDirs = filepath.SplitList(dirs)
	}
	c.Loader.ProcessName = getEnv("CHAINLOAD_PROCESS_NAME", c.Loader.ProcessName)
	c.Loader.HostVersion = getEnv("CHAINLOAD_HOST_VERSION", c.Loader.HostVersion)
	c.Loader.TransitiveCascade = getEnvBool("CHAINLOAD_TRANSITIVE_CASCADE", c.Loader.TransitiveCascade)
	c.Loader.CacheSize = getEnvInt("CHAINLOAD_CACHE_SIZE", c.Loader.CacheSize)
	c.Loader.CacheTTL = getEnvDuration("CHAINLOAD_CACHE_TTL", c.Loader.CacheTTL)

	c.Server.Address = getEnv("CHAINLOAD_STATUS_ADDR", c.Server.Address)
	c.Server.ShutdownTimeout = getEnvDuration("CHAINLOAD_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Observability.LogLevel = getEnv("CHAINLOAD_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("CHAINLOAD_LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsEnabled = getEnvBool("CHAINLOAD_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("CHAINLOAD_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("CHAINLOAD_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("CHAINLOAD_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelInsecure = getEnvBool("CHAINLOAD_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate loader config
	if len(c.Loader.PluginDirs) == 0 {
		return fmt.Errorf("at least one plugin directory is required")
	}
	if _, err := c.Loader.Version(); err != nil {
		return err
	}
	if c.Loader.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}

	// Validate server config
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}

	// Validate logging config
	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Observability.LogLevel)
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case observability.FormatText, observability.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Version parses the configured host version. An empty value is the zero
// version, which disables host version warnings.
func (l LoaderConfig) Version() (plugins.Version, error) {
	if l.HostVersion == "" {
		return plugins.Version{}, nil
	}
	v, err := plugins.ParseVersion(l.HostVersion)
	if err != nil {
		return plugins.Version{}, fmt.Errorf("invalid host version %q: %w", l.HostVersion, err)
	}
	return v, nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
