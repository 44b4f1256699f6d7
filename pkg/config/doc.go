// Package config loads chainload configuration from an optional TOML file and
// CHAINLOAD_* environment variables.
//
// # Configuration File
//
//	[loader]
//	plugin_dirs = ["plugins"]
//	process_name = "game.exe"
//	host_version = "1.0.0"
//	transitive_cascade = false
//	cache_size = 256
//	cache_ttl = "30m"
//
//	[server]
//	address = "127.0.0.1:9090"
//
//	[observability]
//	log_level = "info"
//	log_format = "text"
//	metrics_enabled = true
//	otel_enabled = false
//
// Unknown keys are rejected.
//
// # Environment Overrides
//
//	CHAINLOAD_PLUGIN_DIRS="/opt/a:/opt/b"  # os.PathListSeparator separated
//	CHAINLOAD_PROCESS_NAME="game.exe"
//	CHAINLOAD_HOST_VERSION="1.0.0"
//	CHAINLOAD_TRANSITIVE_CASCADE="true"
//	CHAINLOAD_CACHE_SIZE="256"
//	CHAINLOAD_CACHE_TTL="30m"
//	CHAINLOAD_STATUS_ADDR=":9090"
//	CHAINLOAD_SHUTDOWN_TIMEOUT="30s"
//	CHAINLOAD_LOG_LEVEL="debug"
//	CHAINLOAD_LOG_FORMAT="json"
//	CHAINLOAD_METRICS_ENABLED="true"
//	CHAINLOAD_OTEL_ENABLED="true"
//	CHAINLOAD_OTEL_ENDPOINT="localhost:4317"
//	CHAINLOAD_OTEL_SERVICE_NAME="chainload"
//	CHAINLOAD_OTEL_INSECURE="true"
//
// # Usage
//
//	cfg, err := config.LoadConfig(path)
//	hostVersion, err := cfg.Loader.Version()
package config
