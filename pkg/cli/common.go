package cli

import (
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chainload/pkg/chainloader"
	"github.com/platinummonkey/chainload/pkg/config"
	"github.com/platinummonkey/chainload/pkg/extractor"
	"github.com/platinummonkey/chainload/pkg/observability"
)

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, string(os.PathListSeparator))
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// commonFlags are accepted by every command that touches plugin directories
type commonFlags struct {
	config     string
	pluginDirs stringList
	process    string
	logLevel   string
	logFormat  string
}

func addCommonFlags(flags *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	flags.StringVar(&f.config, "config", os.Getenv("CHAINLOAD_CONFIG"), "Path to a TOML config file")
	flags.Var(&f.pluginDirs, "plugin-dir", "Plugin directory to scan (repeatable)")
	flags.StringVar(&f.process, "process", "", "Process name plugins are filtered against (default: this executable)")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&f.logFormat, "log-format", "", "Log format: text or json")
	return f
}

// environment is the configuration and logger shared by one command invocation
type environment struct {
	cfg *config.Config
	log *logrus.Logger
}

// setup loads the configuration, applies flag overrides and builds the logger
func (f *commonFlags) setup() (*environment, error) {
	cfg, err := config.LoadConfig(f.config)
	if err != nil {
		return nil, err
	}

	if len(f.pluginDirs) > 0 {
		cfg.Loader.PluginDirs = f.pluginDirs
	}
	if f.process != "" {
		cfg.Loader.ProcessName = f.process
	}
	if f.logLevel != "" {
		cfg.Observability.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Observability.LogFormat = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, stderr)
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, log: log}, nil
}

func (e *environment) newExtractor() *extractor.Extractor {
	return extractor.NewExtractor(extractor.Options{
		CacheSize: e.cfg.Loader.CacheSize,
		CacheTTL:  e.cfg.Loader.CacheTTL,
		Logger:    e.log,
	})
}

// newChainloader builds a chainloader from the loader configuration. metrics and
// otelMetrics may be nil.
func (e *environment) newChainloader(metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) (*chainloader.Chainloader, error) {
	hostVersion, err := e.cfg.Loader.Version()
	if err != nil {
		return nil, err
	}

	return chainloader.New(chainloader.Options{
		ProcessName:       e.cfg.Loader.ProcessName,
		HostVersion:       hostVersion,
		PluginDirs:        e.cfg.Loader.PluginDirs,
		Extractor:         e.newExtractor(),
		Logger:            e.log,
		Metrics:           metrics,
		OTelMetrics:       otelMetrics,
		TransitiveCascade: e.cfg.Loader.TransitiveCascade,
	}), nil
}
