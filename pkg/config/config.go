package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by every configuration error.
var ErrConfig = errors.New("config error")

// Config is the root configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	ProtocolLog ProtocolLogConfig `yaml:"protocol_log"`
	Components  []ComponentConfig `yaml:"components"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Address to serve /metrics on, e.g. ":9102". Empty disables it.
	Address string `yaml:"address"`
}

// ProtocolLogConfig controls protocol event capture.
type ProtocolLogConfig struct {
	// Path of the CBOR capture file. Empty disables capture.
	Path string `yaml:"path"`
}

// ComponentConfig declares one component instance.
type ComponentConfig struct {
	Kind     string  `yaml:"kind"`
	Name     string  `yaml:"name"`
	Settings Section `yaml:"settings"`
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of the defaults, applies environment
// overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %v", ErrConfig, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BREADCRUMBS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BREADCRUMBS_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("BREADCRUMBS_PROTOCOL_LOG"); v != "" {
		cfg.ProtocolLog.Path = v
	}
}

// Validate checks the configuration and fills in default instance names.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	seen := make(map[string]bool, len(c.Components))
	for i := range c.Components {
		cc := &c.Components[i]
		if cc.Kind == "" {
			errs = append(errs, fmt.Sprintf("components[%d].kind is required", i))
			continue
		}
		if cc.Name == "" {
			cc.Name = fmt.Sprintf("%s-%d", strings.ToLower(cc.Kind), i)
		}
		if seen[cc.Name] {
			errs = append(errs, fmt.Sprintf("components[%d].name %q is not unique", i, cc.Name))
		}
		seen[cc.Name] = true
		cc.Settings.path = "components." + cc.Name + ".settings"
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(errs, "; "))
	}

	return nil
}
