package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	constants "sysmon/config"

	"github.com/spf13/viper"
)

// GPUConfig selects GPU strategies.
type GPUConfig struct {
	Strategies []string `mapstructure:"strategies"` // empty uses the platform defaults
	Synthetic  bool     `mapstructure:"synthetic"`
}

// OTelConfig configures OTLP metric export. An empty endpoint disables it.
type OTelConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Interval time.Duration     `mapstructure:"interval"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Config represents the application configuration
type Config struct {
	Interval      time.Duration `mapstructure:"interval"`
	HistoryLength int           `mapstructure:"history_length"`
	TopProcesses  int           `mapstructure:"top_processes"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	ListenAddr    string        `mapstructure:"listen_addr"`
	Serve         bool          `mapstructure:"serve"`
	LogFile       string        `mapstructure:"log_file"`
	LogLevel      string        `mapstructure:"log_level"`
	CacheFile     string        `mapstructure:"cache_file"`
	Prometheus    bool          `mapstructure:"prometheus"`
	GPU           GPUConfig     `mapstructure:"gpu"`
	OTel          OTelConfig    `mapstructure:"otel"`

	file string
}

// File returns the config file that was read, if any.
func (cfg *Config) File() string { return cfg.file }

// Validate rejects settings the collector cannot run with.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", cfg.Interval))
	}
	if cfg.HistoryLength <= 0 {
		errs = append(errs, fmt.Errorf("history_length must be positive, got %d", cfg.HistoryLength))
	}
	if cfg.TopProcesses <= 0 {
		errs = append(errs, fmt.Errorf("top_processes must be positive, got %d", cfg.TopProcesses))
	}
	if cfg.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probe_timeout must be positive, got %s", cfg.ProbeTimeout))
	}
	if cfg.OTel.Endpoint != "" && cfg.OTel.Interval <= 0 {
		errs = append(errs, fmt.Errorf("otel.interval must be positive, got %s", cfg.OTel.Interval))
	}
	return errors.Join(errs...)
}

// defaults lists every known key with its default value.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"interval":       time.Duration(constants.UPDATE_INTERVAL_MS) * time.Millisecond,
		"history_length": constants.HISTORY_LENGTH,
		"top_processes":  constants.TOP_PROCESS_LIMIT,
		"probe_timeout":  time.Duration(constants.PROBE_TIMEOUT_SECONDS) * time.Second,
		"listen_addr":    constants.DEFAULT_LISTEN_ADDR,
		"serve":          true,
		"log_file":       "",
		"log_level":      "INFO",
		"cache_file":     constants.CACHE_FILE,
		"prometheus":     true,
		"gpu.strategies": []string{},
		"gpu.synthetic":  true,
		"otel.endpoint":  "",
		"otel.interval":  time.Duration(constants.DEFAULT_OTEL_INTERVAL_SECONDS) * time.Second,
		"otel.insecure":  false,
		"otel.headers":   map[string]string{},
	}
}

// Keys returns every known configuration key, sorted.
func Keys() []string {
	d := defaults()
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultPath returns ~/.sysmon/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, constants.CONFIG_DIR_NAME, constants.CONFIG_FILE_NAME)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME" + constants.CONFIG_DIR_NAME)
		v.AddConfigPath(".")
	}

	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(constants.ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// read loads the file into v. A missing file is not an error.
func read(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// LoadConfig loads configuration from path (or the default search
// locations when empty), environment variables and defaults.
func LoadConfig(path string) (*Config, error) {
	v := newViper(path)
	if err := read(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("interval", cfg.Interval.String())
	v.Set("history_length", cfg.HistoryLength)
	v.Set("top_processes", cfg.TopProcesses)
	v.Set("probe_timeout", cfg.ProbeTimeout.String())
	v.Set("listen_addr", cfg.ListenAddr)
	v.Set("serve", cfg.Serve)
	v.Set("log_file", cfg.LogFile)
	v.Set("log_level", cfg.LogLevel)
	v.Set("cache_file", cfg.CacheFile)
	v.Set("prometheus", cfg.Prometheus)
	v.Set("gpu.strategies", cfg.GPU.Strategies)
	v.Set("gpu.synthetic", cfg.GPU.Synthetic)
	v.Set("otel.endpoint", cfg.OTel.Endpoint)
	v.Set("otel.interval", cfg.OTel.Interval.String())
	v.Set("otel.insecure", cfg.OTel.Insecure)
	v.Set("otel.headers", cfg.OTel.Headers)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

// SetValue updates a single key in the file at path. The result must
// still form a valid configuration.
func SetValue(path, key, value string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, ok := defaults()[key]; !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}

	v := newViper(path)
	if err := read(v); err != nil {
		return nil, err
	}
	if key == "gpu.strategies" {
		v.Set(key, splitList(value))
	} else {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := SaveConfig(&cfg, path); err != nil {
		return nil, err
	}
	cfg.file = path
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
