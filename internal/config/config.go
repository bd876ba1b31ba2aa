// Package config loads engine configuration from config files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Subdirectories under the output root.
const (
	BundlesSubdir    = "bundles"
	MonitoringSubdir = "monitoring"
)

// LLM holds generation endpoint settings.
type LLM struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Remediation holds fix-loop settings.
type Remediation struct {
	MaxFixAttempts int     `mapstructure:"max_fix_attempts"`
	Threshold      float64 `mapstructure:"threshold"`
}

// Monitor holds compliance sweep settings.
type Monitor struct {
	Schedule   string  `mapstructure:"schedule"`
	AlertFloor float64 `mapstructure:"alert_floor"`
}

// Log holds logger settings.
type Log struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// Config is the full engine configuration.
type Config struct {
	OutputDir   string      `mapstructure:"output_dir"`
	Concurrency int         `mapstructure:"concurrency"`
	LLM         LLM         `mapstructure:"llm"`
	Remediation Remediation `mapstructure:"remediation"`
	Monitor     Monitor     `mapstructure:"monitor"`
	Log         Log         `mapstructure:"log"`
}

// BundlesDir is where per-product bundle directories live.
func (c *Config) BundlesDir() string {
	return filepath.Join(c.OutputDir, BundlesSubdir)
}

// MonitoringDir is where compliance history is recorded.
func (c *Config) MonitoringDir() string {
	return filepath.Join(c.OutputDir, MonitoringSubdir)
}

// setDefaults registers every configuration default on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "output")
	v.SetDefault("concurrency", 4)
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "mistral")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("remediation.max_fix_attempts", 3)
	v.SetDefault("remediation.threshold", 80.0)
	v.SetDefault("monitor.schedule", "@every 1h")
	v.SetDefault("monitor.alert_floor", 70.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
}

// Load reads configuration from the given file (optional), config.yaml in
// the working directory, and STRUCTR_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("STRUCTR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
