package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds tool-level settings. Per-host reconciliation state (enabled
// providers, ignored packages, installed-version overrides) lives in the
// state store, not here.
type Config struct {
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	StatePath string `mapstructure:"state_path" yaml:"state_path"`

	// CheckConcurrency bounds the provider check fan-out. Zero runs one
	// worker per registered provider.
	CheckConcurrency int `mapstructure:"check_concurrency" yaml:"check_concurrency"`

	// Timeout overrides in seconds, by command class: listing commands
	// that stay local, and commands that hit network registries. Zero
	// means the provider's built-in default.
	ListTimeoutSeconds    int `mapstructure:"list_timeout_seconds" yaml:"list_timeout_seconds"`
	NetworkTimeoutSeconds int `mapstructure:"network_timeout_seconds" yaml:"network_timeout_seconds"`
}

func Default() *Config {
	return &Config{
		LogFormat: "text",
		LogLevel:  "warn",
	}
}

// Load reads config from cfgFile, or from the per-OS config dir when empty.
// A missing config file is not an error; defaults apply.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("updeck")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("UPDECK")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.clamp()
	return cfg, nil
}

// Save writes the config as YAML to cfgFile, or to the default location
// when empty.
func Save(cfg *Config, cfgFile string) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(Dir(), "updeck.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// StateFile returns the configured state file path, defaulting to
// state.json in the config dir.
func (c *Config) StateFile() string {
	if c.StatePath != "" {
		return c.StatePath
	}
	return filepath.Join(Dir(), "state.json")
}

// clamp replaces out-of-range values with safe defaults instead of failing
// startup.
func (c *Config) clamp() {
	if c.CheckConcurrency < 0 {
		c.CheckConcurrency = 0
	}
	if c.CheckConcurrency > 16 {
		c.CheckConcurrency = 16
	}
	if c.ListTimeoutSeconds < 0 {
		c.ListTimeoutSeconds = 0
	}
	if c.NetworkTimeoutSeconds < 0 {
		c.NetworkTimeoutSeconds = 0
	}
}

// Dir returns the per-OS configuration directory.
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Updeck")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Updeck")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "updeck")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "updeck")
	}
}
