package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the run history log.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is a node_exporter textfile path. Empty disables export.
	Textfile string `mapstructure:"textfile"`
}

// Config represents the application configuration.
type Config struct {
	Files         []string      `mapstructure:"files"`
	Exclude       []string      `mapstructure:"exclude"`
	Output        string        `mapstructure:"output"`
	Force         bool          `mapstructure:"force"`
	SingleFile    bool          `mapstructure:"single_file"`
	Quiet         bool          `mapstructure:"quiet"`
	Verbose       bool          `mapstructure:"verbose"`
	Generator     string        `mapstructure:"generator"`
	Workers       int           `mapstructure:"workers"`
	Title         string        `mapstructure:"title"`
	All           bool          `mapstructure:"all"`
	GeneratorsDir string        `mapstructure:"generators_dir"`
	History       HistoryConfig `mapstructure:"history"`
	Logging       LoggingConfig `mapstructure:"logging"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
}

// Load loads configuration from file and environment variables into a
// fresh viper instance. See LoadWith.
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith loads configuration into v, which may already carry bound flags.
// Config file locations (in order of precedence):
//   - cfgFile, when not empty
//   - $XDG_CONFIG_HOME/quill/config.yaml
//   - $HOME/.config/quill/config.yaml
//
// Environment variables are prefixed with QUILL_ (e.g., QUILL_GENERATOR).
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "quill"))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "quill"))
	}

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.History.Path, &cfg.GeneratorsDir, &cfg.Logging.Path, &cfg.Metrics.Textfile} {
		if *p, err = ExpandPath(*p); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("generator", DefaultGenerator)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("generators_dir", GeneratorsDir())

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MiB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"build":    "info",
		"dispatch": "info",
		"resolver": "info",
		"watch":    "warn",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "quill"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "quill"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GeneratorsDir returns $XDG_CONFIG_HOME/quill/generators, where template
// generators are discovered.
func GeneratorsDir() string {
	return filepath.Join(xdg.ConfigHome, "quill", "generators")
}

// StateDir returns $XDG_STATE_HOME/quill/ for logs and run history.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "quill")
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(StateDir(), "history")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# quill configuration

# Output directory for generated documentation
output: %s

# Generator to run (see: quill generators)
generator: %s

# Glob patterns excluded from every build
exclude:
  - node_modules
  - vendor

# Parser workers (0 = auto)
workers: %d

# Directory scanned for *.tmpl template generators
generators_dir: %s

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

# Prometheus textfile export (empty disables)
metrics:
  textfile: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/quill/quill.log)
  path: ""
  rotation:
    max_size: 10MiB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    build: info
    dispatch: info
    resolver: info
    watch: warn
`, DefaultOutput, DefaultGenerator, DefaultWorkers, GeneratorsDir(), HistoryDir(), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
