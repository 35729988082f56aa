package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/quill/pkg/quill/config"
	"github.com/jamesainslie/quill/pkg/quill/logging"
)

// initializeLogging loads the configuration and starts file logging. It
// runs before every command.
func initializeLogging(_ *cobra.Command, _ []string) error {
	loaded, err := config.LoadWith(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := ensureDirectories(); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if cfg.Verbose {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	cobra.OnFinalize(func() {
		_ = logging.Close()
	})
	return nil
}

// ensureDirectories creates the config and state directories.
func ensureDirectories() error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return config.EnsureStateDir()
}

// parseRotationConfig converts the configured rotation settings, falling
// back to the default size when max_size is empty or unparseable.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
	if rc.MaxSize == "" {
		return out
	}

	size, err := humanize.ParseBytes(rc.MaxSize)
	if err != nil || size == 0 {
		printVerbose("Invalid logging.rotation.max_size %q, using default", rc.MaxSize)
		return out
	}
	out.MaxSize = int64(size)
	return out
}
