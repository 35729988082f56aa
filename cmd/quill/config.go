package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/quill/pkg/quill/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit configuration",
	Long: `Settings come from flags, QUILL_* environment variables, the config file
($XDG_CONFIG_HOME/quill/config.yaml, else ~/.config/quill/config.yaml, or
--config) and built-in defaults, in that order of precedence.

Nested keys use underscores in the environment:
  QUILL_OUTPUT=site
  QUILL_GENERATOR=json
  QUILL_HISTORY_RETENTION_DAYS=7`,
}

var (
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	configEditCmd = &cobra.Command{
		Use:   "edit",
		Short: "Open the config file in $VISUAL or $EDITOR (default vi)",
		Long: `Open the config file in $VISUAL, then $EDITOR, falling back to vi. The
editor value may carry arguments, e.g. EDITOR="code --wait". A default file
is written first if none exists.`,
		Args: cobra.NoArgs,
		RunE: runConfigEdit,
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default config file unless one exists",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd, configEditCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Printf("# Config file: %s\n\n", configFile)
		}
	} else {
		fmt.Print("# Config file: (using defaults, no file found)\n\n")
	}

	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	fmt.Print(string(out))

	if overrides := envOverrides(os.Environ()); len(overrides) > 0 {
		fmt.Println("\n# Environment overrides:")
		for _, kv := range overrides {
			fmt.Printf("#   %s\n", kv)
		}
	}
	return nil
}

// envOverrides returns the QUILL_ variables in env, sorted.
func envOverrides(env []string) []string {
	var out []string
	for _, kv := range env {
		if strings.HasPrefix(kv, "QUILL_") {
			out = append(out, kv)
		}
	}
	sort.Strings(out)
	return out
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	argv := editorCommand(os.Getenv)
	printVerbose("Opening %s with %s", configPath, strings.Join(argv, " "))

	editor := exec.Command(argv[0], append(argv[1:], configPath)...)
	editor.Stdin, editor.Stdout, editor.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := editor.Run(); err != nil {
		return fmt.Errorf("running %s: %w", argv[0], err)
	}
	return nil
}

// editorCommand returns the editor argv from $VISUAL or $EDITOR, or vi.
func editorCommand(getenv func(string) string) []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if argv := strings.Fields(getenv(key)); len(argv) > 0 {
			return argv
		}
	}
	return []string{"vi"}
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		printInfo("%s already exists; use 'quill config edit' to change it.", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	printInfo("Wrote %s", configPath)
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(configPath)

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		printVerbose("No file yet, defaults apply")
	}
	return nil
}
