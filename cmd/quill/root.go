package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/quill/pkg/quill/config"
)

var (
	cfgFile string

	// cfg is loaded by initializeLogging before any command runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "quill [paths...]",
		Short: "Build documentation from source trees",
		Long: `Quill discovers documentable files, parses them on a pool of workers and
hands the results to a generator that writes the documentation.

Paths may be files or directories. A directory containing a .document file
is expanded from the patterns listed there; otherwise every parseable file
beneath it is used. Rebuilds only parse files changed since the last build.

Examples:
  quill                        # Document the current directory into ./doc
  quill -o site -g json src    # JSON index of src into ./site
  quill -f .                   # Rebuild everything
  quill watch lib              # Rebuild lib whenever it changes
  quill show lib/guide.md      # Inspect a stored artifact
  quill history                # View previous builds`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
		RunE:              runBuild,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/quill/config.yaml)")
	flags.StringP("output", "o", "", "output directory (default: doc)")
	flags.StringSliceP("exclude", "x", nil, "glob patterns to exclude (can be specified multiple times)")
	flags.BoolP("force", "f", false, "rebuild every file and accept a conflicting output directory")
	flags.Bool("single-file", false, "generate into the working directory without a marker")
	flags.StringP("generator", "g", "", "generator to run (see: quill generators)")
	flags.IntP("workers", "w", 0, "override worker count (0=auto)")
	flags.StringP("title", "t", "", "documentation title")
	flags.BoolP("all", "a", false, "include unexported Go identifiers")
	flags.BoolP("quiet", "q", false, "minimal output")
	flags.BoolP("verbose", "v", false, "print every file as it is parsed")
	flags.Bool("no-progress", false, "disable the progress display")

	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("force", flags.Lookup("force"))
	_ = viper.BindPFlag("single_file", flags.Lookup("single-file"))
	_ = viper.BindPFlag("generator", flags.Lookup("generator"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("title", flags.Lookup("title"))
	_ = viper.BindPFlag("all", flags.Lookup("all"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("no_progress", flags.Lookup("no-progress"))
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
