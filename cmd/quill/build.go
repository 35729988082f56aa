package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/quill/cmd/quill/tui"
	"github.com/jamesainslie/quill/pkg/quill/build"
	"github.com/jamesainslie/quill/pkg/quill/generator"
	"github.com/jamesainslie/quill/pkg/quill/stats"
)

// runBuild is the root command handler.
func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		cfg.Files = args
	}

	generators, err := loadGenerators()
	if err != nil {
		return err
	}

	var res *build.Result
	if useProgressUI() {
		res, err = buildWithProgress(ctx, generators)
	} else {
		res, err = build.New(build.Options{Generators: generators}).Run(ctx, cfg)
	}
	if err != nil {
		return err
	}

	reportResult(res)
	return nil
}

// loadGenerators returns the built-in generators plus any templates found
// in the configured generators directory.
func loadGenerators() (*generator.Registry, error) {
	reg := generator.NewDefaultRegistry()
	names, err := generator.Discover(reg, cfg.GeneratorsDir)
	if err != nil {
		return nil, fmt.Errorf("loading template generators: %w", err)
	}
	if len(names) > 0 {
		printVerbose("Template generators from %s: %v", cfg.GeneratorsDir, names)
	}
	return reg, nil
}

// useProgressUI reports whether the interactive progress display should
// be shown.
func useProgressUI() bool {
	if cfg.Quiet || cfg.Verbose || viper.GetBool("no_progress") {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// buildWithProgress runs the build behind the progress display. The stats
// summary is buffered and printed once the display has exited.
func buildWithProgress(ctx context.Context, generators *generator.Registry) (*build.Result, error) {
	var summary bytes.Buffer
	res, err := tui.Run(ctx, "Building documentation", os.Stderr, func(ctx context.Context, onProgress func(stats.Progress)) (*build.Result, error) {
		b := build.New(build.Options{
			Generators: generators,
			OnProgress: onProgress,
			Out:        &summary,
		})
		return b.Run(ctx, cfg)
	})
	_, _ = os.Stderr.Write(summary.Bytes())
	return res, err
}

func reportResult(res *build.Result) {
	if res.NoNewerFiles {
		printInfo("No newer files.")
		return
	}
	if cfg.SingleFile {
		printInfo("Documented %d files in %s", len(res.Artifacts), res.Output)
		return
	}
	printInfo("Documented %d files into %s", len(res.Artifacts), res.Output)
	if res.HistoryID != "" {
		printVerbose("History entry %s", res.HistoryID)
	}
}
