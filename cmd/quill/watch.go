package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/quill/pkg/quill/build"
	"github.com/jamesainslie/quill/pkg/quill/config"
	"github.com/jamesainslie/quill/pkg/quill/outdir"
	"github.com/jamesainslie/quill/pkg/quill/resolver"
	"github.com/jamesainslie/quill/pkg/quill/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Rebuild whenever the inputs change",
	Long: `Build once, then watch the given paths and rebuild after every burst of
changes. Only files modified since the previous build are parsed again.

Press Ctrl+C to stop.`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		cfg.Files = args
	}
	roots := cfg.Files
	if len(roots) == 0 {
		roots = []string{"."}
	}

	generators, err := loadGenerators()
	if err != nil {
		return err
	}
	b := build.New(build.Options{Generators: generators})

	if err := rebuild(ctx, b, nil); err != nil {
		return err
	}

	ignore, err := watchIgnore(cfg)
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Options{Debounce: watchDebounce, Ignore: ignore})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for _, root := range roots {
		if err := w.Watch(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}
	printInfo("Watching %d directories. Press Ctrl+C to stop.", len(w.Watched()))

	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		return rebuild(ctx, b, changed)
	})
}

func rebuild(ctx context.Context, b *build.Builder, changed []string) error {
	if len(changed) > 0 {
		printInfo("%d paths changed, rebuilding...", len(changed))
		for _, p := range changed {
			printVerbose("changed: %s", p)
		}
	}

	res, err := b.Run(ctx, cfg)
	if err != nil {
		if changed != nil {
			printError("%v", err)
		}
		return err
	}
	reportResult(res)
	return nil
}

// watchIgnore returns the filter for watch events: configured exclude
// patterns, the output directory, quill's bookkeeping files and .git.
func watchIgnore(c *config.Config) (func(string) bool, error) {
	globs, err := resolver.CompileExclude(c.Exclude)
	if err != nil {
		return nil, err
	}

	var out string
	if !c.SingleFile {
		output := c.Output
		if output == "" {
			output = config.DefaultOutput
		}
		if out, err = filepath.Abs(output); err != nil {
			return nil, err
		}
	}

	return func(path string) bool {
		base := filepath.Base(path)
		if base == ".git" || outdir.IsBookkeeping(base) || globs.Match(path) {
			return true
		}
		return out != "" && (path == out || strings.HasPrefix(path, out+string(filepath.Separator)))
	}, nil
}
