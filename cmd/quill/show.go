package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/quill/cmd/quill/tui"
	"github.com/jamesainslie/quill/pkg/quill/generator"
	"github.com/jamesainslie/quill/pkg/quill/store"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Inspect artifacts written by the store generator",
	Long: `Inspect the artifact store in the output directory.

Without a name, lists every stored artifact (optionally filtered by --prefix).
With a name, prints that artifact's title, summary and sections.

The store is written by building with --generator store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var showPrefix string

func init() {
	showCmd.Flags().StringVarP(&showPrefix, "prefix", "p", "", "only list artifacts whose name starts with prefix")
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	dir := filepath.Join(cfg.Output, generator.StoreDir)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no artifact store in %s (build with --generator store)", cfg.Output)
	}

	s, err := store.OpenReadOnly(dir)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if len(args) == 0 {
		return listArtifacts(s)
	}

	a, err := s.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Print(renderArtifact(a))
	return nil
}

func listArtifacts(s *store.Store) error {
	if meta, err := s.Meta(); err == nil {
		fmt.Println(tui.Theme.Title.Render(meta.Title))
		fmt.Println(tui.Theme.Muted.Render(fmt.Sprintf("%d artifacts, built %s", meta.Count, humanize.Time(meta.Built))))
		fmt.Println()
	}

	names, err := s.List(showPrefix)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		printInfo("No artifacts found.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// renderArtifact formats an artifact for the terminal.
func renderArtifact(a *types.Artifact) string {
	var b strings.Builder

	b.WriteString(tui.Theme.Title.Render(a.Title))
	b.WriteString("\n")
	b.WriteString(tui.Theme.Muted.Render(fmt.Sprintf("%s  %s  %s", a.Name, a.Kind, humanize.IBytes(uint64(a.Size)))))
	b.WriteString("\n")

	if a.Summary != "" {
		b.WriteString("\n")
		b.WriteString(a.Summary)
		b.WriteString("\n")
	}

	for _, s := range a.Sections {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("#", max(s.Level, 1)))
		b.WriteString(" ")
		b.WriteString(tui.Theme.Heading.Render(s.Title))
		b.WriteString("\n")
		if s.Body != "" {
			b.WriteString(s.Body)
			b.WriteString("\n")
		}
	}

	return b.String()
}
