package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/quill/pkg/quill/config"
	"github.com/jamesainslie/quill/pkg/quill/runlog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View build history",
	Long: `View previous builds.

Each build records its outcome, generator, output directory and the files it
parsed. Entries can be looked up by ID or by any unique ID prefix.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a build",
	Long:  `Display detailed information about a build by its ID or ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*runlog.Log, error) {
	dir := cfg.History.Path
	if dir == "" {
		dir = config.HistoryDir()
	}
	l, err := runlog.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return l, nil
}

func runHistory(_ *cobra.Command, _ []string) error {
	l, err := openHistory()
	if err != nil {
		return err
	}

	entries, err := l.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'quill [paths...]' to build documentation.")
		return nil
	}

	fmt.Printf("\n%-8s  %-14s  %-10s  %-8s  %-10s  %s\n", "ID", "WHEN", "STATUS", "FILES", "SIZE", "OUTPUT")
	fmt.Println(strings.Repeat("-", 80))

	for _, entry := range entries {
		fmt.Printf("%-8s  %-14s  %-10s  %-8d  %-10s  %s\n",
			shortID(entry.ID),
			humanize.Time(entry.Timestamp),
			entry.Status,
			entry.Summary.TotalFiles,
			humanize.IBytes(uint64(entry.Summary.TotalBytes)),
			entry.Output,
		)
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'quill history show <id>' for details on a specific build.")

	return nil
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	l, err := openHistory()
	if err != nil {
		return err
	}

	entry, err := l.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nBuild Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", entry.ID)
	fmt.Printf("Timestamp:  %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Status:     %s\n", entry.Status)
	fmt.Printf("Generator:  %s\n", entry.Generator)
	fmt.Printf("Output:     %s\n", entry.Output)
	fmt.Printf("Files:      %s\n", humanize.Comma(entry.Summary.TotalFiles))
	fmt.Printf("Total Size: %s\n", humanize.IBytes(uint64(entry.Summary.TotalBytes)))
	fmt.Printf("Workers:    %d\n", entry.Summary.Workers)
	fmt.Printf("Elapsed:    %s\n", entry.Summary.Elapsed.Round(time.Millisecond))
	if entry.Error != "" {
		fmt.Printf("Error:      %s\n", entry.Error)
	}

	if len(entry.Files) > 0 {
		fmt.Println("\nFiles:")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("%-10s  %-10s  %s\n", "SIZE", "KIND", "NAME")
		fmt.Println(strings.Repeat("-", 60))

		limit := min(len(entry.Files), 50)
		for _, file := range entry.Files[:limit] {
			fmt.Printf("%-10s  %-10s  %s\n", humanize.IBytes(uint64(file.Size)), file.Kind, file.Name)
		}

		if len(entry.Files) > limit {
			fmt.Printf("\n... and %d more files\n", len(entry.Files)-limit)
		}
	}

	return nil
}

func runHistoryClean(_ *cobra.Command, _ []string) error {
	l, err := openHistory()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := l.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

// shortID returns the first eight characters of a history ID.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
