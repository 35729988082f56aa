package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))
)

// Print writes a styled summary of the run to w.
func (s *Stats) Print(w io.Writer) error {
	_, err := fmt.Fprintln(w, Summary(s.Snapshot()))
	return err
}

// Summary renders p as a bordered block.
func Summary(p Progress) string {
	rows := [][2]string{
		{"Parsed", fmt.Sprintf("%s of %s files", humanize.Comma(p.Processed), humanize.Comma(p.Total))},
		{"Rate", fmt.Sprintf("%.1f files/s", p.FilesPerSecond())},
		{"Read", humanize.IBytes(uint64(p.Bytes))},
		{"Elapsed", formatDuration(p.Elapsed)},
		{"Workers", fmt.Sprintf("%d", p.Concurrency)},
	}

	lines := []string{titleStyle.Render("Build summary")}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0]+":")+" "+valueStyle.Render(row[1]))
	}

	return summaryBox.Render(strings.Join(lines, "\n"))
}

// formatDuration formats a run duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
