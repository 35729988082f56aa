package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/quill/pkg/quill/build"
	"github.com/jamesainslie/quill/pkg/quill/stats"
)

// ProgressMsg carries a stats snapshot from the running build.
type ProgressMsg stats.Progress

// DoneMsg is sent when the build returns.
type DoneMsg struct {
	Result *build.Result
	Err    error
}

// ProgressModel shows a spinner, a progress bar and the file being parsed.
type ProgressModel struct {
	title    string
	spinner  spinner.Model
	bar      progress.Model
	progress stats.Progress
	width    int
	cancel   context.CancelFunc

	done   bool
	result *build.Result
	err    error
}

// NewProgressModel creates the model. cancel is called when the user
// interrupts the build.
func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Theme.Title

	return ProgressModel{
		title:   title,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:   80,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case ProgressMsg:
		m.progress = stats.Progress(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the model.
func (m ProgressModel) View() string {
	var b strings.Builder

	switch {
	case m.done && m.err != nil:
		b.WriteString(Theme.Bad.Render(fmt.Sprintf("  Build failed: %v", m.err)))
	case m.done:
		b.WriteString(Theme.Good.Render("  Build complete"))
	default:
		fmt.Fprintf(&b, "  %s %s", m.spinner.View(), Theme.Title.Render(m.title))
	}
	b.WriteString("\n\n")

	b.WriteString("  ")
	b.WriteString(m.bar.ViewAs(m.progress.Percent()))
	b.WriteString("\n")

	counts := fmt.Sprintf("  %s / %s files  %s read",
		humanize.Comma(m.progress.Processed),
		humanize.Comma(m.progress.Total),
		humanize.IBytes(uint64(m.progress.Bytes)))
	b.WriteString(Theme.Muted.Render(counts))
	b.WriteString("\n")

	if !m.done && m.progress.CurrentPath != "" {
		b.WriteString(Theme.Muted.Render("  " + truncatePath(m.progress.CurrentPath, m.width-4)))
		b.WriteString("\n")
	}

	return b.String()
}

// Done reports whether the build has returned.
func (m ProgressModel) Done() bool {
	return m.done
}

// BuildFunc runs a build, reporting progress through onProgress.
type BuildFunc func(ctx context.Context, onProgress func(stats.Progress)) (*build.Result, error)

// Run runs fn while displaying progress on out, and returns its outcome.
func Run(ctx context.Context, title string, out io.Writer, fn BuildFunc) (*build.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, cancel), tea.WithOutput(out), tea.WithContext(ctx))

	var (
		res      *build.Result
		buildErr error
		finished = make(chan struct{})
	)
	go func() {
		defer close(finished)
		res, buildErr = fn(ctx, func(pr stats.Progress) {
			p.Send(ProgressMsg(pr))
		})
		p.Send(DoneMsg{Result: res, Err: buildErr})
	}()

	_, runErr := p.Run()
	if runErr != nil {
		// The view stopped first; stop the build too and wait for it.
		cancel()
	}
	<-finished

	if runErr != nil && buildErr == nil && ctx.Err() == nil {
		return nil, fmt.Errorf("running progress view: %w", runErr)
	}
	return res, buildErr
}
