// Package stats tracks the progress of one build: how many files were
// expected, how many have been handed to a parser so far, and how long the
// run took. Counters are safe for concurrent use by dispatch workers.
package stats

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/quill/pkg/quill/logging"
)

// Verbosity controls how much a run reports while it progresses.
type Verbosity int

const (
	// Quiet reports nothing.
	Quiet Verbosity = iota
	// Normal reports progress through OnProgress only.
	Normal
	// Verbose also writes each file path as it is processed.
	Verbose
)

// Progress is a snapshot of a run's counters.
type Progress struct {
	// Total is the number of files expected.
	Total int64 `json:"total"`

	// Processed is the number of files handed to a parser so far.
	Processed int64 `json:"processed"`

	// Bytes is the number of raw bytes read so far.
	Bytes int64 `json:"bytes"`

	// Concurrency is the worker count of the run.
	Concurrency int `json:"concurrency"`

	// CurrentPath is the most recently started file.
	CurrentPath string `json:"current_path"`

	// Elapsed is the time since Begin, frozen at Done.
	Elapsed time.Duration `json:"elapsed"`

	// Done is set once the run has finished.
	Done bool `json:"done"`
}

// Options configures a Stats tracker.
type Options struct {
	// Verbosity selects what AddFile reports.
	Verbosity Verbosity

	// OnProgress is called with throttled progress updates. It must be safe
	// to call from multiple goroutines.
	OnProgress func(Progress)

	// Out receives per-file lines in verbose mode. Nil uses os.Stderr.
	Out io.Writer
}

// Stats is the progress tracker for one run.
type Stats struct {
	opts Options

	total       atomic.Int64
	processed   atomic.Int64
	bytes       atomic.Int64
	concurrency atomic.Int64
	currentPath atomic.Value

	// lastProgress is the unix millisecond of the last OnProgress call.
	lastProgress atomic.Int64

	mu    sync.Mutex
	start time.Time
	end   time.Time

	outMu sync.Mutex
}

var log = logging.Get("stats")

// New creates a tracker.
func New(opts Options) *Stats {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	s := &Stats{opts: opts}
	s.currentPath.Store("")
	return s
}

// Begin resets the counters and starts the clock.
func (s *Stats) Begin(total, concurrency int) {
	s.total.Store(int64(total))
	s.processed.Store(0)
	s.bytes.Store(0)
	s.concurrency.Store(int64(concurrency))
	s.currentPath.Store("")
	s.lastProgress.Store(0)

	s.mu.Lock()
	s.start = time.Now()
	s.end = time.Time{}
	s.mu.Unlock()

	log.Debug("run started", "total", total, "concurrency", concurrency)
	s.reportProgressForce()
}

// AddFile records that path has been picked up by a worker.
func (s *Stats) AddFile(path string) {
	n := s.processed.Add(1)
	s.currentPath.Store(path)

	if s.opts.Verbosity >= Verbose {
		s.outMu.Lock()
		fmt.Fprintf(s.opts.Out, "  [%d/%d] %s\n", n, s.total.Load(), path)
		s.outMu.Unlock()
	}

	s.reportProgress()
}

// AddBytes records n raw bytes read.
func (s *Stats) AddBytes(n int64) {
	s.bytes.Add(n)
}

// Done stops the clock and sends a final progress update.
func (s *Stats) Done() {
	s.mu.Lock()
	s.end = time.Now()
	s.mu.Unlock()

	s.reportProgressForce()
	log.Debug("run finished", "processed", s.processed.Load(), "elapsed", s.Elapsed())
}

// Elapsed returns the time since Begin, or the run time once Done was called.
func (s *Stats) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.start.IsZero() {
		return 0
	}
	if s.end.IsZero() {
		return time.Since(s.start)
	}
	return s.end.Sub(s.start)
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Progress {
	s.mu.Lock()
	done := !s.end.IsZero()
	s.mu.Unlock()

	currentPath, _ := s.currentPath.Load().(string)
	return Progress{
		Total:       s.total.Load(),
		Processed:   s.processed.Load(),
		Bytes:       s.bytes.Load(),
		Concurrency: int(s.concurrency.Load()),
		CurrentPath: currentPath,
		Elapsed:     s.Elapsed(),
		Done:        done,
	}
}

// FilesPerSecond returns the processing rate over the elapsed time.
func (p Progress) FilesPerSecond() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Processed) / p.Elapsed.Seconds()
}

// Percent returns the completed fraction in [0, 1].
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Processed) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// reportProgress calls OnProgress at most every 10ms.
func (s *Stats) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}

	s.opts.OnProgress(s.Snapshot())
}

func (s *Stats) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.opts.OnProgress(s.Snapshot())
}
