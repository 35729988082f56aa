package stats

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_ConcurrentAddFile(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	s := New(Options{
		Verbosity:  Normal,
		OnProgress: func(Progress) { calls.Add(1) },
	})

	const workers, perWorker = 8, 500
	s.Begin(workers*perWorker, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.AddFile(fmt.Sprintf("w%d/f%d", w, i))
				s.AddBytes(10)
			}
		}(w)
	}
	wg.Wait()
	s.Done()

	p := s.Snapshot()
	assert.Equal(t, int64(workers*perWorker), p.Processed)
	assert.Equal(t, int64(workers*perWorker*10), p.Bytes)
	assert.Equal(t, workers, p.Concurrency)
	assert.True(t, p.Done)
	assert.Equal(t, 1.0, p.Percent())

	// Begin and Done always notify; AddFile is throttled.
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
	assert.Less(t, calls.Load(), int64(workers*perWorker))
}

func TestStats_BeginResets(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	s.Begin(2, 1)
	s.AddFile("a")
	s.AddBytes(5)
	s.Done()

	s.Begin(3, 2)
	p := s.Snapshot()
	assert.Equal(t, int64(3), p.Total)
	assert.Zero(t, p.Processed)
	assert.Zero(t, p.Bytes)
	assert.False(t, p.Done)
}

func TestStats_VerboseWritesPaths(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := New(Options{Verbosity: Verbose, Out: &out})
	s.Begin(2, 1)
	s.AddFile("lib/a.md")
	s.AddFile("lib/b.md")
	s.Done()

	assert.Equal(t, "  [1/2] lib/a.md\n  [2/2] lib/b.md\n", out.String())
}

func TestStats_NormalWritesNothing(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := New(Options{Verbosity: Normal, Out: &out})
	s.Begin(1, 1)
	s.AddFile("a.md")
	s.Done()

	assert.Empty(t, out.String())
}

func TestStats_ElapsedFrozenAtDone(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	assert.Zero(t, s.Elapsed())

	s.Begin(0, 1)
	time.Sleep(5 * time.Millisecond)
	s.Done()

	first := s.Elapsed()
	require.Greater(t, first, time.Duration(0))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, first, s.Elapsed())
}

func TestPrint(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	s.Begin(1500, 4)
	for i := 0; i < 1500; i++ {
		s.AddFile("f")
	}
	s.AddBytes(2048)
	s.Done()

	var out bytes.Buffer
	require.NoError(t, s.Print(&out))

	text := out.String()
	for _, want := range []string{"Build summary", "1,500 of 1,500 files", "2.0 KiB", "files/s", "Workers"} {
		assert.True(t, strings.Contains(text, want), "summary missing %q:\n%s", want, text)
	}
}

func TestProgress_Rates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		p       Progress
		rate    float64
		percent float64
	}{
		{"empty", Progress{}, 0, 0},
		{"half", Progress{Total: 10, Processed: 5, Elapsed: time.Second}, 5, 0.5},
		{"overshoot clamps", Progress{Total: 2, Processed: 3, Elapsed: 2 * time.Second}, 1.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.rate, tt.p.FilesPerSecond(), 1e-9)
			assert.InDelta(t, tt.percent, tt.p.Percent(), 1e-9)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.50s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
