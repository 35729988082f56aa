// Package runlog records one JSON entry per build so past runs can be
// listed and inspected.
package runlog

import "time"

// Status is the outcome of a build.
type Status string

const (
	// StatusOK is a build that generated output.
	StatusOK Status = "ok"
	// StatusUpToDate is a build that found no newer files.
	StatusUpToDate Status = "up-to-date"
	// StatusFailed is a build that returned an error.
	StatusFailed Status = "failed"
)

// Entry is one recorded build.
type Entry struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Status    Status       `json:"status"`
	Generator string       `json:"generator"`
	Output    string       `json:"output"`
	Error     string       `json:"error,omitempty"`
	Files     []FileRecord `json:"files"`
	Summary   Summary      `json:"summary"`
}

// FileRecord is one parsed file.
type FileRecord struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

// Summary holds the build counters.
type Summary struct {
	TotalFiles int64         `json:"total_files"`
	TotalBytes int64         `json:"total_bytes"`
	Workers    int           `json:"workers"`
	Elapsed    time.Duration `json:"elapsed"`
}
