// Package config provides configuration management for quill.
package config

// Default configuration values for quill.
const (
	// DefaultOutput is the output directory used when none is given.
	DefaultOutput = "doc"

	// DefaultGenerator is the generator used when none is named.
	DefaultGenerator = "html"

	// DefaultRetentionDays is the default number of days to keep run history.
	DefaultRetentionDays = 30

	// DefaultWorkers of zero asks the tuner for a worker count.
	DefaultWorkers = 0
)

// DefaultExclusions contains glob patterns excluded from every build.
var DefaultExclusions = []string{
	"node_modules",
	"vendor",
}
