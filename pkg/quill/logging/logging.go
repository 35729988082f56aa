// Package logging provides per-component loggers for quill, backed by
// charmbracelet/log and a rotating log file.
//
// Loggers are usually taken once per package:
//
//	var log = logging.Get("dispatch")
//
// Until Init runs they discard everything. Init and Close re-point every
// logger already handed out, so package-level loggers follow the
// configuration the CLI loads later.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned for a level name that is not debug, info,
// warn or error.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name. Empty means info and "warning" is
// accepted for warn.
func ParseLevel(s string) (log.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return log.InfoLevel, nil
	case "warning":
		name = "warn"
	}

	lvl, err := log.ParseLevel(name)
	if err != nil || lvl > log.ErrorLevel {
		return log.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return lvl, nil
}

// Config configures logging.
type Config struct {
	// Level applies to components without an override.
	Level string

	// Path is the log file. Empty uses DefaultLogPath.
	Path string

	Rotation RotationConfig

	// Components overrides Level per component name.
	Components map[string]string

	// ConsoleLevel, when set, also writes to stderr at that level.
	ConsoleLevel string
}

// Logger logs for one component.
type Logger struct {
	component string
	sinks     atomic.Pointer[[]*log.Logger]
}

func (l *Logger) emit(level log.Level, msg string, args []interface{}) {
	sinks := l.sinks.Load()
	if sinks == nil {
		return
	}
	for _, s := range *sinks {
		s.Log(level, msg, args...)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(log.DebugLevel, msg, args) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(log.InfoLevel, msg, args) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(log.WarnLevel, msg, args) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(log.ErrorLevel, msg, args) }

type registry struct {
	mu        sync.Mutex
	out       *RotatingWriter
	level     log.Level
	overrides map[string]log.Level
	console   *log.Level
	loggers   map[string]*Logger
}

var reg = &registry{
	level:   log.InfoLevel,
	loggers: make(map[string]*Logger),
}

// Init opens the log file and applies cfg to every logger. Levels are
// validated before anything changes; a failed Init leaves the previous
// configuration in place.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	overrides := make(map[string]log.Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("component %s: %w", comp, err)
		}
		overrides[comp] = lvl
	}

	var console *log.Level
	if cfg.ConsoleLevel != "" {
		lvl, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		console = &lvl
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	out, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	prev := reg.out
	reg.out, reg.level, reg.overrides, reg.console = out, level, overrides, console
	reg.rebuild()

	if prev != nil {
		if err := prev.Close(); err != nil {
			return fmt.Errorf("closing previous log file: %w", err)
		}
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if l, ok := reg.loggers[component]; ok {
		return l
	}
	l := &Logger{component: component}
	sinks := reg.sinksFor(component)
	l.sinks.Store(&sinks)
	reg.loggers[component] = l
	return l
}

// Close closes the log file. Loggers discard output until the next Init.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.out == nil {
		return nil
	}
	err := reg.out.Close()
	reg.out = nil
	reg.rebuild()

	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/quill/quill.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "quill", "quill.log")
}

// rebuild re-points every logger. mu must be held.
func (r *registry) rebuild() {
	for comp, l := range r.loggers {
		sinks := r.sinksFor(comp)
		l.sinks.Store(&sinks)
	}
}

// sinksFor builds the outputs of one component. mu must be held.
func (r *registry) sinksFor(component string) []*log.Logger {
	if r.out == nil {
		return nil
	}

	level := r.level
	if lvl, ok := r.overrides[component]; ok {
		level = lvl
	}

	sinks := []*log.Logger{log.NewWithOptions(r.out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})}
	if r.console != nil {
		sinks = append(sinks, log.NewWithOptions(os.Stderr, log.Options{
			Level:           *r.console,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		}))
	}
	return sinks
}
