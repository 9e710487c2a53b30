// Package logx provides the process-wide structured logger used by every
// other package. It wraps charmbracelet/log with the teacher's four-level
// convention (Error/Warn/Info/Debug) and a single verbosity switch.
package logx

import (
	"os"

	"github.com/charmbracelet/log"
)

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Level:           log.InfoLevel,
})

// SetVerbose toggles debug-level logging, matching the CLI's --verbose flag.
func SetVerbose(verbose bool) {
	if verbose {
		base.SetLevel(log.DebugLevel)
	} else {
		base.SetLevel(log.InfoLevel)
	}
}

// Logger returns the shared logger, useful for packages that want to attach
// fields via With.
func Logger() *log.Logger { return base }

func Error(format string, args ...interface{}) { base.Errorf(format, args...) }
func Warn(format string, args ...interface{})  { base.Warnf(format, args...) }
func Info(format string, args ...interface{})  { base.Infof(format, args...) }
func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }

// With returns a derived logger carrying the given key/value pairs on every
// subsequent line, e.g. logx.With("agent", "codex").Warn("skip %s", path).
func With(kv ...interface{}) *log.Logger {
	return base.With(kv...)
}
