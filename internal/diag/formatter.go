package diag

import (
	"github.com/golang/glog"
)

// Format renders a Diagnostic as the one-line, file/line/column-anchored
// form the generator requires: the kind, the anchor if present, and the message. It
// never includes internal temporary names (those never make it into
// Message/Context in the first place).
func Format(d *Diagnostic) string {
	return d.Error()
}

// Warn logs a recoverable-error warning for the imported-module pass:
// "Warning: " prefixed, naming the routine it occurred in. Warnings are
// routed through glog so verbosity and destination (stderr vs. a log file)
// follow the host program's existing glog flags rather than the generator
// hard-coding an output stream.
func Warn(routineName string, err error) {
	glog.Warningf("Warning: %s: %v", routineName, err)
}

// Tracef routes verbose generator tracing through glog's leveled logging
// (`-v=1` for routine-level tracing, `-v=2` for registry dumps), so a host
// program can enable it without recompiling.
func Tracef(level glog.Level, format string, args ...interface{}) {
	if glog.V(level) {
		glog.Infof(format, args...)
	}
}
