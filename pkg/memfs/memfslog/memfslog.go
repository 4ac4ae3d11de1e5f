// Package memfslog adapts the teacher's pkg/logging logger for memfs:
// library code never logs directly, but the watch service's background
// goroutine and FileSystemState's close cascade accept an optional
// *Logger the same way the teacher's pkg/agent and pkg/daemon code does,
// and cmd/memfsdemo uses one for colored diagnostic output.
package memfslog

import (
	"fmt"
	"log"

	"github.com/fatih/color"
)

// Logger has the novel property that it still functions if nil, logging
// nothing, so library call sites can pass a possibly-absent logger
// without a nil check at every call.
type Logger struct {
	prefix string
}

// Root is the default logger, with no prefix, writing through the
// standard log package.
var Root = &Logger{}

// Sublogger creates a new logger that prefixes every line with name,
// nested under this logger's own prefix if it has one. Sublogger on a
// nil logger returns nil.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix}
}

func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

// Print logs with fmt.Print semantics.
func (l *Logger) Print(v ...any) {
	if l != nil {
		l.output(3, fmt.Sprint(v...))
	}
}

// Printf logs with fmt.Printf semantics.
func (l *Logger) Printf(format string, v ...any) {
	if l != nil {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs err with a yellow "Warning:" prefix, used for conditions that
// are recoverable but worth surfacing: a watch poll that overran its
// interval, a secondary failure during a best-effort close cascade.
func (l *Logger) Warn(err error) {
	if l != nil {
		l.output(3, color.YellowString("Warning: %v", err))
	}
}

// Error logs err with a red "Error:" prefix.
func (l *Logger) Error(err error) {
	if l != nil {
		l.output(3, color.RedString("Error: %v", err))
	}
}
