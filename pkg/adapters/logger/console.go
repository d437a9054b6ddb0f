// Package logger provides logging implementations.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"

	"github.com/user/rawkit/pkg/ports"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// ConsoleLogger writes translated messages to stdout (debug, info) and
// stderr (warn, error). It is safe for concurrent use, so batch workers
// can share one.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	color     bool
	out       io.Writer
	errOut    io.Writer
	mu        *sync.Mutex
}

// NewConsole creates a console logger with the specified level.
// Color output is enabled when stdout is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	return &ConsoleLogger{
		level:  level,
		color:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		out:    os.Stdout,
		errOut: os.Stderr,
		mu:     &sync.Mutex{},
	}
}

// NewWriter creates an uncoloured logger writing every level to w.
func NewWriter(level ports.LogLevel, w io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		level:  level,
		out:    w,
		errOut: w,
		mu:     &sync.Mutex{},
	}
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	l.log(ports.LevelDebug, msg, args...)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	l.log(ports.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	l.log(ports.LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	l.log(ports.LevelError, msg, args...)
}

// WithComponent returns a logger for a component. Nested components are
// joined with "/".
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	c := *l
	if l.component != "" {
		c.component = l.component + "/" + component
	} else {
		c.component = component
	}
	return &c
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	translated := l10n.F(msg, args...)

	var output string
	if l.component != "" {
		if l.color {
			output = fmt.Sprintf("%s[%s]%s %s", colorCyan, l.component, colorReset, translated)
		} else {
			output = fmt.Sprintf("[%s] %s", l.component, translated)
		}
	} else {
		output = translated
	}

	if l.color {
		switch level {
		case ports.LevelDebug:
			output = colorGray + output + colorReset
		case ports.LevelWarn:
			output = colorYellow + output + colorReset
		case ports.LevelError:
			output = colorRed + output + colorReset
		}
	}

	w := l.out
	if level >= ports.LevelWarn {
		w = l.errOut
	}
	l.mu.Lock()
	fmt.Fprintln(w, output)
	l.mu.Unlock()
}

var _ ports.Logger = (*ConsoleLogger)(nil)
