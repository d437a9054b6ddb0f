package logger

import "github.com/user/rawkit/pkg/ports"

// NoopLogger discards all messages. It is the default for library use and
// for the CLI's --quiet mode.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...interface{}) {}
func (l *NoopLogger) Info(msg string, args ...interface{})  {}
func (l *NoopLogger) Warn(msg string, args ...interface{})  {}
func (l *NoopLogger) Error(msg string, args ...interface{}) {}

// WithComponent returns the same no-op logger.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}

var _ ports.Logger = (*NoopLogger)(nil)
