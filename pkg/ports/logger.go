// Package ports defines the interfaces rawkit uses to reach everything
// outside the decoding workflow: the native library, logging, the file
// system and image rendering.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-call native diagnostics.
	LevelDebug LogLevel = iota
	// LevelInfo is for per-file progress.
	LevelInfo
	// LevelWarn is for problems that do not stop a decode, such as a
	// missing thumbnail or a session released by the runtime cleanup.
	LevelWarn
	// LevelError is for failed decodes.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown names map to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger abstracts logging. msg is a translatable format key.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with component.
	WithComponent(component string) Logger
}
