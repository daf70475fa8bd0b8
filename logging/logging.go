// Package logging provides the leveled logger the driver and CLI emit to.
// Log output is fire-and-forget; nothing in the core consumes it.
package logging

// Level is the severity of a log message.
type Level int

const (
	// LevelDebug is for per-operation detail (opens, closes, cache work).
	LevelDebug Level = iota
	// LevelInfo is for lifecycle events.
	LevelInfo
	// LevelWarn is for recoverable problems.
	LevelWarn
	// LevelError is for failures reported to the caller.
	LevelError
	// LevelQuiet suppresses all output.
	LevelQuiet
)

// String returns the level's name.
func (l Level) String() string {
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

// ParseLevel parses a level name; unknown names default to info.
func ParseLevel(s string) Level {
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

// Logger is the logging abstraction. msg is a fmt format string.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the
	// component name.
	WithComponent(component string) Logger
}
