package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// Console logs to stdout/stderr with color when attached to a terminal.
type Console struct {
	level     Level
	component string
	color     bool
}

// NewConsole returns a console logger at the given level. Color output
// is enabled automatically when stdout is a terminal.
func NewConsole(level Level) *Console {
	return &Console{
		level: level,
		color: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

// Debug logs a debug message.
func (l *Console) Debug(msg string, args ...interface{}) {
	if l.level > LevelDebug {
		return
	}
	l.log(LevelDebug, msg, args...)
}

// Info logs an informational message.
func (l *Console) Info(msg string, args ...interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Console) Warn(msg string, args ...interface{}) {
	if l.level > LevelWarn {
		return
	}
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Console) Error(msg string, args ...interface{}) {
	if l.level > LevelError {
		return
	}
	l.log(LevelError, msg, args...)
}

// WithComponent returns a logger with the given component prefix.
func (l *Console) WithComponent(component string) Logger {
	return &Console{
		level:     l.level,
		component: component,
		color:     l.color,
	}
}

func (l *Console) log(level Level, msg string, args ...interface{}) {
	line := fmt.Sprintf(msg, args...)

	if l.component != "" {
		if l.color {
			line = fmt.Sprintf("%s[%s]%s %s", colorCyan, l.component, colorReset, line)
		} else {
			line = fmt.Sprintf("[%s] %s", l.component, line)
		}
	}

	if l.color {
		switch level {
		case LevelDebug:
			line = colorGray + line + colorReset
		case LevelWarn:
			line = colorYellow + line + colorReset
		case LevelError:
			line = colorRed + line + colorReset
		}
	}

	if level >= LevelWarn {
		fmt.Fprintln(os.Stderr, line)
	} else {
		fmt.Fprintln(os.Stdout, line)
	}
}
