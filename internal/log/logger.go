// SPDX-License-Identifier: MIT
// Package log is a small leveled logger shared by every component. The level
// is global and atomic so the audio callback can check it without locking.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var currentLevel atomic.Uint32

var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Enabled reports whether messages at level are currently written.
func Enabled(level LogLevel) bool {
	return level >= GetLevel()
}

func output(level LogLevel, component, msg string) {
	if component != "" {
		msg = component + ": " + msg
	}
	// Pad the shorter level names so messages line up.
	tag := "[" + level.String() + "]"
	if len(tag) < 7 {
		tag += " "
	}
	if level == LevelFatal {
		logger.Fatalf("%s %s", tag, msg)
	}
	logger.Printf("%s %s", tag, msg)
}

func Debugf(format string, v ...any) { Logger{}.Debugf(format, v...) }
func Infof(format string, v ...any)  { Logger{}.Infof(format, v...) }
func Warnf(format string, v ...any)  { Logger{}.Warnf(format, v...) }
func Errorf(format string, v ...any) { Logger{}.Errorf(format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) { Logger{}.Fatalf(format, v...) }

func Debug(v ...any) { Logger{}.logln(LevelDebug, v...) }
func Info(v ...any)  { Logger{}.logln(LevelInfo, v...) }
func Warn(v ...any)  { Logger{}.logln(LevelWarn, v...) }
func Error(v ...any) { Logger{}.logln(LevelError, v...) }
func Fatal(v ...any) { Logger{}.logln(LevelFatal, v...) }

// Logger prefixes every message with a component name. The zero value logs
// without a prefix.
type Logger struct {
	component string
}

// Named returns a logger for one component, e.g. "runner" or "udp".
func Named(component string) Logger {
	return Logger{component: component}
}

func (l Logger) logf(level LogLevel, format string, v ...any) {
	if level != LevelFatal && !Enabled(level) {
		return
	}
	output(level, l.component, fmt.Sprintf(format, v...))
}

func (l Logger) logln(level LogLevel, v ...any) {
	if level != LevelFatal && !Enabled(level) {
		return
	}
	output(level, l.component, fmt.Sprint(v...))
}

func (l Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l Logger) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l Logger) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l Logger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }
func (l Logger) Fatalf(format string, v ...any) { l.logf(LevelFatal, format, v...) }
