package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a log severity.
type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
	if os.Getenv("RCS_DEBUG") == "1" {
		current.Store(int32(LevelDebug))
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// SetLevel sets the global log level.
func SetLevel(l Level) {
	current.Store(int32(l))
}

// GetLevel returns the global log level.
func GetLevel() Level {
	return Level(current.Load())
}

func logAt(l Level, tag, format string, args ...any) {
	if Level(current.Load()) > l {
		return
	}
	log.Printf(tag+" "+format, args...)
}

// Trace logs at trace level.
func Trace(format string, args ...any) { logAt(LevelTrace, "TRACE", format, args...) }

// Debug logs at debug level.
func Debug(format string, args ...any) { logAt(LevelDebug, "DEBUG", format, args...) }

// Info logs at info level.
func Info(format string, args ...any) { logAt(LevelInfo, "INFO ", format, args...) }

// Warn logs at warn level.
func Warn(format string, args ...any) { logAt(LevelWarn, "WARN ", format, args...) }

// Error logs at error level.
func Error(format string, args ...any) { logAt(LevelError, "ERROR", format, args...) }

// Fatal logs at fatal level and exits.
func Fatal(format string, args ...any) {
	log.Printf("FATAL "+format, args...)
	os.Exit(1)
}
