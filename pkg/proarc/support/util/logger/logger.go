// Package logger is the process-wide leveled logger of ProArc.
// Messages go through the standard `log` package, prefixed with their level,
// so batch workers, the fx container and GORM all share one output stream.
package logger

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync/atomic"
)

// Level is a logging threshold. Smaller values are more verbose.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelSilent suppresses everything except Fatalf.
	LevelSilent
)

var levelNames = map[Level]string{
	LevelDebug:  "DEBUG",
	LevelInfo:   "INFO",
	LevelWarn:   "WARN",
	LevelError:  "ERROR",
	LevelSilent: "SILENT",
}

// String returns the upper-case name of the level.
func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// SetLogLevel sets the global threshold from its name ("DEBUG", "INFO", "WARN",
// "ERROR", "SILENT", case-insensitive). Unknown names fall back to INFO.
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		current.Store(int32(LevelDebug))
	case "INFO", "":
		current.Store(int32(LevelInfo))
	case "WARN", "WARNING":
		current.Store(int32(LevelWarn))
	case "ERROR":
		current.Store(int32(LevelError))
	case "SILENT", "OFF":
		current.Store(int32(LevelSilent))
	default:
		log.Printf("[WARN] Unknown log level '%s', using INFO.", level)
		current.Store(int32(LevelInfo))
	}
}

// GetLogLevel returns the active threshold.
func GetLogLevel() Level {
	return Level(current.Load())
}

// SetOutput redirects all log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(l Level) bool {
	return Level(current.Load()) <= l
}

func emit(l Level, suffix string, format string, v ...interface{}) {
	if !enabled(l) {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if suffix != "" {
		msg += " " + suffix
	}
	log.Printf("[%s] %s", l, msg)
}

// Debugf logs at DEBUG.
func Debugf(format string, v ...interface{}) { emit(LevelDebug, "", format, v...) }

// Infof logs at INFO.
func Infof(format string, v ...interface{}) { emit(LevelInfo, "", format, v...) }

// Warnf logs at WARN.
func Warnf(format string, v ...interface{}) { emit(LevelWarn, "", format, v...) }

// Errorf logs at ERROR.
func Errorf(format string, v ...interface{}) { emit(LevelError, "", format, v...) }

// Fatalf logs the message and terminates the process with exit code 1.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}

// Entry carries structured context (batch id, pid, profile) that is appended
// to every message as sorted key=value pairs.
type Entry struct {
	fields map[string]interface{}
}

// WithFields starts an Entry with the given fields.
func WithFields(fields map[string]interface{}) *Entry {
	e := &Entry{fields: make(map[string]interface{}, len(fields))}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithField starts an Entry with a single field.
func WithField(key string, value interface{}) *Entry {
	return WithFields(map[string]interface{}{key: value})
}

// WithField returns a copy of the entry with one more field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	n := WithFields(e.fields)
	n.fields[key] = value
	return n
}

func (e *Entry) suffix() string {
	if len(e.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.fields[k]))
	}
	return strings.Join(parts, " ")
}

func (e *Entry) Debugf(format string, v ...interface{}) { emit(LevelDebug, e.suffix(), format, v...) }
func (e *Entry) Infof(format string, v ...interface{})  { emit(LevelInfo, e.suffix(), format, v...) }
func (e *Entry) Warnf(format string, v ...interface{})  { emit(LevelWarn, e.suffix(), format, v...) }
func (e *Entry) Errorf(format string, v ...interface{}) { emit(LevelError, e.suffix(), format, v...) }
