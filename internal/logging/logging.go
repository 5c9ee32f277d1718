// Package logging is a small leveled logger over the standard log package.
//
// The level comes from DEBUG (any truthy value selects debug) or LOG_LEVEL
// (debug, info, warn, error); the default is info. Component loggers prefix
// each line with "[component]".
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu           sync.RWMutex
	currentLevel Level
	levelOnce    sync.Once
)

func initLevel() {
	levelOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		currentLevel = levelFromEnv()
	})
}

func levelFromEnv() Level {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	l, ok := ParseLevel(os.Getenv("LOG_LEVEL"))
	if !ok {
		return LevelInfo
	}
	return l
}

func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

func GetLevel() Level {
	initLevel()
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// SetLevel overrides the environment.
func SetLevel(l Level) {
	initLevel()
	mu.Lock()
	currentLevel = l
	mu.Unlock()
}

func IsDebugEnabled() bool { return GetLevel() <= LevelDebug }

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
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Logger tags every line with a component name.
type Logger struct {
	prefix string
}

func New(component string) *Logger {
	if component == "" {
		return &Logger{}
	}
	return &Logger{prefix: "[" + component + "] "}
}

func (lg *Logger) logf(l Level, tag, format string, args ...interface{}) {
	if GetLevel() > l {
		return
	}
	log.Printf(tag+lg.prefix+format, args...)
}

func (lg *Logger) Debug(format string, args ...interface{}) {
	lg.logf(LevelDebug, "[DEBUG] ", format, args...)
}

func (lg *Logger) Info(format string, args ...interface{}) {
	lg.logf(LevelInfo, "[INFO] ", format, args...)
}

func (lg *Logger) Warn(format string, args ...interface{}) {
	lg.logf(LevelWarn, "[WARN] ", format, args...)
}

func (lg *Logger) Error(format string, args ...interface{}) {
	lg.logf(LevelError, "[ERROR] ", format, args...)
}

func (lg *Logger) Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+lg.prefix+format, args...)
}

var std = New("")

func Debug(format string, args ...interface{}) { std.Debug(format, args...) }
func Info(format string, args ...interface{})  { std.Info(format, args...) }
func Warn(format string, args ...interface{})  { std.Warn(format, args...) }
func Error(format string, args ...interface{}) { std.Error(format, args...) }
func Fatal(format string, args ...interface{}) { std.Fatal(format, args...) }
