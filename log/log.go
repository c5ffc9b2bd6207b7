// Package log provides the level loggers used across sigpad.
//
//	log.Trace.Printf("sample %v", s)
//	log.Error.Fatalf("cannot load config: %v", err)
//
// Output goes through zerolog; Init selects the level and whether records
// are written as JSON or as human readable console lines.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes records at a fixed level.
type Logger struct {
	level zerolog.Level
}

var (
	Trace   = &Logger{zerolog.TraceLevel}
	Info    = &Logger{zerolog.InfoLevel}
	Warning = &Logger{zerolog.WarnLevel}
	Error   = &Logger{zerolog.ErrorLevel}
)

var (
	mu   sync.RWMutex
	base = newBase(os.Stderr, false).Level(zerolog.InfoLevel)
)

func newBase(w io.Writer, json bool) zerolog.Logger {
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Init configures the shared logger. Unknown levels fall back to info.
// SIGPAD_TRACE forces the trace level.
func Init(level string, json bool) {
	InitWriter(os.Stderr, level, json)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, json bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if os.Getenv("SIGPAD_TRACE") != "" {
		lvl = zerolog.TraceLevel
	}

	mu.Lock()
	base = newBase(w, json).Level(lvl)
	mu.Unlock()
}

// Zerolog returns the underlying logger for structured fields.
func Zerolog() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func (l *Logger) event() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithLevel(l.level)
}

func (l *Logger) Printf(format string, v ...interface{}) {
	l.event().Msgf(format, v...)
}

func (l *Logger) Println(v ...interface{}) {
	l.event().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.Printf(format, v...)
	os.Exit(1)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.Println(v...)
	os.Exit(1)
}
