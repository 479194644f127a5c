// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs is a minimal leveled-logging library in the style of
// btcsuite's btclog: a Backend fans written lines out to a set of
// BackendWriters, and each subsystem gets its own Logger with an
// independently adjustable Level.
package logs

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level is a logging priority.
type Level uint32

// Available log levels, ordered from most to least verbose.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelStrings = map[Level]string{
	LevelTrace:    "TRC",
	LevelDebug:    "DBG",
	LevelInfo:     "INF",
	LevelWarn:     "WRN",
	LevelError:    "ERR",
	LevelCritical: "CRT",
	LevelOff:      "OFF",
}

// String returns the short tag for the level.
func (l Level) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return "UNK"
}

// LevelFromString parses a level name, defaulting to LevelInfo when the
// string is not recognized.
func LevelFromString(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "critical":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	}
	return LevelInfo, false
}

// BackendWriter is an io.Writer that only receives lines at or above a
// minimum level, or every level when minLevel is LevelTrace.
type BackendWriter struct {
	w        io.Writer
	minLevel Level
}

// NewAllLevelsBackendWriter wraps w so it receives every logged line.
func NewAllLevelsBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{w: w, minLevel: LevelTrace}
}

// NewErrorBackendWriter wraps w so it only receives Error and Critical lines.
func NewErrorBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{w: w, minLevel: LevelError}
}

// Backend is the shared sink that every subsystem Logger writes through.
type Backend struct {
	writers []*BackendWriter
}

// NewBackend creates a Backend that fans out to the given writers.
func NewBackend(writers []*BackendWriter) *Backend {
	return &Backend{writers: writers}
}

// Logger returns a new per-subsystem Logger at the default LevelInfo.
func (b *Backend) Logger(subsystemTag string) Logger {
	return Logger{
		tag:     subsystemTag,
		level:   &levelBox{level: LevelInfo},
		backend: b,
	}
}

type levelBox struct {
	mu    sync.RWMutex
	level Level
}

func (lb *levelBox) get() Level {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.level
}

func (lb *levelBox) set(l Level) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.level = l
}

// Logger writes leveled, subsystem-tagged lines through a shared Backend.
type Logger struct {
	tag     string
	level   *levelBox
	backend *Backend
}

// SetLevel changes the minimum level this logger will emit.
func (l Logger) SetLevel(level Level) {
	l.level.set(level)
}

// Level returns the current minimum level.
func (l Logger) Level() Level {
	return l.level.get()
}

func (l Logger) write(level Level, s string) {
	if level < l.level.get() {
		return
	}
	line := fmt.Sprintf("%s [%s] %s: %s\n", time.Now().Format("2006-01-02 15:04:05.000"), level, l.tag, s)
	for _, w := range l.backend.writers {
		if level >= w.minLevel {
			w.w.Write([]byte(line))
		}
	}
}

// Tracef logs at LevelTrace.
func (l Logger) Tracef(format string, args ...interface{}) { l.write(LevelTrace, fmt.Sprintf(format, args...)) }

// Debugf logs at LevelDebug.
func (l Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, fmt.Sprintf(format, args...)) }

// Infof logs at LevelInfo.
func (l Logger) Infof(format string, args ...interface{}) { l.write(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf logs at LevelWarn.
func (l Logger) Warnf(format string, args ...interface{}) { l.write(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf logs at LevelError.
func (l Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, fmt.Sprintf(format, args...)) }

// Criticalf logs at LevelCritical.
func (l Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, fmt.Sprintf(format, args...))
}
