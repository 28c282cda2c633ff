// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rlog is the CLI's leveled logger: a thin wrapper over
// log.Logger with a severity filter and ansi-colored level tags,
// grounded on report.go's printReport use of mgutz/ansi.ColorFunc for
// pass/fail/error coloring and ht's own plain log.Printf calls
// throughout the package for the underlying sink.
package rlog

import (
	"io"
	"log"

	"github.com/mgutz/ansi"
)

// Level is a logging severity; lower values are more verbose.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var (
	debugTag = ansi.ColorFunc("cyan")("DEBUG")
	infoTag  = ansi.ColorFunc("blue")("INFO")
	warnTag  = ansi.ColorFunc("yellow+b")("WARN")
	errorTag = ansi.ColorFunc("red+b")("ERROR")
)

// Logger is a leveled logger satisfying scope.Logger (Errorf) and
// schedule.Logger (Warnf) without an adapter.
type Logger struct {
	out   *log.Logger
	level Level
}

// New returns a Logger writing to w, filtering out anything below
// level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), level: level}
}

func (l *Logger) logf(level Level, tag, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.out.Printf(tag+" "+format, args...)
}

// Debugf logs at Debug severity.
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(Debug, debugTag, format, args...) }

// Infof logs at Info severity.
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(Info, infoTag, format, args...) }

// Warnf logs at Warn severity. Satisfies schedule.Logger.
func (l *Logger) Warnf(format string, args ...interface{}) { l.logf(Warn, warnTag, format, args...) }

// Errorf logs at Error severity. Satisfies scope.Logger.
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(Error, errorTag, format, args...) }
