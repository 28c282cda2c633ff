// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilterSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)

	l.Debugf("noisy: %d", 1)
	l.Infof("also noisy")
	assert.Empty(t, buf.String())

	l.Warnf("something odd")
	assert.Contains(t, buf.String(), "something odd")
}

func TestErrorfWritesErrorTag(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug)
	l.Errorf("boom: %s", "oops")
	assert.Contains(t, buf.String(), "boom: oops")
}

func TestNilLoggerIsSafeNoOp(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Errorf("should not write anywhere")
		l.Warnf("neither should this")
	})
}
