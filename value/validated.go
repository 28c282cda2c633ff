// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value holds the typed value model shared across the runner:
// variable sources, datum schemas and the validation accumulator that
// every check in package match and package stage reports through.
package value

import (
	"errors"
	"fmt"

	"github.com/vdobler/apitest/errorlist"
)

// Validated is the result of running one or more checks. It is either
// Good (no errors) or carries a non-empty list of error messages. Two
// Validated values combine by concatenating their error lists: the
// combination fails if either input failed. This is what lets a stage
// report every assertion failure at once instead of stopping at the
// first one.
type Validated struct {
	errs errorlist.List
}

// Good is the successful Validated value.
func Good() Validated {
	return Validated{}
}

// Fail builds a failing Validated from the given messages.
func Fail(msgs ...string) Validated {
	v := Validated{}
	for _, m := range msgs {
		v.errs = v.errs.Append(errors.New(m))
	}
	return v
}

// Failf builds a failing Validated from a single formatted message.
func Failf(format string, args ...interface{}) Validated {
	return Validated{errs: errorlist.List{}.Append(fmt.Errorf(format, args...))}
}

// FromError lifts a plain error into a Validated; a nil error is Good.
func FromError(err error) Validated {
	if err == nil {
		return Good()
	}
	return Validated{errs: errorlist.List{}.Append(err)}
}

// Passed reports whether v carries no errors.
func (v Validated) Passed() bool {
	return len(v.errs) == 0
}

// Errors returns the accumulated error messages, in order.
func (v Validated) Errors() []string {
	return v.errs.AsStrings()
}

// Err returns v as a plain error, or nil if v passed.
func (v Validated) Err() error {
	return v.errs.AsError()
}

// Combine merges v with other. The semigroup operation is list
// concatenation; the result fails iff either v or other failed.
func (v Validated) Combine(other Validated) Validated {
	combined := v.errs
	combined = append(combined, other.errs...)
	return Validated{errs: combined}
}

// CombineAll folds Combine over all the given Validated values.
func CombineAll(vs ...Validated) Validated {
	result := Good()
	for _, v := range vs {
		result = result.Combine(v)
	}
	return result
}
