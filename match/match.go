// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package match implements the body/schema matcher of spec.md §4.3: it
// compares an actual, already JSON-decoded value against either a
// literal expected body or a DatumSchema, honoring ignore-paths and
// strict/subset semantics, and reports every mismatch rather than the
// first one. Grounded on the teacher's check/body.go and check/json.go
// (one Check per concern, Okay returning every distinct failure as a
// distinct error) generalized from a single pass/fail Okay() into the
// value.Validated accumulator used throughout this runner.
package match

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/asaskevich/govalidator"
	"github.com/google/go-cmp/cmp"
	"github.com/xeipuuv/gojsonschema"

	"github.com/vdobler/apitest/value"
)

// Body compares actual against expected. ignore lists dotted paths
// (jsonpath syntax) to prune from both sides before comparing. When
// strict is false, actual's objects may carry fields expected omits;
// when true, they must match exactly.
func Body(expected interface{}, actual interface{}, ignore []string, strict bool) value.Validated {
	exp := deepCopy(expected)
	act := deepCopy(actual)
	for _, path := range ignore {
		exp = prune(exp, splitPath(path))
		act = prune(act, splitPath(path))
	}

	compareActual := act
	if !strict {
		compareActual = reduceToSubset(exp, act)
	}

	var rep diffReporter
	cmp.Diff(exp, compareActual, cmp.Reporter(&rep))
	if len(rep.diffs) == 0 {
		return value.Good()
	}
	return value.Fail(rep.diffs...)
}

// Schema validates actual against ds, recursing into List/Object
// schemas and reporting every mismatch found anywhere in the tree.
func Schema(ds *value.DatumSchema, actual interface{}) value.Validated {
	return validateSchema("$", ds, actual)
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}

// prune returns a copy of v with the value at segments removed (for
// objects) or removed from every array element (for arrays traversed
// along the way), mirroring package jsonpath's array-flattening
// traversal but deleting instead of extracting.
func prune(v interface{}, segments []string) interface{} {
	if len(segments) == 0 {
		return v
	}
	switch val := v.(type) {
	case map[string]interface{}:
		if len(segments) == 1 {
			delete(val, segments[0])
			return val
		}
		if child, ok := val[segments[0]]; ok {
			val[segments[0]] = prune(child, segments[1:])
		}
		return val
	case []interface{}:
		for i, elem := range val {
			val[i] = prune(elem, segments)
		}
		return val
	default:
		return val
	}
}

// reduceToSubset drops any object key present in actual but absent
// from the corresponding position in expected, so that a subsequent
// strict deep-equal between expected and the reduced value implements
// "actual may carry extra fields expected doesn't mention". Arrays are
// compared positionally up to the shorter length; length itself is
// still validated by the deep-equal step that follows.
func reduceToSubset(expected, actual interface{}) interface{} {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return actual
		}
		reduced := make(map[string]interface{}, len(exp))
		for k, ev := range exp {
			if av, present := act[k]; present {
				reduced[k] = reduceToSubset(ev, av)
			}
		}
		return reduced
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return actual
		}
		reduced := make([]interface{}, len(act))
		copy(reduced, act)
		n := len(exp)
		if len(act) < n {
			n = len(act)
		}
		for i := 0; i < n; i++ {
			reduced[i] = reduceToSubset(exp[i], act[i])
		}
		return reduced
	default:
		return actual
	}
}

// deepCopy round-trips v through JSON so prune can mutate its copy
// without touching the caller's decoded response body.
func deepCopy(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// diffReporter is a cmp.Reporter collecting one message per mismatched
// path instead of cmp.Diff's single unified-diff string, so every
// disjoint difference becomes its own validation entry (spec.md
// invariant 8).
type diffReporter struct {
	path  cmp.Path
	diffs []string
}

func (r *diffReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *diffReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	r.diffs = append(r.diffs, fmt.Sprintf("Expected %s did not match actual %s at %s",
		formatValue(vx), formatValue(vy), r.path.String()))
}

func (r *diffReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

type reflectValue interface {
	IsValid() bool
	Interface() interface{}
}

func formatValue(v reflectValue) string {
	if !v.IsValid() {
		return "<missing>"
	}
	return fmt.Sprintf("%v", v.Interface())
}

func validateSchema(path string, ds *value.DatumSchema, actual interface{}) value.Validated {
	if ds == nil {
		return value.Failf("%s: no schema to validate against", path)
	}
	if len(ds.OneOf) > 0 && !oneOfMatch(ds.OneOf, actual) {
		return value.Failf("%s: value %v is not one of %v", path, actual, ds.OneOf)
	}
	switch ds.Kind {
	case value.SchemaInteger, value.SchemaFloat:
		return validateNumber(path, ds, actual)
	case value.SchemaString, value.SchemaName:
		return validateString(path, ds, actual)
	case value.SchemaEmail:
		return validateEmail(path, actual)
	case value.SchemaDate:
		return validateTemporal(path, ds, actual, "2006-01-02")
	case value.SchemaDateTime:
		return validateTemporal(path, ds, actual, time.RFC3339)
	case value.SchemaBoolean:
		if _, ok := actual.(bool); !ok {
			return value.Failf("%s: expected boolean, got %T (%v)", path, actual, actual)
		}
		return value.Good()
	case value.SchemaList:
		return validateList(path, ds, actual)
	case value.SchemaObject:
		return validateObject(path, ds, actual)
	}
	return value.Failf("%s: unknown schema kind %v", path, ds.Kind)
}

func oneOfMatch(oneOf []interface{}, actual interface{}) bool {
	for _, candidate := range oneOf {
		if cmp.Equal(candidate, actual) {
			return true
		}
		// Numeric literals decoded from Go source (int) vs. JSON
		// response bodies (float64) are common; compare numerically
		// when both sides look numeric.
		if cf, ok := toFloat(candidate); ok {
			if af, ok := toFloat(actual); ok && cf == af {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func validateNumber(path string, ds *value.DatumSchema, actual interface{}) value.Validated {
	f, ok := toFloat(actual)
	if !ok {
		return value.Failf("%s: expected a number, got %T (%v)", path, actual, actual)
	}
	v := value.Good()
	if ds.Min != nil && f < *ds.Min {
		v = v.Combine(value.Failf("%s: %v is less than minimum %v", path, f, *ds.Min))
	}
	if ds.Max != nil && f > *ds.Max {
		v = v.Combine(value.Failf("%s: %v is greater than maximum %v", path, f, *ds.Max))
	}
	if ds.Format != "" {
		v = v.Combine(validateNumericExpression(path, ds.Format, f))
	}
	return v
}

// validateNumericExpression evaluates ds.Format as a govaluate boolean
// expression over the free variable x, e.g. "x > 0 && x < 1000".
func validateNumericExpression(path, expr string, x float64) value.Validated {
	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return value.Failf("%s: malformed numeric expression %q: %s", path, expr, err)
	}
	result, err := evaluable.Evaluate(map[string]interface{}{"x": x})
	if err != nil {
		return value.Failf("%s: numeric expression %q failed: %s", path, expr, err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return value.Failf("%s: numeric expression %q did not evaluate to a boolean", path, expr)
	}
	if !ok {
		return value.Failf("%s: %v does not satisfy expression %q", path, x, expr)
	}
	return value.Good()
}

func validateString(path string, ds *value.DatumSchema, actual interface{}) value.Validated {
	s, ok := actual.(string)
	if !ok {
		return value.Failf("%s: expected a string, got %T (%v)", path, actual, actual)
	}
	v := value.Good()
	n := len([]rune(s))
	if ds.MinLength != nil && n < *ds.MinLength {
		v = v.Combine(value.Failf("%s: length %d is less than minimum %d", path, n, *ds.MinLength))
	}
	if ds.MaxLength != nil && n > *ds.MaxLength {
		v = v.Combine(value.Failf("%s: length %d is greater than maximum %d", path, n, *ds.MaxLength))
	}
	if ds.Pattern != "" {
		re, err := regexp.Compile(ds.Pattern)
		if err != nil {
			v = v.Combine(value.Failf("%s: malformed pattern %q: %s", path, ds.Pattern, err))
		} else if !re.MatchString(s) {
			v = v.Combine(value.Failf("%s: %q does not match pattern %q", path, s, ds.Pattern))
		}
	}
	if ds.Format != "" && !gojsonschema.FormatCheckers.IsFormat(ds.Format, s) {
		v = v.Combine(value.Failf("%s: %q is not a valid %s", path, s, ds.Format))
	}
	return v
}

func validateEmail(path string, actual interface{}) value.Validated {
	s, ok := actual.(string)
	if !ok {
		return value.Failf("%s: expected a string, got %T (%v)", path, actual, actual)
	}
	if !govalidator.IsEmail(s) {
		return value.Failf("%s: %q is not a valid email address", path, s)
	}
	return value.Good()
}

// validateTemporal parses actual with ds.Format (falling back to
// defaultLayout), then checks MinDate/MaxDate as absolute bounds and,
// when Modifier is set, that actual falls within a day of now+Modifier
// — a tolerance window since Modifier encodes an offset *from
// generation time*, not a fixed instant a later validation can
// reproduce exactly.
func validateTemporal(path string, ds *value.DatumSchema, actual interface{}, defaultLayout string) value.Validated {
	s, ok := actual.(string)
	if !ok {
		return value.Failf("%s: expected a date string, got %T (%v)", path, actual, actual)
	}
	layout := ds.Format
	if layout == "" {
		layout = defaultLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return value.Failf("%s: %q does not match layout %q: %s", path, s, layout, err)
	}
	v := value.Good()
	if ds.MinDate != nil {
		min, err := time.Parse(layout, *ds.MinDate)
		if err == nil && t.Before(min) {
			v = v.Combine(value.Failf("%s: %s is before minimum %s", path, s, *ds.MinDate))
		}
	}
	if ds.MaxDate != nil {
		max, err := time.Parse(layout, *ds.MaxDate)
		if err == nil && t.After(max) {
			v = v.Combine(value.Failf("%s: %s is after maximum %s", path, s, *ds.MaxDate))
		}
	}
	if ds.Modifier != "" {
		ref, err := value.ApplyModifier(time.Now().UTC(), ds.Modifier)
		if err == nil {
			delta := t.Sub(ref)
			if delta < -24*time.Hour || delta > 24*time.Hour {
				v = v.Combine(value.Failf("%s: %s is not within a day of modifier %q's reference time %s",
					path, s, ds.Modifier, ref.Format(layout)))
			}
		}
	}
	return v
}

func validateList(path string, ds *value.DatumSchema, actual interface{}) value.Validated {
	list, ok := actual.([]interface{})
	if !ok {
		return value.Failf("%s: expected an array, got %T (%v)", path, actual, actual)
	}
	v := value.Good()
	n := len(list)
	switch {
	case ds.ExactItems != nil && n != *ds.ExactItems:
		v = v.Combine(value.Failf("%s: has %d items, want exactly %d", path, n, *ds.ExactItems))
	default:
		if ds.MinItems != nil && n < *ds.MinItems {
			v = v.Combine(value.Failf("%s: has %d items, want at least %d", path, n, *ds.MinItems))
		}
		if ds.MaxItems != nil && n > *ds.MaxItems {
			v = v.Combine(value.Failf("%s: has %d items, want at most %d", path, n, *ds.MaxItems))
		}
	}
	if ds.Element != nil {
		for i, elem := range list {
			v = v.Combine(validateSchema(fmt.Sprintf("%s[%d]", path, i), ds.Element, elem))
		}
	}
	return v
}

func validateObject(path string, ds *value.DatumSchema, actual interface{}) value.Validated {
	obj, ok := actual.(map[string]interface{})
	if !ok {
		return value.Failf("%s: expected an object, got %T (%v)", path, actual, actual)
	}
	v := value.Good()
	for name, fieldSchema := range ds.Fields {
		fieldVal, present := obj[name]
		if !present {
			v = v.Combine(value.Failf("%s.%s: missing required field", path, name))
			continue
		}
		v = v.Combine(validateSchema(path+"."+name, fieldSchema, fieldVal))
	}
	return v
}
