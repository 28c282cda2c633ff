// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SchemaKind is the tag of a DatumSchema's variant.
type SchemaKind int

const (
	SchemaName SchemaKind = iota
	SchemaString
	SchemaEmail
	SchemaDate
	SchemaDateTime
	SchemaInteger
	SchemaFloat
	SchemaBoolean
	SchemaList
	SchemaObject
)

func (k SchemaKind) String() string {
	switch k {
	case SchemaName:
		return "Name"
	case SchemaString:
		return "String"
	case SchemaEmail:
		return "Email"
	case SchemaDate:
		return "Date"
	case SchemaDateTime:
		return "DateTime"
	case SchemaInteger:
		return "Integer"
	case SchemaFloat:
		return "Float"
	case SchemaBoolean:
		return "Boolean"
	case SchemaList:
		return "List"
	case SchemaObject:
		return "Object"
	}
	return "Unknown"
}

// IsTextual reports whether values of this kind serialize as JSON
// strings (as opposed to numbers, booleans, arrays or objects).
func (k SchemaKind) IsTextual() bool {
	switch k {
	case SchemaName, SchemaString, SchemaEmail, SchemaDate, SchemaDateTime:
		return true
	}
	return false
}

// DefaultMaxDepth bounds schema generation recursion.
const DefaultMaxDepth = 10

// DatumSchema is a tagged variant describing a value's shape, used
// both to generate a conforming value and to validate an observed
// one.
type DatumSchema struct {
	Kind SchemaKind

	// Numeric bounds for Integer/Float values. String lengths use
	// MinLength/MaxLength instead.
	Min *float64
	Max *float64

	// OneOf restricts generation/validation to one of a fixed set of
	// values (numbers or strings depending on Kind).
	OneOf []interface{}

	// String-ish constraints.
	MinLength *int
	MaxLength *int
	Pattern   string // regexp the value must match

	// Format carries a Go time layout (e.g. "2006-01-02") for
	// Date/DateTime, a gojsonschema format name for String, and a
	// govaluate boolean expression (over the free variable `x`) for
	// Integer/Float range constraints beyond plain Min/Max.
	Format string

	// Modifier is a temporal offset applied at generation/validation
	// time to Date/DateTime values, e.g. "+3d", "-2w", "+1M".
	Modifier string

	// MinDate/MaxDate bound Date/DateTime values as absolute,
	// Format-layout-parsed timestamps, independent of Modifier.
	MinDate *string
	MaxDate *string

	// List constraints.
	Element    *DatumSchema
	MinItems   *int
	MaxItems   *int
	ExactItems *int

	// Object constraints.
	Fields map[string]*DatumSchema
}

var defaultDateTimeLayout = time.RFC3339
var defaultDateLayout = "2006-01-02"

// ApplyModifier parses m (e.g. "+3d", "-2w", "+1M") and returns t
// shifted by that offset. Units are s, m, h, d, w, M (calendar months)
// and y (calendar years); an empty m returns t unchanged.
func ApplyModifier(t time.Time, m string) (time.Time, error) {
	m = strings.TrimSpace(m)
	if m == "" {
		return t, nil
	}
	if len(m) < 2 {
		return t, fmt.Errorf("invalid modifier %q", m)
	}
	sign := 1
	switch m[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return t, fmt.Errorf("modifier %q must start with + or -", m)
	}
	unit := m[len(m)-1]
	numPart := m[1 : len(m)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return t, fmt.Errorf("invalid modifier %q: %s", m, err)
	}
	n *= sign
	switch unit {
	case 's':
		return t.Add(time.Duration(n) * time.Second), nil
	case 'm':
		return t.Add(time.Duration(n) * time.Minute), nil
	case 'h':
		return t.Add(time.Duration(n) * time.Hour), nil
	case 'd':
		return t.AddDate(0, 0, n), nil
	case 'w':
		return t.AddDate(0, 0, 7*n), nil
	case 'M':
		return t.AddDate(0, n, 0), nil
	case 'y':
		return t.AddDate(n, 0, 0), nil
	default:
		return t, fmt.Errorf("unknown modifier unit %q in %q", string(unit), m)
	}
}

// Generate produces a value conforming to ds, bounded by depth (the
// remaining recursion budget; callers start at DefaultMaxDepth).
func Generate(ds *DatumSchema, depth int) (interface{}, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil schema")
	}
	if depth <= 0 {
		return nil, fmt.Errorf("schema generation exceeded max depth")
	}
	if len(ds.OneOf) > 0 {
		return ds.OneOf[randIntn(len(ds.OneOf))], nil
	}
	switch ds.Kind {
	case SchemaName:
		return generateName(), nil
	case SchemaString:
		return generateString(ds), nil
	case SchemaEmail:
		return fmt.Sprintf("user%d@example.com", 1000+randIntn(9000)), nil
	case SchemaDate:
		t, err := ApplyModifier(time.Now().UTC(), ds.Modifier)
		if err != nil {
			return nil, err
		}
		layout := ds.Format
		if layout == "" {
			layout = defaultDateLayout
		}
		return t.Format(layout), nil
	case SchemaDateTime:
		t, err := ApplyModifier(time.Now().UTC(), ds.Modifier)
		if err != nil {
			return nil, err
		}
		layout := ds.Format
		if layout == "" {
			layout = defaultDateTimeLayout
		}
		return t.Format(layout), nil
	case SchemaInteger:
		lo, hi := 0.0, 100.0
		if ds.Min != nil {
			lo = *ds.Min
		}
		if ds.Max != nil {
			hi = *ds.Max
		}
		if hi < lo {
			hi = lo
		}
		n := int64(lo) + int64(randIntn(int(hi-lo)+1))
		return n, nil
	case SchemaFloat:
		lo, hi := 0.0, 100.0
		if ds.Min != nil {
			lo = *ds.Min
		}
		if ds.Max != nil {
			hi = *ds.Max
		}
		if hi < lo {
			hi = lo
		}
		frac := float64(randIntn(10000)) / 10000.0
		return lo + frac*(hi-lo), nil
	case SchemaBoolean:
		return randIntn(2) == 1, nil
	case SchemaList:
		n := listLength(ds)
		elems := make([]interface{}, 0, n)
		if ds.Element == nil {
			return elems, nil
		}
		for i := 0; i < n; i++ {
			e, err := Generate(ds.Element, depth-1)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return elems, nil
	case SchemaObject:
		obj := make(map[string]interface{}, len(ds.Fields))
		for name, fs := range ds.Fields {
			v, err := Generate(fs, depth-1)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			obj[name] = v
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unknown schema kind %v", ds.Kind)
}

func listLength(ds *DatumSchema) int {
	if ds.ExactItems != nil {
		return *ds.ExactItems
	}
	lo, hi := 1, 3
	if ds.MinItems != nil {
		lo = *ds.MinItems
	}
	if ds.MaxItems != nil {
		hi = *ds.MaxItems
	}
	if hi < lo {
		hi = lo
	}
	return lo + randIntn(hi-lo+1)
}

var nameSyllables = []string{"ka", "ta", "mi", "no", "ra", "su", "to", "we", "li", "on"}

func generateName() string {
	n := 2 + randIntn(2)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(nameSyllables[randIntn(len(nameSyllables))])
	}
	s := b.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

func generateString(ds *DatumSchema) string {
	if ds.Pattern != "" {
		if re, err := regexp.Compile(ds.Pattern); err == nil {
			if s := sampleFromPattern(re, ds); s != "" {
				return s
			}
		}
	}
	lo, hi := 4, 12
	if ds.MinLength != nil {
		lo = *ds.MinLength
	}
	if ds.MaxLength != nil {
		hi = *ds.MaxLength
	}
	if hi < lo {
		hi = lo
	}
	n := lo + randIntn(hi-lo+1)
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[randIntn(len(alphabet))])
	}
	return b.String()
}

// sampleFromPattern tries a handful of random candidates against re and
// returns the first one that matches; this is a best-effort generator,
// not a regex-inverting one.
func sampleFromPattern(re *regexp.Regexp, ds *DatumSchema) string {
	for attempt := 0; attempt < 25; attempt++ {
		lo, hi := 4, 12
		if ds.MinLength != nil {
			lo = *ds.MinLength
		}
		if ds.MaxLength != nil {
			hi = *ds.MaxLength
		}
		if hi < lo {
			hi = lo
		}
		n := lo + randIntn(hi-lo+1)
		const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(alphabet[randIntn(len(alphabet))])
		}
		if re.MatchString(b.String()) {
			return b.String()
		}
	}
	return ""
}
