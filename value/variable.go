// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// NamePattern is the pattern every variable name must match.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Source distinguishes the one-of-five ways a Variable can produce its
// value.
type Source int

const (
	// SourceLiteral holds a fixed JSON value.
	SourceLiteral Source = iota
	// SourceValueSet cycles through an ordered JSON list by iteration.
	SourceValueSet
	// SourceFile reads its value from a file on disk.
	SourceFile
	// SourceSecret holds a raw string that may embed ${vars}; it
	// resolves to that string unmasked. Mask/Redact are not applied to
	// it automatically anywhere in logs, reports or telemetry.
	SourceSecret
	// SourceSchema generates a value conforming to a DatumSchema.
	SourceSchema
)

// Variable is a named value source. Exactly one of the Literal,
// ValueSet, File, Secret or Schema fields is meaningful, selected by
// Source.
type Variable struct {
	Name   string
	Source Source

	Literal  json.RawMessage   // SourceLiteral
	ValueSet []json.RawMessage // SourceValueSet, in order
	File     string            // SourceFile, path (may be relative)
	Secret   string            // SourceSecret, itself may embed ${vars}
	Schema   *DatumSchema       // SourceSchema

	// SourcePath is the directory of the file this variable was
	// declared in; relative File paths resolve against it.
	SourcePath string
}

// Validate checks the structural invariants on v (name shape, exactly
// one source populated as advertised by Source).
func (v Variable) Validate() error {
	if !NamePattern.MatchString(v.Name) {
		return fmt.Errorf("variable name %q does not match %s", v.Name, NamePattern.String())
	}
	switch v.Source {
	case SourceLiteral:
		if len(v.Literal) == 0 {
			return fmt.Errorf("variable %q: literal source has no value", v.Name)
		}
	case SourceValueSet:
		// An empty value-set is legal: it resolves to "".
	case SourceFile:
		if v.File == "" {
			return fmt.Errorf("variable %q: file source has no path", v.Name)
		}
	case SourceSecret:
		// Secret may be empty (an odd but legal secret).
	case SourceSchema:
		if v.Schema == nil {
			return fmt.Errorf("variable %q: schema source has no schema", v.Name)
		}
	default:
		return fmt.Errorf("variable %q: unknown source %d", v.Name, v.Source)
	}
	return nil
}

// IsTextual reports whether generate(v) should be treated as already a
// string (i.e. quoting around ${v} should be preserved by the
// resolver) as opposed to a structured JSON value whose surrounding
// quotes must be stripped. A Literal is textual unless it holds valid
// JSON that is not a string; ValueSet/File/Secret are always reported
// textual; a
// Schema source is textual only for the String/Email/Name/Date/DateTime
// kinds.
func (v Variable) IsTextual() bool {
	if v.Source == SourceSchema && v.Schema != nil {
		return v.Schema.Kind.IsTextual()
	}
	if v.Source == SourceLiteral {
		var probe interface{}
		if err := json.Unmarshal(v.Literal, &probe); err == nil {
			_, isString := probe.(string)
			return isString
		}
	}
	return true
}
