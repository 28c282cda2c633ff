// Copyright 2017 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scope resolves ${name} variable tokens in strings against
// the three variable scopes (stage, test, global) plus the run's
// State variables, generalizing the teacher's flat {{name}}-Replacer
// merge (scope.New) into the spec's shadow-ordered, multi-source
// lookup.
package scope

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vdobler/apitest/value"
)

var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+)\}`)

// Logger is the minimal logging capability the resolver needs: it
// logs (but never fails on) a missing file referenced by a File
// variable.
type Logger interface {
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Errorf(string, ...interface{}) {}

// Variables bundles the lookup context for one resolution: the
// current State variables (highest priority, exact string values) and
// the three variable scopes, narrowest first. Iteration selects the
// element of a ValueSet variable.
type Variables struct {
	State     map[string]string
	Stage     []value.Variable
	Test      []value.Variable
	Global    []value.Variable
	Iteration int
}

// merged concatenates the scopes stage++test++global, preserving
// order so that a linear scan implements shadow-by-earliest-occurrence
// (spec.md §9: "implement with a linear scan rather than a map-merge
// so ordering is preserved").
func (v Variables) merged() []value.Variable {
	out := make([]value.Variable, 0, len(v.Stage)+len(v.Test)+len(v.Global))
	out = append(out, v.Stage...)
	out = append(out, v.Test...)
	out = append(out, v.Global...)
	return out
}

// outer returns the scope used for re-resolving a variable's own
// definition (Literal/ValueSet/Schema chaining): state plus global
// only, never the narrower stage/test scopes a variable's own
// declaration lives in.
func (v Variables) outer() Variables {
	return Variables{State: v.State, Global: v.Global, Iteration: v.Iteration}
}

// Resolve substitutes every ${name} token in text for which name is
// found in State or in the merged scopes. Tokens whose name is not in
// scope are left untouched. Strings with no token are returned
// unchanged (spec.md §8 invariant 5).
func (v Variables) Resolve(log Logger, text string) string {
	if log == nil {
		log = nopLogger{}
	}
	if !strings.Contains(text, "${") {
		return text
	}
	matches := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}
	buf := make([]byte, 0, len(text))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		name := text[m[2]:m[3]]
		buf = append(buf, text[last:start]...)

		repl, isTextual, found := v.lookup(log, name)
		if !found {
			buf = append(buf, text[start:end]...)
			last = end
			continue
		}

		skipNextQuote := false
		if !isTextual && len(buf) > 0 && buf[len(buf)-1] == '"' && end < len(text) && text[end] == '"' {
			buf = buf[:len(buf)-1]
			skipNextQuote = true
		}
		buf = append(buf, repl...)
		last = end
		if skipNextQuote {
			last++
		}
	}
	buf = append(buf, text[last:]...)
	return string(buf)
}

// lookup finds name in State then the merged scopes and generates its
// replacement text. found is false if name is in no scope at all.
func (v Variables) lookup(log Logger, name string) (replacement string, isTextual bool, found bool) {
	if sv, ok := v.State[name]; ok {
		return sv, true, true
	}
	for _, variable := range v.merged() {
		if variable.Name != name {
			continue
		}
		repl, textual := v.generate(log, variable)
		return repl, textual, true
	}
	return "", true, false
}

// generate produces the replacement text for variable per its Source,
// per spec.md §4.1.
func (v Variables) generate(log Logger, variable value.Variable) (string, bool) {
	switch variable.Source {
	case value.SourceLiteral:
		raw := strings.TrimSpace(string(variable.Literal))
		stripped := stripOuterQuotes(raw)
		resolved := v.outer().Resolve(log, stripped)
		return resolved, isJSONString(raw)

	case value.SourceValueSet:
		if len(variable.ValueSet) == 0 {
			return "", true
		}
		idx := v.Iteration % len(variable.ValueSet)
		raw := strings.TrimSpace(string(variable.ValueSet[idx]))
		stripped := stripOuterQuotes(raw)
		resolved := v.outer().Resolve(log, stripped)
		return resolved, isJSONString(raw)

	case value.SourceFile:
		data, err := readFile(variable)
		if err != nil {
			log.Errorf("variable %q: reading file %q: %s", variable.Name, variable.File, err)
			return "", true
		}
		return strings.TrimRight(data, " \t\r\n"), true

	case value.SourceSecret:
		return v.Resolve(log, variable.Secret), true

	case value.SourceSchema:
		return v.generateSchema(log, variable)
	}
	return "", true
}

func (v Variables) generateSchema(log Logger, variable value.Variable) (string, bool) {
	schemaJSON, err := json.Marshal(variable.Schema)
	if err != nil {
		log.Errorf("variable %q: marshaling schema: %s", variable.Name, err)
		return "", true
	}
	resolvedJSON := v.outer().Resolve(log, string(schemaJSON))

	var resolved value.DatumSchema
	if err := json.Unmarshal([]byte(resolvedJSON), &resolved); err != nil {
		log.Errorf("variable %q: re-parsing resolved schema: %s", variable.Name, err)
		return "", true
	}

	generated, err := value.Generate(&resolved, value.DefaultMaxDepth)
	if err != nil {
		log.Errorf("variable %q: generating schema value: %s", variable.Name, err)
		return "", true
	}
	gj, err := json.Marshal(generated)
	if err != nil {
		log.Errorf("variable %q: marshaling generated value: %s", variable.Name, err)
		return "", true
	}
	raw := string(gj)
	return stripOuterQuotes(raw), isJSONString(raw)
}

func readFile(v value.Variable) (string, error) {
	data, err := os.ReadFile(v.File)
	if err == nil {
		return string(data), nil
	}
	if v.SourcePath == "" {
		return "", err
	}
	data, altErr := os.ReadFile(filepath.Join(v.SourcePath, v.File))
	if altErr != nil {
		return "", err
	}
	return string(data), nil
}

func stripOuterQuotes(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func isJSONString(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"'
}
