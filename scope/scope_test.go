// Copyright 2017 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scope

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdobler/apitest/value"
)

func TestResolveNoTokenIsUnchanged(t *testing.T) {
	v := Variables{}
	s := "plain text with no tokens at all"
	assert.Equal(t, s, v.Resolve(nil, s))
}

func TestResolveLiteralQuoteStripping(t *testing.T) {
	v := Variables{
		Global: []value.Variable{
			{Name: "num", Source: value.SourceLiteral, Literal: []byte("42")},
		},
	}
	got := v.Resolve(nil, `{"n": "${num}"}`)
	assert.Equal(t, `{"n": 42}`, got)
}

func TestResolveLiteralStringKeepsQuotes(t *testing.T) {
	v := Variables{
		Global: []value.Variable{
			{Name: "name", Source: value.SourceLiteral, Literal: []byte(`"Bob"`)},
		},
	}
	got := v.Resolve(nil, `{"n": "${name}"}`)
	assert.Equal(t, `{"n": "Bob"}`, got)
}

func TestScopeShadowing(t *testing.T) {
	v := Variables{
		Stage:  []value.Variable{{Name: "x", Source: value.SourceLiteral, Literal: []byte(`"stage"`)}},
		Test:   []value.Variable{{Name: "x", Source: value.SourceLiteral, Literal: []byte(`"test"`)}},
		Global: []value.Variable{{Name: "x", Source: value.SourceLiteral, Literal: []byte(`"global"`)}},
	}
	assert.Equal(t, "stage", v.Resolve(nil, "${x}"))
}

func TestStateTakesPriorityOverScopes(t *testing.T) {
	v := Variables{
		State:  map[string]string{"x": "from-state"},
		Global: []value.Variable{{Name: "x", Source: value.SourceLiteral, Literal: []byte(`"from-global"`)}},
	}
	assert.Equal(t, "from-state", v.Resolve(nil, "${x}"))
}

func TestValueSetCyclesByIteration(t *testing.T) {
	set := func(raw ...string) []json.RawMessage {
		out := make([]json.RawMessage, len(raw))
		for i, r := range raw {
			out[i] = json.RawMessage(r)
		}
		return out
	}
	variable := value.Variable{
		Name: "color", Source: value.SourceValueSet,
		ValueSet: set(`"red"`, `"green"`, `"blue"`),
	}
	for iteration, want := range map[int]string{0: "red", 1: "green", 2: "blue", 3: "red"} {
		v := Variables{Iteration: iteration, Global: []value.Variable{variable}}
		assert.Equal(t, want, v.Resolve(nil, "${color}"))
	}
}

func TestValueSetEmptyResolvesToEmptyString(t *testing.T) {
	v := Variables{
		Global: []value.Variable{{Name: "empty", Source: value.SourceValueSet}},
	}
	assert.Equal(t, "", v.Resolve(nil, "${empty}"))
}

func TestUnknownTokenLeftUntouched(t *testing.T) {
	v := Variables{}
	got := v.Resolve(nil, "hello ${missing} world")
	assert.Equal(t, "hello ${missing} world", got)
}

func TestChainedLiteralResolution(t *testing.T) {
	v := Variables{
		Global: []value.Variable{
			{Name: "greeting", Source: value.SourceLiteral, Literal: []byte(`"hello ${subject}"`)},
			{Name: "subject", Source: value.SourceLiteral, Literal: []byte(`"world"`)},
		},
	}
	assert.Equal(t, "hello world", v.Resolve(nil, "${greeting}"))
}

func TestFileVariableResolvesRelativeToSourcePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("file-content\n"), 0o644))

	v := Variables{
		Global: []value.Variable{
			{Name: "data", Source: value.SourceFile, File: "data.txt", SourcePath: dir},
		},
	}
	assert.Equal(t, "file-content", v.Resolve(nil, "${data}"))
}

func TestSecretResolvesEmbeddedVariable(t *testing.T) {
	v := Variables{
		Global: []value.Variable{
			{Name: "token", Source: value.SourceSecret, Secret: "prefix-${suffix}"},
			{Name: "suffix", Source: value.SourceLiteral, Literal: []byte(`"abc"`)},
		},
	}
	assert.Equal(t, "prefix-abc", v.Resolve(nil, "${token}"))
}
