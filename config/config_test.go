// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.jikken"))
	require.NoError(t, err)
	assert.False(t, cfg.ContinueOnFailure())
	assert.Equal(t, "", cfg.APIKey())
}

func TestLoadParsesSettingsAndGlobals(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".jikken")
	contents := `
[settings]
continueOnFailure = true
apiKey = "secret123"

[globals]
HOST = "api.example.com"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.ContinueOnFailure())
	assert.Equal(t, "secret123", cfg.APIKey())
	assert.Equal(t, "api.example.com", cfg.Globals["HOST"])
}

func TestSubstituteGlobalsReplacesKnownTokens(t *testing.T) {
	cfg := Config{Globals: map[string]string{"HOST": "api.example.com"}}
	got := cfg.SubstituteGlobals(`{"url": "https://#HOST#/v1"}`)
	assert.Equal(t, `{"url": "https://api.example.com/v1"}`, got)
}

func TestSubstituteGlobalsLeavesUnknownTokensUntouched(t *testing.T) {
	cfg := Config{Globals: map[string]string{"HOST": "api.example.com"}}
	got := cfg.SubstituteGlobals(`#UNKNOWN#`)
	assert.Equal(t, `#UNKNOWN#`, got)
}
