// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCommandEndToEndPassing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, dir, "a.yaml", `
id: a
request:
  method: GET
  url: `+srv.URL+`/thing
response:
  status: 200
  body:
    ok: true
`)

	cmd := newRunCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 passed")
}

func TestRunCommandEndToEndFailingReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, dir, "a.yaml", `
id: a
request:
  method: GET
  url: `+srv.URL+`/thing
response:
  status: 200
`)

	cmd := newRunCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, out.String(), "1 failed")
}

func TestRunCommandTagFilterSkipsNonMatchingTests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, dir, "tagged.yaml", `
id: tagged
tags: ["smoke"]
request:
  method: GET
  url: `+srv.URL+`
response:
  status: 200
`)
	writeTestFile(t, dir, "other.yaml", `
id: other
tags: ["slow"]
request:
  method: GET
  url: `+srv.URL+`
response:
  status: 200
`)

	cmd := newRunCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--tag", "smoke", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 run")
}

func TestRunCommandDryPolicyNeverDispatches(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.yaml", `
id: a
request:
  method: GET
  url: http://example.invalid/unreachable
response:
  status: 200
`)

	cmd := newRunCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--dry", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 passed")
}

func TestRunCommandJUnitOutputWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, dir, "a.yaml", `
id: a
request:
  method: GET
  url: `+srv.URL+`
response:
  status: 200
`)
	junitPath := filepath.Join(dir, "out.xml")

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--junit", junitPath, dir})

	require.NoError(t, cmd.Execute())
	data, err := os.ReadFile(junitPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<testsuites>")
}
