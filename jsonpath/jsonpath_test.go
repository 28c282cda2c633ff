// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonpath

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestExtractSimpleField(t *testing.T) {
	v := decode(t, `{"id": "x1"}`)
	got, err := Extract("id", v)
	require.NoError(t, err)
	assert.Equal(t, "x1", got)
}

func TestExtractNestedField(t *testing.T) {
	v := decode(t, `{"a": {"b": {"c": 42}}}`)
	got, err := Extract("a.b.c", v)
	require.NoError(t, err)
	assert.Equal(t, float64(42), got)
}

func TestExtractArrayFlattening(t *testing.T) {
	v := decode(t, `[{"a":[{"b":1},{"b":2}]},{"a":[{"b":3}]}]`)
	got, err := Extract("a.b", v)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, got)
}

func TestExtractMissingFieldFails(t *testing.T) {
	v := decode(t, `{"a": 1}`)
	_, err := Extract("b", v)
	assert.Error(t, err)
}

func TestExtractScalarBeforeExhaustedFails(t *testing.T) {
	v := decode(t, `{"a": 1}`)
	_, err := Extract("a.b", v)
	assert.Error(t, err)
}

func TestExtractArrayNoMatchFails(t *testing.T) {
	v := decode(t, `[{"x":1},{"x":2}]`)
	_, err := Extract("y", v)
	assert.Error(t, err)
}

func TestCoerceString(t *testing.T) {
	assert.Equal(t, "true", CoerceString(true))
	assert.Equal(t, "42", CoerceString(float64(42)))
	assert.Equal(t, "3.14", CoerceString(float64(3.14)))
	assert.Equal(t, "hi", CoerceString("hi"))
	assert.Equal(t, "", CoerceString(nil))
}
