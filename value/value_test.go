// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatedCombine(t *testing.T) {
	a := Fail("bad status")
	b := Fail("bad body", "bad header")
	c := a.Combine(b)
	assert.False(t, c.Passed())
	assert.Equal(t, []string{"bad status", "bad body", "bad header"}, c.Errors())
}

func TestValidatedGoodCombine(t *testing.T) {
	c := Good().Combine(Good())
	assert.True(t, c.Passed())
	assert.Empty(t, c.Errors())
}

func TestMaskShortSecret(t *testing.T) {
	assert.Equal(t, "******", Mask("short-secret"))
}

func TestMaskLongSecret(t *testing.T) {
	secret := "this-is-a-very-long-secret-value"
	masked := Mask(secret)
	assert.True(t, strings.HasPrefix(masked, secret[:4]))
	assert.True(t, strings.HasSuffix(masked, secret[len(secret)-4:]))
	assert.NotContains(t, masked, secret)
}

func TestRedactRemovesRawSecret(t *testing.T) {
	secret := "supersecretvalue1234567890"
	s := "Authorization: Bearer " + secret
	redacted := Redact(s, secret)
	assert.NotContains(t, redacted, secret)
}

func TestGenerateRespectsOneOf(t *testing.T) {
	ds := &DatumSchema{Kind: SchemaInteger, OneOf: []interface{}{1, 2, 3}}
	for i := 0; i < 20; i++ {
		v, err := Generate(ds, DefaultMaxDepth)
		assert.NoError(t, err)
		found := false
		for _, o := range ds.OneOf {
			if v == o {
				found = true
			}
		}
		assert.True(t, found)
	}
}

func TestGenerateListLength(t *testing.T) {
	min, max := 2, 2
	ds := &DatumSchema{
		Kind:     SchemaList,
		MinItems: &min, MaxItems: &max,
		Element: &DatumSchema{Kind: SchemaBoolean},
	}
	v, err := Generate(ds, DefaultMaxDepth)
	assert.NoError(t, err)
	list, ok := v.([]interface{})
	assert.True(t, ok)
	assert.Len(t, list, 2)
}

func TestGenerateDepthExceeded(t *testing.T) {
	ds := &DatumSchema{Kind: SchemaBoolean}
	_, err := Generate(ds, 0)
	assert.Error(t, err)
}

func TestVariableValidateName(t *testing.T) {
	v := Variable{Name: "bad name!", Source: SourceSecret}
	assert.Error(t, v.Validate())

	v2 := Variable{Name: "good_name-1", Source: SourceSecret}
	assert.NoError(t, v2.Validate())
}
