// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import "encoding/json"

// BodyOrSchema is the sum type spec.md §3 calls for: a request body, or
// an expected response body, is rendered from either a literal JSON
// value or a DatumSchema. Exactly one of Body/Schema is set; Schema
// takes precedence when both are (this mirrors how a YAML soup
// decodes: a "schema:" key next to a "body:" key is almost certainly
// an authoring mistake, not an instruction to prefer the literal).
type BodyOrSchema struct {
	Body   json.RawMessage
	Schema *DatumSchema
}

// IsSchema reports whether b carries a schema rather than a literal body.
func (b BodyOrSchema) IsSchema() bool {
	return b.Schema != nil
}

// IsZero reports whether b carries neither a body nor a schema.
func (b BodyOrSchema) IsZero() bool {
	return len(b.Body) == 0 && b.Schema == nil
}
