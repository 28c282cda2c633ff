// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonpath implements the dotted-path traversal used to
// extract a value out of a decoded JSON response body, with the
// array-flattening semantics response-driven variable capture needs.
// Grounded on the teacher's check/json.go element-path walking
// (generalized from gojee expressions to a plain dotted path) and
// extractor.go's JSONExtractor element-selection idea.
package jsonpath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Extract traverses path (dot-separated segments) into v. On an
// object it descends into the named field. On an array it recurses
// into every element and flattens the per-element results one level:
// array-typed sub-results are concatenated, scalar sub-results are
// collected, and the combined list is returned as the array result.
// On a scalar encountered before the path is exhausted it fails.
func Extract(path string, v interface{}) (interface{}, error) {
	var segments []string
	if path != "" {
		segments = strings.Split(path, ".")
	}
	return extract(segments, v)
}

func extract(segments []string, v interface{}) (interface{}, error) {
	if len(segments) == 0 {
		return v, nil
	}

	switch val := v.(type) {
	case map[string]interface{}:
		seg := segments[0]
		child, ok := val[seg]
		if !ok {
			return nil, fmt.Errorf("path not found: %s", seg)
		}
		return extract(segments[1:], child)

	case []interface{}:
		results := make([]interface{}, 0, len(val))
		matched := false
		for _, elem := range val {
			r, err := extract(segments, elem)
			if err != nil {
				continue
			}
			matched = true
			if arr, ok := r.([]interface{}); ok {
				results = append(results, arr...)
			} else {
				results = append(results, r)
			}
		}
		if !matched {
			return nil, fmt.Errorf("path not found in array element")
		}
		return results, nil

	default:
		return nil, fmt.Errorf("path continues past scalar value")
	}
}

// CoerceString renders an extracted JSON value as a string for
// storage in State.variables: booleans and numbers via their textual
// form, strings verbatim, everything else (nil, objects, arrays) as
// the empty string.
func CoerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
