// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stage holds the test-definition data model (spec.md §3's
// RequestDescriptor, StageDescriptor, Definition, StageResult) and the
// stage executor that drives one stage through resolve, dispatch,
// validate and extract. Grounded on the teacher's ht.go Test/Request/
// Response shape and suite/suite.go's setup/teardown sequencing,
// generalized to the declarative setup/normal/cleanup lifecycle this
// runner's test files describe instead of the teacher's Go-literal
// Test values.
package stage

import (
	"encoding/json"
	"sync"

	"github.com/vdobler/apitest/value"
)

// Param is one request parameter (query or form), paired with a flag
// marking whether it was found during the pre-scan to contain a
// ${name} token needing resolution at execution time.
type Param struct {
	Key             string
	Value           string
	MatchesVariable bool
}

// Header is one request or expected-response header.
type Header struct {
	Key             string
	Value           string
	MatchesVariable bool
}

// RequestDescriptor is the method/url/params/headers/body of either a
// primary or a compare request, plus the marks left by the one-time
// pre-scan that spec.md §3 calls for.
type RequestDescriptor struct {
	Method  string
	URL     string
	Params  []Param
	Headers []Header
	Body    *value.BodyOrSchema
}

// ScanVariables marks every Param/Header whose Value contains at least
// one ${name} token. Header marks are carried into
// dispatch.Header.MatchesVariable; dispatch.Do applies its "second
// chance" substitution pass (spec.md §4.5 step 4) to every header,
// marked or not.
func (r *RequestDescriptor) ScanVariables() {
	for i := range r.Params {
		r.Params[i].MatchesVariable = containsToken(r.Params[i].Value)
	}
	for i := range r.Headers {
		r.Headers[i].MatchesVariable = containsToken(r.Headers[i].Value)
	}
}

func containsToken(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '$' && s[i+1] == '{' {
			return true
		}
	}
	return false
}

// ExpectedStatus is either a literal status code or a schema (for
// status.oneOf-style constraints).
type ExpectedStatus struct {
	Literal int
	Schema  *value.DatumSchema
}

// IsSchema reports whether the expected status is schema-driven.
func (s ExpectedStatus) IsSchema() bool { return s.Schema != nil }

// Extraction captures one JSON value from the actual response body
// into State.variables under Name, read via the dotted path Field.
type Extraction struct {
	Name  string
	Field string
}

// ExpectedResponse is the validation target for a stage: status,
// headers, body/schema, ignore-paths to prune before comparing, and
// the extractions to run against the actual body afterward.
type ExpectedResponse struct {
	Status  ExpectedStatus
	Headers []Header
	Body    value.BodyOrSchema
	Strict  bool
	Ignore  []string
	Extract []Extraction

	// Query is an optional gojee boolean expression checked against
	// the actual decoded body in addition to Body/Schema matching.
	Query string
}

// StageDescriptor is one HTTP interaction: its request, an optional
// compare request whose response becomes the expected body/status,
// the expected response, stage-scoped variables and a post-extraction
// delay in milliseconds.
type StageDescriptor struct {
	Name      string
	Request   RequestDescriptor
	Compare   *RequestDescriptor
	Response  ExpectedResponse
	Variables []value.Variable
	DelayMS   int
}

// CleanupSet holds the three cleanup stage lists spec.md §4.6 selects
// between: onSuccess runs when every normal stage passed, onFailure
// when any failed, always runs unconditionally after either.
type CleanupSet struct {
	OnSuccess []StageDescriptor
	OnFailure []StageDescriptor
	Always    []StageDescriptor
}

// Definition is one validated test, as parsed from a test file.
type Definition struct {
	ID          string
	Name        string
	Description string // SUPPLEMENT: parsed and kept; not used by execution or reports
	Requires    string
	Tags        []string
	Iterate     int
	Disabled    bool
	Project     string
	Environment string

	Variables       []value.Variable
	GlobalVariables []value.Variable

	Setup   []StageDescriptor
	Stages  []StageDescriptor
	Cleanup CleanupSet

	Filename string
}

// StageType classifies a StageResult by which phase of a test produced it.
type StageType int

const (
	StageSetup StageType = iota
	StageNormal
	StageCleanup
)

func (t StageType) String() string {
	switch t {
	case StageSetup:
		return "Setup"
	case StageNormal:
		return "Normal"
	case StageCleanup:
		return "Cleanup"
	}
	return "Unknown"
}

// Status is the pass/fail/skip outcome of one stage.
type Status int

const (
	Passed Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case Skipped:
		return "Skipped"
	}
	return "Unknown"
}

// StageResult is the outcome of running one stage once.
type StageResult struct {
	Stage         int
	StageType     StageType
	StageName     string
	RuntimeMillis int64
	Status        Status
	Details       string
	Validation    value.Validated
}

// State is the mutable store the resolver reads and the stage
// executor writes: the variables extracted from responses. The cookie
// jar is held separately (Exec.Jar). Set and Snapshot take a mutex;
// the runner itself uses a State from a single goroutine.
type State struct {
	mu        sync.Mutex
	Variables map[string]string
}

// NewState returns an empty State.
func NewState() *State {
	return &State{Variables: make(map[string]string)}
}

// Set stores name=val in State.Variables.
func (s *State) Set(name, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Variables[name] = val
}

// Snapshot returns a copy of the variable map, safe to range over
// without holding the State's lock.
func (s *State) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		out[k] = v
	}
	return out
}

// MarshalBody renders a BodyOrSchema to raw JSON bytes suitable for a
// request body: the literal Body verbatim, or a schema-generated value.
func MarshalBody(b *value.BodyOrSchema) (json.RawMessage, error) {
	if b == nil {
		return nil, nil
	}
	if b.Schema != nil {
		generated, err := value.Generate(b.Schema, value.DefaultMaxDepth)
		if err != nil {
			return nil, err
		}
		return json.Marshal(generated)
	}
	return b.Body, nil
}
