// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nytlabs/gojee"

	"github.com/vdobler/apitest/cookiejar"
	"github.com/vdobler/apitest/dispatch"
	"github.com/vdobler/apitest/jsonpath"
	"github.com/vdobler/apitest/match"
	"github.com/vdobler/apitest/scope"
	"github.com/vdobler/apitest/value"
)

// Exec carries the dependencies a stage needs to run: the shared
// cookie jar, a logger for the resolver, the run's persistent state,
// and the test-level/global variable scopes the caller holds for the
// whole test (stage-level variables are supplied per call, from
// StageDescriptor.Variables).
type Exec struct {
	Jar             *cookiejar.Jar
	Log             scope.Logger
	State           *State
	TestVariables   []value.Variable
	GlobalVariables []value.Variable
	Iteration       int
}

// vars builds this call's merged scope set: a fresh snapshot of the
// persistent state plus the stage's own variables layered over the
// test/global ones the Exec carries.
func (e Exec) vars(stageVars []value.Variable) scope.Variables {
	return scope.Variables{
		State:     e.State.Snapshot(),
		Stage:     stageVars,
		Test:      e.TestVariables,
		Global:    e.GlobalVariables,
		Iteration: e.Iteration,
	}
}

// Run executes one stage: resolve, dispatch (and optionally compare),
// validate, extract, delay. It never panics; every failure becomes an
// entry in the returned StageResult's Validation.
func (e Exec) Run(index int, stageType StageType, desc StageDescriptor) StageResult {
	start := time.Now()
	vars := e.vars(desc.Variables)

	req, err := e.resolveRequest(vars, desc.Request)
	if err != nil {
		return StageResult{
			Stage: index, StageType: stageType, StageName: desc.Name,
			Status: Failed, Validation: value.Failf("building request: %s", err),
			RuntimeMillis: time.Since(start).Milliseconds(),
		}
	}

	resolve := func(s string) string { return vars.Resolve(e.Log, s) }
	resp, err := dispatch.Do(req, e.Jar, resolve)
	if err != nil {
		return StageResult{
			Stage: index, StageType: stageType, StageName: desc.Name,
			Status: Failed, Validation: value.Failf("dispatching request: %s", err),
			RuntimeMillis: time.Since(start).Milliseconds(),
		}
	}
	if resp.Transport != nil {
		return StageResult{
			Stage: index, StageType: stageType, StageName: desc.Name,
			Status: Failed, Validation: value.Failf("transport error: %s", resp.Transport),
			RuntimeMillis: time.Since(start).Milliseconds(),
		}
	}

	expectedStatus := desc.Response.Status
	expectedBody := desc.Response.Body

	if desc.Compare != nil {
		compareReq, err := e.resolveRequest(vars, *desc.Compare)
		v := value.Good()
		if err != nil {
			v = value.Failf("building compare request: %s", err)
		} else {
			compareResp, err := dispatch.Do(compareReq, e.Jar, resolve)
			if err != nil {
				v = value.Failf("dispatching compare request: %s", err)
			} else if compareResp.Transport != nil {
				v = value.Failf("compare transport error: %s", compareResp.Transport)
			} else {
				expectedStatus = ExpectedStatus{Literal: compareResp.Status}
				raw, _ := json.Marshal(compareResp.Body)
				expectedBody = value.BodyOrSchema{Body: raw}
			}
		}
		if !v.Passed() {
			return StageResult{
				Stage: index, StageType: stageType, StageName: desc.Name,
				Status: Failed, Validation: v,
				RuntimeMillis: time.Since(start).Milliseconds(),
			}
		}
	}

	validation := value.Good()
	validation = validation.Combine(validateStatus(expectedStatus, resp.Status))
	validation = validation.Combine(validateHeaders(e.Log, vars, desc.Response.Headers, resp))
	validation = validation.Combine(validateBody(expectedBody, resp.Body, desc.Response.Ignore, desc.Response.Strict))
	if desc.Response.Query != "" {
		validation = validation.Combine(validateQuery(desc.Response.Query, resp.RawBody))
	}

	for _, ext := range desc.Response.Extract {
		extracted, err := jsonpath.Extract(ext.Field, resp.Body)
		if err != nil {
			// Extraction failure is logged, not a stage failure
			// (spec.md §7): the extraction is skipped.
			if e.Log != nil {
				e.Log.Errorf("extracting %q via %q: %s", ext.Name, ext.Field, err)
			}
			continue
		}
		e.State.Set(ext.Name, jsonpath.CoerceString(extracted))
	}

	if desc.DelayMS > 0 {
		time.Sleep(time.Duration(desc.DelayMS) * time.Millisecond)
	}

	status := Passed
	if !validation.Passed() {
		status = Failed
	}
	return StageResult{
		Stage: index, StageType: stageType, StageName: desc.Name,
		Status: status, Validation: validation,
		RuntimeMillis: time.Since(start).Milliseconds(),
	}
}

func (e Exec) resolveRequest(vars scope.Variables, req RequestDescriptor) (dispatch.Request, error) {
	method := vars.Resolve(e.Log, req.Method)
	if method == "" {
		method = "GET"
	}
	base := vars.Resolve(e.Log, req.URL)

	params := make(map[string]string, len(req.Params))
	for _, p := range req.Params {
		params[vars.Resolve(e.Log, p.Key)] = vars.Resolve(e.Log, p.Value)
	}
	fullURL := dispatch.BuildURL(base, params)

	headers := make([]dispatch.Header, 0, len(req.Headers))
	for _, h := range req.Headers {
		headers = append(headers, dispatch.Header{
			Key:             vars.Resolve(e.Log, h.Key),
			Value:           vars.Resolve(e.Log, h.Value),
			MatchesVariable: h.MatchesVariable,
		})
	}

	var body json.RawMessage
	if req.Body != nil {
		raw, err := MarshalBody(req.Body)
		if err != nil {
			return dispatch.Request{}, fmt.Errorf("rendering body: %w", err)
		}
		if len(raw) > 0 {
			resolved := vars.Resolve(e.Log, string(raw))
			body = json.RawMessage(resolved)
		}
	}

	return dispatch.Request{Method: method, URL: fullURL, Headers: headers, Body: body}, nil
}

func validateStatus(expected ExpectedStatus, actual int) value.Validated {
	if expected.IsSchema() {
		return match.Schema(expected.Schema, float64(actual))
	}
	if expected.Literal != 0 && expected.Literal != actual {
		return value.Failf("expected status %d, got %d", expected.Literal, actual)
	}
	return value.Good()
}

func validateHeaders(log scope.Logger, vars scope.Variables, expected []Header, resp dispatch.Response) value.Validated {
	v := value.Good()
	for _, h := range expected {
		want := vars.Resolve(log, h.Value)
		got := resp.Headers.Get(h.Key)
		if got != want {
			v = v.Combine(value.Failf("expected header %q to be %q, got %q", h.Key, want, got))
		}
	}
	return v
}

func validateBody(expected value.BodyOrSchema, actual interface{}, ignore []string, strict bool) value.Validated {
	if expected.IsSchema() {
		return match.Schema(expected.Schema, actual)
	}
	if expected.IsZero() {
		return value.Good()
	}
	var decodedExpected interface{}
	if err := json.Unmarshal(expected.Body, &decodedExpected); err != nil {
		return value.Failf("malformed expected body: %s", err)
	}
	return match.Body(decodedExpected, actual, ignore, strict)
}

// validateQuery evaluates a gojee boolean expression against the raw
// response body, mirroring check/json.go's JSON check: Expression must
// evaluate to a JSON-truthy boolean, via Lexer -> Parser -> Eval over a
// jee.BMsg decode of the same bytes package jsonpath consumes as JSON.
func validateQuery(expr string, rawBody []byte) value.Validated {
	tokens, err := jee.Lexer(expr)
	if err != nil {
		return value.Failf("malformed query expression %q: %s", expr, err)
	}
	tt, err := jee.Parser(tokens)
	if err != nil {
		return value.Failf("malformed query expression %q: %s", expr, err)
	}
	var bmsg jee.BMsg
	if err := json.Unmarshal(rawBody, &bmsg); err != nil {
		return value.Failf("query expression needs a JSON object body: %s", err)
	}
	result, err := jee.Eval(tt, bmsg)
	if err != nil {
		return value.Failf("evaluating query expression %q: %s", expr, err)
	}
	if b, ok := result.(bool); !ok {
		return value.Failf("query expression %q did not evaluate to a boolean", expr)
	} else if !b {
		return value.Failf("query expression %q was false", expr)
	}
	return value.Good()
}
