// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdobler/apitest/cookiejar"
	"github.com/vdobler/apitest/value"
)

func newExec(jar *cookiejar.Jar) Exec {
	return Exec{Jar: jar, State: NewState()}
}

// E1 — simple GET with literal body match.
func TestRunE1SimpleGETLiteralBodyMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(`{"name":"Bob"}`))
	}))
	defer srv.Close()

	e := newExec(cookiejar.New())
	desc := StageDescriptor{
		Request: RequestDescriptor{Method: "GET", URL: srv.URL + "/v/1"},
		Response: ExpectedResponse{
			Status: ExpectedStatus{Literal: 200},
			Body:   value.BodyOrSchema{Body: []byte(`{"name":"Bob"}`)},
			Strict: true,
		},
	}
	result := e.Run(0, StageNormal, desc)
	assert.Equal(t, Passed, result.Status)
	assert.True(t, result.Validation.Passed())
}

// E2 — status schema one-of.
func TestRunE2StatusSchemaOneOf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(201)
	}))
	defer srv.Close()

	e := newExec(cookiejar.New())
	statuses := []interface{}{200.0, 201.0, 202.0}
	desc := StageDescriptor{
		Request: RequestDescriptor{Method: "GET", URL: srv.URL},
		Response: ExpectedResponse{
			Status: ExpectedStatus{Schema: &value.DatumSchema{Kind: value.SchemaInteger, OneOf: statuses}},
		},
	}
	result := e.Run(0, StageNormal, desc)
	assert.Equal(t, Passed, result.Status)
}

// E3 — compare mismatch.
func TestRunE3CompareMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/primary":
			w.WriteHeader(200)
			w.Write([]byte(`{"a":1}`))
		case "/compare":
			w.WriteHeader(200)
			w.Write([]byte(`{"a":2}`))
		}
	}))
	defer srv.Close()

	e := newExec(cookiejar.New())
	desc := StageDescriptor{
		Request: RequestDescriptor{Method: "GET", URL: srv.URL + "/primary"},
		Compare: &RequestDescriptor{Method: "GET", URL: srv.URL + "/compare"},
		Response: ExpectedResponse{
			Status: ExpectedStatus{Literal: 200},
			Strict: true,
		},
	}
	result := e.Run(0, StageNormal, desc)
	assert.Equal(t, Failed, result.Status)
	require.Len(t, result.Validation.Errors(), 1)
}

// E5 — extraction + reuse across stages.
func TestRunE5ExtractionAndReuse(t *testing.T) {
	var gotItemPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/id":
			w.Write([]byte(`{"id":"x1"}`))
		default:
			gotItemPath = r.URL.Path
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	e := newExec(cookiejar.New())
	stage1 := StageDescriptor{
		Request:  RequestDescriptor{Method: "GET", URL: srv.URL + "/id"},
		Response: ExpectedResponse{Extract: []Extraction{{Name: "ID", Field: "id"}}},
	}
	r1 := e.Run(0, StageNormal, stage1)
	require.Equal(t, Passed, r1.Status)
	assert.Equal(t, "x1", e.State.Snapshot()["ID"])

	stage2 := StageDescriptor{
		Request: RequestDescriptor{Method: "GET", URL: srv.URL + "/item/${ID}"},
	}
	r2 := e.Run(1, StageNormal, stage2)
	require.Equal(t, Passed, r2.Status)
	assert.Equal(t, "/item/x1", gotItemPath)
}

func TestRunIgnorePathsAppliedToPrimaryAndCompare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/primary":
			w.Write([]byte(`{"a":1,"ts":"2020-01-01"}`))
		case "/compare":
			w.Write([]byte(`{"a":1,"ts":"2024-06-01"}`))
		}
	}))
	defer srv.Close()

	e := newExec(cookiejar.New())
	desc := StageDescriptor{
		Request: RequestDescriptor{Method: "GET", URL: srv.URL + "/primary"},
		Compare: &RequestDescriptor{Method: "GET", URL: srv.URL + "/compare"},
		Response: ExpectedResponse{
			Status: ExpectedStatus{Literal: 200},
			Ignore: []string{"ts"},
			Strict: true,
		},
	}
	result := e.Run(0, StageNormal, desc)
	assert.Equal(t, Passed, result.Status)
}

func TestRunTransportErrorSurfacedAsStageFailure(t *testing.T) {
	e := newExec(cookiejar.New())
	desc := StageDescriptor{
		Request: RequestDescriptor{Method: "GET", URL: "http://127.0.0.1:1/unreachable"},
	}
	result := e.Run(0, StageNormal, desc)
	assert.Equal(t, Failed, result.Status)
	assert.False(t, result.Validation.Passed())
}

func TestRunMalformedURLDoesNotPanic(t *testing.T) {
	e := newExec(cookiejar.New())
	desc := StageDescriptor{Request: RequestDescriptor{Method: "GET", URL: "://bad"}}
	result := e.Run(0, StageNormal, desc)
	assert.Equal(t, Failed, result.Status)
}
