// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package telemetry is a best-effort, write-only sink that POSTs
// session/test/stage events to a remote ingestion service (spec.md
// §4.7/§6): a session is opened once per run, one test event per
// iteration, one stage event per completed stage. Every call is
// fire-and-forget: a transport error, a non-2xx response or a body
// encoding failure is logged at debug and otherwise ignored, since
// telemetry must never affect a test's own pass/fail outcome.
// Grounded on original_source/src/telemetry.rs's three-endpoint
// session/test/stage protocol and bearer-style Authorization header,
// translated from hyper's async client to dispatch's net/http.Client
// convention. The bearer token is a google/uuid, the same library
// ht's identity.go reaches for to mint opaque IDs; the session id is
// the one the /sessions endpoint returns.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vdobler/apitest/stage"
)

// DefaultBaseURL is the ingestion service this sink talks to absent an
// explicit override.
const DefaultBaseURL = "https://ingestion.example.com/v1"

// Debugf receives telemetry's own swallowed failures; nil discards them.
type Debugf func(format string, args ...interface{})

// Sink is a best-effort session/test/stage telemetry reporter. Its
// zero value is unusable; construct one with New.
type Sink struct {
	BaseURL string
	Token   uuid.UUID
	Client  *http.Client
	Debug   Debugf

	sessionID string
}

// New opens a Sink carrying a fresh bearer token, ready to report
// tests and stages once Open has posted the session.
func New(baseURL string, client *http.Client) *Sink {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sink{BaseURL: baseURL, Token: uuid.New(), Client: client}
}

type sessionPost struct {
	Version string `json:"version"`
	Tests   int    `json:"tests"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

// Open posts the session-start event. A failure leaves the Sink
// without a session id; subsequent Test/Stage calls then no-op rather
// than fail, since telemetry is never allowed to affect a run.
func (s *Sink) Open(version string, testCount int) {
	body, err := json.Marshal(sessionPost{Version: version, Tests: testCount})
	if err != nil {
		s.logf("encoding session body: %s", err)
		return
	}
	var resp sessionResponse
	if !s.post("/sessions", body, &resp) {
		return
	}
	s.sessionID = resp.SessionID
}

type testPost struct {
	SessionID string `json:"sessionId"`
	Identifier string `json:"identifier"`
	Iteration int    `json:"iteration"`
	Status    string `json:"status"`
}

// Test reports one iteration's outcome for def. Satisfies
// runner.Telemetry.
func (s *Sink) Test(def stage.Definition, iteration int, status stage.Status) {
	if s.sessionID == "" {
		return
	}
	body, err := json.Marshal(testPost{
		SessionID:  s.sessionID,
		Identifier: def.ID,
		Iteration:  iteration,
		Status:     status.String(),
	})
	if err != nil {
		s.logf("encoding test body: %s", err)
		return
	}
	s.post("/tests", body, nil)
}

type stagePost struct {
	SessionID string `json:"sessionId"`
	Identifier string `json:"identifier"`
	Iteration  int    `json:"iteration"`
	Stage      int    `json:"stage"`
	StageType  string `json:"stageType"`
	Status     string `json:"status"`
	RuntimeMS  int64  `json:"runtimeMillis"`
}

// Stage reports one stage's outcome within an iteration. Satisfies
// runner.Telemetry.
func (s *Sink) Stage(def stage.Definition, iteration int, result stage.StageResult) {
	if s.sessionID == "" {
		return
	}
	body, err := json.Marshal(stagePost{
		SessionID:  s.sessionID,
		Identifier: def.ID,
		Iteration:  iteration,
		Stage:      result.Stage,
		StageType:  result.StageType.String(),
		Status:     result.Status.String(),
		RuntimeMS:  result.RuntimeMillis,
	})
	if err != nil {
		s.logf("encoding stage body: %s", err)
		return
	}
	s.post("/stages", body, nil)
}

// post sends body to s.BaseURL+path with the bearer-style Authorization
// header, decoding a 2xx JSON response into out (if non-nil). It
// reports success; every failure is logged and swallowed here so
// callers never need their own error handling.
func (s *Sink) post(path string, body []byte, out interface{}) bool {
	req, err := http.NewRequest(http.MethodPost, s.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		s.logf("building request to %s: %s", path, err)
		return false
	}
	req.Header.Set("Authorization", s.Token.String())
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		s.logf("posting to %s: %s", path, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		s.logf("telemetry post to %s: status %d", path, resp.StatusCode)
		return false
	}
	if out == nil {
		return true
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		s.logf("decoding response from %s: %s", path, err)
		return false
	}
	return true
}

func (s *Sink) logf(format string, args ...interface{}) {
	if s.Debug == nil {
		return
	}
	s.Debug(fmt.Sprintf(format, args...))
}
