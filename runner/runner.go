// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runner drives the scheduled batches of test definitions
// through their setup/normal/cleanup stages under the run's policy
// (spec.md §4.7): sequential batch/iteration walk, a Dry policy that
// narrates without dispatching, an Actual policy that executes stages
// end to end, continueOnFailure gating and the any_failures latch.
// Grounded on suite/suite.go's Suite.Iterate flat-list walk, adapted
// from the teacher's single ht.Test-per-call executor into this
// runner's per-stage, per-iteration loop.
package runner

import (
	"fmt"
	"time"

	"github.com/vdobler/apitest/cookiejar"
	"github.com/vdobler/apitest/scope"
	"github.com/vdobler/apitest/stage"
	"github.com/vdobler/apitest/value"
)

// Policy selects whether a run actually dispatches requests.
type Policy int

const (
	// Actual runs every stage end to end over the network.
	Actual Policy = iota
	// Dry narrates what would happen without performing any I/O, and
	// always reports success for the iterations it covers.
	Dry
)

// Telemetry is the best-effort reporting hook a run may carry; nil
// disables it entirely. Implementations must not let failures
// propagate: package telemetry's Sink swallows its own errors, logging
// them at debug level per spec.md's "telemetry is write-only, best
// effort" framing.
type Telemetry interface {
	Test(def stage.Definition, iteration int, status stage.Status)
	Stage(def stage.Definition, iteration int, result stage.StageResult)
}

// Narrator receives the Dry policy's play-by-play; nil discards it.
type Narrator interface {
	Printf(format string, args ...interface{})
}

// Options configures one run.
type Options struct {
	ContinueOnFailure bool
	Policy            Policy
	Jar               *cookiejar.Jar
	Log               scope.Logger
	Narrate           Narrator
	Telemetry         Telemetry
	GlobalVariables   []value.Variable
}

// IterationResult is one pass through a test's setup/normal/cleanup
// stages.
type IterationResult struct {
	Iteration int
	Status    stage.Status
	Stages    []stage.StageResult
	Duration  time.Duration
}

// TestResult aggregates every iteration run for one test definition.
type TestResult struct {
	Definition stage.Definition
	Iterations []IterationResult
}

// Status reports the worst status across every iteration, mirroring
// ht.Test's own highest-status-wins aggregation.
func (r TestResult) Status() stage.Status {
	worst := stage.Passed
	for _, it := range r.Iterations {
		if it.Status > worst {
			worst = it.Status
		}
	}
	return worst
}

// Report is the complete outcome of one run, ready for package report
// to render.
type Report struct {
	Tests       []TestResult
	AnyFailures bool
}

// Run executes batches (as produced by package schedule) under opts.
// runIDs names the definitions that were actually requested to run;
// definitions present in a batch only to satisfy a requires edge (the
// scheduler's ignore set) are skipped here rather than dispatched,
// since they exist solely to order the graph.
func Run(batches [][]stage.Definition, runIDs map[string]bool, opts Options) Report {
	report := Report{}
	for _, batch := range batches {
		for _, def := range batch {
			if !runIDs[def.ID] {
				continue
			}
			tr := runTest(def, &report.AnyFailures, opts)
			report.Tests = append(report.Tests, tr)
		}
	}
	return report
}

func runTest(def stage.Definition, anyFailures *bool, opts Options) TestResult {
	tr := TestResult{Definition: def}

	if def.Disabled {
		tr.Iterations = append(tr.Iterations, IterationResult{Status: stage.Skipped})
		return tr
	}

	iterate := def.Iterate
	if iterate <= 0 {
		iterate = 1
	}

	for k := 0; k < iterate; k++ {
		if *anyFailures && !opts.ContinueOnFailure {
			tr.Iterations = append(tr.Iterations, IterationResult{Iteration: k, Status: stage.Skipped})
			continue
		}

		var it IterationResult
		if opts.Policy == Dry {
			it = narrate(def, k, opts)
		} else {
			it = runIteration(def, k, opts)
		}
		tr.Iterations = append(tr.Iterations, it)

		if it.Status == stage.Failed {
			*anyFailures = true
		}
		if opts.Telemetry != nil {
			opts.Telemetry.Test(def, k, it.Status)
			for _, sr := range it.Stages {
				opts.Telemetry.Stage(def, k, sr)
			}
		}
	}
	return tr
}

// narrate prints what an Actual run would do, performing no I/O, and
// reports the iteration as passed. Each stage list is printed under
// its own section label: setup, stage, onSuccess, onFailure, always.
func narrate(def stage.Definition, iteration int, opts Options) IterationResult {
	start := time.Now()
	if opts.Narrate != nil {
		opts.Narrate.Printf("test %s iteration %d:", def.ID, iteration+1)
		printStageHeaders(opts.Narrate, "setup", def.Setup)
		printStageHeaders(opts.Narrate, "stage", def.Stages)
		printStageHeaders(opts.Narrate, "onSuccess", def.Cleanup.OnSuccess)
		printStageHeaders(opts.Narrate, "onFailure", def.Cleanup.OnFailure)
		printStageHeaders(opts.Narrate, "always", def.Cleanup.Always)
	}
	return IterationResult{
		Iteration: iteration,
		Status:    stage.Passed,
		Duration:  time.Since(start),
	}
}

func printStageHeaders(n Narrator, section string, stages []stage.StageDescriptor) {
	for _, s := range stages {
		name := s.Name
		if name == "" {
			name = s.Request.Method + " " + s.Request.URL
		}
		n.Printf("  [%s] %s", section, name)
	}
}

func runIteration(def stage.Definition, iteration int, opts Options) IterationResult {
	start := time.Now()
	exec := stage.Exec{
		Jar:             opts.Jar,
		Log:             opts.Log,
		State:           stage.NewState(),
		TestVariables:   def.Variables,
		GlobalVariables: opts.GlobalVariables,
		Iteration:       iteration,
	}

	var results []stage.StageResult
	idx := 0
	setupFailed := false
	for _, s := range def.Setup {
		r := exec.Run(idx, stage.StageSetup, s)
		results = append(results, r)
		idx++
		if r.Status == stage.Failed {
			setupFailed = true
			break
		}
	}

	normalFailed := setupFailed
	if !setupFailed {
		for _, s := range def.Stages {
			r := exec.Run(idx, stage.StageNormal, s)
			results = append(results, r)
			idx++
			if r.Status == stage.Failed {
				normalFailed = true
				break
			}
		}
	}

	var cleanup []stage.StageDescriptor
	if normalFailed {
		cleanup = append(cleanup, def.Cleanup.OnFailure...)
	} else {
		cleanup = append(cleanup, def.Cleanup.OnSuccess...)
	}
	cleanup = append(cleanup, def.Cleanup.Always...)
	for _, s := range cleanup {
		r := exec.Run(idx, stage.StageCleanup, s)
		results = append(results, r)
		idx++
	}

	status := stage.Passed
	for _, r := range results {
		if r.Status == stage.Failed {
			status = stage.Failed
			break
		}
	}
	if len(results) == 0 {
		status = stage.Failed
		results = append(results, stage.StageResult{
			Stage: 0, StageType: stage.StageNormal, StageName: "Initial",
			Status: stage.Failed,
			Validation: value.Failf("test %s declares no stages", def.ID),
		})
	}

	return IterationResult{
		Iteration: iteration,
		Status:    status,
		Stages:    results,
		Duration:  time.Since(start),
	}
}

// String renders a policy's name for CLI flags and logging.
func (p Policy) String() string {
	if p == Dry {
		return "dry"
	}
	return "actual"
}

// ParsePolicy parses "dry"/"actual" (case sensitive, matching the
// .jikken config convention) into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "dry":
		return Dry, nil
	case "actual", "":
		return Actual, nil
	}
	return Actual, fmt.Errorf("unknown policy %q", s)
}
