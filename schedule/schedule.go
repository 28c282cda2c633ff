// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schedule turns a flat set of test definitions into ordered
// batches by their requires relation (spec.md §4.4). Grounded on
// suite/suite.go's Init/Repeat/batch-execute flat-list sequencing,
// generalized into a Kahn-style topological batcher, and on
// original_source/src/executor.rs's construct_test_execution_graph_v2
// for the duplicate-id and missing-requires warning semantics this
// package deliberately preserves rather than "fixes" (spec.md §9 open
// question 1).
package schedule

import (
	"sort"

	"github.com/vdobler/apitest/stage"
)

// Logger receives warnings the scheduler emits for dropped or
// unresolved edges; nil is a valid, silent logger.
type Logger interface {
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{}) {}

// Batches builds the execution plan for run (the definitions to
// actually execute) given ignore (definitions present only to satisfy
// a requires edge, never executed themselves). The result is an
// ordered list of batches; within a batch, definitions are sorted by
// ID for determinism.
func Batches(log Logger, run []stage.Definition, ignore []stage.Definition) [][]stage.Definition {
	if log == nil {
		log = nopLogger{}
	}

	byID := make(map[string]stage.Definition, len(run)+len(ignore))
	for _, d := range ignore {
		byID[d.ID] = d
	}
	for _, d := range run {
		byID[d.ID] = d
	}

	// graph[node] is the set of node's dependents: edges node -> dependent.
	graph := make(map[string]map[string]bool)
	hasEdges := make(map[string]bool) // node currently has at least one inserted dependent

	for _, d := range run {
		id := d.ID
		if d.Requires != "" {
			req, known := byID[d.Requires]
			if !known {
				log.Warnf("requires target %q not found for test %q, dropping edge", d.Requires, id)
			} else {
				if req.Disabled {
					log.Warnf("test %q requires a disabled test: %q", id, req.ID)
				}
				if graph[d.Requires] == nil {
					graph[d.Requires] = make(map[string]bool)
				}
				graph[d.Requires][id] = true
				hasEdges[d.Requires] = true
			}
		}

		if _, present := graph[id]; !present {
			graph[id] = make(map[string]bool)
		} else if !hasEdges[id] {
			// Intuition preserved from the source: if the existing node
			// for id already has a dependent, it's legitimately shared
			// by multiple requires edges, not a duplicate. If it has
			// none yet, this is presumed to be a duplicate id made in
			// error. Either way the node already in the graph is left
			// alone — only one definition ever occupies this id's slot
			// in the schedule, so nothing further to drop here.
			log.Warnf("skipping test, found duplicate test id: %q", id)
		}
	}

	var jobs [][]string
	scheduled := make(map[string]bool)
	for len(scheduled) < len(graph) {
		batch := nextBatch(graph, scheduled)
		if len(batch) == 0 {
			// Defensive: a cycle would stall progress forever. The
			// spec's invariants assume well-formed requires graphs;
			// emit whatever remains as one final batch rather than
			// looping.
			for node := range graph {
				if !scheduled[node] {
					batch = append(batch, node)
				}
			}
		}
		sort.Strings(batch)
		for _, n := range batch {
			scheduled[n] = true
		}
		jobs = append(jobs, batch)
	}

	jobDefs := make([][]stage.Definition, 0, len(jobs))
	var flattened []stage.Definition
	for _, batch := range jobs {
		defs := make([]stage.Definition, 0, len(batch))
		for _, id := range batch {
			defs = append(defs, byID[id])
		}
		jobDefs = append(jobDefs, defs)
		flattened = append(flattened, defs...)
	}

	if len(flattened) != len(run) {
		warnMissing(log, run, flattened)
	}

	return jobDefs
}

// nextBatch returns every graph node that is not yet scheduled and is
// not the target of an edge from any other not-yet-scheduled node.
func nextBatch(graph map[string]map[string]bool, scheduled map[string]bool) []string {
	ignore := make(map[string]bool, len(scheduled))
	for n := range scheduled {
		ignore[n] = true
	}
	for node, dependents := range graph {
		if scheduled[node] {
			continue
		}
		for d := range dependents {
			ignore[d] = true
		}
	}
	var batch []string
	for node := range graph {
		if !ignore[node] {
			batch = append(batch, node)
		}
	}
	return batch
}

func warnMissing(log Logger, run, flattened []stage.Definition) {
	want := make(map[string]bool, len(run))
	for _, d := range run {
		name := d.Name
		if name == "" {
			name = d.ID
		}
		want[name] = true
	}
	got := make(map[string]bool, len(flattened))
	for _, d := range flattened {
		name := d.Name
		if name == "" {
			name = d.ID
		}
		got[name] = true
	}
	var missing []string
	for name := range want {
		if !got[name] && name != "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return
	}
	sort.Strings(missing)
	log.Warnf("required tests not found, check the 'requires' tag in: %v", missing)
}
