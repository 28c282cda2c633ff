// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders a runner.Report as JUnit XML and as a JSON
// summary (spec.md §4.8). Grounded on suite/report.go's JUnit4XML:
// same encoding/xml local-type-per-element approach, restructured from
// the teacher's flat testsuite-of-checks into the nested
// testsuites>testsuite>testsuite>testcase shape this runner's
// test/iteration/stage hierarchy calls for.
package report

import (
	"encoding/xml"
	"fmt"

	"github.com/vdobler/apitest/runner"
	"github.com/vdobler/apitest/stage"
)

type failure struct {
	Message string `xml:"message,attr"`
	Typ     string `xml:"type,attr"`
}

type testcase struct {
	XMLName   xml.Name   `xml:"testcase"`
	Name      string     `xml:"name,attr"`
	Classname string     `xml:"classname,attr"`
	Time      float64    `xml:"time,attr"`
	Failures  []*failure `xml:"failure,omitempty"`
	Skipped   *struct{}  `xml:"skipped,omitempty"`
}

type iterationSuite struct {
	XMLName  xml.Name   `xml:"testsuite"`
	Name     string     `xml:"name,attr"`
	Tests    int        `xml:"tests,attr"`
	Failures int        `xml:"failures,attr"`
	Skipped  int        `xml:"skipped,attr"`
	Time     float64    `xml:"time,attr"`
	Testcase []testcase `xml:"testcase"`
}

type testSuite struct {
	XMLName   xml.Name         `xml:"testsuite"`
	Name      string           `xml:"name,attr"`
	Tests     int              `xml:"tests,attr"`
	Failures  int              `xml:"failures,attr"`
	Skipped   int              `xml:"skipped,attr"`
	Testsuite []iterationSuite `xml:"testsuite"`
}

type testsuites struct {
	XMLName   xml.Name    `xml:"testsuites"`
	Testsuite []testSuite `xml:"testsuite"`
}

// JUnitXML renders rep as a JUnit 4 style <testsuites> document: one
// <testsuite> per test, a nested <testsuite> per iteration named
// "testName.Iterations.k+1", and one <testcase name=stage_n
// classname=iterationName> per stage holding a <failure> child per
// validation error. A stage that failed to even build its request is
// rendered as a single testcase named "Initial".
func JUnitXML(rep runner.Report) ([]byte, error) {
	out := testsuites{}
	for _, tr := range rep.Tests {
		ts := testSuite{Name: nameOf(tr.Definition)}
		for k, it := range tr.Iterations {
			iterName := fmt.Sprintf("%s.Iterations.%d", ts.Name, k+1)
			is := iterationSuite{Name: iterName}
			if it.Status == stage.Skipped && len(it.Stages) == 0 {
				is.Skipped = 1
				is.Tests = 1
				is.Testcase = append(is.Testcase, testcase{
					Name: "Initial", Classname: iterName, Skipped: &struct{}{},
				})
			}
			for n, sr := range it.Stages {
				tc := testcase{
					Name:      fmt.Sprintf("stage_%d", n),
					Classname: iterName,
					Time:      float64(sr.RuntimeMillis) / 1000,
				}
				if sr.StageName == "" && n == 0 && sr.Status == stage.Failed && len(it.Stages) == 1 {
					tc.Name = "Initial"
					tc.Classname = "Initial"
				}
				switch sr.Status {
				case stage.Skipped:
					tc.Skipped = &struct{}{}
					is.Skipped++
				case stage.Failed:
					for _, msg := range sr.Validation.Errors() {
						tc.Failures = append(tc.Failures, &failure{Message: msg, Typ: "AssertionError"})
					}
					is.Failures++
				}
				is.Tests++
				is.Testcase = append(is.Testcase, tc)
				is.Time += tc.Time
			}
			ts.Tests += is.Tests
			ts.Failures += is.Failures
			ts.Skipped += is.Skipped
			ts.Testsuite = append(ts.Testsuite, is)
		}
		out.Testsuite = append(out.Testsuite, ts)
	}

	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JUnit report: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func nameOf(def stage.Definition) string {
	if def.Name != "" {
		return def.Name
	}
	return def.ID
}

// Summary is the SUPPLEMENT JSON output (spec.md §4.8's counts,
// grounded on original_source/src/executor.rs's dual JUnit/summary
// emission and the pack's --output CLI convention): testFiles is the
// number of tests, run is passed+failed, and skipped includes both
// explicitly skipped iterations and whole disabled tests.
type Summary struct {
	TestFiles int `json:"testFiles"`
	Run       int `json:"run"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Summarize computes Summary from rep.
func Summarize(rep runner.Report) Summary {
	s := Summary{TestFiles: len(rep.Tests)}
	for _, tr := range rep.Tests {
		for _, it := range tr.Iterations {
			switch it.Status {
			case stage.Passed:
				s.Passed++
				s.Run++
			case stage.Failed:
				s.Failed++
				s.Run++
			case stage.Skipped:
				s.Skipped++
			}
		}
	}
	return s
}
