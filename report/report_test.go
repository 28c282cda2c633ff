// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdobler/apitest/runner"
	"github.com/vdobler/apitest/stage"
	"github.com/vdobler/apitest/value"
)

func TestSummarizeCountsByStatus(t *testing.T) {
	rep := runner.Report{
		Tests: []runner.TestResult{
			{
				Definition: stage.Definition{ID: "t1"},
				Iterations: []runner.IterationResult{{Status: stage.Passed}},
			},
			{
				Definition: stage.Definition{ID: "t2"},
				Iterations: []runner.IterationResult{{Status: stage.Failed}},
			},
			{
				Definition: stage.Definition{ID: "t3"},
				Iterations: []runner.IterationResult{{Status: stage.Skipped}},
			},
		},
	}
	s := Summarize(rep)
	assert.Equal(t, 3, s.TestFiles)
	assert.Equal(t, 2, s.Run)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
}

func TestJUnitXMLNestsIterationsUnderTest(t *testing.T) {
	rep := runner.Report{
		Tests: []runner.TestResult{
			{
				Definition: stage.Definition{ID: "t1", Name: "smoke"},
				Iterations: []runner.IterationResult{
					{
						Status: stage.Passed,
						Stages: []stage.StageResult{
							{StageName: "ping", Status: stage.Passed, Validation: value.Good()},
						},
					},
				},
			},
		},
	}
	out, err := JUnitXML(rep)
	require.NoError(t, err)

	var parsed testsuites
	require.NoError(t, xml.Unmarshal(out, &parsed))
	require.Len(t, parsed.Testsuite, 1)
	assert.Equal(t, "smoke", parsed.Testsuite[0].Name)
	require.Len(t, parsed.Testsuite[0].Testsuite, 1)
	assert.Equal(t, "smoke.Iterations.1", parsed.Testsuite[0].Testsuite[0].Name)
	require.Len(t, parsed.Testsuite[0].Testsuite[0].Testcase, 1)
	assert.Equal(t, "stage_0", parsed.Testsuite[0].Testsuite[0].Testcase[0].Name)
}

func TestJUnitXMLRecordsOneFailurePerValidationError(t *testing.T) {
	v := value.Failf("status mismatch")
	v = v.Combine(value.Failf("body mismatch"))

	rep := runner.Report{
		Tests: []runner.TestResult{
			{
				Definition: stage.Definition{ID: "t1"},
				Iterations: []runner.IterationResult{
					{
						Status: stage.Failed,
						Stages: []stage.StageResult{
							{StageName: "check", Status: stage.Failed, Validation: v},
						},
					},
				},
			},
		},
	}
	out, err := JUnitXML(rep)
	require.NoError(t, err)

	var parsed testsuites
	require.NoError(t, xml.Unmarshal(out, &parsed))
	tc := parsed.Testsuite[0].Testsuite[0].Testcase[0]
	require.Len(t, tc.Failures, 2)
	assert.Equal(t, "status mismatch", tc.Failures[0].Message)
	assert.Equal(t, "body mismatch", tc.Failures[1].Message)
}

func TestJUnitXMLBuildFailureRendersAsInitial(t *testing.T) {
	rep := runner.Report{
		Tests: []runner.TestResult{
			{
				Definition: stage.Definition{ID: "t1"},
				Iterations: []runner.IterationResult{
					{
						Status: stage.Failed,
						Stages: []stage.StageResult{
							{Status: stage.Failed, Validation: value.Failf("building request: bad url")},
						},
					},
				},
			},
		},
	}
	out, err := JUnitXML(rep)
	require.NoError(t, err)

	var parsed testsuites
	require.NoError(t, xml.Unmarshal(out, &parsed))
	tc := parsed.Testsuite[0].Testsuite[0].Testcase[0]
	assert.Equal(t, "Initial", tc.Name)
	assert.Equal(t, "Initial", tc.Classname)
}
