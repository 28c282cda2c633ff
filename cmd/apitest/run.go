// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vdobler/apitest/config"
	"github.com/vdobler/apitest/cookiejar"
	"github.com/vdobler/apitest/internal/rlog"
	"github.com/vdobler/apitest/report"
	"github.com/vdobler/apitest/runner"
	"github.com/vdobler/apitest/schedule"
	"github.com/vdobler/apitest/stage"
	"github.com/vdobler/apitest/telemetry"
	"github.com/vdobler/apitest/testfile"
	"github.com/vdobler/apitest/walk"
)

type runOptions struct {
	configPath        string
	tags              []string
	project           string
	environment       string
	dry               bool
	continueOnFailure bool
	junitOut          string
	output            string
	verbose           bool
	telemetryURL      string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run every test file under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", ".jikken", "path to the TOML config file")
	flags.StringSliceVar(&opts.tags, "tag", nil, "only run tests carrying one of these tags (repeatable)")
	flags.StringVar(&opts.project, "project", "", "only run tests whose project matches")
	flags.StringVar(&opts.environment, "env", "", "only run tests whose environment matches")
	flags.BoolVar(&opts.dry, "dry", false, "narrate the run without dispatching any requests")
	flags.BoolVar(&opts.continueOnFailure, "continue-on-failure", false, "keep running after a test fails (overrides the config file)")
	flags.StringVar(&opts.junitOut, "junit", "", "write a JUnit XML report to this file")
	flags.StringVar(&opts.output, "output", "text", "summary format: text or json")
	flags.BoolVar(&opts.verbose, "verbose", false, "log at debug level")
	flags.StringVar(&opts.telemetryURL, "telemetry-url", "", "base URL for best-effort telemetry reporting (disabled when empty)")
	return cmd
}

func runRun(cmd *cobra.Command, paths []string, opts *runOptions) error {
	level := rlog.Info
	if opts.verbose {
		level = rlog.Debug
	}
	log := rlog.New(cmd.ErrOrStderr(), level)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			found, err := walk.TestFiles(p)
			if err != nil {
				return err
			}
			files = append(files, found...)
			continue
		}
		files = append(files, p)
	}

	defs, err := parseTestFiles(cfg, files)
	if err != nil {
		return err
	}

	run, ignore := partition(defs, opts)

	runIDs := make(map[string]bool, len(run))
	for _, d := range run {
		runIDs[d.ID] = true
	}

	batches := schedule.Batches(log, run, ignore)

	policy := runner.Actual
	if opts.dry {
		policy = runner.Dry
	}

	continueOnFailure := cfg.ContinueOnFailure() || opts.continueOnFailure

	var tel runner.Telemetry
	if opts.telemetryURL != "" {
		sink := telemetry.New(opts.telemetryURL, nil)
		sink.Debug = log.Debugf
		sink.Open(version, len(run))
		tel = sink
	}

	runOpts := runner.Options{
		ContinueOnFailure: continueOnFailure,
		Policy:            policy,
		Jar:               cookiejar.New(),
		Log:               log,
		Narrate:           printfWriter{w: cmd.OutOrStdout()},
		Telemetry:         tel,
	}

	rep := runner.Run(batches, runIDs, runOpts)

	if opts.junitOut != "" {
		xmlBytes, err := report.JUnitXML(rep)
		if err != nil {
			return fmt.Errorf("rendering junit report: %w", err)
		}
		if err := os.WriteFile(opts.junitOut, xmlBytes, 0o644); err != nil {
			return fmt.Errorf("writing junit report %q: %w", opts.junitOut, err)
		}
	}

	summary := report.Summarize(rep)
	if err := printSummary(cmd, opts.output, summary); err != nil {
		return err
	}

	if rep.AnyFailures {
		return fmt.Errorf("%d test(s) failed", summary.Failed)
	}
	return nil
}

// partition splits the parsed definitions into the set to actually
// run (matching every active filter) and the set kept only to satisfy
// a requires edge from a running test.
func partition(defs []stage.Definition, opts *runOptions) (run, ignore []stage.Definition) {
	wantTag := make(map[string]bool, len(opts.tags))
	for _, t := range opts.tags {
		wantTag[t] = true
	}
	for _, d := range defs {
		if matchesFilters(d, wantTag, opts.project, opts.environment) {
			run = append(run, d)
		} else {
			ignore = append(ignore, d)
		}
	}
	return run, ignore
}

func matchesFilters(d stage.Definition, wantTag map[string]bool, project, environment string) bool {
	if len(wantTag) > 0 {
		found := false
		for _, t := range d.Tags {
			if wantTag[t] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if project != "" && d.Project != project {
		return false
	}
	if environment != "" && d.Environment != environment {
		return false
	}
	return true
}

func parseTestFiles(cfg config.Config, files []string) ([]stage.Definition, error) {
	defs := make([]stage.Definition, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", f, err)
		}
		substituted := cfg.SubstituteGlobals(string(data))
		def, err := testfile.Parse([]byte(substituted), filepath.Base(f))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", f, err)
		}
		def.Filename = f
		defs = append(defs, def)
	}
	return defs, nil
}

func printSummary(cmd *cobra.Command, format string, s report.Summary) error {
	switch format {
	case "json":
		return printJSONSummary(cmd, s)
	default:
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d test file(s), %d run, %d passed, %d failed, %d skipped\n",
			s.TestFiles, s.Run, s.Passed, s.Failed, s.Skipped)
		return err
	}
}

func printJSONSummary(cmd *cobra.Command, s report.Summary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

type printfWriter struct {
	w io.Writer
}

func (p printfWriter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
