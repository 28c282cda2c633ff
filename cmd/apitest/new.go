// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type newOptions struct {
	full       bool
	multistage bool
	stdout     bool
}

func newNewCommand() *cobra.Command {
	opts := &newOptions{}
	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Scaffold a new test file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return runNew(cmd, name, opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.full, "full", false, "scaffold every optional field with blank values")
	flags.BoolVar(&opts.multistage, "multistage", false, "scaffold a multi-stage test instead of a single request/response")
	flags.BoolVar(&opts.stdout, "stdout", false, "print the template instead of writing a file")
	return cmd
}

func runNew(cmd *cobra.Command, name string, opts *newOptions) error {
	template := simpleTemplate
	switch {
	case opts.full:
		template = fullTemplate(uuid.New().String())
	case opts.multistage:
		template = stagedTemplate
	}

	result := cleanTemplate(template)

	if opts.stdout {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), result)
		return err
	}

	if name == "" {
		return fmt.Errorf("a name is required unless --stdout is given, e.g. apitest new mytest")
	}
	filename := name
	if !strings.HasSuffix(filename, ".jkt") {
		filename += ".jkt"
	}

	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("%q already exists, pick a new name or delete the existing file", filename)
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.WriteFile(filename, []byte(result), 0o644); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "created %q\n", filename)
	return err
}

// cleanTemplate drops the blank-placeholder markers a scaffold
// template carries for fields the user is expected to fill in, the
// same way the original scaffolder strips its "''" and "null"
// placeholder lines before writing the file out.
func cleanTemplate(template string) string {
	template = strings.ReplaceAll(template, "''", "")
	var kept []string
	for _, line := range strings.Split(template, "\n") {
		if strings.Contains(line, "null") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

const simpleTemplate = `id: ''
name: ''
request:
  method: GET
  url: ''
response:
  status: 200
`

const stagedTemplate = `id: ''
name: ''
stages:
  - name: ''
    request:
      method: GET
      url: ''
    response:
      status: 200
`

func fullTemplate(id string) string {
	return `id: ` + id + `
name: ''
description: ''
project: ''
env: ''
tags: []
requires: ''
iterate: 1
disabled: false
variables:
  - name: ''
    source: literal
    literal: ''
setup:
  - name: ''
    request:
      method: GET
      url: ''
      params:
        - param: ''
          value: ''
      headers:
        - header: ''
          value: ''
      body: null
    response:
      status: 200
      headers:
        - header: ''
          value: ''
      ignore: []
      extract:
        - name: ''
          field: ''
stages:
  - name: ''
    request:
      method: GET
      url: ''
    compare:
      method: GET
      url: ''
    response:
      status: 200
      body: null
cleanup:
  onSuccess:
    - name: ''
      request:
        method: DELETE
        url: ''
      response:
        status: 200
  onFailure: []
  always: []
`
}
