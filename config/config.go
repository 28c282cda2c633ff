// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads the run's TOML configuration file (spec.md
// §6's ".jikken" file): continueOnFailure/apiKey settings and a table
// of global variables applied as "#KEY#" substitutions before a test
// file is parsed as YAML. Grounded on
// original_source/src/config.rs/config_settings.rs's Settings/Config
// shape, decoded here with pelletier/go-toml/v2 the way the teacher's
// ht package favors a dedicated third-party decoder over hand-rolled
// parsing for its own structured formats.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Settings holds the run-wide behavior flags a config file may set.
type Settings struct {
	ContinueOnFailure *bool   `toml:"continueOnFailure"`
	APIKey            *string `toml:"apiKey"`
}

// Config is the parsed ".jikken" file. A nil Settings or Globals means
// the file omitted that table entirely; callers should apply their
// own defaults.
type Config struct {
	Settings *Settings         `toml:"settings"`
	Globals  map[string]string `toml:"globals"`
}

// Default returns the zero-value configuration used when no config
// file is present: continueOnFailure defaults to false, no api key,
// no globals.
func Default() Config {
	return Config{}
}

// Load reads and parses the TOML file at path. A missing file is not
// an error: it returns Default(), since an absent config file means
// "use defaults" per spec.md §6.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// ContinueOnFailure reports the effective continueOnFailure flag,
// defaulting to false when the config or its settings table is absent.
func (c Config) ContinueOnFailure() bool {
	if c.Settings == nil || c.Settings.ContinueOnFailure == nil {
		return false
	}
	return *c.Settings.ContinueOnFailure
}

// APIKey reports the configured API key, or "" when absent.
func (c Config) APIKey() string {
	if c.Settings == nil || c.Settings.APIKey == nil {
		return ""
	}
	return *c.Settings.APIKey
}

// SubstituteGlobals replaces every "#KEY#" token in text with the
// matching entry from c.Globals, applied prior to YAML parsing of a
// test file (spec.md §6's "Variable token" section). Unknown keys are
// left untouched, matching #KEY# tokens with no configured global
// being inert rather than an error.
func (c Config) SubstituteGlobals(text string) string {
	if len(c.Globals) == 0 {
		return text
	}
	pairs := make([]string, 0, len(c.Globals)*2)
	for k, v := range c.Globals {
		pairs = append(pairs, "#"+k+"#", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
