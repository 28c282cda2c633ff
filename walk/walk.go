// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package walk recursively collects test files (*.yaml/*.yml) under a
// root directory (spec.md's "recursive directory walking" external
// collaborator). Grounded on ht's own tool commands reading test files
// directly off disk by path; no pack repo wraps filepath.WalkDir in a
// third-party library (afero's virtual filesystem solves a different
// problem - an in-memory/mockable FS - this package has no use for),
// so stdlib is used as-is here.
package walk

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// TestFiles returns every *.yaml/*.yml file under root, sorted for
// deterministic scheduling input order.
func TestFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
