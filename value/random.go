// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"math/rand"
	"sync"
)

// random is the source for all randomness used during schema-driven
// generation. Grounded on scope.Random in the teacher: a single seeded
// generator guarded by a mutex so generation stays safe to call from
// more than one goroutine.
var random = rand.New(rand.NewSource(34))
var randomMu sync.Mutex

// randIntn returns a random int in [0,n). n<=0 is treated as 1.
func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	randomMu.Lock()
	defer randomMu.Unlock()
	return random.Intn(n)
}
