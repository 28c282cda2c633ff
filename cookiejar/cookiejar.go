// Copyright 2015 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cookiejar implements the two-level domain+path keyed cookie
// store spec.md §3/§4.5/§9 calls for. Unlike net/http/cookiejar this
// jar exposes the per-entry Secure flag the dispatcher needs to decide
// whether a cookie may be attached to a given request, and keys
// entries by the exact "domain+path" string the response declared
// rather than RFC 6265 domain-matching rules. Grounded on how the
// teacher's ht.go consumes a jar (SetCookies/Cookies by URL) and
// cookie.go's cookie-matching checks, reimplemented against the
// pack's cookie-jar entries since the teacher's own fork of
// net/http/cookiejar was not part of the retrieved sources.
package cookiejar

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Cookie is one stored cookie.
type Cookie struct {
	Domain string
	Path   string
	Key    string
	Value  string
	Secure bool
}

// Jar is a two-level domain+path -> name -> Cookie store, safe for
// concurrent use (telemetry and the run loop never touch it
// concurrently today, but cookies are read by the dispatcher and
// written by response handling on the same goroutine in this single
// threaded runner; the lock is cheap insurance, not a guarantee this
// package's caller relies on).
type Jar struct {
	mu      sync.Mutex
	entries map[string]map[string]Cookie
}

// New returns an empty Jar.
func New() *Jar {
	return &Jar{entries: make(map[string]map[string]Cookie)}
}

func domainPathKey(domain, path string) string {
	if path == "" {
		path = "/"
	}
	return strings.ToLower(domain) + path
}

// Set inserts c, or updates the value of an existing entry with the
// same domain+path+name while preserving its domain/path/secure flags.
func (j *Jar) Set(c Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	k := domainPathKey(c.Domain, c.Path)
	names := j.entries[k]
	if names == nil {
		names = make(map[string]Cookie)
		j.entries[k] = names
	}
	if existing, ok := names[c.Key]; ok {
		existing.Value = c.Value
		names[c.Key] = existing
		return
	}
	names[c.Key] = c
}

// ObserveResponse records every Set-Cookie header on resp, received
// while requesting reqURL, defaulting an unset Domain/Path to the
// request's host/path.
func (j *Jar) ObserveResponse(reqURL *url.URL, resp *http.Response) {
	for _, c := range resp.Cookies() {
		domain := c.Domain
		if domain == "" {
			domain = reqURL.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		j.Set(Cookie{
			Domain: domain,
			Path:   path,
			Key:    c.Name,
			Value:  c.Value,
			Secure: c.Secure,
		})
	}
}

// For returns every stored cookie whose domain+path key is a
// case-insensitive prefix of urlPrefix (the request's lowercased
// scheme+host, see package dispatch) and whose Secure flag matches
// isSecure exactly (spec.md §4.5: "XOR must be false").
func (j *Jar) For(urlPrefix string, isSecure bool) []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	lowerPrefix := strings.ToLower(urlPrefix)
	var out []Cookie
	for domainPath, names := range j.entries {
		if !strings.HasPrefix(lowerPrefix, strings.ToLower(domainPath)) {
			continue
		}
		for _, c := range names {
			if c.Secure == isSecure {
				out = append(out, c)
			}
		}
	}
	return out
}
