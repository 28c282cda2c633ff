// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatch builds and sends the HTTP request for one stage
// (spec.md §4.5): cookie attachment, header/param substitution,
// dispatch over net/http, and Set-Cookie capture back into the jar.
// Grounded on ht.go's newRequest/executeRequest request-building and
// response-reading; uses net/http directly as the teacher does rather
// than a third-party client.
package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vdobler/apitest/cookiejar"
)

// DefaultTimeout mirrors the teacher's DefaultClientTimeout.
const DefaultTimeout = 10 * time.Second

// Client is the HTTP client used for dispatch; tests may replace it
// with one pointed at an httptest.Server.
var Client = &http.Client{Timeout: DefaultTimeout}

// Request is a fully resolved request ready to dispatch.
type Request struct {
	Method  string
	URL     string
	Headers []Header
	Body    json.RawMessage
}

// Header is a resolved header, plus a flag recording whether its
// descriptor's Value contained a ${name} token. Do passes every
// header's Value through its Resolver whether or not the flag is set.
type Header struct {
	Key             string
	Value           string
	MatchesVariable bool
}

// Response is a dispatched request's outcome: status, headers and the
// JSON-decoded body (nil if the body was empty or not valid JSON, per
// spec.md's "non-JSON response bodies are treated as null").
type Response struct {
	Status     int
	Headers    http.Header
	Body       interface{}
	RawBody    []byte
	Transport  error
}

// Resolver is the dispatcher's "second chance" substitution (spec.md
// §4.5 step 4): Do applies it to the Value of every header in
// Request.Headers just before sending. Cookie headers taken from the
// jar are not passed through it.
type Resolver func(text string) string

// Do builds and sends the request described by r against jar,
// returning its response. Cookie attachment, Content-Type/Length and
// the header second-chance substitution all happen here, per
// spec.md §4.5.
func Do(r Request, jar *cookiejar.Jar, resolve Resolver) (Response, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return Response{}, fmt.Errorf("parsing url %q: %w", r.URL, err)
	}

	prefix := strings.ToLower(u.Scheme + "://" + u.Host)
	isSecure := strings.EqualFold(u.Scheme, "https")

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequest(method, r.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w", err)
	}

	if len(r.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.ContentLength = int64(len(r.Body))
	} else {
		httpReq.ContentLength = 0
	}

	for _, h := range r.Headers {
		v := h.Value
		if resolve != nil {
			v = resolve(v)
		}
		httpReq.Header.Add(h.Key, v)
	}

	for _, c := range jar.For(prefix, isSecure) {
		httpReq.Header.Add("Cookie", c.Key+"="+c.Value)
	}

	resp, err := Client.Do(httpReq)
	if err != nil {
		return Response{Transport: err}, nil
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)

	jar.ObserveResponse(u, resp)

	out := Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		RawBody: raw,
	}
	if readErr == nil && len(raw) > 0 {
		var decoded interface{}
		if json.Unmarshal(raw, &decoded) == nil {
			out.Body = decoded
		}
	}
	return out, nil
}

// BuildURL appends resolved query params to base, URL-encoding them.
func BuildURL(base string, params map[string]string) string {
	if len(params) == 0 {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// CoerceStatus turns an HTTP status line's numeric code into a string,
// used when a resolved variable needs to carry a status for logging.
func CoerceStatus(code int) string {
	return strconv.Itoa(code)
}
