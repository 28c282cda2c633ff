// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdobler/apitest/cookiejar"
)

func TestDoGETReturnsDecodedJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(`{"name":"Bob"}`))
	}))
	defer srv.Close()

	resp, err := Do(Request{Method: "GET", URL: srv.URL + "/v/1"}, cookiejar.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, map[string]interface{}{"name": "Bob"}, resp.Body)
}

func TestDoNonJSONBodyBecomesNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	resp, err := Do(Request{Method: "GET", URL: srv.URL}, cookiejar.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, resp.Body)
}

func TestDoSendsCookiesMatchingPrefixAndScheme(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotCookie = req.Header.Get("Cookie")
	}))
	defer srv.Close()

	jar := cookiejar.New()
	u, _ := http.NewRequest("GET", srv.URL, nil)
	host := u.URL.Host
	jar.Set(cookiejar.Cookie{Domain: host, Path: "/", Key: "session", Value: "abc", Secure: false})

	_, err := Do(Request{Method: "GET", URL: srv.URL + "/path"}, jar, nil)
	require.NoError(t, err)
	assert.Contains(t, gotCookie, "session=abc")
}

func TestDoObservesSetCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "xyz"})
	}))
	defer srv.Close()

	jar := cookiejar.New()
	_, err := Do(Request{Method: "GET", URL: srv.URL}, jar, nil)
	require.NoError(t, err)

	u, _ := http.NewRequest("GET", srv.URL, nil)
	cookies := jar.For(u.URL.Host, false)
	require.Len(t, cookies, 1)
	assert.Equal(t, "xyz", cookies[0].Value)
}

func TestDoAppliesSecondChanceHeaderResolution(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotHeader = req.Header.Get("X-Trace")
	}))
	defer srv.Close()

	req := Request{
		Method:  "GET",
		URL:     srv.URL,
		Headers: []Header{{Key: "X-Trace", Value: "trace-${ID}", MatchesVariable: true}},
	}
	resolve := func(s string) string {
		if s == "trace-${ID}" {
			return "trace-x1"
		}
		return s
	}
	_, err := Do(req, cookiejar.New(), resolve)
	require.NoError(t, err)
	assert.Equal(t, "trace-x1", gotHeader)
}

func TestDoTransportErrorSurfacedNotPanicked(t *testing.T) {
	resp, err := Do(Request{Method: "GET", URL: "http://127.0.0.1:1/unreachable"}, cookiejar.New(), nil)
	require.NoError(t, err)
	assert.Error(t, resp.Transport)
}

func TestBuildURLAppendsParams(t *testing.T) {
	got := BuildURL("http://svc/item", map[string]string{"q": "1"})
	assert.Equal(t, "http://svc/item?q=1", got)
}

func TestBuildURLNoParamsUnchanged(t *testing.T) {
	assert.Equal(t, "http://svc/item", BuildURL("http://svc/item", nil))
}
