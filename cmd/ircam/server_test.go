// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestWebServer(t *testing.T) {
	s, v, changed := newTestServer(t)
	h := s.handler()

	w := do(h, "GET", "/still.png", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(h, "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/stream")
	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/foo", "").Code)

	require.NoError(t, v.Process(testFrame(1)))
	w = do(h, "GET", "/still.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())

	w = do(h, "GET", "/data.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 24)
	assert.Len(t, strings.Split(lines[0], ","), 32)

	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/mask.png", "").Code)
	assert.Equal(t, 0, *changed)
}

func TestWebServer_command(t *testing.T) {
	s, v, changed := newTestServer(t)
	h := s.handler()
	require.NoError(t, v.Process(testFrame(1)))

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, "GET", "/command?key=m", "").Code)
	w := do(h, "POST", "/command", "key=m")
	require.Equal(t, http.StatusOK, w.Code)
	var got viewer.Settings
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Hot", got.Palette)
	assert.Equal(t, 1, *changed)

	assert.Equal(t, http.StatusBadRequest, do(h, "POST", "/command", "key=z").Code)
	assert.Equal(t, 1, *changed)

	for _, k := range []string{"t", "b"} {
		require.Equal(t, http.StatusOK, do(h, "POST", "/command", "key="+k).Code)
	}
	w = do(h, "GET", "/mask.png?band=cold", "")
	require.Equal(t, http.StatusOK, w.Code)
	_, err := png.Decode(w.Body)
	require.NoError(t, err)

	w = do(h, "POST", "/settings", `{"Palette": "Bone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(h, "POST", "/settings", `{"Resolution": "800x600"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "800x600", v.Settings().Resolution)
	assert.Equal(t, "Hot", v.Settings().Palette)
	assert.Equal(t, 800, v.Snapshot().Image.Bounds().Dx())
	assert.Equal(t, 4, *changed)

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, "GET", "/capture", "").Code)
	w = do(h, "POST", "/capture", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ircam_")
}

func TestWebServer_stream(t *testing.T) {
	s, v, _ := newTestServer(t)
	v.OnSnapshot(s.AddSnapshot)
	require.NoError(t, v.Process(testFrame(42)))
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()
	var msg string
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	require.True(t, strings.HasPrefix(msg, "I"))
	data, err := base64.StdEncoding.DecodeString(msg[1:])
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dy())

	require.NoError(t, websocket.Message.Receive(ws, &msg))
	require.True(t, strings.HasPrefix(msg, "M"))
	var sum viewer.Summary
	require.NoError(t, json.Unmarshal([]byte(msg[1:]), &sum))
	assert.Equal(t, uint32(42), sum.Seq)

	// The next snapshot is pushed.
	require.NoError(t, v.Process(testFrame(43)))
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	require.NoError(t, json.Unmarshal([]byte(msg[1:]), &sum))
	assert.Equal(t, uint32(43), sum.Seq)
}

func newTestServer(t *testing.T) (*WebServer, *viewer.Viewer, *int) {
	st := viewer.DefaultSettings()
	st.Resolution = "480x320"
	v, err := viewer.New(st)
	require.NoError(t, err)
	v.CaptureDir = t.TempDir()
	changed := new(int)
	return newWebServer(v, func() { *changed++ }), v, changed
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if method == "POST" && !strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func testFrame(seq uint32) *ircam.Frame {
	f := &ircam.Frame{Seq: seq}
	for y := range f.Grid {
		for x := range f.Grid[y] {
			f.Grid[y][x] = 20 + float32(x+y)/4
		}
	}
	return f
}
