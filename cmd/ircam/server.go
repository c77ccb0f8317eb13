// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/maruel/go-ircam/capture"
	"github.com/maruel/go-ircam/viewer"
	"github.com/maruel/interrupt"
	"github.com/maruel/serve-dir/loghttp"
	"golang.org/x/net/websocket"
)

//go:embed static/root.html
var rootHTML []byte

// WebServer exposes the viewer over HTTP.
type WebServer struct {
	v         *viewer.Viewer
	onCommand func() // Called after the settings were changed by an operator.

	cond  *sync.Cond
	snap  *viewer.Snapshot
	count int // Number of snapshots received.
}

// AddSnapshot wakes up the streams.
func (s *WebServer) AddSnapshot(snap *viewer.Snapshot) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.snap = snap
	s.count++
	s.cond.Broadcast()
}

// StartWebServer listens on addr in the background.
func StartWebServer(addr string, v *viewer.Viewer, onCommand func()) (*WebServer, error) {
	s := newWebServer(v, onCommand)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Listening on %s\n", ln.Addr())
	go http.Serve(ln, s.handler())
	go func() {
		<-interrupt.Channel
		s.cond.L.Lock()
		s.cond.Broadcast()
		s.cond.L.Unlock()
	}()
	return s, nil
}

func newWebServer(v *viewer.Viewer, onCommand func()) *WebServer {
	return &WebServer{v: v, onCommand: onCommand, cond: sync.NewCond(&sync.Mutex{})}
}

func (s *WebServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/still.png", s.still)
	mux.HandleFunc("/mask.png", s.mask)
	mux.HandleFunc("/data.csv", s.data)
	mux.HandleFunc("/settings", s.settings)
	mux.HandleFunc("/command", s.command)
	mux.HandleFunc("/capture", s.capture)
	// The websocket hijacks the connection so it bypasses the access log.
	top := http.NewServeMux()
	top.Handle("/stream", websocket.Handler(s.stream))
	top.Handle("/", &loghttp.Handler{Handler: mux})
	return top
}

func (s *WebServer) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(rootHTML)
}

func (s *WebServer) still(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, snap.Image); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// mask returns the smoothed contour mask, only available in debug mode.
func (s *WebServer) mask(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	m := snap.Overlay.HotMask
	if r.FormValue("band") == "cold" {
		m = snap.Overlay.ColdMask
	}
	if m == nil {
		http.Error(w, "Enable contours and debug mode", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, m); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) data(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := capture.WriteCSV(w, &snap.Grid); err != nil {
		log.Printf("data.csv: %v", err)
	}
}

func (s *WebServer) settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		n := s.v.Settings()
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.v.SetSettings(n); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.changed()
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.v.Settings())
}

// command applies an operator key, the same ones as listed in the help.
func (s *WebServer) command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.v.Command(r.FormValue("key")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.changed()
	writeJSON(w, s.v.Settings())
}

func (s *WebServer) capture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.v.Capture()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"path": p})
}

// stream sends every snapshot as WebSocket frames.
//
// Slow clients skip snapshots.
func (s *WebServer) stream(w *websocket.Conn) {
	log.Printf("websocket from %s", w.Request().RemoteAddr)
	defer w.Close()
	last := 0
	buf := &bytes.Buffer{}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	for {
		for !interrupt.IsSet() && last == s.count {
			s.cond.Wait()
		}
		if interrupt.IsSet() {
			return
		}
		last = s.count
		snap := s.snap
		s.cond.L.Unlock()
		// Do the actual I/O without the lock.
		err := sendSnapshot(w, buf, snap)
		s.cond.L.Lock()
		if err != nil {
			log.Printf("websocket err: %s", err)
			return
		}
	}
}

// Private details.

func (s *WebServer) snapshot(w http.ResponseWriter) *viewer.Snapshot {
	snap := s.v.Snapshot()
	if snap == nil {
		http.Error(w, "No frame yet", http.StatusServiceUnavailable)
	}
	return snap
}

func (s *WebServer) changed() {
	if s.onCommand != nil {
		s.onCommand()
	}
}

func sendSnapshot(w *websocket.Conn, buf *bytes.Buffer, snap *viewer.Snapshot) error {
	// Frame I is for Image.
	buf.Reset()
	buf.WriteByte('I')
	encoder := base64.NewEncoder(base64.StdEncoding, buf)
	if err := png.Encode(encoder, snap.Image); err != nil {
		return err
	}
	encoder.Close()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	// Frame M is for Metadata.
	buf.Reset()
	buf.WriteByte('M')
	if err := json.NewEncoder(buf).Encode(&snap.Summary); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json: %v", err)
	}
}
