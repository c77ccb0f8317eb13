// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package viewer consumes assembled frames: it filters them, computes the
// display range and renders them, keeping the latest result for readers.
package viewer

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/maruel/go-ircam/capture"
	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/render"
	"github.com/maruel/go-ircam/thermal"
	"gonum.org/v1/gonum/stat"
	"periph.io/x/periph/conn/physic"
)

// PollPeriod is the delay the viewer waits for a frame on each iteration.
const PollPeriod = 10 * time.Millisecond

// Source provides frames to the viewer.
//
// *ircam.Handle implements it.
type Source interface {
	TryTake(timeout time.Duration) (*ircam.Frame, bool)
}

// Summary is the per frame information published alongside the image.
type Summary struct {
	Seq      uint32
	Time     time.Time
	Partial  bool
	Min      float32
	Max      float32
	Mean     float32
	MinCell  image.Point
	MaxCell  image.Point
	RangeMin float32
	RangeMax float32
}

func (s *Summary) String() string {
	return fmt.Sprintf("#%d min %s max %s mean %s", s.Seq, Temperature(s.Min), Temperature(s.Max), Temperature(s.Mean))
}

// Temperature converts a value in °C.
func Temperature(c float32) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(float64(c)*float64(physic.Celsius))
}

// Snapshot is a rendered frame. It is never modified once returned.
type Snapshot struct {
	Image   *image.RGBA
	Grid    thermal.Grid // As displayed: filtered and mirrored.
	Overlay *render.Overlay
	Summary Summary
}

// Viewer is the consumer side of the pipeline.
//
// Process and Run must be called from a single goroutine, which owns the
// filter state. The other methods are safe for concurrent use.
type Viewer struct {
	CaptureDir string

	filter *thermal.Filter

	mu        sync.Mutex
	settings  Settings
	last      *thermal.Grid // Last displayed filtered grid, before mirroring.
	lastFrame ircam.Frame
	snap      *Snapshot
	listeners []func(*Snapshot)
	rejected  int
}

// New returns a viewer with the given settings.
func New(s Settings) (*Viewer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Viewer{
		CaptureDir: "capture",
		filter:     thermal.NewFilter(s.Threshold),
		settings:   s,
	}, nil
}

// Settings returns the current settings.
func (v *Viewer) Settings() Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings
}

// SetSettings replaces the settings.
//
// Invalid settings are rejected and the current ones are kept. The last
// displayed frame is rendered again with the new settings.
func (v *Viewer) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	v.settings = s
	v.mu.Unlock()
	v.refresh()
	return nil
}

// OnSnapshot registers fn to be called with every new snapshot.
//
// fn is called from the goroutine rendering the frame and must not block.
func (v *Viewer) OnSnapshot(fn func(*Snapshot)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// Snapshot returns the latest rendered frame, or nil if none was rendered
// yet.
func (v *Viewer) Snapshot() *Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Rejected returns the number of frames dropped because their grid was
// invalid.
func (v *Viewer) Rejected() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rejected
}

// Process folds f into the filter and, unless paused, renders it.
//
// A frame with an invalid grid is rejected before any processing; the
// previous snapshot is kept.
func (v *Viewer) Process(f *ircam.Frame) error {
	if err := f.Grid.Validate(); err != nil {
		v.mu.Lock()
		v.rejected++
		v.mu.Unlock()
		log.Printf("viewer: dropping frame %d: %v", f.Seq, err)
		return err
	}
	v.mu.Lock()
	s := v.settings
	v.mu.Unlock()
	if s.Threshold != v.filter.Threshold() {
		// Validated by SetSettings.
		_ = v.filter.SetThreshold(s.Threshold)
	}
	g := v.filter.Apply(&f.Grid)
	if s.Paused {
		return nil
	}
	v.mu.Lock()
	v.last = &g
	v.lastFrame = ircam.Frame{Seq: f.Seq, Partial: f.Partial}
	v.mu.Unlock()
	v.show(&g, f.Seq, f.Partial, &s)
	return nil
}

// Run processes frames from src until stop is closed.
func (v *Viewer) Run(src Source, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if f, ok := src.TryTake(PollPeriod); ok {
			_ = v.Process(f)
		}
	}
}

// Command applies an operator key.
//
// Keys are the ones listed in render.HelpTable. The capture key saves the
// current snapshot in CaptureDir.
func (v *Viewer) Command(key string) error {
	v.mu.Lock()
	s := v.settings
	doCapture, err := s.apply(key)
	if err == nil {
		v.settings = s
	}
	v.mu.Unlock()
	if err != nil {
		return err
	}
	if doCapture {
		p, err := v.Capture()
		if err != nil {
			return err
		}
		log.Printf("viewer: saved %s", p)
		return nil
	}
	v.refresh()
	return nil
}

// Capture saves the current snapshot as PNG and CSV and returns the path
// of the image.
func (v *Viewer) Capture() (string, error) {
	snap := v.Snapshot()
	if snap == nil {
		return "", fmt.Errorf("viewer: nothing to capture")
	}
	return capture.Save(v.CaptureDir, time.Now(), snap.Image, &snap.Grid)
}

// Private details.

// refresh renders the last displayed frame again with the current settings.
func (v *Viewer) refresh() {
	v.mu.Lock()
	s := v.settings
	last := v.last
	f := v.lastFrame
	v.mu.Unlock()
	if last != nil {
		v.show(last, f.Seq, f.Partial, &s)
	}
}

func (v *Viewer) show(filtered *thermal.Grid, seq uint32, partial bool, s *Settings) {
	g := *filtered
	if s.Mirror {
		g = filtered.Mirror()
	}
	o, err := s.Options()
	if err != nil {
		log.Printf("viewer: %v", err)
		return
	}
	e := thermal.FindExtremes(&g)
	r := thermal.ResolveRange(e.Min, e.Max, s.Range)
	img, ov := render.Render(&g, r, &o)
	snap := &Snapshot{
		Image:   img,
		Grid:    g,
		Overlay: ov,
		Summary: Summary{
			Seq:      seq,
			Time:     time.Now(),
			Partial:  partial,
			Min:      e.Min,
			Max:      e.Max,
			Mean:     float32(stat.Mean(g.Float64s(), nil)),
			MinCell:  e.MinCell,
			MaxCell:  e.MaxCell,
			RangeMin: r.Min,
			RangeMax: r.Max,
		},
	}
	v.mu.Lock()
	v.snap = snap
	listeners := v.listeners
	v.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
