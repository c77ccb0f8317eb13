// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package viewer

import (
	"sync"
	"time"

	"github.com/maruel/go-ircam/capture"
	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/thermal"
)

// StaticPeriod is the rate at which a loaded grid is presented again.
const StaticPeriod = 100 * time.Millisecond

// Static is a Source replaying a single grid, so display changes apply to
// a loaded capture.
type Static struct {
	grid   thermal.Grid
	period time.Duration

	mu   sync.Mutex
	seq  uint32
	next time.Time
}

// NewStatic returns a Source presenting g every StaticPeriod.
func NewStatic(g thermal.Grid) *Static {
	return &Static{grid: g, period: StaticPeriod}
}

// LoadStatic returns a Source presenting the CSV capture at path.
func LoadStatic(path string) (*Static, error) {
	g, err := capture.Load(path)
	if err != nil {
		return nil, err
	}
	return NewStatic(g), nil
}

// TryTake implements Source.
func (s *Static) TryTake(timeout time.Duration) (*ircam.Frame, bool) {
	s.mu.Lock()
	now := time.Now()
	wait := s.next.Sub(now)
	if wait > timeout {
		s.mu.Unlock()
		time.Sleep(timeout)
		return nil, false
	}
	if wait > 0 {
		now = now.Add(wait)
	}
	s.next = now.Add(s.period)
	f := &ircam.Frame{Seq: s.seq, Grid: s.grid}
	s.seq++
	s.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	return f, true
}
