// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ircam

import (
	"log"

	"github.com/maruel/go-ircam/thermal"
)

// PartialPolicy decides what happens to a frame abandoned before its last
// row, when a record of another frame arrives.
type PartialPolicy int

// Valid values for PartialPolicy.
const (
	// PublishPartial publishes the abandoned frame with Frame.Partial set, if
	// at least one of its rows was received.
	PublishPartial PartialPolicy = iota
	// DiscardPartial drops the abandoned frame.
	DiscardPartial
)

// Assembler reduces a stream of records into frames.
//
// Rows missing from a frame keep the value last written for that row, from
// a previous frame. The same records always produce the same frames.
type Assembler struct {
	Policy PartialPolicy

	grid    thermal.Grid
	seq     uint32 // In-progress or next expected frame sequence number.
	started bool   // A record was received.
	lastRow int    // Last row written, or -1 right after a completed frame.
	rows    int    // Rows written for the in-progress frame.
	stats   Stats
}

// NewAssembler returns an Assembler with the given policy.
func NewAssembler(p PartialPolicy) *Assembler {
	return &Assembler{Policy: p, lastRow: -1}
}

// Push folds r into the in-progress frame and appends any frame it
// publishes to dst.
//
// At most two frames are appended: the abandoned previous frame and the
// frame completed by r.
func (a *Assembler) Push(dst []*Frame, r Record) []*Frame {
	a.stats.GoodRecords++
	if !a.started {
		a.started = true
		a.seq = r.Seq
	} else if r.Seq != a.seq {
		if a.rows != 0 {
			dst = a.abandon(dst)
		} else if r.Seq > a.seq {
			a.stats.SkippedFrames++
			log.Printf("skipped frames %d to %d", a.seq, r.Seq-1)
		} else {
			a.stats.Resets++
			log.Printf("reset: frame %d after %d", r.Seq, a.seq-1)
		}
		a.seq = r.Seq
		a.lastRow = -1
		a.rows = 0
	}

	row := int(r.Row)
	line := &a.grid[row]
	for i, v := range r.Samples {
		line[i] = float32(v) * centiC
	}
	if row != (a.lastRow+1)%thermal.Height {
		a.stats.SeqGaps++
		log.Printf("missing row: got %d of frame %d, expected %d", row, r.Seq, (a.lastRow+1)%thermal.Height)
	}
	a.lastRow = row
	a.rows++

	if row == LastRow {
		a.stats.GoodFrames++
		dst = append(dst, &Frame{Seq: r.Seq, Grid: a.grid})
		a.seq = r.Seq + 1
		a.lastRow = -1
		a.rows = 0
	}
	return dst
}

// Stats returns the record and frame counters.
func (a *Assembler) Stats() Stats {
	return a.stats
}

func (a *Assembler) abandon(dst []*Frame) []*Frame {
	if a.Policy == PublishPartial {
		a.stats.PartialFrames++
		log.Printf("partial frame %d: %d rows", a.seq, a.rows)
		return append(dst, &Frame{Seq: a.seq, Partial: true, Grid: a.grid})
	}
	a.stats.DiscardFrames++
	log.Printf("discarded frame %d: %d rows", a.seq, a.rows)
	return dst
}
