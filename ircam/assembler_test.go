// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ircam_test

import (
	"testing"

	"github.com/maruel/go-ircam/ircam"
)

func TestAssembler(t *testing.T) {
	a := ircam.NewAssembler(ircam.PublishPartial)
	var frames []*ircam.Frame
	for _, r := range frameRecords(3, 2000) {
		frames = a.Push(frames, r)
	}
	if len(frames) != 1 {
		t.Fatal(len(frames))
	}
	f := frames[0]
	if f.Seq != 3 || f.Partial {
		t.Fatal(f.Seq, f.Partial)
	}
	if got, want := f.Grid[5][2], centi(2000+5*100+2); got != want {
		t.Fatal(got, want)
	}
	s := a.Stats()
	if s.GoodFrames != 1 || s.GoodRecords != 24 || s.SeqGaps != 0 {
		t.Fatalf("%+v", s)
	}
}

func TestAssembler_deterministic(t *testing.T) {
	var records []ircam.Record
	for seq := uint32(0); seq < 4; seq++ {
		for _, r := range frameRecords(seq, int32(seq)*300) {
			if seq == 1 && r.Row == 7 || seq == 2 && r.Row > 15 {
				continue
			}
			records = append(records, r)
		}
	}
	var out [2][]*ircam.Frame
	for i := range out {
		a := ircam.NewAssembler(ircam.PublishPartial)
		for _, r := range records {
			out[i] = a.Push(out[i], r)
		}
	}
	if len(out[0]) != 4 || len(out[0]) != len(out[1]) {
		t.Fatal(len(out[0]), len(out[1]))
	}
	for i := range out[0] {
		if *out[0][i] != *out[1][i] {
			t.Fatalf("#%d differs", i)
		}
	}
	if !out[0][2].Partial || out[0][2].Seq != 2 {
		t.Fatal(out[0][2].Seq, out[0][2].Partial)
	}
}

func TestAssembler_stale_row(t *testing.T) {
	a := ircam.NewAssembler(ircam.PublishPartial)
	var frames []*ircam.Frame
	for _, r := range frameRecords(0, 1000) {
		frames = a.Push(frames, r)
	}
	for _, r := range frameRecords(1, 5000) {
		if r.Row == 5 {
			continue
		}
		frames = a.Push(frames, r)
	}
	if len(frames) != 2 {
		t.Fatal(len(frames))
	}
	f := frames[1]
	if f.Seq != 1 || f.Partial {
		t.Fatal(f.Seq, f.Partial)
	}
	// Row 5 keeps the values of frame 0.
	if got, want := f.Grid[5][0], centi(1000+5*100); got != want {
		t.Fatal(got, want)
	}
	if got, want := f.Grid[6][0], centi(5000+6*100); got != want {
		t.Fatal(got, want)
	}
	// The previously published frame is not modified.
	if got, want := frames[0].Grid[6][0], centi(1000+6*100); got != want {
		t.Fatal(got, want)
	}
	if s := a.Stats(); s.SeqGaps != 1 || s.GoodFrames != 2 {
		t.Fatalf("%+v", s)
	}
}

func TestAssembler_partial(t *testing.T) {
	data := []struct {
		policy  ircam.PartialPolicy
		frames  int
		partial int
		discard int
	}{
		{ircam.PublishPartial, 2, 1, 0},
		{ircam.DiscardPartial, 1, 0, 1},
	}
	for _, line := range data {
		a := ircam.NewAssembler(line.policy)
		var frames []*ircam.Frame
		for _, r := range frameRecords(0, 0)[:10] {
			frames = a.Push(frames, r)
		}
		if len(frames) != 0 {
			t.Fatal(len(frames))
		}
		for _, r := range frameRecords(1, 0) {
			frames = a.Push(frames, r)
		}
		if len(frames) != line.frames {
			t.Fatalf("%d: %d", line.policy, len(frames))
		}
		if line.partial != 0 && (!frames[0].Partial || frames[0].Seq != 0) {
			t.Fatalf("%d: %d %t", line.policy, frames[0].Seq, frames[0].Partial)
		}
		if last := frames[len(frames)-1]; last.Seq != 1 || last.Partial {
			t.Fatalf("%d: %d %t", line.policy, last.Seq, last.Partial)
		}
		s := a.Stats()
		if s.PartialFrames != line.partial || s.DiscardFrames != line.discard || s.GoodFrames != 1 {
			t.Fatalf("%d: %+v", line.policy, s)
		}
	}
}

func TestAssembler_seq_jumps(t *testing.T) {
	a := ircam.NewAssembler(ircam.PublishPartial)
	var frames []*ircam.Frame
	for _, seq := range []uint32{10, 11, 15, 2, 3} {
		for _, r := range frameRecords(seq, 0) {
			frames = a.Push(frames, r)
		}
	}
	if len(frames) != 5 {
		t.Fatal(len(frames))
	}
	s := a.Stats()
	if s.SkippedFrames != 1 || s.Resets != 1 || s.SeqGaps != 0 || s.PartialFrames != 0 {
		t.Fatalf("%+v", s)
	}
}

//

// frameRecords returns the 24 records of a frame, with sample x of row y
// set to base+100*y+x.
func frameRecords(seq uint32, base int32) []ircam.Record {
	out := make([]ircam.Record, 24)
	for y := range out {
		out[y] = record(seq, uint8(y), base+int32(100*y))
	}
	return out
}

func centi(v int32) float32 {
	return float32(v) * 0.01
}
