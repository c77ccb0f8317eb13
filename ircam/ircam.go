// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ircam reads 32x24 temperature frames from a thermal camera
// streaming over a serial port.
//
// The device sends one msgpack array per sensor row:
//
//	[frame_seq, row, sample_0, ..., sample_31]
//
// where samples are in hundredths of °C. Rows 0 to 23 of a frame share the
// same frame_seq. Nothing delimits records beyond the msgpack encoding
// itself, so the stream is resynchronized byte by byte after corruption.
//
// Typical sensors are the Melexis MLX90640 connected to a microcontroller
// that forwards the rows at 57600 to 921600 bauds, 8N1.
package ircam

import (
	"fmt"

	"github.com/maruel/go-ircam/thermal"
	"periph.io/x/periph/conn/physic"
)

// Protocol constants.
const (
	// LastRow is the row index that completes a frame.
	LastRow = thermal.Height - 1
	// RecordFields is the number of elements of one msgpack record.
	RecordFields = 2 + thermal.Width
	// centiC converts a raw sample to °C.
	centiC = 0.01
)

// DefaultSpeed is the bit rate used by the reference firmware.
const DefaultSpeed = 460800 * physic.Hertz

// Speeds lists the bit rates supported by the reference firmware.
var Speeds = []physic.Frequency{
	57600 * physic.Hertz,
	115200 * physic.Hertz,
	230400 * physic.Hertz,
	460800 * physic.Hertz,
	921600 * physic.Hertz,
}

// Stats are the counters of an acquisition channel.
type Stats struct {
	LastFail      error // Last transport failure, nil once reads succeed again.
	TransferFails int   // Transport open or read failures.
	Reopens       int   // Transport reopened after a failure.
	BytesRead     int64 //
	GoodRecords   int   // Records decoded.
	InvalidBytes  int   // Bytes skipped while resynchronizing.
	SeqGaps       int   // Records whose row did not follow the previous one.
	GoodFrames    int   // Frames completed with row 23.
	PartialFrames int   // Abandoned frames published as partial.
	DiscardFrames int   // Abandoned frames dropped.
	SkippedFrames int   // Forward jumps of the frame sequence number.
	Resets        int   // Backward jumps of the frame sequence number.
	DroppedFrames int   // Frames overwritten in the handoff slot before being taken.
}

func (s *Stats) String() string {
	return fmt.Sprintf("%d frames %d partial %d dropped %d gaps %d invalid %d fail", s.GoodFrames, s.PartialFrames, s.DroppedFrames, s.SeqGaps, s.InvalidBytes, s.TransferFails)
}
