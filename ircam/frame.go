// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ircam

import (
	"github.com/maruel/go-ircam/thermal"
)

// Record is one decoded protocol unit, a single row of one frame.
type Record struct {
	Seq     uint32
	Row     uint8                // [0, 23]
	Samples [thermal.Width]int32 // Hundredths of °C.
}

// Frame is one assembled temperature snapshot.
//
// A published Frame is never modified.
type Frame struct {
	Seq     uint32
	Partial bool // The frame was abandoned before row 23 was received.
	Grid    thermal.Grid
}
