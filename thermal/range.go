// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinSpan is the smallest display range, in °C.
const MinSpan = 0.1

// Manual display bounds must be within [MinTemp, MaxTemp], in °C.
const (
	MinTemp = -273.15
	MaxTemp = 10000
)

// Range is the temperature range mapped to the palette.
type Range struct {
	Min float32
	Max float32
}

// Span returns Max - Min.
func (r Range) Span() float32 {
	return r.Max - r.Min
}

// Bound is one end of the display range.
type Bound struct {
	Auto   bool    // Follow the frame statistic plus headroom.
	Manual float32 // Used when Auto is false.
}

// RangeSettings selects how each bound of the display range is determined.
type RangeSettings struct {
	Min      Bound
	Max      Bound
	Headroom float32 // Margin added beyond the observed extremes in auto mode.
}

// DefaultRangeSettings returns auto ranging on both bounds with 1°C headroom.
func DefaultRangeSettings() RangeSettings {
	return RangeSettings{
		Min:      Bound{Auto: true, Manual: 10},
		Max:      Bound{Auto: true, Manual: 40},
		Headroom: 1,
	}
}

// ResolveRange returns the display range for a frame with the given
// extremes.
//
// The returned range spans at least MinSpan, or one float32 step when Min is
// too large for MinSpan to be representable; a degenerate or inverted range
// is widened upward from Min.
func ResolveRange(gridMin, gridMax float32, s RangeSettings) Range {
	r := Range{Min: s.Min.Manual, Max: s.Max.Manual}
	if s.Min.Auto {
		r.Min = gridMin - s.Headroom
	}
	if s.Max.Auto {
		r.Max = gridMax + s.Headroom
	}
	if !(r.Max-r.Min >= MinSpan) {
		r.Max = r.Min + MinSpan
	}
	if !(r.Max > r.Min) {
		r.Max = math.Nextafter32(r.Min, float32(math.Inf(1)))
	}
	return r
}

// Normalize maps each temperature into [0, 1] relative to r.
//
// Values outside r saturate.
func Normalize(g *Grid, r Range) Grid {
	var out Grid
	span := r.Max - r.Min
	for y := range g {
		for x := range g[y] {
			v := (g[y][x] - r.Min) / span
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			out[y][x] = v
		}
	}
	return out
}

// Extremes describes the coldest and hottest cells of a grid.
type Extremes struct {
	Min     float32
	Max     float32
	MinCell image.Point // First occurrence in row-major order.
	MaxCell image.Point
}

// Span returns Max - Min.
func (e Extremes) Span() float32 {
	return e.Max - e.Min
}

// FindExtremes returns the extremes of g.
func FindExtremes(g *Grid) Extremes {
	v := g.Float64s()
	lo := floats.MinIdx(v)
	hi := floats.MaxIdx(v)
	return Extremes{
		Min:     float32(v[lo]),
		Max:     float32(v[hi]),
		MinCell: image.Pt(lo%Width, lo/Width),
		MaxCell: image.Pt(hi%Width, hi/Width),
	}
}
