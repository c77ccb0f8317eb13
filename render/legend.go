// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image"
	"math"

	"github.com/maruel/go-ircam/thermal"
	"golang.org/x/image/draw"
)

// Tick is a labelled graduation of the legend.
type Tick struct {
	Temp  float32
	Y     int // Display row; may fall outside the image.
	Label string
}

// LegendWidth returns the width of the legend for a display of size.
func LegendWidth(size image.Point) int {
	return 20 * size.X / 640
}

// Legend returns the color scale, hottest on top, for a display of size.
//
// The palette is sampled over one step per sensor row and stretched with
// interp, so its banding matches the main image.
func Legend(p *Palette, interp Interpolation, size image.Point) *image.RGBA {
	steps := image.NewGray(image.Rect(0, 0, 1, thermal.Height))
	for y := 0; y < thermal.Height; y++ {
		steps.Pix[y] = uint8(255 - float64(y)*255/(thermal.Height-1))
	}
	w := LegendWidth(size)
	gray := image.NewGray(image.Rect(0, 0, w, size.Y))
	interp.Scaler().Scale(gray, gray.Bounds(), steps, steps.Bounds(), draw.Src, nil)
	out := image.NewRGBA(gray.Bounds())
	for i, v := range gray.Pix {
		c := p.Index(v)
		out.Pix[4*i] = c.R
		out.Pix[4*i+1] = c.G
		out.Pix[4*i+2] = c.B
		out.Pix[4*i+3] = 255
	}
	return out
}

// TickSpacing returns the largest power of 5 not above span/5, so a legend
// always carries at least five intervals.
func TickSpacing(span float64) float64 {
	return math.Pow(5, tickExponent(span))
}

func tickExponent(span float64) float64 {
	// The epsilon avoids log(25)/log(5) rounding down to 1.
	return math.Floor(math.Log(span/5)/math.Log(5) + 1e-9)
}

// maxTicks bounds the number of graduations when float rounding degrades the
// range.
const maxTicks = 64

// Ticks returns the legend graduations for r.
//
// Ticks span r rounded outward to the spacing, so the first and last may be
// outside the legend. It returns nil when r has no usable span.
func Ticks(r thermal.Range, size image.Point) []Tick {
	span := float64(r.Span())
	if math.IsNaN(span) || math.IsInf(span, 0) || span <= 0 {
		return nil
	}
	e := tickExponent(span)
	s := math.Pow(5, e)
	if math.IsInf(s, 0) || s <= 0 {
		return nil
	}
	lo := math.Floor(float64(r.Min)/s+1e-9) * s
	hi := math.Ceil(float64(r.Max)/s-1e-9) * s
	n := math.Round((hi - lo) / s)
	if !(n >= 0 && n < maxTicks) {
		return nil
	}
	// 5^-k has exactly k decimals.
	format := fmt.Sprintf("%%.%df", int(math.Max(0, -e)))
	out := make([]Tick, 0, int(n)+1)
	for i := 0; i <= int(n); i++ {
		t := lo + float64(i)*s
		out = append(out, Tick{
			Temp:  float32(t),
			Y:     SensorToDisplay(0, ScalePos(t, r), size).Y,
			Label: fmt.Sprintf(format, t),
		})
	}
	return out
}
