// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal implements the numeric processing of 32x24 temperature
// grids: adaptive noise filtering, display range resolution and
// normalization.
package thermal

import (
	"errors"
	"image"
	"math"
)

// Sensor geometry.
const (
	Width  = 32
	Height = 24
)

var (
	// ErrShape is returned when data cannot fill a Width x Height grid.
	ErrShape = errors.New("thermal: data is not 24 rows of 32 values")
	// ErrNotFinite is returned when a grid contains NaN or infinity.
	ErrNotFinite = errors.New("thermal: grid contains a non-finite value")
)

// Grid is one temperature snapshot in °C, indexed [row][column].
type Grid [Height][Width]float32

// Bounds returns the sensor rectangle.
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// At returns the temperature at column x, row y.
func (g *Grid) At(x, y int) float32 {
	return g[y][x]
}

// Validate returns ErrNotFinite if any value is NaN or infinite.
func (g *Grid) Validate() error {
	for y := range g {
		for x := range g[y] {
			v := float64(g[y][x])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrNotFinite
			}
		}
	}
	return nil
}

// Mirror returns a copy of the grid flipped left-right.
func (g *Grid) Mirror() Grid {
	var out Grid
	for y := range g {
		for x := range g[y] {
			out[y][Width-1-x] = g[y][x]
		}
	}
	return out
}

// Equal returns true if both grids hold exactly the same values.
func (g *Grid) Equal(r *Grid) bool {
	return *g == *r
}

// Float64s returns the grid flattened in row-major order.
func (g *Grid) Float64s() []float64 {
	out := make([]float64, 0, Width*Height)
	for y := range g {
		for x := range g[y] {
			out = append(out, float64(g[y][x]))
		}
	}
	return out
}

// GridFromRows builds a grid from rows of values, e.g. a parsed CSV file.
//
// The data must have exactly Height rows of Width finite values.
func GridFromRows(rows [][]float32) (Grid, error) {
	var g Grid
	if len(rows) != Height {
		return g, ErrShape
	}
	for y, row := range rows {
		if len(row) != Width {
			return g, ErrShape
		}
		copy(g[y][:], row)
	}
	return g, g.Validate()
}

// GridFromSlice builds a grid from Width*Height values in row-major order.
func GridFromSlice(v []float32) (Grid, error) {
	var g Grid
	if len(v) != Width*Height {
		return g, ErrShape
	}
	for y := 0; y < Height; y++ {
		copy(g[y][:], v[y*Width:(y+1)*Width])
	}
	return g, g.Validate()
}
