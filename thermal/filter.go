// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Threshold bounds, exclusive.
const (
	MinThreshold     = 0
	MaxThreshold     = 1000
	DefaultThreshold = 3
)

// ErrThreshold is returned when a noise threshold is rejected.
var ErrThreshold = errors.New("thermal: noise threshold must be within (0, 1000)")

// Filter is a per-pixel exponential smoother whose gain depends on the
// signal.
//
// For each pixel with filtered value f, new value x and threshold t:
//
//	delta = x - f
//	gain  = delta² / (delta² + t²)
//	f     = f + gain * delta
//
// Deltas much larger than t are tracked immediately, deltas much smaller are
// smoothed out. When |delta| == t the residual is halved.
//
// The zero value is not usable, use NewFilter.
type Filter struct {
	filtered  Grid
	threshold float32
}

// NewFilter returns a filter with a zeroed state.
//
// An invalid threshold is replaced with DefaultThreshold.
func NewFilter(threshold float32) *Filter {
	f := &Filter{threshold: DefaultThreshold}
	_ = f.SetThreshold(threshold)
	return f
}

// Threshold returns the current noise threshold.
func (f *Filter) Threshold() float32 {
	return f.threshold
}

// SetThreshold updates the noise threshold.
//
// Out of bound values are rejected with ErrThreshold and the previous
// threshold is kept.
func (f *Filter) SetThreshold(t float32) error {
	if err := CheckThreshold(t); err != nil {
		return err
	}
	f.threshold = t
	return nil
}

// ParseThreshold parses operator input and applies it.
//
// Non-numeric input is rejected like out of bound values.
func (f *Filter) ParseThreshold(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return ErrThreshold
	}
	return f.SetThreshold(float32(v))
}

// Apply folds raw into the filter state and returns the new filtered grid.
func (f *Filter) Apply(raw *Grid) Grid {
	t := float64(f.threshold)
	t2 := t * t
	for y := range raw {
		for x := range raw[y] {
			cur := f.filtered[y][x]
			delta := float64(raw[y][x]) - float64(cur)
			d2 := delta * delta
			gain := 0.
			if d := d2 + t2; d > 0 {
				gain = d2 / d
			}
			f.filtered[y][x] = float32(float64(cur) + gain*delta)
		}
	}
	return f.filtered
}

// State returns a copy of the filtered grid.
func (f *Filter) State() Grid {
	return f.filtered
}

// CheckThreshold returns ErrThreshold if t cannot be used as a noise
// threshold.
//
// A threshold whose float32 square underflows to zero is rejected too.
func CheckThreshold(t float32) error {
	if v := float64(t); math.IsNaN(v) || v <= MinThreshold || v >= MaxThreshold || t*t == 0 {
		return ErrThreshold
	}
	return nil
}
