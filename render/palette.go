// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"errors"
	"image/color"
	"math"
	"strings"
)

// ErrPalette is returned for an unknown palette name.
var ErrPalette = errors.New("render: unknown palette")

// Palette maps a normalized temperature to a color through a 256 entries
// lookup table.
type Palette struct {
	Name string
	lut  [256]color.RGBA
}

// Index returns the color for a 8 bits intensity.
func (p *Palette) Index(i uint8) color.RGBA {
	return p.lut[i]
}

// At returns the color for v in [0, 1]. Values outside saturate.
func (p *Palette) At(v float32) color.RGBA {
	return p.lut[Intensity(v)]
}

// Intensity converts v in [0, 1] to a 8 bits intensity, truncating.
func Intensity(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

// Palettes lists the available palettes, in cycling order.
var Palettes = []*Palette{
	newPalette("Jet", segments(
		[]stop{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}},
		[]stop{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}},
		[]stop{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}})),
	newPalette("Hot", hot),
	newPalette("Cool", segments(
		[]stop{{0, 0}, {1, 1}},
		[]stop{{0, 1}, {1, 0}},
		[]stop{{0, 1}, {1, 1}})),
	newPalette("Spring", segments(
		[]stop{{0, 1}, {1, 1}},
		[]stop{{0, 0}, {1, 1}},
		[]stop{{0, 1}, {1, 0}})),
	newPalette("Summer", segments(
		[]stop{{0, 0}, {1, 1}},
		[]stop{{0, 0.5}, {1, 1}},
		[]stop{{0, 0.4}, {1, 0.4}})),
	newPalette("Autumn", segments(
		[]stop{{0, 1}, {1, 1}},
		[]stop{{0, 0}, {1, 1}},
		[]stop{{0, 0}, {1, 0}})),
	newPalette("Winter", segments(
		[]stop{{0, 0}, {1, 0}},
		[]stop{{0, 0}, {1, 1}},
		[]stop{{0, 1}, {1, 0.5}})),
	newPalette("Rainbow", func(x float64) (float64, float64, float64) {
		return math.Abs(2*x - 0.5), math.Sin(math.Pi * x), math.Cos(math.Pi * x / 2)
	}),
	newPalette("Ocean", segments(
		[]stop{{0, 0}, {0.667, 0}, {1, 1}},
		[]stop{{0, 0.5}, {0.333, 0}, {1, 1}},
		[]stop{{0, 0}, {1, 1}})),
	newPalette("Pink", pink),
	newPalette("HSV", gradient(
		rgbStop{0, 1, 0, 0},
		rgbStop{1. / 6, 1, 1, 0},
		rgbStop{2. / 6, 0, 1, 0},
		rgbStop{3. / 6, 0, 1, 1},
		rgbStop{4. / 6, 0, 0, 1},
		rgbStop{5. / 6, 1, 0, 1},
		rgbStop{1, 1, 0, 0})),
	newPalette("Parula", gradient(
		rgbStop{0, 0.208, 0.166, 0.529},
		rgbStop{0.125, 0.059, 0.360, 0.868},
		rgbStop{0.25, 0.078, 0.504, 0.838},
		rgbStop{0.375, 0.024, 0.630, 0.772},
		rgbStop{0.5, 0.196, 0.718, 0.632},
		rgbStop{0.625, 0.495, 0.749, 0.440},
		rgbStop{0.75, 0.773, 0.739, 0.277},
		rgbStop{0.875, 0.992, 0.749, 0.239},
		rgbStop{1, 0.976, 0.984, 0.081})),
	newPalette("Magma", gradient(
		rgbStop{0, 0.001, 0.000, 0.014},
		rgbStop{0.125, 0.079, 0.054, 0.212},
		rgbStop{0.25, 0.232, 0.060, 0.438},
		rgbStop{0.375, 0.390, 0.100, 0.502},
		rgbStop{0.5, 0.550, 0.161, 0.506},
		rgbStop{0.625, 0.716, 0.215, 0.475},
		rgbStop{0.75, 0.869, 0.288, 0.409},
		rgbStop{0.875, 0.973, 0.557, 0.408},
		rgbStop{1, 0.987, 0.991, 0.750})),
	newPalette("Inferno", gradient(
		rgbStop{0, 0.001, 0.000, 0.014},
		rgbStop{0.125, 0.088, 0.044, 0.224},
		rgbStop{0.25, 0.258, 0.039, 0.407},
		rgbStop{0.375, 0.416, 0.090, 0.433},
		rgbStop{0.5, 0.578, 0.148, 0.404},
		rgbStop{0.625, 0.736, 0.216, 0.330},
		rgbStop{0.75, 0.865, 0.317, 0.226},
		rgbStop{0.875, 0.965, 0.536, 0.040},
		rgbStop{1, 0.988, 0.998, 0.645})),
	newPalette("Plasma", gradient(
		rgbStop{0, 0.050, 0.030, 0.528},
		rgbStop{0.125, 0.254, 0.014, 0.615},
		rgbStop{0.25, 0.418, 0.001, 0.658},
		rgbStop{0.375, 0.563, 0.051, 0.642},
		rgbStop{0.5, 0.693, 0.165, 0.564},
		rgbStop{0.625, 0.798, 0.280, 0.470},
		rgbStop{0.75, 0.881, 0.393, 0.383},
		rgbStop{0.875, 0.949, 0.525, 0.295},
		rgbStop{1, 0.940, 0.975, 0.131})),
}

// DefaultPalette is the palette used when none is configured.
const DefaultPalette = "Jet"

// PaletteByName returns the palette with the given name, ignoring case.
func PaletteByName(name string) (*Palette, error) {
	for _, p := range Palettes {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, ErrPalette
}

// NextPalette returns the palette following p in Palettes, wrapping around.
func NextPalette(p *Palette) *Palette {
	for i := range Palettes {
		if Palettes[i] == p {
			return Palettes[(i+1)%len(Palettes)]
		}
	}
	return Palettes[0]
}

// Private details.

// stop is a control point of a single channel.
type stop struct {
	x, y float64
}

// rgbStop is a control point of all channels.
type rgbStop struct {
	x, r, g, b float64
}

func newPalette(name string, f func(x float64) (r, g, b float64)) *Palette {
	p := &Palette{Name: name}
	for i := range p.lut {
		r, g, b := f(float64(i) / 255)
		p.lut[i] = color.RGBA{to8(r), to8(g), to8(b), 255}
	}
	return p
}

// segments returns a function interpolating each channel linearly between
// its control points.
func segments(r, g, b []stop) func(x float64) (float64, float64, float64) {
	return func(x float64) (float64, float64, float64) {
		return lerp(r, x), lerp(g, x), lerp(b, x)
	}
}

// gradient returns a function interpolating linearly between colors.
func gradient(stops ...rgbStop) func(x float64) (float64, float64, float64) {
	return func(x float64) (float64, float64, float64) {
		for i := 1; i < len(stops); i++ {
			if x <= stops[i].x {
				a, b := stops[i-1], stops[i]
				t := (x - a.x) / (b.x - a.x)
				return a.r + t*(b.r-a.r), a.g + t*(b.g-a.g), a.b + t*(b.b-a.b)
			}
		}
		l := stops[len(stops)-1]
		return l.r, l.g, l.b
	}
}

func lerp(s []stop, x float64) float64 {
	for i := 1; i < len(s); i++ {
		if x <= s[i].x {
			t := (x - s[i-1].x) / (s[i].x - s[i-1].x)
			return s[i-1].y + t*(s[i].y-s[i-1].y)
		}
	}
	return s[len(s)-1].y
}

var hot = segments(
	[]stop{{0, 0.0416}, {0.365079, 1}, {1, 1}},
	[]stop{{0, 0}, {0.365079, 0}, {0.746032, 1}, {1, 1}},
	[]stop{{0, 0}, {0.746032, 0}, {1, 1}})

// pink is the square root of a blend of gray and hot, giving a sepia tone.
func pink(x float64) (float64, float64, float64) {
	r, g, b := hot(x)
	return math.Sqrt((2*x + r) / 3), math.Sqrt((2*x + g) / 3), math.Sqrt((2*x + b) / 3)
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
