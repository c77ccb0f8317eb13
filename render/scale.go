// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/maruel/go-ircam/thermal"
	"golang.org/x/image/draw"
)

var (
	// ErrInterpolation is returned for an unknown interpolation name.
	ErrInterpolation = errors.New("render: unknown interpolation")
	// ErrResolution is returned for an unsupported display resolution.
	ErrResolution = errors.New("render: unsupported resolution")
)

// Interpolation selects how the sensor grid is scaled up to the display.
type Interpolation int

// Valid values for Interpolation.
const (
	Nearest Interpolation = iota
	Linear
	Cubic
	Area
	Lanczos4
)

// DefaultInterpolation is the interpolation used when none is configured.
const DefaultInterpolation = Cubic

const interpolationName = "NearestLinearCubicAreaLanczos4"

var interpolationIndex = [...]uint8{0, 7, 13, 18, 22, 30}

func (i Interpolation) String() string {
	if i < 0 || i >= Interpolation(len(interpolationIndex)-1) {
		return fmt.Sprintf("Interpolation(%d)", i)
	}
	return interpolationName[interpolationIndex[i]:interpolationIndex[i+1]]
}

// Next returns the following interpolation, wrapping around.
func (i Interpolation) Next() Interpolation {
	return (i + 1) % Interpolation(len(interpolationIndex)-1)
}

// ParseInterpolation returns the interpolation with the given name, ignoring
// case.
func ParseInterpolation(s string) (Interpolation, error) {
	for i := Nearest; i <= Lanczos4; i++ {
		if strings.EqualFold(i.String(), s) {
			return i, nil
		}
	}
	return 0, ErrInterpolation
}

// Scaler returns the x/image scaler implementing i.
//
// Area maps to the approximate bilinear scaler, which matches its result
// when enlarging.
func (i Interpolation) Scaler() draw.Scaler {
	switch i {
	case Linear:
		return draw.BiLinear
	case Cubic:
		return draw.CatmullRom
	case Area:
		return draw.ApproxBiLinear
	case Lanczos4:
		return lanczos4
	default:
		return draw.NearestNeighbor
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i Interpolation) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interpolation) UnmarshalText(b []byte) error {
	v, err := ParseInterpolation(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Resolutions lists the supported display sizes, in cycling order.
var Resolutions = []image.Point{
	{480, 320},
	{640, 480},
	{800, 600},
	{1024, 768},
	{1280, 1024},
	{1920, 1080},
}

// DefaultResolution is the display size used when none is configured.
var DefaultResolution = image.Pt(640, 480)

// ParseResolution parses "WxH" and returns it if it is one of Resolutions.
func ParseResolution(s string) (image.Point, error) {
	var p image.Point
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%dx%d", &p.X, &p.Y); err != nil {
		return p, ErrResolution
	}
	for _, r := range Resolutions {
		if r == p {
			return p, nil
		}
	}
	return p, ErrResolution
}

// FormatResolution returns p as "WxH".
func FormatResolution(p image.Point) string {
	return fmt.Sprintf("%dx%d", p.X, p.Y)
}

// NextResolution returns the resolution following p in Resolutions,
// wrapping around.
func NextResolution(p image.Point) image.Point {
	for i, r := range Resolutions {
		if r == p {
			return Resolutions[(i+1)%len(Resolutions)]
		}
	}
	return Resolutions[0]
}

// SensorToDisplay maps sensor coordinates to the display pixel at the
// center of the cell, truncating toward zero.
//
// Fractional coordinates are accepted, e.g. a ScalePos result.
func SensorToDisplay(x, y float64, size image.Point) image.Point {
	return image.Point{
		X: int((x + 0.5) * float64(size.X) / thermal.Width),
		Y: int((y + 0.5) * float64(size.Y) / thermal.Height),
	}
}

// ScalePos returns the legend row, in sensor units, of temp in r.
//
// Row 0 is r.Max and row 23 is r.Min.
func ScalePos(temp float64, r thermal.Range) float64 {
	return (float64(r.Max) - temp) / (float64(r.Span()) / (thermal.Height - 1))
}

// Private details.

var lanczos4 = &draw.Kernel{Support: 4, At: func(t float64) float64 {
	if t == 0 {
		return 1
	}
	if t >= 4 {
		return 0
	}
	x := math.Pi * t
	return 4 * math.Sin(x) * math.Sin(x/4) / (x * x)
}}
