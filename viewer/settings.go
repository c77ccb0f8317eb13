// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package viewer

import (
	"errors"
	"fmt"
	"math"

	"github.com/maruel/go-ircam/render"
	"github.com/maruel/go-ircam/thermal"
)

// ErrUnknownKey is returned by Command for keys without a binding.
var ErrUnknownKey = errors.New("viewer: unknown key")

// Settings is the operator controlled part of the viewer.
//
// It is serialized as part of the configuration file.
type Settings struct {
	Palette       string
	Interpolation render.Interpolation
	Resolution    string
	Overlay       bool
	Ticks         bool
	Contours      bool
	Tolerance     float32 // Contour band, percent of the frame range.
	Help          bool
	Debug         bool
	Mirror        bool
	Paused        bool
	Threshold     float32 // Noise threshold of the adaptive filter.
	Range         thermal.RangeSettings
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	o := render.DefaultOptions()
	return Settings{
		Palette:       o.Palette.Name,
		Interpolation: o.Interpolation,
		Resolution:    render.FormatResolution(o.Size),
		Overlay:       o.Overlay,
		Ticks:         o.Ticks,
		Tolerance:     o.Tolerance,
		Mirror:        true,
		Threshold:     thermal.DefaultThreshold,
		Range:         thermal.DefaultRangeSettings(),
	}
}

// Validate returns an error if a setting cannot be applied.
func (s *Settings) Validate() error {
	_, err := s.Options()
	return err
}

// Options converts the settings into rendering options.
func (s *Settings) Options() (render.Options, error) {
	p, err := render.PaletteByName(s.Palette)
	if err != nil {
		return render.Options{}, err
	}
	if s.Interpolation < render.Nearest || s.Interpolation > render.Lanczos4 {
		return render.Options{}, render.ErrInterpolation
	}
	size, err := render.ParseResolution(s.Resolution)
	if err != nil {
		return render.Options{}, err
	}
	if !finite(s.Tolerance) || s.Tolerance < 0 || s.Tolerance > 100 {
		return render.Options{}, fmt.Errorf("viewer: tolerance %g is not within [0, 100]", s.Tolerance)
	}
	if err := thermal.CheckThreshold(s.Threshold); err != nil {
		return render.Options{}, err
	}
	if !inTemp(s.Range.Min.Manual) || !inTemp(s.Range.Max.Manual) {
		return render.Options{}, fmt.Errorf("viewer: manual range %g..%g is not within [%g, %g]", s.Range.Min.Manual, s.Range.Max.Manual, float64(thermal.MinTemp), float64(thermal.MaxTemp))
	}
	if !finite(s.Range.Headroom) || s.Range.Headroom < 0 || s.Range.Headroom > thermal.MaxTemp {
		return render.Options{}, errors.New("viewer: invalid temperature range headroom")
	}
	if !s.Range.Min.Auto && !s.Range.Max.Auto && s.Range.Max.Manual <= s.Range.Min.Manual {
		return render.Options{}, fmt.Errorf("viewer: manual range %g..%g is inverted", s.Range.Min.Manual, s.Range.Max.Manual)
	}
	return render.Options{
		Palette:       p,
		Interpolation: s.Interpolation,
		Size:          size,
		Overlay:       s.Overlay,
		Ticks:         s.Ticks,
		Contours:      s.Contours,
		Tolerance:     s.Tolerance,
		Help:          s.Help,
		Debug:         s.Debug,
	}, nil
}

// apply updates s for an operator key. It returns true if the key requests
// a capture.
func (s *Settings) apply(key string) (bool, error) {
	switch key {
	case " ", "p", "P":
		s.Paused = !s.Paused
	case "m", "M":
		p, err := render.PaletteByName(s.Palette)
		if err != nil {
			p = render.Palettes[len(render.Palettes)-1]
		}
		s.Palette = render.NextPalette(p).Name
	case "d", "D":
		size, err := render.ParseResolution(s.Resolution)
		if err != nil {
			size = render.Resolutions[len(render.Resolutions)-1]
		}
		s.Resolution = render.FormatResolution(render.NextResolution(size))
	case "i", "I":
		s.Interpolation = s.Interpolation.Next()
	case "o", "O":
		s.Overlay = !s.Overlay
	case "t", "T":
		s.Contours = !s.Contours
	case "k", "K":
		s.Ticks = !s.Ticks
	case "h", "H":
		s.Help = !s.Help
	case "b", "B":
		s.Debug = !s.Debug
	case "c", "C":
		return true, nil
	default:
		return false, ErrUnknownKey
	}
	return false, nil
}

func inTemp(f float32) bool {
	return f >= thermal.MinTemp && f <= thermal.MaxTemp
}

func finite(f float32) bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
