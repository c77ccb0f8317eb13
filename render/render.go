// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render converts temperature grids into false color images with
// quantitative overlays: hotspot markers, a graduated color scale and
// contours around the extreme regions.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/maruel/go-ircam/thermal"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Options controls the rendering of a frame.
type Options struct {
	Palette       *Palette
	Interpolation Interpolation
	Size          image.Point
	Overlay       bool    // Hotspot markers and extreme temperature labels.
	Ticks         bool    // Legend graduations.
	Contours      bool    // Contours around the hotspots.
	Tolerance     float32 // Contour band in percent of the frame range.
	Help          bool
	Debug         bool
}

// DefaultOptions returns the initial display settings.
func DefaultOptions() Options {
	p, _ := PaletteByName(DefaultPalette)
	return Options{
		Palette:       p,
		Interpolation: DefaultInterpolation,
		Size:          DefaultResolution,
		Overlay:       true,
		Ticks:         true,
		Tolerance:     5,
	}
}

// Overlay is the geometry derived from one frame, in display coordinates.
type Overlay struct {
	Extremes thermal.Extremes
	Range    thermal.Range
	MinPos   image.Point // Coldest cell.
	MaxPos   image.Point // Hottest cell.
	MinScale image.Point // Coldest temperature on the legend.
	MaxScale image.Point // Hottest temperature on the legend.
	Ticks    []Tick
	Hot      [][]image.Point
	Cold     [][]image.Point

	// Smoothed contour masks, only set in debug mode.
	HotMask  *image.Gray
	ColdMask *image.Gray
}

// HelpTable lists the operator keys.
var HelpTable = [][2]string{
	{"Key", "Function"},
	{"Space, p", "Pause the video"},
	{"M", "Change the color map"},
	{"C", "Capture the current frame"},
	{"H", "Toggle the help"},
	{"D", "Change the display resolution"},
	{"I", "Change the display interpolation"},
	{"T", "Show temperature contours"},
	{"O", "Show min max points"},
	{"K", "Show scale ticks"},
	{"B", "Debug mode"},
}

// Geometry computes the overlay of g displayed with range r.
func Geometry(g *thermal.Grid, r thermal.Range, o *Options) *Overlay {
	e := thermal.FindExtremes(g)
	ov := &Overlay{
		Extremes: e,
		Range:    r,
		MinPos:   SensorToDisplay(float64(e.MinCell.X), float64(e.MinCell.Y), o.Size),
		MaxPos:   SensorToDisplay(float64(e.MaxCell.X), float64(e.MaxCell.Y), o.Size),
		MinScale: SensorToDisplay(0, ScalePos(float64(e.Min), r), o.Size),
		MaxScale: SensorToDisplay(0, ScalePos(float64(e.Max), r), o.Size),
	}
	if o.Ticks {
		ov.Ticks = Ticks(r, o.Size)
	}
	if o.Contours {
		var hot, cold *image.Gray
		ov.Hot, hot = HotspotContours(g, e, o.Tolerance, Hot, o.Interpolation, o.Size, ov.MaxPos)
		ov.Cold, cold = HotspotContours(g, e, o.Tolerance, Cold, o.Interpolation, o.Size, ov.MinPos)
		if o.Debug {
			ov.HotMask, ov.ColdMask = hot, cold
		}
	}
	return ov
}

// Render draws g, already mirrored if needed, with range r.
func Render(g *thermal.Grid, r thermal.Range, o *Options) (*image.RGBA, *Overlay) {
	n := thermal.Normalize(g, r)
	small := image.NewRGBA(g.Bounds())
	for y := range n {
		for x, v := range n[y] {
			small.SetRGBA(x, y, o.Palette.At(v))
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, o.Size.X, o.Size.Y))
	o.Interpolation.Scaler().Scale(img, img.Bounds(), small, small.Bounds(), draw.Src, nil)
	legend := Legend(o.Palette, o.Interpolation, o.Size)
	draw.Draw(img, legend.Bounds(), legend, image.Point{}, draw.Src)

	ov := Geometry(g, r, o)
	gc := draw2dimg.NewGraphicContext(img)
	lw := legend.Bounds().Dx()
	for _, t := range ov.Ticks {
		if t.Y < 0 || t.Y >= o.Size.Y {
			continue
		}
		gc.SetStrokeColor(color.Black)
		gc.SetLineWidth(1)
		gc.BeginPath()
		gc.MoveTo(float64(lw/2), float64(t.Y))
		gc.LineTo(float64(lw), float64(t.Y))
		gc.Stroke()
		drawText(img, t.Label, lw+2, t.Y+4, color.Black, color.White)
	}
	if o.Overlay {
		drawText(img, fmt.Sprintf("%.2f", ov.Extremes.Max), lw+10, ov.MaxScale.Y, color.Black, color.White)
		drawText(img, fmt.Sprintf("%.2f", ov.Extremes.Min), lw+10, ov.MinScale.Y, color.Black, color.White)
		radius := float64(o.Size.X/200 + 4)
		circle(gc, ov.MinPos, radius, color.Black)
		circle(gc, ov.MaxPos, radius, color.White)
		circle(gc, ov.MinScale, radius, color.Black)
		circle(gc, ov.MaxScale, radius, color.White)
	}
	for _, c := range ov.Hot {
		polygon(gc, c, color.White)
	}
	for _, c := range ov.Cold {
		polygon(gc, c, color.Black)
	}
	if o.Help {
		y := 20
		for _, line := range HelpTable {
			drawText(img, line[0], 150, y, color.Black, nil)
			drawText(img, line[1], 250, y, color.Black, nil)
			y += 20
		}
	} else {
		drawText(img, "H for help", o.Size.X-100, o.Size.Y-10, color.Black, nil)
	}
	if o.Debug {
		drawText(img, "Debug mode", o.Size.X-100, o.Size.Y-30, color.RGBA{255, 0, 255, 255}, nil)
	}
	return img, ov
}

// Private details.

var outline = []image.Point{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

// drawText draws s with its baseline at y, surrounded by a 1 pixel outline
// when o is not nil.
func drawText(dst draw.Image, s string, x, y int, c, o color.Color) {
	d := &font.Drawer{Dst: dst, Face: basicfont.Face7x13}
	if o != nil {
		d.Src = image.NewUniform(o)
		for _, off := range outline {
			d.Dot = fixed.P(x+off.X, y+off.Y)
			d.DrawString(s)
		}
	}
	d.Src = image.NewUniform(c)
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func circle(gc *draw2dimg.GraphicContext, p image.Point, radius float64, c color.Color) {
	gc.SetStrokeColor(c)
	gc.SetLineWidth(2)
	gc.BeginPath()
	draw2dkit.Circle(gc, float64(p.X), float64(p.Y), radius)
	gc.Stroke()
}

func polygon(gc *draw2dimg.GraphicContext, pts []image.Point, c color.Color) {
	if len(pts) == 0 {
		return
	}
	gc.SetStrokeColor(c)
	gc.SetLineWidth(2)
	gc.BeginPath()
	gc.MoveTo(float64(pts[0].X), float64(pts[0].Y))
	for _, p := range pts[1:] {
		gc.LineTo(float64(p.X), float64(p.Y))
	}
	gc.Close()
	gc.Stroke()
}
