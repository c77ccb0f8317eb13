// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"image"
	"math"

	"github.com/maruel/go-ircam/thermal"
	"golang.org/x/image/draw"
)

// Band selects the extreme a contour surrounds.
type Band int

// Valid values for Band.
const (
	Hot Band = iota
	Cold
)

// Mask marks with 255 the cells within tolerance percent of the frame range
// from its hottest (Hot) or coldest (Cold) value.
//
// tolerance is clamped to [0, 100]. The comparison is strict so a zero
// tolerance selects nothing.
func Mask(g *thermal.Grid, e thermal.Extremes, tolerance float32, b Band) *image.Gray {
	if !(tolerance > 0) {
		tolerance = 0
	} else if tolerance > 100 {
		tolerance = 100
	}
	band := tolerance * 0.01 * e.Span()
	m := image.NewGray(g.Bounds())
	for y := range g {
		for x, v := range g[y] {
			if (b == Hot && v > e.Max-band) || (b == Cold && v < e.Min+band) {
				m.Pix[y*m.Stride+x] = 255
			}
		}
	}
	return m
}

// Smooth scales a sensor mask to the display with interp and blurs it, so
// the contours follow the image rather than the sensor cells.
func Smooth(mask *image.Gray, interp Interpolation, size image.Point) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	interp.Scaler().Scale(out, out.Bounds(), mask, mask.Bounds(), draw.Src, nil)
	k := size.X / 50
	if k%2 == 0 {
		k++
	}
	gaussianBlur(out, k)
	return out
}

// Contours returns the outer boundary of each 8-connected region of m whose
// intensity is at least 128.
//
// Runs of points along the same direction are compressed to their ends.
func Contours(m *image.Gray) [][]image.Point {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	labels := make([]int32, w*h)
	var out [][]image.Point
	next := int32(0)
	var queue []int
	for i := range labels {
		if labels[i] != 0 || m.Pix[(i/w)*m.Stride+i%w] < 128 {
			continue
		}
		// Scanning row-major, i is the topmost-leftmost pixel of a new region.
		next++
		labels[i] = next
		queue = append(queue[:0], i)
		for len(queue) != 0 {
			j := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := j%w, j/w
			for _, d := range directions {
				nx, ny := x+d.X, y+d.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				if labels[n] == 0 && m.Pix[ny*m.Stride+nx] >= 128 {
					labels[n] = next
					queue = append(queue, n)
				}
			}
		}
		l := next
		in := func(x, y int) bool {
			return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == l
		}
		poly := compress(trace(image.Pt(i%w, i/w), in, 4*w*h))
		for j := range poly {
			poly[j] = poly[j].Add(b.Min)
		}
		out = append(out, poly)
	}
	return out
}

// Inside returns true if p is inside poly or on its boundary.
func Inside(poly []image.Point, p image.Point) bool {
	n := len(poly)
	if n == 0 {
		return false
	}
	for i := range poly {
		if onSegment(poly[i], poly[(i+1)%n], p) {
			return true
		}
	}
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := float64(b.X-a.X)*float64(p.Y-a.Y)/float64(b.Y-a.Y) + float64(a.X)
			if float64(p.X) < x {
				in = !in
			}
		}
	}
	return in
}

// HotspotContours returns the contours of band b that contain the hotspot
// at display position p, along with the smoothed mask they were traced on.
func HotspotContours(g *thermal.Grid, e thermal.Extremes, tolerance float32, b Band, interp Interpolation, size, p image.Point) ([][]image.Point, *image.Gray) {
	smooth := Smooth(Mask(g, e, tolerance, b), interp, size)
	var out [][]image.Point
	for _, c := range Contours(smooth) {
		if Inside(c, p) {
			out = append(out, c)
		}
	}
	return out, smooth
}

// Private details.

// directions are the Freeman chain codes, counterclockwise on screen from
// east.
var directions = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// trace follows the outer boundary of the region containing start, which
// must be its topmost-leftmost pixel.
func trace(start image.Point, in func(x, y int) bool, limit int) []image.Point {
	out := []image.Point{start}
	cur := start
	dir := 7
	var second image.Point
	for step := 0; step < limit; step++ {
		d := (dir + 6) % 8
		if dir%2 == 0 {
			d = (dir + 7) % 8
		}
		found := false
		var n image.Point
		for i := 0; i < 8; i++ {
			nd := (d + i) % 8
			n = cur.Add(directions[nd])
			if in(n.X, n.Y) {
				dir = nd
				found = true
				break
			}
		}
		if !found {
			// Isolated pixel.
			return out
		}
		if step == 0 {
			second = n
		} else if cur == start && n == second {
			return out[:len(out)-1]
		}
		out = append(out, n)
		cur = n
	}
	return out
}

// compress drops the points between two steps in the same direction.
func compress(p []image.Point) []image.Point {
	n := len(p)
	if n < 3 {
		return p
	}
	out := make([]image.Point, 0, n)
	for i := range p {
		prev, next := p[(i+n-1)%n], p[(i+1)%n]
		if p[i].Sub(prev) != next.Sub(p[i]) {
			out = append(out, p[i])
		}
	}
	return out
}

func onSegment(a, b, p image.Point) bool {
	if (b.X-a.X)*(p.Y-a.Y) != (b.Y-a.Y)*(p.X-a.X) {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) && p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}

// gaussianBlur blurs m in place with a k×k kernel, reflecting the border
// without repeating the edge pixel.
func gaussianBlur(m *image.Gray, k int) {
	if k < 3 {
		return
	}
	kernel := gaussianKernel(k)
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := m.Pix[y*m.Stride:]
		for x := 0; x < w; x++ {
			var acc float32
			for i, kv := range kernel {
				acc += kv * float32(row[reflect101(x+i-k/2, w)])
			}
			tmp[y*w+x] = acc
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			for i, kv := range kernel {
				acc += kv * tmp[reflect101(y+i-k/2, h)*w+x]
			}
			m.Pix[y*m.Stride+x] = uint8(math.Min(255, math.Round(float64(acc))))
		}
	}
}

// smallKernels are OpenCV's fixed kernels for sizes up to 7 without an
// explicit sigma.
var smallKernels = [][]float32{
	{1},
	{0.25, 0.5, 0.25},
	{0.0625, 0.25, 0.375, 0.25, 0.0625},
	{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// gaussianKernel returns the normalized 1D kernel of odd size k with the
// sigma derived from k.
func gaussianKernel(k int) []float32 {
	if k/2 < len(smallKernels) {
		return smallKernels[k/2]
	}
	sigma := 0.3*(float64(k-1)*0.5-1) + 0.8
	kernel := make([]float32, k)
	sum := 0.
	for i := range kernel {
		x := float64(i - k/2)
		v := math.Exp(-x * x / (2 * sigma * sigma))
		kernel[i] = float32(v)
		sum += v
	}
	for i := range kernel {
		kernel[i] /= float32(sum)
	}
	return kernel
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}
