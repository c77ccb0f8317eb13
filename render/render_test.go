// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/maruel/go-ircam/thermal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicks(t *testing.T) {
	ticks := Ticks(thermal.Range{Min: 17, Max: 43}, image.Pt(640, 480))
	var temps []float32
	var labels []string
	for _, tick := range ticks {
		temps = append(temps, tick.Temp)
		labels = append(labels, tick.Label)
	}
	assert.Equal(t, []float32{15, 20, 25, 30, 35, 40, 45}, temps)
	assert.Equal(t, []string{"15", "20", "25", "30", "35", "40", "45"}, labels)
	// 20°C is (43-20)/(26/23) rows below the top.
	assert.Equal(t, SensorToDisplay(0, 23*23./26, image.Pt(640, 480)).Y, ticks[1].Y)
	// The outer ticks are beyond the legend.
	assert.Greater(t, ticks[0].Y, 480)
	assert.Less(t, ticks[6].Y, 0)
}

func TestTicks_fractional(t *testing.T) {
	ticks := Ticks(thermal.Range{Min: 20.05, Max: 20.55}, image.Pt(640, 480))
	require.Len(t, ticks, 14)
	assert.Equal(t, "20.04", ticks[0].Label)
	assert.Equal(t, "20.08", ticks[1].Label)
	assert.Equal(t, "20.56", ticks[len(ticks)-1].Label)

	ticks = Ticks(thermal.Range{Min: 20, Max: 24}, image.Pt(640, 480))
	require.Len(t, ticks, 21)
	assert.Equal(t, "20.0", ticks[0].Label)
	assert.Equal(t, "20.2", ticks[1].Label)
	assert.Equal(t, "24.0", ticks[20].Label)

	ticks = Ticks(thermal.Range{Min: 20, Max: 20.1}, image.Pt(640, 480))
	require.NotEmpty(t, ticks)
	assert.Equal(t, "20.000", ticks[0].Label)
	assert.Equal(t, "20.008", ticks[1].Label)
}

func TestTicks_degenerate(t *testing.T) {
	size := image.Pt(640, 480)
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, r := range []thermal.Range{
		{Min: 5e6, Max: 5e6},
		{Min: 30, Max: 20},
		{Min: nan, Max: 20},
		{Min: 20, Max: inf},
		{Min: -inf, Max: inf},
	} {
		assert.Nil(t, Ticks(r, size), "%v", r)
	}
	// The smallest float32 step at a large magnitude still graduates.
	r := thermal.Range{Min: 5e6, Max: math.Nextafter32(5e6, 1e7)}
	ticks := Ticks(r, size)
	assert.NotEmpty(t, ticks)
	assert.Less(t, len(ticks), maxTicks)
}

func TestTickSpacing(t *testing.T) {
	data := []struct {
		span float64
		want float64
	}{
		{26, 5},
		{25, 5},
		{24.9, 1},
		{32, 5},
		{125, 25},
		{130, 25},
		{5, 1},
		{4.99, 0.2},
		{0.5, 0.04},
		{0.1, 0.008},
	}
	for _, line := range data {
		assert.InDelta(t, line.want, TickSpacing(line.span), 1e-9, "span %g", line.span)
	}
}

func TestSensorToDisplay(t *testing.T) {
	size := image.Pt(640, 480)
	assert.Equal(t, image.Pt(10, 10), SensorToDisplay(0, 0, size))
	assert.Equal(t, image.Pt(630, 470), SensorToDisplay(31, 23, size))
	assert.Equal(t, image.Pt(7, 6), SensorToDisplay(0, 0, image.Pt(480, 320)))
	// Truncation toward zero.
	assert.Equal(t, image.Pt(0, 0), SensorToDisplay(-0.52, -0.52, size))
	r := thermal.Range{Min: 17, Max: 43}
	assert.Equal(t, 0., ScalePos(43, r))
	assert.InDelta(t, 23., ScalePos(17, r), 1e-9)
}

func TestLegend(t *testing.T) {
	p, err := PaletteByName("Jet")
	require.NoError(t, err)
	for _, size := range Resolutions {
		l := Legend(p, Nearest, size)
		require.Equal(t, image.Rect(0, 0, 20*size.X/640, size.Y), l.Bounds())
		assert.Equal(t, p.Index(255), l.RGBAAt(0, 0))
		assert.Equal(t, p.Index(0), l.RGBAAt(0, size.Y-1))
	}
	assert.Equal(t, 15, LegendWidth(image.Pt(480, 320)))
	assert.Equal(t, 60, LegendWidth(image.Pt(1920, 1080)))
}

func TestPalettes(t *testing.T) {
	names := map[string]bool{}
	for _, p := range Palettes {
		assert.False(t, names[p.Name], p.Name)
		names[p.Name] = true
		for i := 0; i < 256; i++ {
			assert.Equal(t, uint8(255), p.Index(uint8(i)).A)
		}
	}
	assert.Len(t, Palettes, 15)
	p, err := PaletteByName("inferno")
	require.NoError(t, err)
	assert.Equal(t, "Inferno", p.Name)
	_, err = PaletteByName("Bone")
	assert.Equal(t, ErrPalette, err)
	assert.Equal(t, Palettes[0], NextPalette(Palettes[len(Palettes)-1]))
	// Jet goes from dark blue to dark red.
	jet := Palettes[0]
	assert.True(t, jet.At(0).B > 100 && jet.At(0).R == 0)
	assert.True(t, jet.At(1).R > 100 && jet.At(1).B == 0)
	assert.Equal(t, jet.At(2), jet.At(1))
	assert.Equal(t, jet.At(-1), jet.At(0))
}

func TestIntensity(t *testing.T) {
	assert.Equal(t, uint8(0), Intensity(0))
	assert.Equal(t, uint8(127), Intensity(0.5))
	assert.Equal(t, uint8(255), Intensity(1))
	assert.Equal(t, uint8(0), Intensity(-3))
}

func TestInterpolation(t *testing.T) {
	for i := Nearest; i <= Lanczos4; i++ {
		j, err := ParseInterpolation(i.String())
		require.NoError(t, err)
		assert.Equal(t, i, j)
		assert.NotNil(t, i.Scaler())
	}
	assert.Equal(t, "Lanczos4", Lanczos4.String())
	assert.Equal(t, Nearest, Lanczos4.Next())
	assert.Equal(t, "Interpolation(9)", Interpolation(9).String())
	_, err := ParseInterpolation("Bicubic")
	assert.Equal(t, ErrInterpolation, err)
	var i Interpolation
	require.NoError(t, i.UnmarshalText([]byte("area")))
	assert.Equal(t, Area, i)
}

func TestResolution(t *testing.T) {
	p, err := ParseResolution("800x600")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(800, 600), p)
	_, err = ParseResolution("801x600")
	assert.Equal(t, ErrResolution, err)
	_, err = ParseResolution("big")
	assert.Equal(t, ErrResolution, err)
	assert.Equal(t, "1920x1080", FormatResolution(Resolutions[5]))
	assert.Equal(t, Resolutions[0], NextResolution(Resolutions[5]))
	assert.Equal(t, image.Pt(800, 600), NextResolution(image.Pt(640, 480)))
}

func TestContours_square(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			m.Pix[y*m.Stride+x] = 255
		}
	}
	// A second region, a diagonal line touching only by corners.
	m.Pix[6*m.Stride+5] = 200
	m.Pix[7*m.Stride+6] = 200
	// Below the threshold.
	m.Pix[0*m.Stride+5] = 127
	c := Contours(m)
	require.Len(t, c, 2)
	assert.Equal(t, []image.Point{{1, 1}, {1, 3}, {3, 3}, {3, 1}}, c[0])
	assert.Equal(t, []image.Point{{5, 6}, {6, 7}}, c[1])
}

func TestContours_single(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 3, 3))
	m.Pix[4] = 255
	assert.Equal(t, [][]image.Point{{{1, 1}}}, Contours(m))
	assert.Empty(t, Contours(image.NewGray(image.Rect(0, 0, 3, 3))))
}

func TestInside(t *testing.T) {
	sq := []image.Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	data := []struct {
		p    image.Point
		want bool
	}{
		{image.Pt(5, 5), true},
		{image.Pt(0, 5), true},
		{image.Pt(10, 10), true},
		{image.Pt(11, 5), false},
		{image.Pt(-1, -1), false},
		{image.Pt(5, 11), false},
	}
	for _, line := range data {
		assert.Equal(t, line.want, Inside(sq, line.p), "%v", line.p)
	}
	assert.False(t, Inside(nil, image.Pt(0, 0)))
	assert.True(t, Inside([]image.Point{{2, 2}, {6, 2}}, image.Pt(4, 2)))
}

func TestHotspotContours(t *testing.T) {
	g := uniformGrid(20)
	for y := 4; y <= 6; y++ {
		for x := 4; x <= 6; x++ {
			g[y][x] = 40
		}
	}
	// Disconnected noise in the same band.
	g[18][25] = 40
	e := thermal.FindExtremes(&g)
	require.Equal(t, image.Pt(4, 4), e.MaxCell)
	size := image.Pt(640, 480)
	mask := Mask(&g, e, 5, Hot)
	require.Equal(t, uint8(255), mask.GrayAt(25, 18).Y)
	require.Equal(t, uint8(0), mask.GrayAt(3, 4).Y)
	require.Len(t, Contours(Smooth(mask, Nearest, size)), 2)

	hotspot := SensorToDisplay(float64(e.MaxCell.X), float64(e.MaxCell.Y), size)
	c, smooth := HotspotContours(&g, e, 5, Hot, Nearest, size, hotspot)
	require.Len(t, c, 1)
	assert.True(t, Inside(c[0], SensorToDisplay(5, 5, size)))
	assert.False(t, Inside(c[0], SensorToDisplay(25, 18, size)))
	assert.Equal(t, size, smooth.Bounds().Size())

	// A zero tolerance selects nothing.
	c, _ = HotspotContours(&g, e, 0, Hot, Nearest, size, hotspot)
	assert.Empty(t, c)
	// The tolerance is clamped.
	assert.Equal(t, Mask(&g, e, 100, Cold).Pix, Mask(&g, e, 1000, Cold).Pix)
}

func TestGaussianKernel(t *testing.T) {
	assert.Equal(t, []float32{0.25, 0.5, 0.25}, gaussianKernel(3))
	assert.Equal(t, []float32{0.0625, 0.25, 0.375, 0.25, 0.0625}, gaussianKernel(5))
	for _, k := range []int{7, 9, 13, 39} {
		kernel := gaussianKernel(k)
		require.Len(t, kernel, k)
		sum := float32(0)
		for i, v := range kernel {
			assert.Equal(t, v, kernel[k-1-i], "k=%d", k)
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-5, "k=%d", k)
	}
	// sigma = 0.3*((9-1)*0.5-1)+0.8 = 1.7.
	kernel := gaussianKernel(9)
	assert.InDelta(t, math.Exp(-1/(2*1.7*1.7)), float64(kernel[5]/kernel[4]), 1e-6)
}

func TestGaussianBlur(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 9, 5))
	for i := range m.Pix {
		m.Pix[i] = 200
	}
	gaussianBlur(m, 5)
	for _, v := range m.Pix {
		require.Equal(t, uint8(200), v)
	}
	// The border is reflected without repeating the edge pixel: a hot
	// corner spreads like a hot pixel one step inside a mirrored image.
	m = image.NewGray(image.Rect(0, 0, 9, 5))
	m.SetGray(0, 0, color.Gray{Y: 255})
	gaussianBlur(m, 3)
	assert.Equal(t, uint8(64), m.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(32), m.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(32), m.GrayAt(0, 1).Y)
	assert.Equal(t, uint8(16), m.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), m.GrayAt(2, 0).Y)
	assert.Equal(t, []int{1, 0, 1, 2, 3, 2}, []int{reflect101(-1, 4), reflect101(0, 4), reflect101(1, 4), reflect101(2, 4), reflect101(3, 4), reflect101(4, 4)})
}

func TestRender(t *testing.T) {
	g := uniformGrid(25)
	g[12][16] = 40
	g[3][2] = 10
	r := thermal.ResolveRange(10, 40, thermal.DefaultRangeSettings())
	o := DefaultOptions()
	o.Interpolation = Nearest
	img, ov := Render(&g, r, &o)
	require.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
	assert.Equal(t, image.Pt(330, 250), ov.MaxPos)
	assert.Equal(t, image.Pt(50, 70), ov.MinPos)
	assert.Equal(t, o.Palette.At(thermal.Normalize(&g, r)[12][16]), img.RGBAAt(ov.MaxPos.X, ov.MaxPos.Y))
	// The legend covers the left side.
	assert.Equal(t, o.Palette.Index(255), img.RGBAAt(0, 0))
	assert.NotEmpty(t, ov.Ticks)
	assert.Nil(t, ov.Hot)
	assert.Nil(t, ov.HotMask)

	o.Contours = true
	o.Debug = true
	o.Help = true
	o.Size = image.Pt(480, 320)
	img, ov = Render(&g, r, &o)
	assert.Equal(t, image.Rect(0, 0, 480, 320), img.Bounds())
	assert.Len(t, ov.Hot, 1)
	assert.Len(t, ov.Cold, 1)
	assert.NotNil(t, ov.HotMask)
	assert.NotNil(t, ov.ColdMask)
}

func uniformGrid(v float32) thermal.Grid {
	var g thermal.Grid
	for y := range g {
		for x := range g[y] {
			g[y][x] = v
		}
	}
	return g
}
