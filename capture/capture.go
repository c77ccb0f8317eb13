// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package capture saves and loads frame snapshots: the rendered image as PNG
// and the temperatures as CSV.
package capture

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/go-ircam/thermal"
)

// Name returns the base file name of a capture taken at t, without
// extension.
func Name(t time.Time) string {
	return "ircam_" + t.Format("20060102_150405")
}

// Save writes <dir>/<name>.png and <dir>/<name>.csv and returns the path
// of the image.
func Save(dir string, t time.Time, img image.Image, g *thermal.Grid) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	base := filepath.Join(dir, Name(t))
	if err := writeFile(base+".png", func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
		return "", err
	}
	if err := writeFile(base+".csv", func(w io.Writer) error { return WriteCSV(w, g) }); err != nil {
		return "", err
	}
	return base + ".png", nil
}

// WriteCSV writes g as 24 lines of 32 comma separated values, with two
// decimals.
func WriteCSV(w io.Writer, g *thermal.Grid) error {
	c := csv.NewWriter(w)
	line := make([]string, thermal.Width)
	for y := range g {
		for x, v := range g[y] {
			line[x] = strconv.FormatFloat(float64(v), 'f', 2, 32)
		}
		if err := c.Write(line); err != nil {
			return err
		}
	}
	c.Flush()
	return c.Error()
}

// ReadCSV parses a grid written by WriteCSV.
//
// Blank lines and spaces around values are ignored. The data must be 24
// rows of 32 finite values.
func ReadCSV(r io.Reader) (thermal.Grid, error) {
	c := csv.NewReader(r)
	c.FieldsPerRecord = -1
	c.TrimLeadingSpace = true
	records, err := c.ReadAll()
	if err != nil {
		return thermal.Grid{}, err
	}
	rows := make([][]float32, 0, len(records))
	for i, rec := range records {
		row := make([]float32, len(rec))
		for j, s := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
			if err != nil {
				return thermal.Grid{}, fmt.Errorf("capture: line %d column %d: %w", i+1, j+1, err)
			}
			row[j] = float32(v)
		}
		rows = append(rows, row)
	}
	return thermal.GridFromRows(rows)
}

// Load reads a CSV capture file.
func Load(path string) (thermal.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return thermal.Grid{}, err
	}
	defer f.Close()
	g, err := ReadCSV(f)
	if err != nil {
		return g, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
