// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ircam-grab captures a single frame as PNG and CSV.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/maruel/go-ircam/capture"
	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/ircamtest"
	"github.com/maruel/go-ircam/render"
	"github.com/maruel/go-ircam/thermal"
	"github.com/maruel/go-ircam/viewer"
	"github.com/maruel/interrupt"
	"periph.io/x/periph/conn/physic"
)

func mainImpl() error {
	port := flag.String("port", "", "serial port; defaults to the first one found")
	speed := flag.Int("speed", int(ircam.DefaultSpeed/physic.Hertz), "serial bit rate in Hz")
	fake := flag.Bool("fake", false, "use a simulated camera")
	timeout := flag.Duration("timeout", 5*time.Second, "maximum time to wait for a complete frame")
	palette := flag.String("palette", render.DefaultPalette, "color map")
	res := flag.String("res", "640x480", "image resolution")
	mirror := flag.Bool("mirror", true, "flip the image left-right")
	meta := flag.Bool("meta", false, "print metadata")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 1 {
		return errors.New("supply path to PNG to save")
	}
	out := flag.Args()[0]
	s := viewer.DefaultSettings()
	s.Palette = *palette
	s.Resolution = *res
	o, err := s.Options()
	if err != nil {
		return err
	}
	interrupt.HandleCtrlC()

	var open ircam.Opener
	if *fake {
		open = ircamtest.Opener(&ircamtest.Options{Seed: time.Now().UnixNano()})
	} else {
		p := *port
		if p == "" {
			ports, err := ircam.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				return errors.New("no serial port found\nIf testing without hardware, use -fake to simulate a camera")
			}
			p = ports[0]
		}
		open = ircam.OpenSerial(p, physic.Frequency(*speed)*physic.Hertz)
	}
	// Only complete frames are useful.
	h := ircam.Start(open, &ircam.Options{Policy: ircam.DiscardPartial})
	f, err := grab(h, *timeout)
	if err2 := h.Stop(); err == nil {
		err = err2
	}
	if err != nil {
		return err
	}
	if err := f.Grid.Validate(); err != nil {
		return err
	}

	g := f.Grid
	if *mirror {
		g = f.Grid.Mirror()
	}
	e := thermal.FindExtremes(&g)
	r := thermal.ResolveRange(e.Min, e.Max, s.Range)
	img, _ := render.Render(&g, r, &o)
	if *meta {
		stats := h.Stats()
		fmt.Printf("Seq:   %d\n", f.Seq)
		fmt.Printf("Min:   %s at %s\n", viewer.Temperature(e.Min), e.MinCell)
		fmt.Printf("Max:   %s at %s\n", viewer.Temperature(e.Max), e.MaxCell)
		fmt.Printf("Range: %s - %s\n", viewer.Temperature(r.Min), viewer.Temperature(r.Max))
		fmt.Printf("Stats: %s\n", &stats)
	}
	if err := writeFile(out, func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
		return err
	}
	return writeFile(strings.TrimSuffix(out, ".png")+".csv", func(w io.Writer) error { return capture.WriteCSV(w, &g) })
}

// grab waits for the first frame.
func grab(h *ircam.Handle, timeout time.Duration) (*ircam.Frame, error) {
	end := time.Now().Add(timeout)
	for !interrupt.IsSet() {
		left := time.Until(end)
		if left <= 0 {
			break
		}
		if f, ok := h.TryTake(min(left, 100*time.Millisecond)); ok {
			return f, nil
		}
	}
	stats := h.Stats()
	if stats.LastFail != nil {
		return nil, stats.LastFail
	}
	return nil, errors.New("no frame received")
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

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nircam-grab: %s.\n", err)
		os.Exit(1)
	}
}
