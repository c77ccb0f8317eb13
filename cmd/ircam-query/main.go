// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ircam-query lists the serial ports and reports the health of the camera
// stream.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/ircamtest"
	"github.com/maruel/go-ircam/thermal"
	"github.com/maruel/go-ircam/viewer"
	"github.com/maruel/interrupt"
	"periph.io/x/periph/conn/physic"
)

func mainImpl() error {
	port := flag.String("port", "", "serial port to read; lists the ports if unset")
	speed := flag.Int("speed", int(ircam.DefaultSpeed/physic.Hertz), "serial bit rate in Hz")
	fake := flag.Bool("fake", false, "use a simulated camera")
	duration := flag.Duration("d", 5*time.Second, "duration of the measurement")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	var open ircam.Opener
	switch {
	case *fake:
		open = ircamtest.Opener(&ircamtest.Options{Seed: time.Now().UnixNano(), Garbage: 0.01, DropRows: 0.01})
	case *port != "":
		open = ircam.OpenSerial(*port, physic.Frequency(*speed)*physic.Hertz)
	default:
		ports, err := ircam.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Printf("No serial port found\n")
		}
		for _, p := range ports {
			fmt.Printf("%s\n", p)
		}
		return nil
	}

	interrupt.HandleCtrlC()
	h := ircam.Start(open, nil)
	start := time.Now()
	end := start.Add(*duration)
	frames := 0
	var last *ircam.Frame
	for !interrupt.IsSet() && time.Now().Before(end) {
		if f, ok := h.TryTake(100 * time.Millisecond); ok {
			frames++
			last = f
		}
	}
	elapsed := time.Since(start)
	err := h.Stop()
	stats := h.Stats()
	rate := physic.Frequency(float64(frames) / elapsed.Seconds() * float64(physic.Hertz))
	fmt.Printf("Duration:       %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Frames taken:   %d (%s)\n", frames, rate)
	fmt.Printf("Bytes read:     %d\n", stats.BytesRead)
	fmt.Printf("Records:        %d\n", stats.GoodRecords)
	fmt.Printf("Invalid bytes:  %d\n", stats.InvalidBytes)
	fmt.Printf("Row gaps:       %d\n", stats.SeqGaps)
	fmt.Printf("Complete:       %d\n", stats.GoodFrames)
	fmt.Printf("Partial:        %d\n", stats.PartialFrames)
	fmt.Printf("Discarded:      %d\n", stats.DiscardFrames)
	fmt.Printf("Skipped:        %d\n", stats.SkippedFrames)
	fmt.Printf("Resets:         %d\n", stats.Resets)
	fmt.Printf("Dropped:        %d\n", stats.DroppedFrames)
	fmt.Printf("Transfer fails: %d (%d reopens)\n", stats.TransferFails, stats.Reopens)
	if stats.LastFail != nil {
		fmt.Printf("Last failure:   %s\n", stats.LastFail)
	}
	if last != nil {
		e := thermal.FindExtremes(&last.Grid)
		fmt.Printf("Last frame:     #%d partial=%t\n", last.Seq, last.Partial)
		fmt.Printf("  Min:          %s\n", viewer.Temperature(e.Min))
		fmt.Printf("  Max:          %s\n", viewer.Temperature(e.Max))
	}
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nircam-query: %s.\n", err)
		os.Exit(1)
	}
}
