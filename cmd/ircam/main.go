// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ircam displays the video of a 32x24 thermal camera streaming temperatures
// over a serial port.
//
// The rendered video is served over HTTP. Keys pressed in the page control
// the display, the same way as documented in the help overlay.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/ircamtest"
	"github.com/maruel/go-ircam/viewer"
	"github.com/maruel/interrupt"
	"periph.io/x/periph/conn/physic"
)

func mainImpl() error {
	port := flag.String("port", "", "serial port; defaults to the configured one")
	speed := flag.Int("speed", 0, "serial bit rate in Hz; defaults to the configured one")
	addr := flag.String("http", ":8010", "address to listen on")
	fake := flag.Bool("fake", false, "use a simulated camera")
	load := flag.String("load", "", "display a CSV capture instead of the camera")
	config := flag.String("config", configPath(), "configuration file")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	interrupt.HandleCtrlC()
	stop := make(chan struct{})
	go func() {
		<-interrupt.Channel
		close(stop)
	}()

	cf := &configFile{path: *config}
	cfg := cf.load()
	if *port != "" {
		cfg.Port = *port
	}
	if *speed != 0 {
		cfg.Speed = *speed
	}
	if err := cf.save(cfg); err != nil {
		return err
	}
	v, err := viewer.New(cfg.Settings)
	if err != nil {
		return err
	}
	v.CaptureDir = cfg.CaptureDir

	var src viewer.Source
	var h *ircam.Handle
	switch {
	case *load != "":
		s, err := viewer.LoadStatic(*load)
		if err != nil {
			return err
		}
		src = s
	case *fake:
		h = ircam.Start(ircamtest.Opener(&ircamtest.Options{Seed: time.Now().UnixNano()}), &ircam.Options{Policy: cfg.policy()})
		src = h
	default:
		open, err := openPort(cfg)
		if err != nil {
			return fmt.Errorf("%w\nIf testing without hardware, use -fake to simulate a camera", err)
		}
		h = ircam.Start(open, &ircam.Options{Policy: cfg.policy()})
		src = h
	}
	if h != nil {
		defer func() {
			if err := h.Stop(); err != nil {
				log.Printf("close: %v", err)
			}
		}()
	}

	// Operator changes are persisted.
	var mu sync.Mutex
	save := func() {
		mu.Lock()
		defer mu.Unlock()
		cfg.Settings = v.Settings()
		if err := cf.save(cfg); err != nil {
			log.Printf("failed to save %s: %v", cf.path, err)
		}
	}
	ws, err := StartWebServer(*addr, v, save)
	if err != nil {
		return err
	}
	v.OnSnapshot(ws.AddSnapshot)
	var pub *Publisher
	if cfg.MQTT.Broker != "" {
		if pub, err = StartPublisher(&cfg.MQTT); err != nil {
			return err
		}
		v.OnSnapshot(pub.OnSnapshot)
	}

	go func() {
		err := watchFile(cf.path, func() {
			// Invalid values are rejected and the current settings kept.
			n, err := cf.read()
			if err != nil {
				log.Printf("config: %v", err)
				return
			}
			if err := v.SetSettings(n.Settings); err != nil {
				log.Printf("config: %v", err)
				return
			}
			log.Printf("reloaded %s", cf.path)
		})
		if err != nil {
			log.Printf("watch %s: %v", cf.path, err)
		}
	}()

	done := make(chan struct{})
	go func() {
		v.Run(src, stop)
		close(done)
	}()

	for !interrupt.IsSet() {
		line := ""
		if snap := v.Snapshot(); snap != nil {
			line = snap.Summary.String()
		}
		if h != nil {
			stats := h.Stats()
			line += " " + stats.String()
		}
		if pub != nil {
			p := pub.Stats()
			line += fmt.Sprintf(" mqtt %d sent %d skipped %d failed", p.Sent, p.Skipped, p.Failed)
		}
		fmt.Printf("\r%s", line)
		select {
		case <-stop:
		case <-time.After(time.Second):
		}
	}
	fmt.Print("\n")
	<-done
	if pub != nil {
		pub.Close()
	}
	return nil
}

// openPort returns the configured port or the first one found.
func openPort(cfg *Config) (ircam.Opener, error) {
	p := cfg.Port
	if p == "" {
		ports, err := ircam.Ports()
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			return nil, errors.New("no serial port found")
		}
		p = ports[0]
	}
	if _, err := os.Stat(p); err != nil && filepath.IsAbs(p) {
		return nil, err
	}
	s := cfg.speed()
	if s < physic.Hertz {
		return nil, fmt.Errorf("invalid speed %d", cfg.Speed)
	}
	fmt.Printf("Reading %s at %s\n", p, s)
	return ircam.OpenSerial(p, s), nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nircam: %s.\n", err)
		os.Exit(1)
	}
}
