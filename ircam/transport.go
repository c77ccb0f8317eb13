// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ircam

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"periph.io/x/periph/conn/physic"
)

// Transport is a byte source, normally a serial port.
//
// Read may return (0, nil) when its read timeout expires.
type Transport interface {
	io.ReadCloser
}

// Opener opens a Transport. It is called again after each failure.
type Opener func() (Transport, error)

// readTimeouter is implemented by transports supporting a bounded Read.
type readTimeouter interface {
	SetReadTimeout(t time.Duration) error
}

// inputResetter is implemented by transports that can flush pending input.
type inputResetter interface {
	ResetInputBuffer() error
}

// OpenSerial returns an Opener for a serial port at the given speed, 8N1.
func OpenSerial(path string, speed physic.Frequency) Opener {
	return func() (Transport, error) {
		if speed < physic.Hertz {
			return nil, fmt.Errorf("ircam: invalid speed %s", speed)
		}
		m := &serial.Mode{
			BaudRate: int(speed / physic.Hertz),
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		p, err := serial.Open(path, m)
		if err != nil {
			return nil, fmt.Errorf("ircam: failed to open %s: %w", path, err)
		}
		return p, nil
	}
}

// Ports returns the serial ports present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
