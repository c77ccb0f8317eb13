// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ircamtest implements a fake thermal camera speaking the ircam
// serial protocol.
package ircamtest

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/thermal"
	"github.com/vmihailenco/msgpack/v5"
)

// Encode returns the wire encoding of r, using the smallest integer
// encodings like the reference firmware.
func Encode(r ircam.Record) []byte {
	var b bytes.Buffer
	e := msgpack.NewEncoder(&b)
	_ = e.EncodeArrayLen(ircam.RecordFields)
	_ = e.EncodeUint(uint64(r.Seq))
	_ = e.EncodeUint(uint64(r.Row))
	for _, v := range r.Samples {
		_ = e.EncodeInt(int64(v))
	}
	return b.Bytes()
}

// EncodeWide returns the wire encoding of r with every field as a 64 bits
// integer, the largest valid encoding of a record.
func EncodeWide(r ircam.Record) []byte {
	var b bytes.Buffer
	e := msgpack.NewEncoder(&b)
	_ = e.EncodeArrayLen(ircam.RecordFields)
	_ = e.EncodeInt64(int64(r.Seq))
	_ = e.EncodeInt64(int64(r.Row))
	for _, v := range r.Samples {
		_ = e.EncodeInt64(int64(v))
	}
	return b.Bytes()
}

// Records returns the 24 records encoding g as frame seq.
//
// Temperatures are rounded to hundredths of °C.
func Records(seq uint32, g *thermal.Grid) []ircam.Record {
	out := make([]ircam.Record, thermal.Height)
	for y := range out {
		out[y].Seq = seq
		out[y].Row = uint8(y)
		for x := range out[y].Samples {
			out[y].Samples[x] = int32(math.Round(float64(g[y][x]) * 100))
		}
	}
	return out
}

// Sensor generates a smoothly changing scene: a few heat sources drifting
// over a room temperature background.
type Sensor struct {
	noise *noise
	seq   uint32
}

// NewSensor returns a deterministic Sensor for seed.
func NewSensor(seed int64) *Sensor {
	return &Sensor{noise: makeNoise(seed)}
}

// Next returns the sequence number and the temperatures of the next frame.
func (s *Sensor) Next() (uint32, thermal.Grid) {
	var g thermal.Grid
	s.noise.update()
	s.noise.render(&g)
	seq := s.seq
	s.seq++
	return seq, g
}

// Options configures a fake Port.
type Options struct {
	Seed     int64
	Period   time.Duration // Between frames. Default: 125ms (8Hz).
	Garbage  float64       // Probability of random bytes before each record.
	DropRows float64       // Probability of a record being lost.
}

// Port is a fake serial port streaming a Sensor.
//
// It implements ircam.Transport including the read timeout.
type Port struct {
	sensor   *Sensor
	rand     *rand.Rand
	period   time.Duration
	garbage  float64
	dropRows float64

	mu      sync.Mutex
	pending []byte
	next    time.Time
	timeout time.Duration
	closed  bool
}

// NewPort returns a Port streaming a fresh Sensor.
func NewPort(opts *Options) *Port {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.Period <= 0 {
		o.Period = 125 * time.Millisecond
	}
	return &Port{
		sensor:   NewSensor(o.Seed),
		rand:     rand.New(rand.NewSource(o.Seed)),
		period:   o.Period,
		garbage:  o.Garbage,
		dropRows: o.DropRows,
		next:     time.Now(),
		timeout:  100 * time.Millisecond,
	}
}

// Opener returns an ircam.Opener creating a new Port on each call, like a
// device being reset.
func Opener(opts *Options) ircam.Opener {
	return func() (ircam.Transport, error) {
		return NewPort(opts), nil
	}
}

// Read returns pending bytes, waiting up to the read timeout for the next
// frame.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, os.ErrClosed
	}
	if len(p.pending) == 0 {
		if wait := time.Until(p.next); wait > 0 {
			if wait > p.timeout {
				p.mu.Unlock()
				time.Sleep(p.timeout)
				p.mu.Lock()
				return 0, nil
			}
			p.mu.Unlock()
			time.Sleep(wait)
			p.mu.Lock()
			if p.closed {
				return 0, os.ErrClosed
			}
		}
		p.generate()
	}
	n := copy(b, p.pending)
	p.pending = p.pending[:copy(p.pending, p.pending[n:])]
	return n, nil
}

// SetReadTimeout implements the optional read timeout of ircam.Transport.
func (p *Port) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

// ResetInputBuffer drops pending bytes.
func (p *Port) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = p.pending[:0]
	return nil
}

// Close implements io.Closer.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return os.ErrClosed
	}
	p.closed = true
	return nil
}

func (p *Port) generate() {
	seq, g := p.sensor.Next()
	for _, r := range Records(seq, &g) {
		if p.garbage > 0 && p.rand.Float64() < p.garbage {
			junk := make([]byte, 1+p.rand.Intn(16))
			p.rand.Read(junk)
			p.pending = append(p.pending, junk...)
		}
		if p.dropRows > 0 && p.rand.Float64() < p.dropRows {
			continue
		}
		p.pending = append(p.pending, Encode(r)...)
	}
	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	p.next = p.next.Add(p.period)
}

//

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	rand    *rand.Rand
	vectors []vector
}

func makeNoise(seed int64) *noise {
	n := &noise{rand: rand.New(rand.NewSource(seed))}
	n.vectors = make([]vector, 4)
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 40
		n.vectors[i].x = n.rand.NormFloat64()*6 + thermal.Width/2
		n.vectors[i].y = n.rand.NormFloat64()*4 + thermal.Height/2
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.5
		n.vectors[i].x += n.rand.NormFloat64() * 0.2
		n.vectors[i].y += n.rand.NormFloat64() * 0.2
	}
}

func (n *noise) render(g *thermal.Grid) {
	const ambient = 22.
	for y := range g {
		fy := float64(y)
		for x := range g[y] {
			fx := float64(x)
			value := ambient + n.rand.NormFloat64()*0.1
			for _, vect := range n.vectors {
				distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy)
				value += vect.intensity / (1 + distance)
			}
			if value > ambient+80 {
				value = ambient + 80
			} else if value < ambient-40 {
				value = ambient - 40
			}
			g[y][x] = float32(value)
		}
	}
}
