// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ircam

import (
	"log"
	"sync"
	"time"
)

// Options configures an acquisition channel.
//
// The zero value for each field selects its default.
type Options struct {
	ReadSize    int           // Maximum bytes per read. Default: 1000.
	ReadTimeout time.Duration // Bounded read on the transport. Default: 100ms.
	Backoff     time.Duration // Delay before reopening after a failure. Default: 200ms.
	Policy      PartialPolicy // Default: PublishPartial.
	SlotSize    int           // Frames waiting for the consumer, 1 or 2. Default: 1.
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.ReadSize <= 0 {
		out.ReadSize = 1000
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 100 * time.Millisecond
	}
	if out.Backoff <= 0 {
		out.Backoff = 200 * time.Millisecond
	}
	if out.SlotSize <= 0 {
		out.SlotSize = 1
	} else if out.SlotSize > 2 {
		out.SlotSize = 2
	}
	return out
}

// Handle is a running acquisition channel.
//
// A single goroutine owns the transport, the decoder and the assembler. The
// consumer only sees published frames, newest first: when the consumer is
// slower than the camera, older frames are dropped.
type Handle struct {
	slot chan *Frame
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	stats Stats
	err   error // Set before done is closed.
}

// Start opens the transport and starts acquiring frames in the background.
//
// Open failures are retried after opts.Backoff until Stop is called. opts
// may be nil.
func Start(open Opener, opts *Options) *Handle {
	o := opts.withDefaults()
	h := &Handle{
		slot: make(chan *Frame, o.SlotSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		h.err = h.run(open, &o)
		close(h.done)
	}()
	return h
}

// TryTake returns the latest published frame, waiting at most timeout.
//
// It returns false if no frame was published in time.
func (h *Handle) TryTake(timeout time.Duration) (*Frame, bool) {
	if timeout <= 0 {
		select {
		case f := <-h.slot:
			return f, true
		default:
			return nil, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-h.slot:
		return f, true
	case <-t.C:
		return nil, false
	}
}

// Stop terminates acquisition and releases the transport.
//
// It is safe to call multiple times; every call returns the error of closing
// the transport, if any.
func (h *Handle) Stop() error {
	h.once.Do(func() {
		close(h.stop)
	})
	<-h.done
	return h.err
}

// Stats returns a copy of the counters.
func (h *Handle) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Private details.

func (h *Handle) run(open Opener, o *Options) error {
	asm := NewAssembler(o.Policy)
	dec := Decoder{}
	buf := make([]byte, o.ReadSize)
	var frames []*Frame
	var t Transport
	failed := false
	for {
		select {
		case <-h.stop:
			if t != nil {
				return t.Close()
			}
			return nil
		default:
		}

		if t == nil {
			var err error
			if t, err = open(); err != nil {
				t = nil
				h.fail(err)
				if !h.sleep(o.Backoff) {
					return nil
				}
				continue
			}
			if failed {
				h.mu.Lock()
				h.stats.Reopens++
				h.mu.Unlock()
				failed = false
			}
			if s, ok := t.(readTimeouter); ok {
				if err := s.SetReadTimeout(o.ReadTimeout); err != nil {
					log.Printf("failed to set read timeout: %v", err)
				}
			}
			if r, ok := t.(inputResetter); ok {
				if err := r.ResetInputBuffer(); err != nil {
					log.Printf("failed to flush input: %v", err)
				}
			}
			dec.Reset()
		}

		n, err := t.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			invalid := 0
			frames = frames[:0]
			for {
				rec, res := dec.Next()
				if res == Incomplete {
					break
				}
				if res == Invalid {
					invalid++
					continue
				}
				frames = asm.Push(frames, rec)
			}
			for _, f := range frames {
				h.publish(f)
			}
			h.mu.Lock()
			h.stats.LastFail = nil
			h.stats.BytesRead += int64(n)
			h.stats.InvalidBytes += invalid
			h.stats.mergeAssembler(asm.Stats())
			h.mu.Unlock()
		}
		if err != nil {
			h.fail(err)
			if err := t.Close(); err != nil {
				log.Printf("failed to close transport: %v", err)
			}
			t = nil
			failed = true
			if !h.sleep(o.Backoff) {
				return nil
			}
		}
	}
}

// fail records a transport failure. Only the first failure of a streak is
// logged.
func (h *Handle) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stats.LastFail == nil {
		log.Printf("transport failure: %v", err)
	}
	h.stats.LastFail = err
	h.stats.TransferFails++
}

// sleep waits for d. It returns false if Stop was called meanwhile.
func (h *Handle) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-h.stop:
		return false
	case <-t.C:
		return true
	}
}

// publish hands f to the consumer, evicting the oldest frame waiting if the
// slot is full.
func (h *Handle) publish(f *Frame) {
	for {
		select {
		case h.slot <- f:
			return
		default:
		}
		select {
		case <-h.slot:
			h.mu.Lock()
			h.stats.DroppedFrames++
			h.mu.Unlock()
		default:
		}
	}
}

func (s *Stats) mergeAssembler(a Stats) {
	s.GoodRecords = a.GoodRecords
	s.SeqGaps = a.SeqGaps
	s.GoodFrames = a.GoodFrames
	s.PartialFrames = a.PartialFrames
	s.DiscardFrames = a.DiscardFrames
	s.SkippedFrames = a.SkippedFrames
	s.Resets = a.Resets
}
