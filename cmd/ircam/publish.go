// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/maruel/go-ircam/viewer"
)

// Publisher sends the summary of rendered frames to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	topic  string
	period time.Duration
	c      chan viewer.Summary
	done   chan struct{}

	mu     sync.Mutex
	last   time.Time
	stats  PublisherStats
	closed bool
}

// PublisherStats counts the messages.
type PublisherStats struct {
	Sent    int
	Skipped int // Rate limited or the previous message was still pending.
	Failed  int
}

// StartPublisher connects to the broker and starts sending summaries.
func StartPublisher(cfg *MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID("ircam-" + uuid.NewString()[:8])
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt: timed out connecting to %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: failed to connect to %s: %w", cfg.Broker, err)
	}
	return newPublisher(c, cfg), nil
}

// newPublisher starts sending summaries on an already connected client.
func newPublisher(c mqtt.Client, cfg *MQTTConfig) *Publisher {
	p := &Publisher{
		client: c,
		topic:  cfg.Topic,
		period: time.Duration(cfg.PeriodMS) * time.Millisecond,
		c:      make(chan viewer.Summary, 1),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// OnSnapshot queues the summary of s, unless a message was sent less than
// the configured period ago. It is a no-op once the publisher is closed.
func (p *Publisher) OnSnapshot(s *viewer.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if s.Summary.Time.Sub(p.last) < p.period {
		p.stats.Skipped++
		return
	}
	select {
	case p.c <- s.Summary:
		p.last = s.Summary.Time
	default:
		p.stats.Skipped++
	}
}

// Stats returns a copy of the counters.
func (p *Publisher) Stats() PublisherStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close flushes the pending message, stops sending and disconnects.
//
// It is safe to call concurrently with OnSnapshot and more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.c)
	p.mu.Unlock()
	<-p.done
	p.client.Disconnect(250)
}

func (p *Publisher) run() {
	defer close(p.done)
	for s := range p.c {
		msg, err := json.Marshal(&s)
		if err == nil {
			token := p.client.Publish(p.topic, 0, false, msg)
			if !token.WaitTimeout(time.Second) {
				err = fmt.Errorf("timed out")
			} else {
				err = token.Error()
			}
		}
		p.mu.Lock()
		if err != nil {
			p.stats.Failed++
		} else {
			p.stats.Sent++
		}
		p.mu.Unlock()
		if err != nil {
			log.Printf("mqtt: failed to publish: %v", err)
		}
	}
}
