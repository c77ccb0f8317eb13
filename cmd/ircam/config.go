// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"sync"

	"github.com/maruel/go-ircam/ircam"
	"github.com/maruel/go-ircam/viewer"
	"periph.io/x/periph/conn/physic"
)

// Config is the content of ~/.config/ircam/ircam.json.
type Config struct {
	Port           string // Serial port; empty selects the first one found.
	Speed          int    // Bit rate in Hz.
	DiscardPartial bool   // Drop frames abandoned before their last row.
	CaptureDir     string
	Settings       viewer.Settings
	MQTT           MQTTConfig
}

// MQTTConfig enables publishing a summary of each frame. It is disabled
// when Broker is empty.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	PeriodMS int // Minimum delay between two messages.
}

func defaultConfig() Config {
	return Config{
		Speed:      int(ircam.DefaultSpeed / physic.Hertz),
		CaptureDir: "capture",
		Settings:   viewer.DefaultSettings(),
		MQTT:       MQTTConfig{Topic: "ircam/summary", PeriodMS: 1000},
	}
}

// speed returns the configured bit rate.
func (c *Config) speed() physic.Frequency {
	return physic.Frequency(c.Speed) * physic.Hertz
}

func (c *Config) policy() ircam.PartialPolicy {
	if c.DiscardPartial {
		return ircam.DiscardPartial
	}
	return ircam.PublishPartial
}

// validate replaces the invalid values with their default.
func (c *Config) validate() {
	d := defaultConfig()
	if c.Speed <= 0 {
		log.Printf("config: invalid speed %d", c.Speed)
		c.Speed = d.Speed
	}
	if c.CaptureDir == "" {
		c.CaptureDir = d.CaptureDir
	}
	if err := c.Settings.Validate(); err != nil {
		log.Printf("config: %v", err)
		c.Settings = d.Settings
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = d.MQTT.Topic
	}
	if c.MQTT.PeriodMS < 0 {
		c.MQTT.PeriodMS = d.MQTT.PeriodMS
	}
}

func configPath() string {
	usr, err := user.Current()
	if err != nil {
		return filepath.Join(".config", "ircam", "ircam.json")
	}
	return filepath.Join(usr.HomeDir, ".config", "ircam", "ircam.json")
}

// configFile serializes access to the configuration file.
type configFile struct {
	path string
	mu   sync.Mutex
}

// load reads the configuration or returns the default one if none exists.
//
// The file is normalized: it is rewritten when it differs from its
// canonical form, which creates it on first use.
func (f *configFile) load() *Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, srcData, err := f.readLocked()
	if err != nil {
		log.Printf("%s is invalid json: %v", f.path, err)
		d := defaultConfig()
		c = &d
	}
	c.validate()
	if err := f.writeLocked(c, srcData); err != nil {
		log.Printf("failed to write %s: %v", f.path, err)
	}
	return c
}

// read returns the configuration as found in the file, without validation.
func (f *configFile) read() (*Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, _, err := f.readLocked()
	return c, err
}

// save writes c if it differs from the file content.
func (f *configFile) save(c *Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	srcData, _ := os.ReadFile(f.path)
	return f.writeLocked(c, srcData)
}

func (f *configFile) readLocked() (*Config, []byte, error) {
	c := defaultConfig()
	srcData, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &c, nil, nil
		}
		return nil, nil, err
	}
	if err := json.Unmarshal(srcData, &c); err != nil {
		return nil, srcData, err
	}
	return &c, srcData, nil
}

func (f *configFile) writeLocked(c *Config, srcData []byte) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if bytes.Equal(srcData, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0600)
}
