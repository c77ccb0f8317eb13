// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/maruel/interrupt"
	fsnotify "gopkg.in/fsnotify.v1"
)

// watchFile calls fn every time the content of fileName is modified, until
// interrupted.
//
// The directory is watched so the file can be replaced atomically by an
// editor.
func watchFile(fileName string, fn func()) error {
	var mod0 time.Time
	if fi, err := os.Stat(fileName); err == nil {
		mod0 = fi.ModTime()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(filepath.Dir(fileName)); err != nil {
		return err
	}
	for {
		select {
		case <-interrupt.Channel:
			return nil
		case err = <-watcher.Errors:
			return err
		case ev := <-watcher.Events:
			if filepath.Clean(ev.Name) != filepath.Clean(fileName) || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fi, err := os.Stat(fileName)
			if err != nil || fi.ModTime().Equal(mod0) {
				continue
			}
			mod0 = fi.ModTime()
			fn()
		}
	}
}
