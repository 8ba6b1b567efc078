// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package monitor turns filesystem activity and a periodic timer into
// debounced, concurrency-capped accounting passes.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/wagoodman/go-partybus"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

const (
	FileCreated partybus.EventType = "file_created"
	FileChanged partybus.EventType = "file_changed"
	FileDeleted partybus.EventType = "file_deleted"
	FileRenamed partybus.EventType = "file_rename"
	// WatchOverflow means the kernel dropped events; listeners should recount.
	WatchOverflow partybus.EventType = "watch_overflow"
)

// FileMonitor watches directory trees recursively and publishes each change on
// a Bus. Directories created after start are watched as they appear.
// Directories whose base name is excluded are never watched.
type FileMonitor struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex

	roots   []string
	exclude []string
	watcher *fsnotify.Watcher
	running bool
	done    chan struct{}
	bus     types.Bus
}

// NewFileMonitor prepares watches on every existing root. Missing roots are
// skipped with a warning. Failing to create the notification watcher wraps
// types.ErrToolingUnavailable.
func NewFileMonitor(ctx context.Context, bus types.Bus, roots []string, exclude []string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrToolingUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &FileMonitor{
		ctx:     ctx,
		cancel:  cancel,
		roots:   roots,
		exclude: exclude,
		watcher: watcher,
		done:    make(chan struct{}),
		bus:     bus,
	}

	for _, root := range roots {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).Warn().Str("path", root).Msg("watched directory missing, not watching")
			continue
		}
		if err := m.addTree(root); err != nil {
			cancel()
			_ = watcher.Close()
			return nil, fmt.Errorf("%w: watch %s: %w", types.ErrToolingUnavailable, root, err)
		}
	}
	return m, nil
}

// WatchList returns the directories currently watched.
func (m *FileMonitor) WatchList() []string {
	return m.watcher.WatchList()
}

func (m *FileMonitor) excluded(path string) bool {
	return slices.Contains(m.exclude, filepath.Base(path))
}

// addTree watches dir and every directory below it.
func (m *FileMonitor) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && m.excluded(path) {
			return fs.SkipDir
		}
		if err := m.watcher.Add(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (m *FileMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	go func() {
		defer close(m.done)
		for {
			select {
			case <-m.ctx.Done():
				return
			case event, ok := <-m.watcher.Events:
				if !ok {
					return
				}
				m.handle(event)
			case err, ok := <-m.watcher.Errors:
				if !ok {
					return
				}
				if errors.Is(err, fsnotify.ErrEventOverflow) {
					log.Ctx(m.ctx).Warn().Err(err).Msg("filesystem event queue overflowed")
					m.bus.Publish(types.Event{Type: WatchOverflow})
					continue
				}
				log.Ctx(m.ctx).Error().Err(err).Msg("error watching files")
			}
		}
	}()
	m.running = true
}

func (m *FileMonitor) handle(event fsnotify.Event) {
	if m.excluded(event.Name) || m.excluded(filepath.Dir(event.Name)) {
		return
	}

	var kind partybus.EventType
	switch {
	// "mv a b" within the tree emits Rename for a and Create for b
	case event.Has(fsnotify.Create):
		kind = FileCreated
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := m.addTree(event.Name); err != nil {
				log.Ctx(m.ctx).Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
			}
		}
	case event.Has(fsnotify.Rename):
		kind = FileRenamed
	case event.Has(fsnotify.Write):
		kind = FileChanged
	case event.Has(fsnotify.Remove):
		kind = FileDeleted
	default:
		// chmod only; usage is unaffected
		return
	}

	m.bus.Publish(types.Event{
		Type:  kind,
		Value: types.FileEvent{Name: event.Name},
	})
}

// Close stops the event loop and releases the watches.
func (m *FileMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()
	_ = m.watcher.Close()
	if m.running {
		<-m.done
		m.running = false
	}
}
