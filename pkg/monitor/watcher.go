// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

// TriggerEvent labels passes started by filesystem activity.
const TriggerEvent = "event"

var _ types.Runnable = (*Watcher)(nil)

// Watcher listens for changes below a tenant's billable trees and requests one
// accounting pass per debounced burst.
type Watcher struct {
	roots    []string
	exclude  []string
	debounce time.Duration
	schedule func(trigger string)

	bus         types.Bus
	monitor     *FileMonitor
	debouncer   *Debouncer
	running     bool
	originalCtx context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	done        chan struct{}
}

func NewWatcher(ctx context.Context, roots, exclude []string, debounce time.Duration, schedule func(trigger string)) *Watcher {
	newCtx, cancel := context.WithCancel(ctx)
	return &Watcher{
		roots:       roots,
		exclude:     exclude,
		debounce:    debounce,
		schedule:    schedule,
		bus:         NewBus(),
		originalCtx: ctx,
		ctx:         newCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start installs the watches. It fails with types.ErrToolingUnavailable when
// filesystem notifications cannot be used.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fm, err := NewFileMonitor(w.ctx, w.bus, w.roots, w.exclude)
	if err != nil {
		return err
	}
	w.monitor = fm
	w.debouncer = NewDebouncer(w.debounce, func() { w.schedule(TriggerEvent) })

	sub := w.bus.Subscribe()
	ctx, done, debouncer := w.ctx, w.done, w.debouncer
	go func() {
		defer close(done)
		defer func() { _ = w.bus.Unsubscribe(sub) }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if debouncer.Trigger() {
					log.Ctx(ctx).Debug().Str("event", string(event.Type)).Dur("debounce", w.debounce).Msg("change detected, pass scheduled")
				}
			}
		}
	}()
	fm.Start()

	log.Ctx(w.ctx).Info().Strs("roots", w.roots).Int("watches", len(fm.WatchList())).Msg("watching for changes")
	w.running = true
	return nil
}

// Shutdown stops intake. A burst still waiting for its debounce is dropped;
// the caller's final pass covers it.
func (w *Watcher) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.monitor.Close()
	w.cancel()
	<-w.done
	w.debouncer.Stop()
	w.reset()
	return nil
}

func (w *Watcher) reset() {
	w.running = false
	ctx, cancel := context.WithCancel(w.originalCtx)
	w.ctx = ctx
	w.cancel = cancel
	w.done = make(chan struct{})
	w.bus = NewBus()
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
