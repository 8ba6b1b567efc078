// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"sync"
	"time"
)

// Debouncer calls fire once, delay after the first Trigger of a burst. Triggers
// arriving while a call is pending join it. A Trigger after fire started opens
// a new burst.
type Debouncer struct {
	delay time.Duration
	fire  func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

func NewDebouncer(delay time.Duration, fire func()) *Debouncer {
	registerMetrics()
	return &Debouncer{delay: delay, fire: fire}
}

// Trigger records an event. It reports whether it opened a new burst.
func (d *Debouncer) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if d.pending {
		eventsCoalescedTotal.Inc()
		return false
	}
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		d.pending = false
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.fire()
		}
	})
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels a pending call and ignores later triggers. It reports whether a
// pending call was cancelled.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil && d.pending && d.timer.Stop() {
		d.pending = false
		return true
	}
	return false
}
