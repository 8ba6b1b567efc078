// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrSchedulerClosed is returned by Submit after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler runs accounting passes asynchronously with at most limit in flight.
// Submit blocks while the limit is reached; no pass is dropped.
type Scheduler struct {
	sem   *semaphore.Weighted
	limit int64

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	inFlight atomic.Int64
	peak     atomic.Int64
}

func NewScheduler(limit int) *Scheduler {
	registerMetrics()
	if limit < 1 {
		limit = 1
	}
	return &Scheduler{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Submit waits for a free slot and starts pass in its own goroutine. It fails
// when ctx ends before a slot frees or the scheduler is closed.
func (s *Scheduler) Submit(ctx context.Context, trigger string, pass func(ctx context.Context)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.wg.Done()
		return err
	}

	n := s.inFlight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	passesInFlight.Inc()
	passesTotal.WithLabelValues(trigger).Inc()

	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		defer passesInFlight.Dec()
		defer s.inFlight.Add(-1)
		pass(ctx)
	}()
	return nil
}

// Close stops admitting passes. Passes already admitted or waiting still run.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Wait blocks until every submitted pass has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// InFlight is the number of passes running now.
func (s *Scheduler) InFlight() int64 { return s.inFlight.Load() }

// Peak is the highest number of passes that ever ran at once.
func (s *Scheduler) Peak() int64 { return s.peak.Load() }

// Limit is the configured in-flight cap.
func (s *Scheduler) Limit() int64 { return s.limit }
