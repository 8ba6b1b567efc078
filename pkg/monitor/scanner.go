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

// TriggerScan labels passes started by the periodic scanner.
const TriggerScan = "scan"

var _ types.Runnable = (*Scanner)(nil)

// Scanner requests an unconditional accounting pass every interval, whether or
// not any filesystem event was seen.
type Scanner struct {
	interval    time.Duration
	schedule    func(trigger string)
	running     bool
	originalCtx context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	done        chan struct{}
}

func NewScanner(ctx context.Context, interval time.Duration, schedule func(trigger string)) *Scanner {
	newCtx, cancel := context.WithCancel(ctx)
	return &Scanner{
		interval:    interval,
		schedule:    schedule,
		originalCtx: ctx,
		ctx:         newCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func (s *Scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	ctx, done := s.ctx, s.done
	go func() {
		defer ticker.Stop()
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Ctx(ctx).Error().Interface("panic", r).Msg("recovered from panic in periodic scanner")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Ctx(ctx).Debug().Dur("interval", s.interval).Msg("periodic scan")
				s.schedule(TriggerScan)
			}
		}
	}()
	s.running = true
	return nil
}

func (s *Scanner) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	<-s.done
	s.reset()
	return nil
}

func (s *Scanner) reset() {
	s.running = false
	ctx, cancel := context.WithCancel(s.originalCtx)
	s.ctx = ctx
	s.cancel = cancel
	s.done = make(chan struct{})
}

func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
