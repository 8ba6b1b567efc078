// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package housekeeper periodically purges alert cooldown records that are older
// than the longest cooldown window. Such records can no longer suppress an alert.
package housekeeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type HouseKeeper struct {
	store           types.CooldownStore
	running         bool
	originalCtx     context.Context
	ctx             context.Context
	cancel          context.CancelFunc
	mu              sync.Mutex
	cleanupInterval time.Duration
	retentionTime   time.Duration
	clock           types.TimeProvider
	done            chan struct{}
}

func New(
	ctx context.Context,
	store types.CooldownStore,
	clock types.TimeProvider,
	settings *config.Settings,
) *HouseKeeper {
	newCtx, cancel := context.WithCancel(ctx)
	return &HouseKeeper{
		originalCtx:     ctx,
		ctx:             newCtx,
		cancel:          cancel,
		done:            make(chan struct{}),
		clock:           clock,
		store:           store,
		cleanupInterval: settings.Database.CleanupInterval,
		retentionTime:   settings.Alerts.Cooldowns.Longest(),
	}
}

func (h *HouseKeeper) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	ticker := time.NewTicker(h.cleanupInterval)
	go func() {
		defer ticker.Stop()
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				log.Info().
					Interface("panic", r).
					Msg("Recovered from panic in cooldown purge")
			}
		}()
		for {
			select {
			case <-h.ctx.Done():
				return
			case <-ticker.C:
				if _, err := h.Purge(h.ctx); err != nil {
					log.Ctx(h.ctx).Err(err).Msg("Failed to purge expired cooldown records")
				}
			}
		}
	}()
	h.running = true
	return nil
}

// Purge removes expired cooldown records once and returns how many were removed.
func (h *HouseKeeper) Purge(ctx context.Context) (int, error) {
	cutoff := h.clock.GetCurrentTime().Add(-1 * h.retentionTime)
	removed, err := h.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Ctx(ctx).Debug().
			Int("deleted_count", removed).
			Dur("retention_time", h.retentionTime).
			Msg("Deleted expired cooldown records")
	}
	return removed, nil
}

func (h *HouseKeeper) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.cancel()
	<-h.done
	h.reset()
	return nil
}

func (h *HouseKeeper) reset() {
	h.running = false
	ctx, cancel := context.WithCancel(h.originalCtx)
	h.ctx = ctx
	h.cancel = cancel
	h.done = make(chan struct{})
}

func (h *HouseKeeper) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}
