// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"context"
	"fmt"

	"github.com/im7mortal/kmutex"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

// Gate is the daemon's own short cooldown in front of the Dispatcher. It keys
// records as types.RealtimeKind(kind) and marks them when it lets a call through,
// whether or not the Dispatcher then delivers.
type Gate struct {
	cooldowns types.CooldownStore
	clock     types.TimeProvider
	windows   config.Cooldowns
	locks     *kmutex.Kmutex
}

func NewGate(cooldowns types.CooldownStore, clock types.TimeProvider, cfg *config.Alerts) *Gate {
	registerMetrics()
	return &Gate{cooldowns: cooldowns, clock: clock, windows: cfg.Cooldowns, locks: kmutex.New()}
}

// Allow reports whether the daemon may forward a kind alert for tenant now and,
// if so, starts a new window.
func (g *Gate) Allow(ctx context.Context, tenant string, kind types.AlertKind) (bool, error) {
	rk := types.RealtimeKind(kind)
	key := gateKey(tenant, rk)
	g.locks.Lock(key)
	defer g.locks.Unlock(key)

	now := g.clock.GetCurrentTime()
	if window := g.windows.For(rk); window > 0 {
		last, err := g.cooldowns.LastSent(ctx, tenant, rk)
		if err != nil {
			return false, fmt.Errorf("read realtime cooldown for %s/%s: %w", tenant, kind, err)
		}
		if !last.IsZero() && now.Before(last.Add(window)) {
			alertsSuppressedTotal.WithLabelValues(string(rk)).Inc()
			return false, nil
		}
	}
	if err := g.cooldowns.MarkSent(ctx, tenant, rk, now); err != nil {
		return false, fmt.Errorf("mark realtime cooldown for %s/%s: %w", tenant, kind, err)
	}
	return true, nil
}

// Reset reopens the gate for kind after a failed delivery. It takes the same
// per-key lock as Allow.
func (g *Gate) Reset(ctx context.Context, tenant string, kind types.AlertKind) error {
	rk := types.RealtimeKind(kind)
	key := gateKey(tenant, rk)
	g.locks.Lock(key)
	defer g.locks.Unlock(key)

	if err := g.cooldowns.Clear(ctx, tenant, rk); err != nil {
		return fmt.Errorf("reopen realtime cooldown for %s/%s: %w", tenant, kind, err)
	}
	return nil
}

func gateKey(tenant string, rk types.AlertKind) string {
	return string(rk) + "/" + tenant
}
