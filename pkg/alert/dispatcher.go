// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package alert builds tenant notices and delivers them at most once per
// cooldown window per (tenant, kind).
package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var (
	alertStatsOnce sync.Once

	alertsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_alerts_sent_total",
			Help: "Alerts handed to the transport, by kind.",
		},
		[]string{"kind"},
	)
	alertsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_alerts_suppressed_total",
			Help: "Alerts withheld because the kind was still cooling down.",
		},
		[]string{"kind"},
	)
	alertDeliveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_alert_delivery_failures_total",
			Help: "Alerts the transport failed to deliver.",
		},
		[]string{"kind"},
	)
)

func registerMetrics() {
	alertStatsOnce.Do(func() {
		prometheus.MustRegister(alertsSentTotal, alertsSuppressedTotal, alertDeliveryFailuresTotal)
	})
}

// Dispatcher sends tenant alerts through a Sender, suppressing repeats of the
// same kind inside its cooldown window. The check, send and mark for one
// (tenant, kind) run under a key lock, so racing passes send once.
// A failed delivery leaves the cooldown untouched.
type Dispatcher struct {
	sender    types.Sender
	cooldowns types.CooldownStore
	clock     types.TimeProvider
	windows   config.Cooldowns
	admin     string
	locks     *kmutex.Kmutex
}

func NewDispatcher(sender types.Sender, cooldowns types.CooldownStore, clock types.TimeProvider, cfg *config.Alerts) *Dispatcher {
	registerMetrics()
	return &Dispatcher{
		sender:    sender,
		cooldowns: cooldowns,
		clock:     clock,
		windows:   cfg.Cooldowns,
		admin:     cfg.AdminAddress,
		locks:     kmutex.New(),
	}
}

// NotifyThreshold sends the alert for level. OK has no alert and returns false.
func (d *Dispatcher) NotifyThreshold(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, level types.UsageLevel) (bool, error) {
	kind, ok := types.AlertKindForLevel(level)
	if !ok {
		return false, nil
	}
	return d.Dispatch(ctx, tenant.Name, kind, ThresholdMessage(d.recipients(tenant), tenant.Name, snap, level))
}

// NotifyEnforced announces that the tenant's uploads became read-only.
func (d *Dispatcher) NotifyEnforced(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, notice string) (bool, error) {
	return d.Dispatch(ctx, tenant.Name, types.AlertEnforced, EnforcedMessage(d.recipients(tenant), tenant.Name, snap, notice))
}

// NotifyRestored announces that write access came back.
func (d *Dispatcher) NotifyRestored(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot) (bool, error) {
	return d.Dispatch(ctx, tenant.Name, types.AlertRestored, RestoredMessage(d.recipients(tenant), tenant.Name, snap))
}

// Dispatch delivers msg unless kind was sent to tenant within its window.
// It reports whether the message was sent. Delivery errors wrap
// types.ErrAlertDeliveryFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, tenant string, kind types.AlertKind, msg *types.Message) (bool, error) {
	key := string(kind) + "/" + tenant
	d.locks.Lock(key)
	defer d.locks.Unlock(key)

	now := d.clock.GetCurrentTime()
	open, err := d.windowOpen(ctx, tenant, kind, now)
	if err != nil {
		return false, err
	}
	if !open {
		alertsSuppressedTotal.WithLabelValues(string(kind)).Inc()
		log.Ctx(ctx).Debug().Str("tenant", tenant).Str("kind", string(kind)).Msg("alert suppressed by cooldown")
		return false, nil
	}

	if len(msg.Recipients) == 0 {
		alertDeliveryFailuresTotal.WithLabelValues(string(kind)).Inc()
		return false, fmt.Errorf("%w: %s alert for %s has no recipients", types.ErrAlertDeliveryFailed, kind, tenant)
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		alertDeliveryFailuresTotal.WithLabelValues(string(kind)).Inc()
		if !errors.Is(err, types.ErrAlertDeliveryFailed) {
			err = fmt.Errorf("%w: %w", types.ErrAlertDeliveryFailed, err)
		}
		return false, err
	}
	alertsSentTotal.WithLabelValues(string(kind)).Inc()

	if err := d.cooldowns.MarkSent(ctx, tenant, kind, now); err != nil {
		// delivered; a lost mark only risks one duplicate
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant).Str("kind", string(kind)).Msg("failed to record alert cooldown")
	}

	log.Ctx(ctx).Info().
		Str("tenant", tenant).
		Str("kind", string(kind)).
		Strs("recipients", msg.Recipients).
		Msg("alert sent")
	return true, nil
}

// Reset forgets the cooldown for one kind so the next alert of that kind goes out.
func (d *Dispatcher) Reset(ctx context.Context, tenant string, kind types.AlertKind) error {
	key := string(kind) + "/" + tenant
	d.locks.Lock(key)
	defer d.locks.Unlock(key)
	return d.cooldowns.Clear(ctx, tenant, kind)
}

func (d *Dispatcher) windowOpen(ctx context.Context, tenant string, kind types.AlertKind, now time.Time) (bool, error) {
	window := d.windows.For(kind)
	if window <= 0 {
		return true, nil
	}
	last, err := d.cooldowns.LastSent(ctx, tenant, kind)
	if err != nil {
		return false, fmt.Errorf("read cooldown for %s/%s: %w", tenant, kind, err)
	}
	return last.IsZero() || !now.Before(last.Add(window)), nil
}

func (d *Dispatcher) recipients(tenant *types.Tenant) []string {
	var out []string
	for _, r := range []string{tenant.Contact, d.admin} {
		if r == "" || (len(out) > 0 && out[0] == r) {
			continue
		}
		out = append(out, r)
	}
	return out
}
