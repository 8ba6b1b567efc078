// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package domain wires accounting, alerting and enforcement into the accounting
// pass, runs it for one tenant as a daemon, and exposes the administrative
// operations.
package domain

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/alert"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/enforce"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/quota"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

// QuotaMonitor runs accounting passes: measure, classify, alert, enforce, record.
type QuotaMonitor struct {
	usage      types.UsageCalculator
	registry   *quota.Registry
	gate       *alert.Gate
	dispatcher *alert.Dispatcher
	controller *enforce.Controller
	snapshots  types.SnapshotStore
	clock      types.TimeProvider
}

func NewQuotaMonitor(
	usage types.UsageCalculator,
	registry *quota.Registry,
	gate *alert.Gate,
	dispatcher *alert.Dispatcher,
	controller *enforce.Controller,
	snapshots types.SnapshotStore,
	clock types.TimeProvider,
) *QuotaMonitor {
	registerMetrics()
	return &QuotaMonitor{
		usage:      usage,
		registry:   registry,
		gate:       gate,
		dispatcher: dispatcher,
		controller: controller,
		snapshots:  snapshots,
		clock:      clock,
	}
}

// Measure computes a fresh snapshot without alerting or enforcing. The
// snapshot carries the persisted enforcement state.
func (m *QuotaMonitor) Measure(ctx context.Context, tenant *types.Tenant) (*types.UsageSnapshot, types.UsageLevel, error) {
	usage, err := m.usage.Calculate(ctx, tenant)
	if err != nil {
		passFailuresTotal.WithLabelValues("usage").Inc()
		return nil, types.LevelOK, fmt.Errorf("measure %s: %w", tenant.Name, err)
	}
	limit, err := m.registry.Get(ctx, tenant.Name)
	if err != nil {
		passFailuresTotal.WithLabelValues("quota").Inc()
		return nil, types.LevelOK, err
	}
	snap, level, err := types.NewUsageSnapshot(tenant.Name, usage.Total(), limit, m.clock.GetCurrentTime())
	if err != nil {
		passFailuresTotal.WithLabelValues("classify").Inc()
		return nil, types.LevelOK, err
	}
	state, err := m.controller.State(ctx, tenant.Name)
	if err != nil {
		passFailuresTotal.WithLabelValues("state").Inc()
		return nil, types.LevelOK, err
	}
	snap.EnforcementState = state
	return snap, level, nil
}

// RunPass performs one accounting pass for tenant. Alert and recording
// failures are logged and do not fail the pass; a failed enforcement is
// returned after the snapshot has been recorded.
func (m *QuotaMonitor) RunPass(ctx context.Context, tenant *types.Tenant, trigger string) (*types.UsageSnapshot, error) {
	logger := log.Ctx(ctx).With().Str("tenant", tenant.Name).Str("trigger", trigger).Logger()

	snap, level, err := m.Measure(ctx, tenant)
	if err != nil {
		logger.Error().Err(err).Msg("accounting pass failed")
		return nil, err
	}
	logger.Debug().
		Int64("usage_bytes", snap.UsageBytes).
		Int64("quota_bytes", snap.QuotaBytes).
		Int("usage_pct", snap.UsagePercent).
		Str("level", snap.Level).
		Msg("usage measured")

	if kind, ok := types.AlertKindForLevel(level); ok {
		m.notify(ctx, tenant, snap, level, kind)
	}

	state, enforceErr := m.controller.Reconcile(ctx, tenant, snap, level)
	if enforceErr != nil {
		passFailuresTotal.WithLabelValues("enforce").Inc()
		logger.Error().Err(enforceErr).Msg("enforcement failed")
		if current, err := m.controller.State(ctx, tenant.Name); err == nil {
			state = current
		}
	}
	if state != "" {
		snap.EnforcementState = state
	}

	m.record(ctx, snap)
	return snap, enforceErr
}

// record stores snap as the tenant's last known state. Failures are logged only.
func (m *QuotaMonitor) record(ctx context.Context, snap *types.UsageSnapshot) {
	usageBytesGauge.WithLabelValues(snap.Tenant).Set(float64(snap.UsageBytes))
	limitBytesGauge.WithLabelValues(snap.Tenant).Set(float64(snap.QuotaBytes))
	usagePercentGauge.WithLabelValues(snap.Tenant).Set(float64(snap.UsagePercent))
	enforced := 0.0
	if snap.EnforcementState == types.StateEnforced {
		enforced = 1
	}
	enforcedGauge.WithLabelValues(snap.Tenant).Set(enforced)

	if err := m.snapshots.Upsert(ctx, snap); err != nil {
		passFailuresTotal.WithLabelValues("record").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("tenant", snap.Tenant).Msg("failed to record usage snapshot")
	}
}

func (m *QuotaMonitor) notify(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, level types.UsageLevel, kind types.AlertKind) {
	allowed, err := m.gate.Allow(ctx, tenant.Name, kind)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant.Name).Str("kind", string(kind)).Msg("alert gate unavailable")
		return
	}
	if !allowed {
		return
	}
	if _, err := m.dispatcher.NotifyThreshold(ctx, tenant, snap, level); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant.Name).Str("kind", string(kind)).Msg("threshold alert not delivered")
		// a failed delivery must not hold the gate closed
		if rerr := m.gate.Reset(ctx, tenant.Name, kind); rerr != nil {
			log.Ctx(ctx).Warn().Err(rerr).Str("tenant", tenant.Name).Msg("failed to reopen alert gate")
		}
	}
}
