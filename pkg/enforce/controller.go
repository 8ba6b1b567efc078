// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package enforce owns the ACTIVE/ENFORCED state of each tenant. The persisted
// state is authoritative; the uploads directory mode and the notice file are
// projections of it and are re-applied when they drift.
package enforce

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/alert"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/lock"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

const (
	readOnlyMode fs.FileMode = 0o555
	writableMode fs.FileMode = 0o755
	noticeMode   fs.FileMode = 0o444
)

var (
	enforceStatsOnce sync.Once

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_enforcement_transitions_total",
			Help: "Enforcement state changes by target state.",
		},
		[]string{"state"},
	)
	enforcementErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_enforcement_errors_total",
			Help: "Failed attempts to apply an enforcement state to the filesystem.",
		},
		[]string{"state"},
	)
	driftRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_enforcement_drift_repairs_total",
			Help: "Times the filesystem projection was re-applied to match the persisted state.",
		},
		[]string{"state"},
	)
)

// Notifier announces enforcement transitions. *alert.Dispatcher implements it.
type Notifier interface {
	NotifyEnforced(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, notice string) (bool, error)
	NotifyRestored(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot) (bool, error)
	Reset(ctx context.Context, tenant string, kind types.AlertKind) error
}

var _ Notifier = (*alert.Dispatcher)(nil)

// Controller moves tenants between ACTIVE and ENFORCED. Transitions for one
// tenant are serialized through a TenantLocker.
type Controller struct {
	store    types.EnforcementStore
	notifier Notifier
	locker   *lock.TenantLocker
	cfg      config.Enforcement
}

func NewController(store types.EnforcementStore, notifier Notifier, cfg *config.Enforcement) *Controller {
	enforceStatsOnce.Do(func() {
		prometheus.MustRegister(transitionsTotal, enforcementErrorsTotal, driftRepairsTotal)
	})
	return &Controller{
		store:    store,
		notifier: notifier,
		locker:   lock.NewTenantLocker(cfg.LockDir),
		cfg:      *cfg,
	}
}

// State returns the persisted state; tenants never enforced are ACTIVE.
func (c *Controller) State(ctx context.Context, tenant string) (types.EnforcementState, error) {
	rec, err := c.store.Get(ctx, tenant)
	if errors.Is(err, types.ErrNotFound) {
		return types.StateActive, nil
	}
	if err != nil {
		return "", fmt.Errorf("read enforcement state for %s: %w", tenant, err)
	}
	return rec.State, nil
}

// NoticePath is where the notice file lives while tenant is enforced.
func (c *Controller) NoticePath(tenant *types.Tenant) string {
	return filepath.Join(tenant.UploadsPath, c.cfg.NoticeFile)
}

// Enforce makes the tenant's uploads read-only and sends the enforcement alert.
// It reports whether the state changed. Enforcing an already enforced tenant
// only repairs the filesystem projection and sends nothing. When the
// filesystem cannot be changed the state stays ACTIVE and the error wraps
// types.ErrEnforcementIO.
func (c *Controller) Enforce(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, reason string) (bool, error) {
	changed := false
	err := c.locker.With(ctx, tenant.Name, func() error {
		state, err := c.State(ctx, tenant.Name)
		if err != nil {
			return err
		}
		if state == types.StateEnforced {
			c.repair(ctx, tenant, snap, state)
			return nil
		}

		if err := c.applyEnforced(tenant, snap); err != nil {
			enforcementErrorsTotal.WithLabelValues(string(types.StateEnforced)).Inc()
			c.rollback(ctx, tenant)
			return err
		}
		if err := c.store.Upsert(ctx, &types.EnforcementRecord{Tenant: tenant.Name, State: types.StateEnforced, Reason: reason}); err != nil {
			c.rollback(ctx, tenant)
			return fmt.Errorf("persist enforcement for %s: %w", tenant.Name, err)
		}
		changed = true
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant", tenant.Name).Msg("enforce failed")
		return false, err
	}
	if !changed {
		return false, nil
	}

	transitionsTotal.WithLabelValues(string(types.StateEnforced)).Inc()
	log.Ctx(ctx).Warn().Str("tenant", tenant.Name).Str("reason", reason).Msg("tenant enforced, uploads are read-only")

	if err := c.notifier.Reset(ctx, tenant.Name, types.AlertRestored); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant.Name).Msg("failed to reset restore alert cooldown")
	}
	if _, err := c.notifier.NotifyEnforced(ctx, tenant, snap, c.cfg.NoticeFile); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant.Name).Msg("enforcement alert not delivered")
	}
	return true, nil
}

// Unenforce restores write access, removes the notice and sends the restore
// alert. It reports whether the state changed; an ACTIVE tenant only has its
// projection repaired.
func (c *Controller) Unenforce(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, reason string) (bool, error) {
	changed := false
	err := c.locker.With(ctx, tenant.Name, func() error {
		state, err := c.State(ctx, tenant.Name)
		if err != nil {
			return err
		}
		if state == types.StateActive {
			c.repair(ctx, tenant, snap, state)
			return nil
		}

		if err := c.applyActive(tenant); err != nil {
			enforcementErrorsTotal.WithLabelValues(string(types.StateActive)).Inc()
			// put the read-only projection back so it still matches ENFORCED
			if rerr := c.applyEnforced(tenant, snap); rerr != nil {
				log.Ctx(ctx).Error().Err(rerr).Str("tenant", tenant.Name).Msg("failed to restore read-only projection")
			}
			return err
		}
		if err := c.store.Upsert(ctx, &types.EnforcementRecord{Tenant: tenant.Name, State: types.StateActive, Reason: reason}); err != nil {
			if rerr := c.applyEnforced(tenant, snap); rerr != nil {
				log.Ctx(ctx).Error().Err(rerr).Str("tenant", tenant.Name).Msg("failed to restore read-only projection")
			}
			return fmt.Errorf("persist restore for %s: %w", tenant.Name, err)
		}
		changed = true
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant", tenant.Name).Msg("unenforce failed")
		return false, err
	}
	if !changed {
		return false, nil
	}

	transitionsTotal.WithLabelValues(string(types.StateActive)).Inc()
	log.Ctx(ctx).Info().Str("tenant", tenant.Name).Str("reason", reason).Msg("tenant restored, uploads are writable")

	if err := c.notifier.Reset(ctx, tenant.Name, types.AlertEnforced); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant.Name).Msg("failed to reset enforcement alert cooldown")
	}
	if _, err := c.notifier.NotifyRestored(ctx, tenant, snap); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tenant", tenant.Name).Msg("restore alert not delivered")
	}
	return true, nil
}

// Reconcile applies the policy for one accounting pass: OVER enforces, and
// with auto-restore enabled a non-OVER level lifts enforcement. Without
// auto-restore an enforced tenant stays enforced whatever its usage.
// It returns the state after the pass.
func (c *Controller) Reconcile(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, level types.UsageLevel) (types.EnforcementState, error) {
	if level == types.LevelOver {
		if _, err := c.Enforce(ctx, tenant, snap, "usage reached quota"); err != nil {
			return types.StateActive, err
		}
		return types.StateEnforced, nil
	}

	state, err := c.State(ctx, tenant.Name)
	if err != nil {
		return "", err
	}
	if state == types.StateEnforced && c.cfg.AutoRestore {
		if _, err := c.Unenforce(ctx, tenant, snap, "usage back under quota"); err != nil {
			return types.StateEnforced, err
		}
		return types.StateActive, nil
	}
	return state, nil
}

func (c *Controller) applyEnforced(tenant *types.Tenant, snap *types.UsageSnapshot) error {
	dir := tenant.UploadsPath
	// the notice can only be replaced while the directory is writable
	if err := os.Chmod(dir, writableMode); err != nil {
		return ioError(tenant, "unlock uploads directory", err)
	}
	notice := c.NoticePath(tenant)
	if err := os.Remove(notice); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError(tenant, "remove stale notice", err)
	}
	if err := os.WriteFile(notice, []byte(alert.NoticeText(tenant.Name, snap)), noticeMode); err != nil {
		return ioError(tenant, "write notice", err)
	}
	if err := os.Chmod(notice, noticeMode); err != nil {
		return ioError(tenant, "protect notice", err)
	}
	if err := os.Chmod(dir, readOnlyMode); err != nil {
		return ioError(tenant, "make uploads read-only", err)
	}
	return nil
}

func (c *Controller) applyActive(tenant *types.Tenant) error {
	if err := os.Chmod(tenant.UploadsPath, writableMode); err != nil {
		return ioError(tenant, "make uploads writable", err)
	}
	if err := os.Remove(c.NoticePath(tenant)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError(tenant, "remove notice", err)
	}
	return nil
}

// rollback returns a failed enforce to the ACTIVE projection.
func (c *Controller) rollback(ctx context.Context, tenant *types.Tenant) {
	if err := c.applyActive(tenant); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant", tenant.Name).Msg("failed to roll back partial enforcement")
	}
}

// repair re-applies the projection of state when the filesystem disagrees with it.
func (c *Controller) repair(ctx context.Context, tenant *types.Tenant, snap *types.UsageSnapshot, state types.EnforcementState) {
	drifted, err := c.Drifted(tenant, state)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("tenant", tenant.Name).Msg("cannot inspect enforcement projection")
		return
	}
	if !drifted {
		return
	}

	if state == types.StateEnforced {
		err = c.applyEnforced(tenant, snap)
	} else {
		err = c.applyActive(tenant)
	}
	if err != nil {
		enforcementErrorsTotal.WithLabelValues(string(state)).Inc()
		log.Ctx(ctx).Error().Err(err).Str("tenant", tenant.Name).Str("state", string(state)).Msg("failed to repair enforcement projection")
		return
	}
	driftRepairsTotal.WithLabelValues(string(state)).Inc()
	log.Ctx(ctx).Warn().Str("tenant", tenant.Name).Str("state", string(state)).Msg("repaired out-of-band permission change")
}

// Drifted reports whether the uploads directory mode or notice file disagree with state.
func (c *Controller) Drifted(tenant *types.Tenant, state types.EnforcementState) (bool, error) {
	info, err := os.Stat(tenant.UploadsPath)
	if err != nil {
		return false, err
	}
	writable := info.Mode().Perm()&0o200 != 0
	_, err = os.Stat(c.NoticePath(tenant))
	hasNotice := err == nil

	if state == types.StateEnforced {
		return writable || !hasNotice, nil
	}
	return !writable || hasNotice, nil
}

func ioError(tenant *types.Tenant, op string, err error) error {
	return fmt.Errorf("%w: %s for %s: %w", types.ErrEnforcementIO, op, tenant.Name, err)
}
