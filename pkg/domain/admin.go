// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

const adminReason = "administrative action"

// Admin implements the operator commands. Quota changes never alter the
// enforcement state; only an accounting pass or an explicit enforce/unenforce
// does that.
type Admin struct {
	services *Services
}

func NewAdmin(services *Services) *Admin {
	return &Admin{services: services}
}

// Tenant returns the registered tenant, or the standard layout under the
// configured roots when the tenant was never registered by a daemon.
func (a *Admin) Tenant(ctx context.Context, name string) (*types.Tenant, error) {
	if err := types.ValidateTenantName(name); err != nil {
		return nil, err
	}
	tenant, err := a.services.Stores.Tenants.Get(ctx, name)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("read tenant %s: %w", name, err)
	}
	paths := a.services.Settings.Paths
	return types.NewTenant(name, "", paths.UploadsRoot, paths.PublishedRoot, paths.VCSRoot)
}

// SetQuota sets the tenant's quota to mb MiB.
func (a *Admin) SetQuota(ctx context.Context, name string, mb int64) (*types.QuotaRecord, error) {
	rec, err := a.services.Registry.Set(ctx, name, mb)
	if err != nil {
		return nil, err
	}
	a.refresh(ctx, name)
	return rec, nil
}

// IncreaseQuota raises the tenant's quota by deltaMB MiB.
func (a *Admin) IncreaseQuota(ctx context.Context, name string, deltaMB int64) (*types.QuotaRecord, error) {
	rec, err := a.services.Registry.Increase(ctx, name, deltaMB)
	if err != nil {
		return nil, err
	}
	a.refresh(ctx, name)
	return rec, nil
}

// DecreaseQuota lowers the tenant's quota by deltaMB MiB subject to the
// registry's safety checks.
func (a *Admin) DecreaseQuota(ctx context.Context, name string, deltaMB int64, confirm bool) (*types.QuotaRecord, error) {
	tenant, err := a.Tenant(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := a.services.Registry.Decrease(ctx, tenant, deltaMB, confirm)
	if err != nil {
		return nil, err
	}
	a.refresh(ctx, name)
	return rec, nil
}

// Enforce makes the tenant read-only regardless of usage. It reports whether
// the state changed.
func (a *Admin) Enforce(ctx context.Context, name string) (*types.UsageSnapshot, bool, error) {
	tenant, err := a.Tenant(ctx, name)
	if err != nil {
		return nil, false, err
	}
	snap, _, err := a.services.Monitor.Measure(ctx, tenant)
	if err != nil {
		return nil, false, err
	}
	changed, err := a.services.Controller.Enforce(ctx, tenant, snap, adminReason)
	if err != nil {
		return nil, false, err
	}
	snap.EnforcementState = types.StateEnforced
	a.services.Monitor.record(ctx, snap)
	return snap, changed, nil
}

// Unenforce restores write access regardless of usage. A tenant still over
// quota is enforced again by the next accounting pass.
func (a *Admin) Unenforce(ctx context.Context, name string) (*types.UsageSnapshot, bool, error) {
	tenant, err := a.Tenant(ctx, name)
	if err != nil {
		return nil, false, err
	}
	snap, _, err := a.services.Monitor.Measure(ctx, tenant)
	if err != nil {
		return nil, false, err
	}
	changed, err := a.services.Controller.Unenforce(ctx, tenant, snap, adminReason)
	if err != nil {
		return nil, false, err
	}
	snap.EnforcementState = types.StateActive
	a.services.Monitor.record(ctx, snap)
	return snap, changed, nil
}

// EnforcementState returns the persisted state of the tenant.
func (a *Admin) EnforcementState(ctx context.Context, name string) (types.EnforcementState, error) {
	if err := types.ValidateTenantName(name); err != nil {
		return "", err
	}
	return a.services.Controller.State(ctx, name)
}

// GetSnapshot returns the last recorded snapshot. It fails with
// types.ErrNotFound when no pass has run for the tenant.
func (a *Admin) GetSnapshot(ctx context.Context, name string) (*types.UsageSnapshot, error) {
	if err := types.ValidateTenantName(name); err != nil {
		return nil, err
	}
	return a.services.Stores.Snapshots.Get(ctx, name)
}

// GetSnapshotAll returns the last recorded snapshot of every tenant.
func (a *Admin) GetSnapshotAll(ctx context.Context) ([]*types.UsageSnapshot, error) {
	return a.services.Stores.Snapshots.List(ctx)
}

// refresh re-records the snapshot after a quota change so status reflects the
// new limit before the daemon's next pass.
func (a *Admin) refresh(ctx context.Context, name string) {
	tenant, err := a.Tenant(ctx, name)
	if err != nil {
		return
	}
	snap, _, err := a.services.Monitor.Measure(ctx, tenant)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("tenant", name).Msg("snapshot not refreshed")
		return
	}
	a.services.Monitor.record(ctx, snap)
}
