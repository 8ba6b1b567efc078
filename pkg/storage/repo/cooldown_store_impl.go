// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"errors"
	"time"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type cooldownRepoImpl struct {
	core.BaseRepoImpl
}

func (r *cooldownRepoImpl) LastSent(ctx context.Context, tenant string, kind types.AlertKind) (time.Time, error) {
	it := &types.AlertCooldown{}
	err := core.TranslateError(r.DB(ctx).First(it, "tenant = ? AND kind = ?", tenant, kind).Error)
	if errors.Is(err, types.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return it.LastSent, nil
}

func (r *cooldownRepoImpl) MarkSent(ctx context.Context, tenant string, kind types.AlertKind, at time.Time) error {
	if tenant == "" || kind == "" {
		return types.ErrMissingKey
	}
	it := &types.AlertCooldown{Tenant: tenant, Kind: kind, LastSent: core.Truncate(at)}
	if err := r.BaseRepoImpl.Upsert(ctx, it); err != nil {
		return writeFailed(ctx, "alert_cooldown", "mark", err)
	}
	return nil
}

func (r *cooldownRepoImpl) Clear(ctx context.Context, tenant string, kind types.AlertKind) error {
	if tenant == "" || kind == "" {
		return types.ErrMissingKey
	}
	if err := r.DB(ctx).Where("tenant = ? AND kind = ?", tenant, kind).Delete(&types.AlertCooldown{}).Error; err != nil {
		return writeFailed(ctx, "alert_cooldown", "clear", err)
	}
	return nil
}

func (r *cooldownRepoImpl) ClearTenant(ctx context.Context, tenant string) error {
	if tenant == "" {
		return types.ErrMissingKey
	}
	if err := r.DB(ctx).Where("tenant = ?", tenant).Delete(&types.AlertCooldown{}).Error; err != nil {
		return writeFailed(ctx, "alert_cooldown", "clear", err)
	}
	return nil
}

func (r *cooldownRepoImpl) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res := r.DB(ctx).Where("last_sent < ?", core.Truncate(cutoff)).Delete(&types.AlertCooldown{})
	if res.Error != nil {
		return 0, writeFailed(ctx, "alert_cooldown", "prune", res.Error)
	}
	return int(res.RowsAffected), nil
}
