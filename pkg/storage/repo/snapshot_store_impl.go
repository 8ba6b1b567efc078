// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type snapshotRepoImpl struct {
	core.BaseRepoImpl
}

func (r *snapshotRepoImpl) Get(ctx context.Context, tenant string) (*types.UsageSnapshot, error) {
	return get[types.UsageSnapshot](ctx, &r.BaseRepoImpl, "tenant", tenant)
}

// Upsert replaces the tenant's last snapshot. CheckedAt is supplied by the caller.
func (r *snapshotRepoImpl) Upsert(ctx context.Context, it *types.UsageSnapshot) error {
	if it.Tenant == "" {
		return types.ErrMissingKey
	}
	it.CheckedAt = core.Truncate(it.CheckedAt)
	if err := r.BaseRepoImpl.Upsert(ctx, it); err != nil {
		return writeFailed(ctx, "usage_snapshot", "upsert", err)
	}
	return nil
}

func (r *snapshotRepoImpl) List(ctx context.Context) ([]*types.UsageSnapshot, error) {
	var out []*types.UsageSnapshot
	if err := r.DB(ctx).Order("tenant").Find(&out).Error; err != nil {
		return nil, core.TranslateError(err)
	}
	return out, nil
}
