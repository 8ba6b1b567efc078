// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type tenantRepoImpl struct {
	core.BaseRepoImpl
	clock types.TimeProvider
}

func (r *tenantRepoImpl) Get(ctx context.Context, name string) (*types.Tenant, error) {
	return get[types.Tenant](ctx, &r.BaseRepoImpl, "name", name)
}

// Upsert registers the tenant or refreshes its contact and layout, keeping the
// original creation time.
func (r *tenantRepoImpl) Upsert(ctx context.Context, it *types.Tenant) error {
	if it.Name == "" {
		return types.ErrMissingKey
	}
	now := core.Truncate(r.clock.GetCurrentTime())
	return r.Tx(ctx, func(ctxTx context.Context) error {
		it.RecordCreated = now
		if existing, err := r.Get(ctxTx, it.Name); err == nil {
			it.RecordCreated = existing.RecordCreated
		}
		it.RecordUpdated = now
		if err := r.BaseRepoImpl.Upsert(ctxTx, it); err != nil {
			return writeFailed(ctxTx, "tenant", "upsert", err)
		}
		return nil
	})
}

func (r *tenantRepoImpl) List(ctx context.Context) ([]*types.Tenant, error) {
	var out []*types.Tenant
	if err := r.DB(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, core.TranslateError(err)
	}
	return out, nil
}
