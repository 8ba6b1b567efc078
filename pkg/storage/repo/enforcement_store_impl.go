// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type enforcementRepoImpl struct {
	core.BaseRepoImpl
	clock types.TimeProvider
}

func (r *enforcementRepoImpl) Get(ctx context.Context, tenant string) (*types.EnforcementRecord, error) {
	return get[types.EnforcementRecord](ctx, &r.BaseRepoImpl, "tenant", tenant)
}

func (r *enforcementRepoImpl) Upsert(ctx context.Context, it *types.EnforcementRecord) error {
	if it.Tenant == "" {
		return types.ErrMissingKey
	}
	switch it.State {
	case types.StateActive, types.StateEnforced:
	default:
		return types.ErrInvalidValue
	}
	now := core.Truncate(r.clock.GetCurrentTime())
	return r.Tx(ctx, func(ctxTx context.Context) error {
		it.RecordCreated = now
		if existing, err := r.Get(ctxTx, it.Tenant); err == nil {
			it.RecordCreated = existing.RecordCreated
		}
		it.RecordUpdated = now
		if err := r.BaseRepoImpl.Upsert(ctxTx, it); err != nil {
			return writeFailed(ctxTx, "enforcement_record", "upsert", err)
		}
		return nil
	})
}
