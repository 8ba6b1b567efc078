// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package quota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/quota"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types/mocks"
)

type fixture struct {
	stores   *repo.Stores
	usage    *mocks.MockUsageCalculator
	registry *quota.Registry
	tenant   *types.Tenant
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC))
	stores, err := repo.NewInMemoryStores(clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	tenant, err := types.NewTenant("acme", "owner@acme.example", "/u", "/p", "/g")
	require.NoError(t, err)

	usage := mocks.NewMockUsageCalculator(ctrl)
	return &fixture{
		stores:   stores,
		usage:    usage,
		registry: quota.NewRegistry(stores.Quotas, stores.Cooldowns, usage),
		tenant:   tenant,
	}
}

func (f *fixture) usageIs(bytes int64) {
	f.usage.EXPECT().Calculate(gomock.Any(), f.tenant).Return(&types.Usage{UploadsBytes: bytes}, nil).AnyTimes()
}

func TestRegistry_Get(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	limit, err := f.registry.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultQuotaBytes, limit)

	custom := quota.NewRegistry(f.stores.Quotas, f.stores.Cooldowns, f.usage, quota.WithDefaultBytes(50*types.MiB))
	limit, err = custom.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 50*types.MiB, limit)

	_, err = f.registry.Get(ctx, "Not Valid")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRegistry_Set(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, mb := range []int64{0, -5} {
		_, err := f.registry.Set(ctx, "acme", mb)
		assert.ErrorIs(t, err, types.ErrValidation)
	}
	_, err := f.registry.Set(ctx, "../acme", 10)
	assert.ErrorIs(t, err, types.ErrValidation)

	count, err := f.stores.Quotas.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected input must not write")

	require.NoError(t, f.stores.Cooldowns.MarkSent(ctx, "acme", types.AlertWarning, time.Now()))
	require.NoError(t, f.stores.Cooldowns.MarkSent(ctx, "other", types.AlertWarning, time.Now()))

	rec, err := f.registry.Set(ctx, "acme", 250)
	require.NoError(t, err)
	assert.Equal(t, 250*types.MiB, rec.LimitBytes)

	limit, err := f.registry.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 250*types.MiB, limit)

	last, err := f.stores.Cooldowns.LastSent(ctx, "acme", types.AlertWarning)
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "quota change resets alert history")

	last, err = f.stores.Cooldowns.LastSent(ctx, "other", types.AlertWarning)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestRegistry_Increase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.registry.Increase(ctx, "acme", 100)
	require.NoError(t, err)
	assert.Equal(t, 200*types.MiB, rec.LimitBytes)

	rec, err = f.registry.Increase(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, 201*types.MiB, rec.LimitBytes)

	_, err = f.registry.Increase(ctx, "acme", 0)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRegistry_OversizedQuotas(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.registry.Set(ctx, "acme", types.MaxQuotaMB+1)
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = f.registry.Set(ctx, "acme", (1<<44)+1)
	assert.ErrorIs(t, err, types.ErrValidation)

	// wraps to a tiny positive quota without the range check
	_, err = f.registry.Increase(ctx, "acme", (1<<44)-99)
	assert.ErrorIs(t, err, types.ErrValidation)
	limit, err := f.registry.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultQuotaBytes, limit)

	rec, err := f.registry.Set(ctx, "acme", types.MaxQuotaMB)
	require.NoError(t, err)
	assert.Equal(t, types.MaxQuotaMB*types.MiB, rec.LimitBytes)

	_, err = f.registry.Increase(ctx, "acme", 1)
	assert.ErrorIs(t, err, types.ErrValidation)
	limit, err = f.registry.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, types.MaxQuotaMB*types.MiB, limit)

	_, err = f.registry.Decrease(ctx, f.tenant, types.MaxQuotaMB+1, true)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRegistry_DecreaseHeadroomOnHugeQuota(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.usageIs(1 << 61)

	_, err := f.registry.Set(ctx, "acme", types.MaxQuotaMB)
	require.NoError(t, err)

	// proposed ~ 2^62 bytes, used 2^61: 50% headroom
	rec, err := f.registry.Decrease(ctx, f.tenant, (types.MaxQuotaMB/2)+1, false)
	require.NoError(t, err)
	assert.Less(t, rec.LimitBytes, types.MaxQuotaMB*types.MiB)
	assert.Greater(t, rec.LimitBytes, int64(1<<61))
}

func TestRegistry_Decrease(t *testing.T) {
	ctx := context.Background()

	t.Run("below usage is rejected without mutation", func(t *testing.T) {
		f := setup(t)
		f.usageIs(101 * types.MiB)

		_, err := f.registry.Decrease(ctx, f.tenant, 60, true)
		require.Error(t, err)

		var violation *types.SafetyCheckViolation
		require.True(t, errors.As(err, &violation))
		assert.ErrorIs(t, err, types.ErrSafetyCheck)
		assert.Equal(t, 101*types.MiB, violation.CurrentUsageBytes)
		assert.Equal(t, 100*types.MiB, violation.CurrentQuotaBytes)
		assert.Equal(t, 40*types.MiB, violation.ProposedQuotaBytes)
		assert.Equal(t, 61*types.MiB, violation.ShortfallBytes)
		assert.Contains(t, err.Error(), "free up at least 61 MiB")

		limit, err := f.registry.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, 100*types.MiB, limit)
		count, err := f.stores.Quotas.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("below minimum is rejected", func(t *testing.T) {
		f := setup(t)
		_, err := f.registry.Decrease(ctx, f.tenant, 100, true)
		assert.ErrorIs(t, err, types.ErrSafetyCheck)
	})

	t.Run("thin headroom requires confirmation", func(t *testing.T) {
		f := setup(t)
		f.usageIs(46 * types.MiB)

		_, err := f.registry.Decrease(ctx, f.tenant, 50, false)
		var confirm *types.ConfirmationRequired
		require.True(t, errors.As(err, &confirm))
		assert.Equal(t, 8, confirm.HeadroomPercent)
		assert.ErrorIs(t, err, types.ErrConfirmationRequired)

		limit, err := f.registry.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, 100*types.MiB, limit)

		rec, err := f.registry.Decrease(ctx, f.tenant, 50, true)
		require.NoError(t, err)
		assert.Equal(t, 50*types.MiB, rec.LimitBytes)
	})

	t.Run("ample headroom needs no confirmation", func(t *testing.T) {
		f := setup(t)
		f.usageIs(10 * types.MiB)

		rec, err := f.registry.Decrease(ctx, f.tenant, 20, false)
		require.NoError(t, err)
		assert.Equal(t, 80*types.MiB, rec.LimitBytes)
	})

	t.Run("usage failure aborts", func(t *testing.T) {
		f := setup(t)
		f.usage.EXPECT().Calculate(gomock.Any(), f.tenant).Return(nil, errors.New("io"))
		_, err := f.registry.Decrease(ctx, f.tenant, 10, true)
		assert.Error(t, err)
	})
}
