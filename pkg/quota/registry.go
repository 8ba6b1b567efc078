// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package quota is the durable tenant -> byte limit mapping and its
// administrative operations.
package quota

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var (
	quotaStatsOnce sync.Once

	quotaChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_changes_total",
			Help: "Administrative quota changes by operation and result.",
		},
		[]string{"operation", "result"},
	)
)

// Registry reads and mutates tenant quotas. A tenant without a record has the
// default quota. Every accepted change clears the tenant's alert cooldowns.
type Registry struct {
	quotas         types.QuotaStore
	cooldowns      types.CooldownStore
	usage          types.UsageCalculator
	defaultBytes   int64
	minHeadroomPct int
}

type RegistryOpt func(r *Registry)

// WithDefaultBytes overrides the quota applied to tenants without a record.
func WithDefaultBytes(n int64) RegistryOpt {
	return func(r *Registry) {
		if n > 0 {
			r.defaultBytes = n
		}
	}
}

// WithMinHeadroomPercent sets the headroom below which a decrease must be confirmed.
func WithMinHeadroomPercent(pct int) RegistryOpt {
	return func(r *Registry) { r.minHeadroomPct = pct }
}

func NewRegistry(quotas types.QuotaStore, cooldowns types.CooldownStore, usage types.UsageCalculator, opts ...RegistryOpt) *Registry {
	quotaStatsOnce.Do(func() {
		prometheus.MustRegister(quotaChangesTotal)
	})
	r := &Registry{
		quotas:         quotas,
		cooldowns:      cooldowns,
		usage:          usage,
		defaultBytes:   types.DefaultQuotaBytes,
		minHeadroomPct: 10,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the tenant's quota in bytes.
func (r *Registry) Get(ctx context.Context, tenant string) (int64, error) {
	if err := types.ValidateTenantName(tenant); err != nil {
		return 0, err
	}
	rec, err := r.quotas.Get(ctx, tenant)
	if errors.Is(err, types.ErrNotFound) {
		return r.defaultBytes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota for %s: %w", tenant, err)
	}
	return rec.LimitBytes, nil
}

// Set stores mb MiB as the tenant's quota.
func (r *Registry) Set(ctx context.Context, tenant string, mb int64) (*types.QuotaRecord, error) {
	if err := types.ValidateTenantName(tenant); err != nil {
		return nil, r.count("set", err)
	}
	limit, err := types.MBToBytes(mb)
	if err != nil {
		return nil, r.count("set", err)
	}
	rec, err := r.store(ctx, tenant, limit)
	return rec, r.count("set", err)
}

// Increase raises the tenant's quota by deltaMB MiB.
func (r *Registry) Increase(ctx context.Context, tenant string, deltaMB int64) (*types.QuotaRecord, error) {
	if err := types.ValidateTenantName(tenant); err != nil {
		return nil, r.count("increase", err)
	}
	delta, err := types.MBToBytes(deltaMB)
	if err != nil {
		return nil, r.count("increase", err)
	}
	current, err := r.Get(ctx, tenant)
	if err != nil {
		return nil, r.count("increase", err)
	}
	if current > math.MaxInt64-delta {
		return nil, r.count("increase", fmt.Errorf("%w: increasing %s by %d MB exceeds the largest quota of %d MB",
			types.ErrValidation, types.FormatBytes(current), deltaMB, types.MaxQuotaMB))
	}
	rec, err := r.store(ctx, tenant, current+delta)
	return rec, r.count("increase", err)
}

// Decrease lowers the tenant's quota by deltaMB MiB. It is refused with a
// *types.SafetyCheckViolation when the result would fall below the minimum
// quota or below the tenant's current usage, and with a
// *types.ConfirmationRequired when the remaining headroom is thin and confirm
// is false. A refused call changes nothing.
func (r *Registry) Decrease(ctx context.Context, tenant *types.Tenant, deltaMB int64, confirm bool) (*types.QuotaRecord, error) {
	if err := types.ValidateTenantName(tenant.Name); err != nil {
		return nil, r.count("decrease", err)
	}
	delta, err := types.MBToBytes(deltaMB)
	if err != nil {
		return nil, r.count("decrease", err)
	}

	current, err := r.Get(ctx, tenant.Name)
	if err != nil {
		return nil, r.count("decrease", err)
	}
	proposed := current - delta

	if proposed < types.MinQuotaBytes {
		return nil, r.count("decrease", &types.SafetyCheckViolation{
			Tenant:             tenant.Name,
			Reason:             fmt.Sprintf("proposed quota is below the %s minimum", types.FormatBytes(types.MinQuotaBytes)),
			CurrentQuotaBytes:  current,
			ProposedQuotaBytes: proposed,
		})
	}

	u, err := r.usage.Calculate(ctx, tenant)
	if err != nil {
		return nil, r.count("decrease", fmt.Errorf("usage for %s: %w", tenant.Name, err))
	}
	used := u.Total()

	if proposed < used {
		return nil, r.count("decrease", &types.SafetyCheckViolation{
			Tenant:             tenant.Name,
			Reason:             "proposed quota is below current usage",
			CurrentUsageBytes:  used,
			CurrentQuotaBytes:  current,
			ProposedQuotaBytes: proposed,
			ShortfallBytes:     used - proposed,
		})
	}

	headroom, err := types.UsagePercent(proposed-used, proposed)
	if err != nil {
		return nil, r.count("decrease", err)
	}
	if headroom < r.minHeadroomPct && !confirm {
		return nil, r.count("decrease", &types.ConfirmationRequired{
			Tenant:             tenant.Name,
			UsageBytes:         used,
			ProposedQuotaBytes: proposed,
			HeadroomPercent:    headroom,
		})
	}

	rec, err := r.store(ctx, tenant.Name, proposed)
	return rec, r.count("decrease", err)
}

// store writes the limit and clears the tenant's cooldowns in one transaction.
func (r *Registry) store(ctx context.Context, tenant string, limit int64) (*types.QuotaRecord, error) {
	rec := &types.QuotaRecord{Tenant: tenant, LimitBytes: limit}
	err := r.quotas.Tx(ctx, func(ctxTx context.Context) error {
		if err := r.quotas.Upsert(ctxTx, rec); err != nil {
			return fmt.Errorf("store quota for %s: %w", tenant, err)
		}
		if err := r.cooldowns.ClearTenant(ctxTx, tenant); err != nil {
			return fmt.Errorf("reset alert cooldowns for %s: %w", tenant, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("tenant", tenant).
		Int64("limitBytes", limit).
		Str("limit", types.FormatBytes(limit)).
		Msg("quota updated")
	return rec, nil
}

func (r *Registry) count(op string, err error) error {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, types.ErrSafetyCheck):
		result = "rejected"
	case errors.Is(err, types.ErrConfirmationRequired):
		result = "unconfirmed"
	case errors.Is(err, types.ErrValidation):
		result = "invalid"
	default:
		result = "error"
	}
	quotaChangesTotal.WithLabelValues(op, result).Inc()
	return err
}
