// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package repo implements the quota agent's repositories on top of gorm.
// Every table is keyed by tenant; writes replace the previous row.
package repo

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/sqlite"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var (
	storageStatsOnce     sync.Once
	StorageWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_storage_write_failure_total",
			Help: "Total number of storage write failures.",
		},
		[]string{"table", "action"},
	)
)

// Stores bundles every repository backed by one database.
type Stores struct {
	Tenants     types.TenantStore
	Quotas      types.QuotaStore
	Snapshots   types.SnapshotStore
	Enforcement types.EnforcementStore
	Cooldowns   types.CooldownStore

	db *gorm.DB
}

// Open opens the database at location (in memory when empty) and builds the stores.
func Open(clock types.TimeProvider, location string) (*Stores, error) {
	db, err := sqlite.Open(location)
	if err != nil {
		return nil, err
	}
	return NewStores(clock, db)
}

// NewInMemoryStores builds stores over a private in-memory database.
func NewInMemoryStores(clock types.TimeProvider) (*Stores, error) {
	return Open(clock, "")
}

// NewStores migrates the schema and builds the repositories over db.
func NewStores(clock types.TimeProvider, db *gorm.DB) (*Stores, error) {
	storageStatsOnce.Do(func() {
		prometheus.MustRegister(StorageWriteFailures)
	})

	if err := db.AutoMigrate(
		&types.Tenant{},
		&types.QuotaRecord{},
		&types.UsageSnapshot{},
		&types.EnforcementRecord{},
		&types.AlertCooldown{},
	); err != nil {
		return nil, core.TranslateError(err)
	}

	return &Stores{
		Tenants:     &tenantRepoImpl{BaseRepoImpl: core.NewBaseRepoImpl(db, &types.Tenant{}), clock: clock},
		Quotas:      &quotaRepoImpl{BaseRepoImpl: core.NewBaseRepoImpl(db, &types.QuotaRecord{}), clock: clock},
		Snapshots:   &snapshotRepoImpl{BaseRepoImpl: core.NewBaseRepoImpl(db, &types.UsageSnapshot{})},
		Enforcement: &enforcementRepoImpl{BaseRepoImpl: core.NewBaseRepoImpl(db, &types.EnforcementRecord{}), clock: clock},
		Cooldowns:   &cooldownRepoImpl{BaseRepoImpl: core.NewBaseRepoImpl(db, &types.AlertCooldown{})},
		db:          db,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Stores) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return core.TranslateError(err)
	}
	return sqlDB.Close()
}

func writeFailed(ctx context.Context, table, action string, err error) error {
	log.Ctx(ctx).Warn().Err(err).Str("table", table).Str("action", action).Msg("storage write failure")
	StorageWriteFailures.With(prometheus.Labels{"table": table, "action": action}).Inc()
	return core.TranslateError(err)
}

// get loads the row of type M whose key column equals id.
func get[M any](ctx context.Context, b *core.BaseRepoImpl, column, id string) (*M, error) {
	if id == "" {
		return nil, types.ErrMissingKey
	}
	it := new(M)
	if err := b.DB(ctx).First(it, column+" = ?", id).Error; err != nil {
		return nil, core.TranslateError(err)
	}
	return it, nil
}
