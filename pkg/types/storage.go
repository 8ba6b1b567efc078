// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"
)

// StorageCommon defines common methods all repos implement by virtue of using BaseRepoImpl.
type StorageCommon interface {
	// Tx runs block in a transaction.
	Tx(ctx context.Context, block func(ctxTx context.Context) error) error
	// Count returns the number of records.
	Count(ctx context.Context) (int, error)
	// DeleteAll deletes all records.
	DeleteAll(ctx context.Context) error
}

// Reader is an interface that defines the method that must be implemented by a
// repository that provides access to records that can be read.
type Reader[Model any, ID comparable] interface {
	// Get retrieves a record from the database by ID. It returns ErrNotFound if
	// the record does not exist.
	Get(ctx context.Context, id ID) (*Model, error)
}

// Upserter is implemented by repositories keyed by tenant, where a write always
// replaces whatever was stored before.
type Upserter[Model any] interface {
	// Upsert creates or overwrites the record. It may modify the input Model
	// along the way (e.g. to set the updated timestamp).
	Upsert(ctx context.Context, it *Model) error
}

// TenantStore holds tenant identities and their directory layout.
type TenantStore interface {
	StorageCommon
	Reader[Tenant, string]
	Upserter[Tenant]
	List(ctx context.Context) ([]*Tenant, error)
}

// QuotaStore holds the byte ceiling per tenant.
type QuotaStore interface {
	StorageCommon
	Reader[QuotaRecord, string]
	Upserter[QuotaRecord]
}

// SnapshotStore holds the last computed usage snapshot per tenant.
type SnapshotStore interface {
	StorageCommon
	Reader[UsageSnapshot, string]
	Upserter[UsageSnapshot]
	List(ctx context.Context) ([]*UsageSnapshot, error)
}

// EnforcementStore holds the explicit enforcement state per tenant.
type EnforcementStore interface {
	StorageCommon
	Reader[EnforcementRecord, string]
	Upserter[EnforcementRecord]
}

// CooldownStore holds the last delivery time per (tenant, alert kind).
type CooldownStore interface {
	StorageCommon
	// LastSent returns the zero time when the kind was never sent.
	LastSent(ctx context.Context, tenant string, kind AlertKind) (time.Time, error)
	MarkSent(ctx context.Context, tenant string, kind AlertKind, at time.Time) error
	// Clear forgets a single kind so its next alert is sent immediately.
	Clear(ctx context.Context, tenant string, kind AlertKind) error
	// ClearTenant drops every cooldown record for the tenant.
	ClearTenant(ctx context.Context, tenant string) error
	// Prune drops records last sent before cutoff and returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
