// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package lock serializes work per tenant, both between goroutines of one
// process and between processes sharing a lock directory.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/im7mortal/kmutex"
)

const retryDelay = 50 * time.Millisecond

// TenantLocker hands out one exclusive section per tenant. The in-process key
// mutex is taken first, then `{dir}/{tenant}.lock` is flocked.
type TenantLocker struct {
	dir  string
	keys *kmutex.Kmutex
}

func NewTenantLocker(dir string) *TenantLocker {
	return &TenantLocker{dir: dir, keys: kmutex.New()}
}

// With runs fn while holding the tenant's lock. It gives up when ctx is done
// before the file lock is acquired.
func (l *TenantLocker) With(ctx context.Context, tenant string, fn func() error) error {
	l.keys.Lock(tenant)
	defer l.keys.Unlock(tenant)

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	fileLock := flock.New(l.Path(tenant))
	locked, err := fileLock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", tenant, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", tenant)
	}
	// the lock file stays in place; removing it would race with the next holder
	defer func() { _ = fileLock.Unlock() }()

	return fn()
}

// Path is the lock file used for tenant.
func (l *TenantLocker) Path(tenant string) string {
	return filepath.Join(l.dir, tenant+".lock")
}
