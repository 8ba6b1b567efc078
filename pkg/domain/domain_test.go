// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/domain"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types/mocks"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []*types.Message
	fail bool
}

func (s *recordingSender) Send(_ context.Context, msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("relay down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *recordingSender) count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if strings.Contains(m.Subject, substr) {
			n++
		}
	}
	return n
}

func (s *recordingSender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fixture struct {
	settings *config.Settings
	services *domain.Services
	admin    *domain.Admin
	tenant   *types.Tenant
	sender   *recordingSender
	clock    *mocks.MockClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	settings := &config.Settings{
		Tenant: config.Tenant{Name: "acme", Contact: "owner@acme.test"},
		Paths: config.Paths{
			UploadsRoot:   filepath.Join(root, "uploads"),
			PublishedRoot: filepath.Join(root, "published"),
			VCSRoot:       filepath.Join(root, "git"),
		},
		Quota: config.Quota{DefaultMB: 100, MinHeadroomPercent: 10},
		Alerts: config.Alerts{
			AdminAddress: "admin@host.test",
			Cooldowns: config.Cooldowns{
				Warning:  24 * time.Hour,
				Critical: 24 * time.Hour,
				Over:     24 * time.Hour,
				Enforced: 24 * time.Hour,
				Restored: 24 * time.Hour,
				Realtime: time.Hour,
			},
		},
		Watcher: config.Watcher{Debounce: 50 * time.Millisecond, MaxConcurrent: 5},
		Scanner: config.Scanner{Interval: time.Hour},
		Enforcement: config.Enforcement{
			NoticeFile: "QUOTA_EXCEEDED.txt",
			LockDir:    filepath.Join(root, "locks"),
		},
		Database: config.Database{CleanupInterval: time.Hour},
	}
	require.NoError(t, settings.Validate())

	tenant, err := settings.NewTenant()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(tenant.UploadsPath, 0o755))
	require.NoError(t, os.MkdirAll(tenant.PublishedPath, 0o755))
	require.NoError(t, os.MkdirAll(tenant.VCSPath, 0o755))
	t.Cleanup(func() { _ = os.Chmod(tenant.UploadsPath, 0o755) })

	clock := mocks.NewMockClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	stores, err := repo.NewInMemoryStores(clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	sender := &recordingSender{}
	services := domain.NewServices(settings, stores, sender, clock)
	return &fixture{
		settings: settings,
		services: services,
		admin:    domain.NewAdmin(services),
		tenant:   tenant,
		sender:   sender,
		clock:    clock,
	}
}

// writeMiB creates a sparse file; accounting counts apparent size.
func writeMiB(t *testing.T, dir, name string, mib int64) {
	t.Helper()
	file, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	require.NoError(t, file.Truncate(mib*types.MiB))
	require.NoError(t, file.Close())
}

func (f *fixture) pass(t *testing.T) *types.UsageSnapshot {
	t.Helper()
	snap, err := f.services.Monitor.RunPass(context.Background(), f.tenant, "test")
	require.NoError(t, err)
	return snap
}

func TestQuotaMonitor_WarningCrossing(t *testing.T) {
	f := newFixture(t)

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 70)
	snap := f.pass(t)
	assert.Equal(t, 70, snap.UsagePercent)
	assert.Equal(t, types.LevelOK.String(), snap.Level)
	assert.Zero(t, f.sender.total())

	writeMiB(t, f.tenant.PublishedPath, "b.bin", 15)
	snap = f.pass(t)
	assert.Equal(t, 85, snap.UsagePercent)
	assert.Equal(t, types.LevelWarning.String(), snap.Level)
	assert.Equal(t, types.StateActive, snap.EnforcementState)
	assert.Equal(t, 1, f.sender.count("warning: 85%"))

	// a second pass inside the cooldown stays silent
	f.pass(t)
	assert.Equal(t, 1, f.sender.total())

	stored, err := f.admin.GetSnapshot(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(85), stored.UsageMB)
	assert.Equal(t, int64(100), stored.QuotaMB)
}

func TestQuotaMonitor_VCSNotBilled(t *testing.T) {
	f := newFixture(t)

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 10)
	before := f.pass(t)
	writeMiB(t, f.tenant.VCSPath, "pack.bin", 200)
	after := f.pass(t)

	assert.Equal(t, before.UsageBytes, after.UsageBytes)
	assert.Equal(t, types.StateActive, after.EnforcementState)
}

func TestQuotaMonitor_OverEnforces(t *testing.T) {
	f := newFixture(t)

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 101)
	snap := f.pass(t)
	assert.Equal(t, 101, snap.UsagePercent)
	assert.Equal(t, types.LevelOver.String(), snap.Level)
	assert.Equal(t, types.StateEnforced, snap.EnforcementState)

	info, err := os.Stat(f.tenant.UploadsPath)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o555), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(f.tenant.UploadsPath, "QUOTA_EXCEEDED.txt"))
	require.NoError(t, err)

	assert.Equal(t, 1, f.sender.count("quota exceeded"))
	assert.Equal(t, 1, f.sender.count("read-only"))

	// repeated passes while over send nothing new
	f.pass(t)
	assert.Equal(t, 2, f.sender.total())
}

func TestQuotaMonitor_IncreaseWhileEnforcedStaysEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 101)
	f.pass(t)

	rec, err := f.admin.IncreaseQuota(ctx, "acme", 100)
	require.NoError(t, err)
	assert.Equal(t, 200*types.MiB, rec.LimitBytes)

	stored, err := f.admin.GetSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(200), stored.QuotaMB)
	assert.Equal(t, types.StateEnforced, stored.EnforcementState)

	snap := f.pass(t)
	assert.Equal(t, types.LevelOK.String(), snap.Level)
	assert.Equal(t, types.StateEnforced, snap.EnforcementState)

	state, err := f.admin.EnforcementState(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, types.StateEnforced, state)
}

func TestQuotaMonitor_FailedAlertRetriedNextPass(t *testing.T) {
	f := newFixture(t)

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 96)
	f.sender.setFail(true)
	snap := f.pass(t)
	assert.Equal(t, types.LevelCritical.String(), snap.Level)
	assert.Zero(t, f.sender.total())

	f.sender.setFail(false)
	f.pass(t)
	assert.Equal(t, 1, f.sender.count("critical: 96%"))
}

func TestAdmin_DecreaseSafetyCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 85)

	_, err := f.admin.DecreaseQuota(ctx, "acme", 20, false)
	var violation *types.SafetyCheckViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 5*types.MiB, violation.ShortfallBytes)

	_, err = f.admin.DecreaseQuota(ctx, "acme", 6, false)
	var confirm *types.ConfirmationRequired
	require.ErrorAs(t, err, &confirm)
	assert.Equal(t, 9, confirm.HeadroomPercent)

	rec, err := f.admin.DecreaseQuota(ctx, "acme", 6, true)
	require.NoError(t, err)
	assert.Equal(t, 94*types.MiB, rec.LimitBytes)
}

func TestAdmin_SetQuotaValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.SetQuota(ctx, "acme", 0)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.admin.SetQuota(ctx, "Bad Name", 10)
	assert.ErrorIs(t, err, types.ErrValidation)

	rec, err := f.admin.SetQuota(ctx, "acme", 50)
	require.NoError(t, err)
	assert.Equal(t, 50*types.MiB, rec.LimitBytes)
}

func TestAdmin_EnforceUnenforce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, changed, err := f.admin.Enforce(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.StateEnforced, snap.EnforcementState)

	_, changed, err = f.admin.Enforce(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, f.sender.count("read-only"))

	snap, changed, err = f.admin.Unenforce(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.StateActive, snap.EnforcementState)
	assert.Equal(t, 1, f.sender.count("access restored"))

	info, err := os.Stat(f.tenant.UploadsPath)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(f.tenant.UploadsPath, "QUOTA_EXCEEDED.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestAdmin_Snapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.GetSnapshot(ctx, "acme")
	assert.ErrorIs(t, err, types.ErrNotFound)

	f.pass(t)
	all, err := f.admin.GetSnapshotAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "acme", all[0].Tenant)
}

func TestAdmin_UnregisteredTenantUsesConfiguredLayout(t *testing.T) {
	f := newFixture(t)

	tenant, err := f.admin.Tenant(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.settings.Paths.UploadsRoot, "other", "files"), tenant.UploadsPath)
	assert.Empty(t, tenant.Contact)
}

func TestDaemon_RequiresTenant(t *testing.T) {
	f := newFixture(t)
	f.settings.Tenant.Name = ""

	_, err := domain.NewDaemon(context.Background(), f.services)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestDaemon_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := domain.NewDaemon(ctx, f.services)
	require.NoError(t, err)
	d.SetShutdownGrace(5 * time.Second)

	writeMiB(t, f.tenant.UploadsPath, "a.bin", 1)
	require.NoError(t, d.Start())
	assert.True(t, d.IsRunning())

	registered, err := f.services.Stores.Tenants.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", registered.Contact)

	snap, err := f.admin.GetSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.UsageMB)

	writeMiB(t, f.tenant.UploadsPath, "b.bin", 2)
	assert.Eventually(t, func() bool {
		snap, err := f.admin.GetSnapshot(ctx, "acme")
		return err == nil && snap.UsageMB == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, d.Shutdown())
	assert.False(t, d.IsRunning())

	// a restarted daemon picks up changes made while it was stopped
	f.clock.AdvanceTime(time.Minute)
	writeMiB(t, f.tenant.PublishedPath, "c.bin", 1)
	require.NoError(t, d.Start())
	require.NoError(t, d.Shutdown())
	snap, err = f.admin.GetSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.UsageMB)
}

func TestDaemon_ShutdownRunsFinalPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.Watcher.Debounce = time.Hour

	d, err := domain.NewDaemon(ctx, f.services)
	require.NoError(t, err)
	d.SetShutdownGrace(5 * time.Second)
	require.NoError(t, d.Start())

	writeMiB(t, f.tenant.UploadsPath, "late.bin", 2)
	snap, err := f.admin.GetSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Zero(t, snap.UsageMB, "debounced pass must not have run yet")

	require.NoError(t, d.Shutdown())

	snap, err = f.admin.GetSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.UsageMB)
}

// stallingUsage blocks the first armed calculation until its context ends.
type stallingUsage struct {
	inner    types.UsageCalculator
	armed    chan struct{}
	entered  chan struct{}
	released chan error
	once     sync.Once
}

func (s *stallingUsage) Calculate(ctx context.Context, tenant *types.Tenant) (*types.Usage, error) {
	select {
	case <-s.armed:
		stall := false
		s.once.Do(func() { stall = true })
		if stall {
			close(s.entered)
			<-ctx.Done()
			s.released <- ctx.Err()
			return nil, ctx.Err()
		}
	default:
	}
	return s.inner.Calculate(ctx, tenant)
}

func TestDaemon_ShutdownCancelsStalledPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	usage := &stallingUsage{
		inner:    f.services.Usage,
		armed:    make(chan struct{}),
		entered:  make(chan struct{}),
		released: make(chan error, 1),
	}
	f.services.Monitor = domain.NewQuotaMonitor(usage, f.services.Registry, f.services.Gate,
		f.services.Dispatcher, f.services.Controller, f.services.Stores.Snapshots, f.clock)

	d, err := domain.NewDaemon(ctx, f.services)
	require.NoError(t, err)
	d.SetShutdownGrace(200 * time.Millisecond)
	require.NoError(t, d.Start())

	close(usage.armed)
	writeMiB(t, f.tenant.UploadsPath, "a.bin", 3)
	select {
	case <-usage.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher pass never started")
	}

	done := make(chan error, 1)
	go func() { done <- d.Shutdown() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not cancel the stalled pass")
	}
	assert.ErrorIs(t, <-usage.released, context.Canceled)

	snap, err := f.admin.GetSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.UsageMB)
}

func TestDaemon_MissingTreesCountAsZero(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.tenant.UploadsPath))
	require.NoError(t, os.RemoveAll(f.tenant.PublishedPath))

	d, err := domain.NewDaemon(context.Background(), f.services)
	require.NoError(t, err)
	// with nothing to watch the daemon still starts; missing trees count as zero
	require.NoError(t, d.Start())
	require.NoError(t, d.Shutdown())

	snap, err := f.admin.GetSnapshot(context.Background(), "acme")
	require.NoError(t, err)
	assert.Zero(t, snap.UsageBytes)
}
