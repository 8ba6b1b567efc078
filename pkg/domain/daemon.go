// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/domain/housekeeper"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/monitor"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

const (
	TriggerStartup  = "startup"
	TriggerShutdown = "shutdown"

	// DefaultShutdownGrace bounds how long shutdown waits for in-flight passes
	// before cancelling them.
	DefaultShutdownGrace = 30 * time.Second
)

var _ types.Runnable = (*Daemon)(nil)

// Daemon keeps one tenant's snapshot current. It runs a pass at startup, on
// debounced filesystem activity and on a fixed interval, and a final pass on
// shutdown.
type Daemon struct {
	services    *Services
	tenant      *types.Tenant
	watcher     *monitor.Watcher
	scanner     *monitor.Scanner
	housekeeper *housekeeper.HouseKeeper
	grace       time.Duration

	running     bool
	originalCtx context.Context
	mu          sync.Mutex

	// passMu guards pass intake; the watcher and scanner take it from their
	// own goroutines while Shutdown holds mu.
	passMu    sync.RWMutex
	accepting bool
	scheduler *monitor.Scheduler
	passCtx   context.Context
	cancel    context.CancelFunc
}

// NewDaemon fails with types.ErrConfiguration when settings name no valid tenant.
func NewDaemon(ctx context.Context, services *Services) (*Daemon, error) {
	settings := services.Settings
	if err := settings.RequireTenant(); err != nil {
		return nil, err
	}
	tenant, err := settings.NewTenant()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, err)
	}

	d := &Daemon{
		services:    services,
		tenant:      tenant,
		grace:       DefaultShutdownGrace,
		originalCtx: ctx,
		housekeeper: housekeeper.New(ctx, services.Stores.Cooldowns, services.Clock, settings),
	}
	d.reset()
	d.watcher = monitor.NewWatcher(ctx, tenant.BillablePaths(), settings.Watcher.Exclude, settings.Watcher.Debounce, d.schedule)
	d.scanner = monitor.NewScanner(ctx, settings.Scanner.Interval, d.schedule)
	return d, nil
}

// Tenant is the tenant this daemon accounts for.
func (d *Daemon) Tenant() *types.Tenant {
	return d.tenant
}

// SetShutdownGrace overrides DefaultShutdownGrace.
func (d *Daemon) SetShutdownGrace(grace time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grace = grace
}

// Start registers the tenant, runs the startup pass synchronously and then
// starts watching. A missing notification facility is fatal; there is no
// polling-only mode.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	ctx := d.passContext()
	registered := *d.tenant
	if err := d.services.Stores.Tenants.Upsert(ctx, &registered); err != nil {
		return fmt.Errorf("register tenant %s: %w", d.tenant.Name, err)
	}

	log.Ctx(ctx).Info().
		Str("tenant", d.tenant.Name).
		Strs("billable", d.tenant.BillablePaths()).
		Msg("starting quota monitor")
	d.runPass(ctx, TriggerStartup)

	if err := d.watcher.Start(); err != nil {
		return err
	}
	if err := d.scanner.Start(); err != nil {
		_ = d.watcher.Shutdown()
		return err
	}
	if err := d.housekeeper.Start(); err != nil {
		_ = d.scanner.Shutdown()
		_ = d.watcher.Shutdown()
		return err
	}
	d.passMu.Lock()
	d.accepting = true
	d.passMu.Unlock()
	d.running = true
	return nil
}

// Shutdown stops intake, waits for in-flight passes (cancelling them once the
// grace period expires) and runs one final synchronous pass.
func (d *Daemon) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}

	d.passMu.Lock()
	d.accepting = false
	scheduler, passCtx, cancelPasses := d.scheduler, d.passCtx, d.cancel
	d.passMu.Unlock()

	_ = d.watcher.Shutdown()
	_ = d.scanner.Shutdown()
	_ = d.housekeeper.Shutdown()
	scheduler.Close()

	waited := make(chan struct{})
	go func() {
		scheduler.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(d.grace):
		log.Ctx(passCtx).Warn().Dur("grace", d.grace).Msg("in-flight passes did not finish, cancelling")
		cancelPasses()
		<-waited
	}
	cancelPasses()

	// the caller's context is usually already cancelled by the signal that
	// triggered shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.originalCtx), d.grace)
	defer cancel()
	d.runPass(ctx, TriggerShutdown)

	log.Ctx(ctx).Info().Str("tenant", d.tenant.Name).Msg("quota monitor stopped")
	d.reset()
	return nil
}

func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Daemon) reset() {
	d.running = false
	d.passMu.Lock()
	defer d.passMu.Unlock()
	d.accepting = false
	d.passCtx, d.cancel = context.WithCancel(d.originalCtx)
	d.scheduler = monitor.NewScheduler(d.services.Settings.Watcher.MaxConcurrent)
}

func (d *Daemon) passContext() context.Context {
	d.passMu.RLock()
	defer d.passMu.RUnlock()
	return d.passCtx
}

// schedule is called by the watcher and the scanner.
func (d *Daemon) schedule(trigger string) {
	d.passMu.RLock()
	scheduler, ctx, accepting := d.scheduler, d.passCtx, d.accepting
	d.passMu.RUnlock()
	if !accepting {
		return
	}

	if err := scheduler.Submit(ctx, trigger, func(ctx context.Context) {
		d.runPass(ctx, trigger)
	}); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("trigger", trigger).Msg("accounting pass not scheduled")
	}
}

func (d *Daemon) runPass(ctx context.Context, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().Interface("panic", r).Str("trigger", trigger).Msg("recovered from panic in accounting pass")
		}
	}()
	// failures are already logged by the monitor
	_, _ = d.services.Monitor.RunPass(ctx, d.tenant, trigger)
}
