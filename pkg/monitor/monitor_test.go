// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package monitor_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/monitor"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var fired atomic.Int32
	d := monitor.NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	assert.True(t, d.Trigger())
	for i := 0; i < 4; i++ {
		assert.False(t, d.Trigger())
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, d.Pending())

	// a later event opens a new burst
	assert.True(t, d.Trigger())
	assert.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestDebouncer_Stop(t *testing.T) {
	var fired atomic.Int32
	d := monitor.NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })
	d.Trigger()
	assert.True(t, d.Stop())
	assert.False(t, d.Trigger())
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestScheduler_CapsConcurrency(t *testing.T) {
	s := monitor.NewScheduler(3)
	ctx := context.Background()

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Submit(ctx, "test", func(ctx context.Context) {
			assert.LessOrEqual(t, s.InFlight(), int64(3))
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}))
	}
	s.Wait()

	assert.Equal(t, int32(20), ran.Load(), "no pass is dropped")
	assert.LessOrEqual(t, s.Peak(), int64(3))
	assert.Equal(t, int64(3), s.Limit())
	assert.Zero(t, s.InFlight())
}

func TestScheduler_Close(t *testing.T) {
	s := monitor.NewScheduler(1)
	s.Close()
	err := s.Submit(context.Background(), "test", func(context.Context) {})
	assert.ErrorIs(t, err, monitor.ErrSchedulerClosed)
	s.Wait()
}

func TestScheduler_SubmitCancelled(t *testing.T) {
	s := monitor.NewScheduler(1)
	release := make(chan struct{})
	require.NoError(t, s.Submit(context.Background(), "test", func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Submit(ctx, "test", func(context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	s.Wait()
}

func TestScanner(t *testing.T) {
	var scans atomic.Int32
	s := monitor.NewScanner(context.Background(), 10*time.Millisecond, func(trigger string) {
		assert.Equal(t, monitor.TriggerScan, trigger)
		scans.Add(1)
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return scans.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Shutdown())
	assert.False(t, s.IsRunning())
	after := scans.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, scans.Load())

	// restartable
	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return scans.Load() > after }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Shutdown())
}

func TestFileMonitor_PublishesEvents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))

	bus := monitor.NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	fm, err := monitor.NewFileMonitor(context.Background(), bus, []string{root, filepath.Join(root, "missing")}, []string{".git"})
	require.NoError(t, err)
	fm.Start()
	defer fm.Close()

	assert.ElementsMatch(t, []string{root, filepath.Join(root, "sub")}, fm.WatchList())

	target := filepath.Join(root, "sub", "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, monitor.FileCreated, ev.Type)
		assert.Equal(t, types.FileEvent{Name: target}, ev.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestFileMonitor_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	bus := monitor.NewBus()
	fm, err := monitor.NewFileMonitor(context.Background(), bus, []string{root}, nil)
	require.NoError(t, err)
	fm.Start()
	defer fm.Close()

	newDir := filepath.Join(root, "album")
	require.NoError(t, os.Mkdir(newDir, 0o755))
	assert.Eventually(t, func() bool {
		for _, w := range fm.WatchList() {
			if w == newDir {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_DebouncesBurstIntoOnePass(t *testing.T) {
	root := t.TempDir()
	var mu sync.Mutex
	var triggers []string
	w := monitor.NewWatcher(context.Background(), []string{root}, []string{".git"}, 150*time.Millisecond, func(trigger string) {
		mu.Lock()
		defer mu.Unlock()
		triggers = append(triggers, trigger)
	})
	require.NoError(t, w.Start())
	defer w.Shutdown()
	assert.True(t, w.IsRunning())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, fmt.Sprintf("f%d.bin", i)), []byte("data"), 0o644))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(triggers) == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{monitor.TriggerEvent}, triggers)
}

func TestWatcher_Shutdown(t *testing.T) {
	w := monitor.NewWatcher(context.Background(), []string{t.TempDir()}, nil, time.Second, func(string) {})
	require.NoError(t, w.Start())
	require.NoError(t, w.Shutdown())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Shutdown())
}
