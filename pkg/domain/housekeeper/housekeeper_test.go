// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package housekeeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/domain/housekeeper"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types/mocks"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Database: config.Database{CleanupInterval: 10 * time.Millisecond},
		Alerts: config.Alerts{Cooldowns: config.Cooldowns{
			Warning:  24 * time.Hour,
			Critical: 24 * time.Hour,
			Over:     24 * time.Hour,
			Enforced: 24 * time.Hour,
			Restored: 24 * time.Hour,
			Realtime: time.Hour,
		}},
	}
}

func TestHouseKeeper_Purge(t *testing.T) {
	now := time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)
	clock := mocks.NewMockClock(now)
	stores, err := repo.NewInMemoryStores(clock)
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cooldowns.MarkSent(ctx, "acme", types.AlertWarning, now.Add(-25*time.Hour)))
	require.NoError(t, stores.Cooldowns.MarkSent(ctx, "acme", types.AlertCritical, now.Add(-23*time.Hour)))

	hk := housekeeper.New(ctx, stores.Cooldowns, clock, testSettings())
	removed, err := hk.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	last, err := stores.Cooldowns.LastSent(ctx, "acme", types.AlertCritical)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestHouseKeeper_Start(t *testing.T) {
	now := time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)
	clock := mocks.NewMockClock(now)
	stores, err := repo.NewInMemoryStores(clock)
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Cooldowns.MarkSent(ctx, "acme", types.AlertOver, now.Add(-48*time.Hour)))

	hk := housekeeper.New(ctx, stores.Cooldowns, clock, testSettings())
	require.NoError(t, hk.Start())
	assert.True(t, hk.IsRunning())

	assert.Eventually(t, func() bool {
		n, err := stores.Cooldowns.Count(ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hk.Shutdown())
	assert.False(t, hk.IsRunning())

	// restartable after shutdown
	require.NoError(t, hk.Start())
	assert.True(t, hk.IsRunning())
	require.NoError(t, hk.Shutdown())
}
