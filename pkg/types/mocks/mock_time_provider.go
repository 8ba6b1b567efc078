// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"sync"
	"time"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var _ types.TimeProvider = (*MockClock)(nil)

// MockClock is a manually driven TimeProvider for cooldown and snapshot tests.
type MockClock struct {
	mu          sync.RWMutex
	currentTime time.Time
}

func NewMockClock(initialTime time.Time) *MockClock {
	return &MockClock{
		currentTime: initialTime,
	}
}

func (mc *MockClock) GetCurrentTime() time.Time {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.currentTime
}

func (mc *MockClock) SetCurrentTime(t time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.currentTime = t
}

// AdvanceTime moves the clock forward by d.
func (mc *MockClock) AdvanceTime(d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.currentTime = mc.currentTime.Add(d)
}
