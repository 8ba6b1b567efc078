// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/utils"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2023, 10, 10, 10, 10, 10, 0, time.UTC)
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{name: "zero time", input: time.Time{}, expected: "never"},
		{name: "minutes", input: now.Add(-3 * time.Minute), expected: "3 minutes ago"},
		{name: "hours", input: now.Add(-2 * time.Hour), expected: "2 hours ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, utils.FormatAge(tt.input, now))
		})
	}
}

func TestGetCurrentTime(t *testing.T) {
	clock := &utils.Clock{}

	// Allow a margin of error for the time difference
	margin := 2 * time.Second

	startTime := time.Now().UTC()
	currentTime := clock.GetCurrentTime()
	endTime := time.Now().UTC()

	assert.WithinDuration(t, startTime, currentTime, margin, "currentTime should be within the margin of startTime")
	assert.WithinDuration(t, endTime, currentTime, margin, "currentTime should be within the margin of endTime")
	assert.Equal(t, time.UTC, currentTime.Location())
}
