// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var _ types.TimeProvider = (*Clock)(nil)

type Clock struct{}

func (c *Clock) GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// FormatAge renders how long before now t happened, e.g. "3 minutes ago".
// A zero t renders as "never".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
