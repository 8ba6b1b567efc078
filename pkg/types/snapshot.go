// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// Usage is the result of one directory scan for a tenant.
type Usage struct {
	UploadsBytes   int64
	PublishedBytes int64
	// Missing lists billable directories that did not exist and were counted as zero.
	Missing []string
}

// Total is the billable usage.
func (u *Usage) Total() int64 {
	return u.UploadsBytes + u.PublishedBytes
}

// Degraded reports whether any billable directory was missing.
func (u *Usage) Degraded() bool {
	return len(u.Missing) > 0
}

// UsageSnapshot is the last known truth for a tenant, overwritten on every pass.
type UsageSnapshot struct {
	Tenant           string           `gorm:"primaryKey" json:"tenant"`
	UsageBytes       int64            `json:"usageBytes"`
	QuotaBytes       int64            `json:"quotaBytes"`
	UsagePercent     int              `json:"usagePercent"`
	UsageMB          int64            `json:"usageMB"`
	QuotaMB          int64            `json:"quotaMB"`
	Level            string           `json:"level"`
	EnforcementState EnforcementState `json:"enforcementState"`
	CheckedAt        time.Time        `json:"checkedAt"`
}

// NewUsageSnapshot fills the derived fields of a snapshot.
func NewUsageSnapshot(tenant string, usageBytes, quotaBytes int64, at time.Time) (*UsageSnapshot, UsageLevel, error) {
	level, pct, err := Classify(usageBytes, quotaBytes)
	if err != nil {
		return nil, LevelOK, err
	}
	return &UsageSnapshot{
		Tenant:       tenant,
		UsageBytes:   usageBytes,
		QuotaBytes:   quotaBytes,
		UsagePercent: pct,
		UsageMB:      BytesToMB(usageBytes),
		QuotaMB:      BytesToMB(quotaBytes),
		Level:        level.String(),
		CheckedAt:    at,
	}, level, nil
}
