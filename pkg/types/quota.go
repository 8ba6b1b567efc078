// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"math"
	"time"
)

const (
	// MiB is the unit quota limits are administered in.
	MiB int64 = 1024 * 1024

	// DefaultQuotaBytes applies to tenants without a quota record.
	DefaultQuotaBytes = 100 * MiB

	// MinQuotaBytes is the smallest quota an operator may configure.
	MinQuotaBytes = 1 * MiB

	// MaxQuotaMB is the largest quota, in MiB, that fits in an int64 byte count.
	MaxQuotaMB = math.MaxInt64 / MiB
)

// QuotaRecord maps a tenant to its byte ceiling.
type QuotaRecord struct {
	Tenant        string    `gorm:"primaryKey" json:"tenant"`
	LimitBytes    int64     `json:"limitBytes"`
	RecordCreated time.Time `json:"recordCreated"`
	RecordUpdated time.Time `json:"recordUpdated"`
}

// MBToBytes converts a quota given in MiB to bytes. Values outside
// 1..MaxQuotaMB are rejected with ErrValidation.
func MBToBytes(mb int64) (int64, error) {
	if mb <= 0 || mb > MaxQuotaMB {
		return 0, fmt.Errorf("%w: quota must be between 1 and %d MB, got %d", ErrValidation, MaxQuotaMB, mb)
	}
	return mb * MiB, nil
}

// BytesToMB truncates a byte count to whole mebibytes.
func BytesToMB(b int64) int64 {
	return b / MiB
}
