// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// NewDriver creates a standard *gorm.DB for the database dialect passed in.
// Tables are singular (tenant, quota_record, ...) and timestamps are UTC.
func NewDriver(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		NowFunc:        DatabaseNow,
		Logger:         &ZeroLogAdapter{SlowThreshold: DefaultSlowThreshold},
		TranslateError: true,
	})
}

// DatabaseNow returns time.Now() in UTC, truncated to Milliseconds.
func DatabaseNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Truncate normalizes a caller supplied timestamp the same way DatabaseNow does,
// so values read back compare equal to what was written.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
