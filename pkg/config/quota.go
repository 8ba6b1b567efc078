// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/pkg/errors"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type Quota struct {
	DefaultMB int64 `yaml:"default_mb" env:"QUOTA_DEFAULT_MB" env-default:"100" env-description:"quota applied to tenants without a quota record"`
	// MinHeadroomPercent is the headroom below which a decrease needs confirmation.
	MinHeadroomPercent int `yaml:"min_headroom_percent" env:"QUOTA_MIN_HEADROOM_PERCENT" env-default:"10" env-description:"decreases leaving less headroom than this require confirmation"`
}

func (q *Quota) Validate() error {
	if q.DefaultMB == 0 {
		q.DefaultMB = types.DefaultQuotaBytes / types.MiB
	}
	if q.DefaultMB < 0 {
		return errors.New("default quota must be positive")
	}
	if q.MinHeadroomPercent < 0 || q.MinHeadroomPercent > 100 {
		return errors.Errorf("min headroom percent %d out of range", q.MinHeadroomPercent)
	}
	return nil
}

// DefaultBytes returns the default quota in bytes.
func (q *Quota) DefaultBytes() int64 {
	return q.DefaultMB * types.MiB
}
