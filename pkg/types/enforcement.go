// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// EnforcementState is the persisted source of truth for write access. The
// permission bits on the uploads directory are a projection of this value.
type EnforcementState string

const (
	StateActive   EnforcementState = "active"
	StateEnforced EnforcementState = "enforced"
)

// EnforcementRecord stores the current enforcement state for a tenant.
type EnforcementRecord struct {
	Tenant        string           `gorm:"primaryKey" json:"tenant"`
	State         EnforcementState `json:"state"`
	Reason        string           `json:"reason"`
	RecordCreated time.Time        `json:"recordCreated"`
	RecordUpdated time.Time        `json:"recordUpdated"`
}
