// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import "context"

//go:generate mockgen -destination=mocks/interfaces_mock.go -package=mocks . Sender,UsageCalculator

// Sender delivers a message to its recipients.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// UsageCalculator computes billable usage for a tenant.
type UsageCalculator interface {
	Calculate(ctx context.Context, tenant *Tenant) (*Usage, error)
}
