// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"

	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
)

// General Errors
var (
	// ErrNotFound is returned when a specific item or record is not found.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a duplicate key is detected during a write.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// Validation Errors
var (
	// ErrValidation is returned when caller input is rejected before any side effect.
	ErrValidation = errors.New("validation failed")

	// ErrMissingKey is returned when no key is provided for an operation.
	ErrMissingKey = errors.New("no key provided")

	// ErrPrimaryKeyRequired is returned when a primary key is required but not provided.
	ErrPrimaryKeyRequired = errors.New("primary key required")

	// ErrModelValueRequired is returned when a model value is required but not provided.
	ErrModelValueRequired = errors.New("model value required")

	// ErrInvalidData is returned when the provided data is invalid.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidField is returned when a provided field is invalid.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidValue is returned when a provided value is invalid.
	ErrInvalidValue = errors.New("invalid value")

	// ErrEmptySlice is returned when an operation is performed on an empty slice.
	ErrEmptySlice = errors.New("empty slice")
)

// Operational Errors
var (
	// ErrConfiguration is returned when the daemon configuration is missing or invalid.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrToolingUnavailable is returned when the filesystem notification facility cannot be used.
	ErrToolingUnavailable = errors.New("filesystem notifications unavailable")

	// ErrSafetyCheck is returned when a quota decrease would leave usage above the new limit.
	ErrSafetyCheck = errors.New("safety check violation")

	// ErrConfirmationRequired is returned when a quota decrease leaves little headroom
	// and the caller did not confirm.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrAlertDeliveryFailed is returned when a message could not be handed to the transport.
	ErrAlertDeliveryFailed = errors.New("alert delivery failed")

	// ErrEnforcementIO is returned when permissions or the notice file could not be changed.
	ErrEnforcementIO = errors.New("enforcement io error")

	// ErrInvalidTransaction is returned when a transaction is invalid.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrNotImplemented is returned when a feature or function is not implemented.
	ErrNotImplemented = errors.New("not implemented")

	// ErrMissingWhereClause is returned when a where clause is missing in a query.
	ErrMissingWhereClause = errors.New("missing where clause")

	// ErrInvalidDB is returned when an invalid database instance is provided.
	ErrInvalidDB = errors.New("invalid database")

	// ErrCheckConstraintViolated is returned when a check constraint is violated.
	ErrCheckConstraintViolated = errors.New("check constraint violated")
)

// SafetyCheckViolation describes why a quota decrease was refused.
type SafetyCheckViolation struct {
	Tenant             string
	Reason             string
	CurrentUsageBytes  int64
	CurrentQuotaBytes  int64
	ProposedQuotaBytes int64
	// ShortfallBytes is how much must be freed before the decrease can succeed.
	ShortfallBytes int64
}

func (e *SafetyCheckViolation) Error() string {
	return fmt.Sprintf(
		"quota decrease for %s rejected: %s (usage %s, current quota %s, proposed quota %s, free up at least %s)",
		e.Tenant, e.Reason,
		FormatBytes(e.CurrentUsageBytes),
		FormatBytes(e.CurrentQuotaBytes),
		FormatBytes(e.ProposedQuotaBytes),
		FormatBytes(e.ShortfallBytes),
	)
}

func (e *SafetyCheckViolation) Unwrap() error { return ErrSafetyCheck }

// ConfirmationRequired is returned by a decrease that is safe but leaves less than
// the minimum headroom on the new quota.
type ConfirmationRequired struct {
	Tenant             string
	UsageBytes         int64
	ProposedQuotaBytes int64
	HeadroomPercent    int
}

func (e *ConfirmationRequired) Error() string {
	return fmt.Sprintf(
		"quota decrease for %s leaves only %d%% headroom (usage %s of proposed %s); confirm to proceed",
		e.Tenant, e.HeadroomPercent, FormatBytes(e.UsageBytes), FormatBytes(e.ProposedQuotaBytes),
	)
}

func (e *ConfirmationRequired) Unwrap() error { return ErrConfirmationRequired }

// FormatBytes renders a byte count in binary units, clamping negatives to zero.
func FormatBytes(n int64) string {
	u, err := safecast.ToUint64(n)
	if err != nil {
		u = 0
	}
	return humanize.IBytes(u)
}
