// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"

	"gorm.io/gorm"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var translations = []struct {
	from error
	to   error
}{
	{gorm.ErrRecordNotFound, types.ErrNotFound},
	{gorm.ErrDuplicatedKey, types.ErrDuplicateKey},
	{gorm.ErrForeignKeyViolated, types.ErrForeignKeyViolation},
	{gorm.ErrCheckConstraintViolated, types.ErrCheckConstraintViolated},
	{gorm.ErrInvalidTransaction, types.ErrInvalidTransaction},
	{gorm.ErrNotImplemented, types.ErrNotImplemented},
	{gorm.ErrMissingWhereClause, types.ErrMissingWhereClause},
	{gorm.ErrPrimaryKeyRequired, types.ErrPrimaryKeyRequired},
	{gorm.ErrModelValueRequired, types.ErrModelValueRequired},
	{gorm.ErrInvalidData, types.ErrInvalidData},
	{gorm.ErrInvalidField, types.ErrInvalidField},
	{gorm.ErrEmptySlice, types.ErrEmptySlice},
	{gorm.ErrInvalidDB, types.ErrInvalidDB},
	{gorm.ErrInvalidValue, types.ErrInvalidValue},
	{gorm.ErrInvalidValueOfLength, types.ErrInvalidValue},
}

// TranslateError maps GORM errors to application errors. Errors GORM does not
// define are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	for _, t := range translations {
		if errors.Is(err, t.from) {
			return t.to
		}
	}
	return err
}
