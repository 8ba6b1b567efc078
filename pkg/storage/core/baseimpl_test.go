// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

func TestBaseRepoImpl_Context(t *testing.T) {
	db := &gorm.DB{}
	ctx := context.Background()

	from, found := core.FromContext(context.Background())
	assert.Nil(t, from)
	assert.False(t, found)

	ctxTx := core.NewContext(ctx, db)
	from, found = core.FromContext(ctxTx)
	assert.Same(t, from, db)
	assert.True(t, found)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "not found", in: gorm.ErrRecordNotFound, want: types.ErrNotFound},
		{name: "wrapped not found", in: fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), want: types.ErrNotFound},
		{name: "duplicate", in: gorm.ErrDuplicatedKey, want: types.ErrDuplicateKey},
		{name: "value length", in: gorm.ErrInvalidValueOfLength, want: types.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.TranslateError(tt.in))
		})
	}

	other := errors.New("disk on fire")
	assert.Same(t, other, core.TranslateError(other))
}

func TestTruncate(t *testing.T) {
	in := time.Date(2024, 1, 2, 3, 4, 5, 678_901_234, time.FixedZone("X", 3600))
	out := core.Truncate(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, 678_000_000, out.Nanosecond())
	assert.True(t, in.Truncate(time.Millisecond).Equal(out))
}
